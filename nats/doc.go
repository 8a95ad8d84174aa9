// Package nats publishes finished simulated spans to NATS JetStream.
//
// A [Sink] implements tracing.Client. Each span is buffered in memory while
// it is open and, once finished, encoded as a JSON [Record] and published to
// <prefix>.<op>, for example remotesim.spans.bt.connection. The message
// carries the W3C trace context and baggage of the session (including the
// simulated user id) and a Nats-Msg-Id header for JetStream deduplication.
//
//	nc, js, err := nats.Connect(ctx, "nats://localhost:4222", "REMOTESIM", "")
//	if err != nil {
//	    return err
//	}
//	defer nc.Close()
//
//	sink := nats.NewSink(js, nats.WithStream("REMOTESIM"))
//	defer sink.Close(ctx)
//	client := tracing.NewFanout(otelClient, sink)
//
// Publishing never blocks the simulation: records go through a bounded queue
// and a full queue drops them with a warning.
package nats
