package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Connect dials url and returns a JetStream context. When stream is set, the
// stream is created or updated to capture <prefix>.>.
func Connect(ctx context.Context, url, stream, prefix string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url, nats.Name("remotesim"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream: %w", err)
	}

	if stream != "" {
		if prefix == "" {
			prefix = DefaultSubjectPrefix
		}
		_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     stream,
			Subjects: []string{prefix + ".>"},
		})
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("ensure stream %s: %w", stream, err)
		}
	}

	return nc, js, nil
}
