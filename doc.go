// Package remotesim generates synthetic telemetry for a fictitious
// Bluetooth audio remote-control app.
//
// The root package owns the ambient wiring shared by the CLI and the control
// server: the YAML/env configuration ([Config], loaded with fuda), the
// process logger ([NewLogger]) and the OpenTelemetry pipeline the simulated
// sessions are exported through ([SetupTelemetry]).
//
// # Layout
//
//   - catalog: personas, devices, scenarios and the tuned demo skews
//   - sampler: seeded duration and outcome sampling
//   - spantree: span lifecycle bookkeeping on a pluggable clock
//   - simulate: Bluetooth, command and UI operation simulators
//   - session: the per-session state machine
//   - batch: the worker pool running N sessions
//   - tracing: the tracing client boundary (OTel, recorder, fanout)
//   - nats: JetStream span record sink
//   - control: HTTP control API, Prometheus metrics and completion webhook
//
// # Quick Start
//
//	cfg, err := remotesim.LoadConfig("remotesim.yaml")
//	if err != nil {
//	    return err
//	}
//	tel, err := remotesim.SetupTelemetry(ctx, &cfg.Telemetry, logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
// # Environment Variables
//
// Standard OTEL_* variables configure the exporters. REMOTESIM_* variables
// override the batch and simulation sections, e.g. REMOTESIM_SESSIONS,
// REMOTESIM_SEED and REMOTESIM_REALTIME.
package remotesim
