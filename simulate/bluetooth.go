package simulate

import (
	"context"
	"fmt"

	"github.com/arloliu/remotesim/catalog"
	"github.com/arloliu/remotesim/sampler"
	"github.com/arloliu/remotesim/spantree"
	"github.com/arloliu/remotesim/tracing"
)

// FoundDevice is one entry of a scan result.
type FoundDevice struct {
	Name      string
	SignalDBM float64
	// Stale marks devices served from the cache after a scan timeout.
	Stale bool
}

// ScanResult is the outcome of a device scan.
type ScanResult struct {
	Outcome    catalog.ScanOutcome
	Devices    []FoundDevice
	DurationMs float64
	Err        *FailureError
}

var scanFailureReasons = map[catalog.ScanOutcome]string{
	catalog.ScanFailure: "no_devices_found",
	catalog.ScanPartial: "partial_discovery",
	catalog.ScanTimeout: "scan_timeout",
}

// Scan simulates a Bluetooth discovery pass. The duration does not depend on
// the device; the outcome is drawn from the catalog's scan weights.
func (s *Simulator) Scan(ctx context.Context, parent *spantree.Span) (ScanResult, error) {
	span := s.tree.Start(ctx, parent, OpScan, "Scan for audio devices")

	ms, err := s.rng.Uniform(s.catalog.Timings.Scan)
	if err != nil {
		return ScanResult{}, abort(span, err)
	}
	outcome, err := sampler.Choose(s.rng, s.catalog.ScanTable())
	if err != nil {
		return ScanResult{}, abort(span, err)
	}

	s.crumb(span, tracing.LevelInfo, CategoryBluetooth, "Scanning for devices")
	s.wait(ctx, ms)

	devices, err := s.discover(outcome)
	if err != nil {
		return ScanResult{}, abort(span, err)
	}
	res := ScanResult{Outcome: outcome, Devices: devices, DurationMs: round(ms)}

	span.SetTag("scan_result", string(outcome))
	span.SetData("devices_found", float64(len(devices)))
	span.SetData("scan_duration_ms", res.DurationMs)

	if outcome == catalog.ScanSuccess {
		span.SetTag("scan_status", "success")
		s.crumb(span, tracing.LevelInfo, CategoryBluetooth, fmt.Sprintf("Found %d devices", len(devices)))
	} else {
		reason := scanFailureReasons[outcome]
		span.SetTag("scan_status", "failed")
		span.SetTag("failure_reason", reason)
		if outcome == catalog.ScanTimeout {
			span.SetBool("cached_results", true)
		}
		res.Err = s.fail(span, reason, map[string]string{"scan_result": string(outcome)})
		s.crumb(span, tracing.LevelWarning, CategoryBluetooth, "Scan incomplete: "+reason)
	}

	return res, span.Finish()
}

func (s *Simulator) discover(outcome catalog.ScanOutcome) ([]FoundDevice, error) {
	names := s.catalog.DeviceNames()

	var count int
	signal := s.catalog.Timings.Signal
	stale := false

	switch outcome {
	case catalog.ScanSuccess:
		count = len(names)
	case catalog.ScanPartial:
		n, err := s.rng.IntN(sampler.IntRange{Min: 1, Max: 2})
		if err != nil {
			return nil, err
		}
		count = min(n, len(names))
	case catalog.ScanTimeout:
		n, err := s.rng.IntN(sampler.IntRange{Min: 1, Max: max(1, len(names))})
		if err != nil {
			return nil, err
		}
		count = min(n, len(names))
		signal = s.catalog.Timings.DegradedSignal
		stale = true
	default:
		return nil, nil
	}

	perm := s.rng.Perm(len(names))
	devices := make([]FoundDevice, 0, count)
	for _, i := range perm[:count] {
		dbm, err := s.rng.Uniform(signal)
		if err != nil {
			return nil, err
		}
		devices = append(devices, FoundDevice{Name: names[i], SignalDBM: round(dbm), Stale: stale})
	}

	return devices, nil
}

// ConnectResult is the outcome of a connection attempt.
type ConnectResult struct {
	Connected bool
	LatencyMs float64
	SignalDBM float64
	Err       *FailureError
}

// Connect simulates connecting to the session device. Success probability is
// the device's effective reliability. A ui.state.render child reports the
// outcome either way.
func (s *Simulator) Connect(ctx context.Context, parent *spantree.Span) (ConnectResult, error) {
	d := s.env.Device
	span := s.tree.Start(ctx, parent, OpConnect, "Connect to "+d.Name)

	latency, err := s.rng.Duration(d.Latency, s.env.Scenario.Latency())
	if err != nil {
		return ConnectResult{}, abort(span, err)
	}

	s.crumb(span, tracing.LevelInfo, CategoryBluetooth, "Connecting to "+d.Name)
	s.wait(ctx, latency)

	res := ConnectResult{Connected: s.rng.Outcome(d.Reliability), LatencyMs: round(latency)}

	signal := s.catalog.Timings.Signal
	if !res.Connected {
		signal = s.catalog.Timings.DegradedSignal
	}
	dbm, err := s.rng.Uniform(signal)
	if err != nil {
		return ConnectResult{}, abort(span, err)
	}
	res.SignalDBM = round(dbm)

	span.SetTag("device_name", d.Name)
	span.SetTag("device_type", d.Type)
	span.SetTag("scenario", s.env.Scenario.Name)
	span.SetData("signal_strength", res.SignalDBM)
	span.SetData("device_reliability", d.Reliability)
	if d.Battery != nil {
		span.SetData("battery_level", float64(*d.Battery))
	}

	change := "connected"
	if res.Connected {
		span.SetTag("connection_result", "connected")
		span.SetData("connection_time_ms", res.LatencyMs)
		s.crumb(span, tracing.LevelInfo, CategoryBluetooth, "Connected to "+d.Name)
	} else {
		change = "connection_failed"
		span.SetTag("connection_result", "failed")
		span.SetTag("failure_reason", "timeout")
		span.SetData("timeout_after_ms", res.LatencyMs)
		res.Err = s.fail(span, "timeout", nil)
		s.crumb(span, tracing.LevelError, CategoryBluetooth, "Connection to "+d.Name+" timed out")
	}

	if _, err := s.RenderState(ctx, span, change); err != nil {
		return res, abort(span, err)
	}

	return res, span.Finish()
}

// CommandResult is the outcome of a write-command operation.
type CommandResult struct {
	Command catalog.Command
	Success bool
	WriteMs float64
	AckMs   float64
	TotalMs float64
	Err     *FailureError
}

// WriteCommand simulates the two-phase command exchange. Phase one writes the
// command and may fail with the persona's (or scenario's) error rate; phase
// two waits for the device acknowledgement and always succeeds. A successful
// command ends with a short ui.state.render child.
func (s *Simulator) WriteCommand(ctx context.Context, parent *spantree.Span, cmd catalog.Command) (CommandResult, error) {
	d := s.env.Device
	mult := d.CommandScale() * s.env.Scenario.Latency()
	res := CommandResult{Command: cmd}

	span := s.tree.Start(ctx, parent, OpWrite, "Write "+cmd.Type)
	span.SetTag("command_type", cmd.Type)
	span.SetTag("control_type", cmd.Control)
	span.SetTag("device_name", d.Name)

	write, err := s.rng.Duration(cmd.Write, mult)
	if err != nil {
		return res, abort(span, err)
	}
	s.wait(ctx, write)
	res.WriteMs = round(write)
	span.SetData("write_latency_ms", res.WriteMs)

	if s.rng.Outcome(s.env.Scenario.CommandFailure(s.env.Persona)) {
		span.SetTag("command_status", "failed")
		span.SetTag("failure_reason", "write_timeout")
		res.Err = s.fail(span, "write_timeout", map[string]string{"command_type": cmd.Type})
		s.crumb(span, tracing.LevelError, CategoryCommand, cmd.Type+" write failed")

		return res, span.Finish()
	}

	ack, err := s.rng.Duration(cmd.Ack, mult)
	if err != nil {
		return res, abort(span, err)
	}
	res.AckMs = round(ack)
	if _, err := s.leaf(ctx, span, OpResponse, "Ack "+cmd.Type, ack,
		map[string]string{"ack_status": "acknowledged", "command_type": cmd.Type},
		map[string]float64{"ack_latency_ms": res.AckMs, "status_code": 0},
	); err != nil {
		return res, abort(span, err)
	}

	res.Success = true
	res.TotalMs = round(write + ack)
	span.SetTag("command_status", "success")
	span.SetData("total_latency_ms", res.TotalMs)

	renderMs, err := s.commandRender(res.TotalMs)
	if err != nil {
		return res, abort(span, err)
	}
	if _, err := s.render(ctx, span, "command."+cmd.Type, renderMs); err != nil {
		return res, abort(span, err)
	}
	s.crumb(span, tracing.LevelInfo, CategoryCommand, cmd.Type+" acknowledged")

	return res, span.Finish()
}

// commandRender returns min(total*fraction, cap) with both bounds drawn from
// the catalog timings.
func (s *Simulator) commandRender(totalMs float64) (float64, error) {
	frac, err := s.rng.Uniform(s.catalog.Timings.RenderFraction)
	if err != nil {
		return 0, err
	}
	capMs, err := s.rng.Uniform(s.catalog.Timings.RenderCap)
	if err != nil {
		return 0, err
	}

	return min(totalMs*frac, capMs), nil
}

// abort finishes span after a contract error so no open span is left behind,
// and returns err joined with any finish error.
func abort(span *spantree.Span, err error) error {
	span.SetTag("simulation_error", err.Error())
	if ferr := span.Finish(); ferr != nil {
		return fmt.Errorf("%w (finish: %w)", err, ferr)
	}

	return err
}
