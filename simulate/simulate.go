// Package simulate implements the operation simulators: scan, connect,
// write-command with device response, UI render, interaction, screen load,
// navigation and the playback controls.
//
// Each simulator composes the sampler and the span tree into a finished
// sub-tree under the given parent. Domain failures (timeouts, empty scans,
// failed writes) are outcomes, reported through the tree's error sink and
// returned as data; only contract violations come back as errors.
package simulate

import (
	"context"
	"fmt"
	"time"

	"github.com/arloliu/remotesim/catalog"
	"github.com/arloliu/remotesim/sampler"
	"github.com/arloliu/remotesim/spantree"
	"github.com/arloliu/remotesim/tracing"
)

// Operation kinds.
const (
	OpSession  = "session"
	OpScan     = "bt.scan"
	OpConnect  = "bt.connection"
	OpWrite    = "bt.write.command"
	OpResponse = "device.response"
	OpRender   = "ui.state.render"
	OpAction   = "ui.action.user"
	OpScreen   = "ui.screen.load"
)

// Breadcrumb categories.
const (
	CategoryBluetooth  = "bluetooth"
	CategoryCommand    = "command"
	CategoryNavigation = "navigation"
	CategoryUI         = "ui"
)

// FailureError is a simulated domain failure.
type FailureError struct {
	Op     string
	Reason string
	Device string
}

func (e *FailureError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Reason)
	}

	return fmt.Sprintf("%s failed on %s: %s", e.Op, e.Device, e.Reason)
}

// Env is the per-session parameter set every simulator reads.
type Env struct {
	Persona  catalog.Persona
	Device   catalog.Device // reliability pins already applied
	Scenario catalog.Scenario
}

// Simulator runs operations for one session. It is not safe for concurrent use.
type Simulator struct {
	tree    *spantree.Tree
	rng     *sampler.Sampler
	catalog *catalog.Catalog
	env     Env
}

// New creates a Simulator bound to one session's tree, sampler and environment.
func New(tree *spantree.Tree, rng *sampler.Sampler, cat *catalog.Catalog, env Env) *Simulator {
	return &Simulator{
		tree:    tree,
		rng:     rng,
		catalog: cat,
		env:     env,
	}
}

// Env returns the session environment.
func (s *Simulator) Env() Env {
	return s.env
}

// wait suspends for ms simulated milliseconds.
func (s *Simulator) wait(ctx context.Context, ms float64) {
	s.tree.Wait(ctx, sampler.Millis(ms))
}

// leaf starts a span, waits ms and finishes it with the given tags and data.
func (s *Simulator) leaf(
	ctx context.Context,
	parent *spantree.Span,
	op, description string,
	ms float64,
	tags map[string]string,
	data map[string]float64,
) (*spantree.Span, error) {
	span := s.tree.Start(ctx, parent, op, description)
	s.wait(ctx, ms)
	for k, v := range tags {
		span.SetTag(k, v)
	}
	for k, v := range data {
		span.SetData(k, v)
	}

	return span, span.Finish()
}

func (s *Simulator) fail(span *spantree.Span, reason string, tags map[string]string) *FailureError {
	err := &FailureError{Op: span.Op(), Reason: reason, Device: s.env.Device.Name}

	all := map[string]string{
		"failure_reason": reason,
		"device_name":    s.env.Device.Name,
		"scenario":       s.env.Scenario.Name,
	}
	for k, v := range tags {
		all[k] = v
	}
	s.tree.CaptureError(span, err, all)

	return err
}

// round keeps reported milliseconds to microsecond precision.
func round(ms float64) float64 {
	return float64(sampler.Millis(ms).Round(time.Microsecond)) / float64(time.Millisecond)
}

func (s *Simulator) crumb(span *spantree.Span, level tracing.Level, category, message string) {
	s.tree.Breadcrumb(span, level, category, message)
}
