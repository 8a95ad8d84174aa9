// Package clock abstracts the passage of simulated time.
//
// Every simulated latency is a suspension point. Real sleeps on the wall clock,
// Virtual advances an in-memory cursor instantly so sessions can be backfilled
// or tested without waiting.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock reports the current time and suspends for simulated latencies.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the wall clock.
type Real struct{}

// Now returns time.Now.
func (Real) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx is done.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Virtual is a manually advanced clock. Sleep returns immediately after
// moving the cursor forward, so time never goes backwards.
type Virtual struct {
	mu  sync.Mutex
	now time.Time
}

// NewVirtual returns a virtual clock positioned at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

// Now returns the cursor.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.now
}

// Sleep advances the cursor by d. Negative durations are ignored.
func (v *Virtual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.Advance(d)

	return nil
}

// Advance moves the cursor forward by d.
func (v *Virtual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}

	v.mu.Lock()
	v.now = v.now.Add(d)
	v.mu.Unlock()
}
