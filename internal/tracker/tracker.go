// Package tracker keeps the running tallies of a batch. All methods are safe
// for concurrent use by the batch workers.
package tracker

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Outcome is what one finished session contributes to the tallies.
type Outcome struct {
	Spans           int
	Connected       bool
	Commands        int
	CommandFailures int
	ScanOutcome     string // empty when the session did not scan
	Persona         string
	Device          string
	Scenario        string
	Duration        time.Duration
}

// Tally accumulates outcomes.
type Tally struct {
	sessions        atomic.Int64
	spans           atomic.Int64
	connected       atomic.Int64
	connectFailures atomic.Int64
	commands        atomic.Int64
	commandFailures atomic.Int64
	simulated       atomic.Int64

	mu        sync.Mutex
	scans     map[string]int64
	personas  map[string]int64
	devices   map[string]int64
	scenarios map[string]int64
}

// New returns an empty Tally.
func New() *Tally {
	return &Tally{
		scans:     map[string]int64{},
		personas:  map[string]int64{},
		devices:   map[string]int64{},
		scenarios: map[string]int64{},
	}
}

// Add records one session outcome.
func (t *Tally) Add(o Outcome) {
	t.sessions.Add(1)
	t.spans.Add(int64(o.Spans))
	if o.Connected {
		t.connected.Add(1)
	} else {
		t.connectFailures.Add(1)
	}
	t.commands.Add(int64(o.Commands))
	t.commandFailures.Add(int64(o.CommandFailures))
	t.simulated.Add(int64(o.Duration))

	t.mu.Lock()
	defer t.mu.Unlock()

	if o.ScanOutcome != "" {
		t.scans[o.ScanOutcome]++
	}
	t.personas[o.Persona]++
	t.devices[o.Device]++
	t.scenarios[o.Scenario]++
}

// Sessions returns the number of outcomes added so far.
func (t *Tally) Sessions() int64 {
	return t.sessions.Load()
}

// Snapshot is a point-in-time copy of a Tally.
type Snapshot struct {
	Sessions        int64            `json:"sessions"`
	Spans           int64            `json:"spans"`
	Connected       int64            `json:"connected"`
	ConnectFailures int64            `json:"connectFailures"`
	Commands        int64            `json:"commands"`
	CommandFailures int64            `json:"commandFailures"`
	SimulatedTime   time.Duration    `json:"simulatedTimeNs"`
	ScanOutcomes    map[string]int64 `json:"scanOutcomes"`
	Personas        map[string]int64 `json:"personas"`
	Devices         map[string]int64 `json:"devices"`
	Scenarios       map[string]int64 `json:"scenarios"`
}

// Snapshot copies the current tallies.
func (t *Tally) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Snapshot{
		Sessions:        t.sessions.Load(),
		Spans:           t.spans.Load(),
		Connected:       t.connected.Load(),
		ConnectFailures: t.connectFailures.Load(),
		Commands:        t.commands.Load(),
		CommandFailures: t.commandFailures.Load(),
		SimulatedTime:   time.Duration(t.simulated.Load()),
		ScanOutcomes:    maps.Clone(t.scans),
		Personas:        maps.Clone(t.personas),
		Devices:         maps.Clone(t.devices),
		Scenarios:       maps.Clone(t.scenarios),
	}
}
