// Package session drives one simulated user journey end to end.
//
// The Orchestrator is an explicit state machine:
//
//	Start -> ScreenLoad -> [Scan] -> Connect -> [Commands] -> [Navigate] -> End
//
// Scan and Navigate are taken with configurable probabilities. A failed
// connection jumps straight to End. Every session gets its own span tree,
// sampler and clock from the caller, so sessions never share mutable state.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arloliu/remotesim/catalog"
	"github.com/arloliu/remotesim/internal/clock"
	"github.com/arloliu/remotesim/sampler"
	"github.com/arloliu/remotesim/simulate"
	"github.com/arloliu/remotesim/spantree"
	"github.com/arloliu/remotesim/tracing"
)

// ErrUnknownPin is returned when a pinned persona, device or scenario is not in the catalog.
var ErrUnknownPin = errors.New("session: pinned entry not in catalog")

// Config tunes the orchestrator.
type Config struct {
	// Persona, Device and Scenario pin the selection when non-empty.
	Persona  string
	Device   string
	Scenario string

	// ScanProbability is the chance a session scans before connecting.
	ScanProbability float64
	// NavigateProbability is the chance a connected session ends on a secondary screen.
	NavigateProbability float64

	// Strict rejects parents finished before their children.
	Strict bool
}

// DefaultConfig returns the default orchestrator settings.
func DefaultConfig() Config {
	return Config{ScanProbability: 0.8, NavigateProbability: 0.5}
}

// Orchestrator runs sessions. It holds only read-only state and is safe for
// concurrent use; each Run owns its span tree.
type Orchestrator struct {
	catalog *catalog.Catalog
	client  tracing.Client
	cfg     Config
	logger  *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an Orchestrator. The catalog is cloned; later changes to cat do
// not affect running sessions.
func New(cat *catalog.Catalog, client tracing.Client, cfg Config, opts ...Option) (*Orchestrator, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = tracing.Nop{}
	}

	o := &Orchestrator{
		catalog: cat.Clone(),
		client:  client,
		cfg:     cfg,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if cfg.Persona != "" {
		if _, ok := o.catalog.Persona(cfg.Persona); !ok {
			return nil, fmt.Errorf("%w: persona %q", ErrUnknownPin, cfg.Persona)
		}
	}
	if cfg.Device != "" {
		if _, ok := o.catalog.Device(cfg.Device); !ok {
			return nil, fmt.Errorf("%w: device %q", ErrUnknownPin, cfg.Device)
		}
	}
	if cfg.Scenario != "" {
		if _, ok := o.catalog.Scenario(cfg.Scenario); !ok {
			return nil, fmt.Errorf("%w: scenario %q", ErrUnknownPin, cfg.Scenario)
		}
	}

	return o, nil
}

// Catalog returns the orchestrator's catalog. Callers must not modify it.
func (o *Orchestrator) Catalog() *catalog.Catalog {
	return o.catalog
}

// Result summarizes one finished session.
type Result struct {
	Sequence  uint64
	SessionID string
	UserID    string
	Persona   string
	Device    string
	Scenario  string

	Scanned     bool
	ScanOutcome catalog.ScanOutcome
	Connected   bool

	Commands        int
	CommandFailures int
	Navigated       bool

	Spans    int
	Start    time.Time
	Duration time.Duration
	States   []State
	Failures []*simulate.FailureError
}

// Run simulates session number seq. All randomness comes from rng and all
// time from clk. A returned error means a span tree contract was broken;
// simulated failures are reported in the Result.
//
// ctx is not a cancellation point: once done, every remaining wait returns
// at once and the session finishes with collapsed timings. Callers that need
// to stop early between sessions should pass context.WithoutCancel and stop
// scheduling, as batch.Runner does.
func (o *Orchestrator) Run(ctx context.Context, seq uint64, rng *sampler.Sampler, clk clock.Clock) (Result, error) {
	env, err := o.selectEnv(rng)
	if err != nil {
		return Result{Sequence: seq}, err
	}

	sessionID, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return Result{Sequence: seq}, fmt.Errorf("session id: %w", err)
	}
	userID, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return Result{Sequence: seq}, fmt.Errorf("user id: %w", err)
	}

	tree := spantree.NewTree(o.client, clk,
		spantree.WithLogger(o.logger.With(zap.Uint64("session", seq))),
		spantree.WithStrict(o.cfg.Strict),
	)

	r := &run{
		o:    o,
		ctx:  ctx,
		rng:  rng,
		tree: tree,
		sim:  simulate.New(tree, rng, o.catalog, env),
		pl:   simulate.NewPlaylist(o.catalog.Tracks),
		res: Result{
			Sequence:  seq,
			SessionID: sessionID.String(),
			UserID:    "user-" + userID.String()[:8],
			Persona:   env.Persona.ID,
			Device:    env.Device.Name,
			Scenario:  env.Scenario.Name,
		},
	}

	state := StateStart
	for state != StateEnd {
		r.res.States = append(r.res.States, state)

		next, err := r.step(state)
		if err != nil {
			return r.res, r.abort(state, err)
		}
		state = next
	}
	r.res.States = append(r.res.States, StateEnd)

	if err := r.end(); err != nil {
		return r.res, err
	}

	o.logger.Debug("session finished",
		zap.Uint64("session", seq),
		zap.String("persona", r.res.Persona),
		zap.String("device", r.res.Device),
		zap.String("scenario", r.res.Scenario),
		zap.Bool("connected", r.res.Connected),
		zap.Int("commands", r.res.Commands),
		zap.Int("spans", r.res.Spans),
		zap.Duration("duration", r.res.Duration),
	)

	return r.res, nil
}

func (o *Orchestrator) selectEnv(rng *sampler.Sampler) (simulate.Env, error) {
	var env simulate.Env
	var err error

	if o.cfg.Persona != "" {
		env.Persona, _ = o.catalog.Persona(o.cfg.Persona)
	} else if env.Persona, err = sampler.Pick(rng, o.catalog.Personas); err != nil {
		return env, fmt.Errorf("select persona: %w", err)
	}

	if o.cfg.Device != "" {
		env.Device, _ = o.catalog.Device(o.cfg.Device)
	} else {
		d, err := sampler.Pick(rng, o.catalog.Devices)
		if err != nil {
			return env, fmt.Errorf("select device: %w", err)
		}
		env.Device = o.catalog.Effective(d)
	}

	if o.cfg.Scenario != "" {
		env.Scenario, _ = o.catalog.Scenario(o.cfg.Scenario)
	} else if env.Scenario, err = sampler.Choose(rng, o.catalog.ScenarioTable()); err != nil {
		return env, fmt.Errorf("select scenario: %w", err)
	}

	return env, nil
}
