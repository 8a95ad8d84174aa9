// Package batch runs the session orchestrator a configured number of times.
//
// A Runner owns one batch at a time. Sessions are handed to a pool of workers;
// each worker has its own clock (virtual unless real-time pacing is asked for)
// and each session derives its sampler from the batch seed and its sequence
// number, so a seeded batch produces the same sessions regardless of worker
// scheduling.
//
// Cancellation is cooperative: Cancel stops new sessions from being scheduled,
// but a session already in flight always runs to completion.
package batch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/arloliu/remotesim/internal/clock"
	"github.com/arloliu/remotesim/internal/tracker"
	"github.com/arloliu/remotesim/sampler"
	"github.com/arloliu/remotesim/session"
)

var (
	// ErrAlreadyRunning is returned when starting or reconfiguring a running batch.
	ErrAlreadyRunning = errors.New("batch: already running")
	// ErrInvalidSessionCount is returned for a session count below one.
	ErrInvalidSessionCount = errors.New("batch: session count must be at least 1")
	// ErrNotStarted is returned by Wait before the first Start.
	ErrNotStarted = errors.New("batch: not started")
)

// SessionRunner runs one session. *session.Orchestrator implements it.
type SessionRunner interface {
	Run(ctx context.Context, seq uint64, rng *sampler.Sampler, clk clock.Clock) (session.Result, error)
}

// Config controls a batch.
type Config struct {
	Sessions int
	Workers  int
	// Pause is the inter-session pause in milliseconds.
	Pause sampler.Range
	// Seed seeds every session sampler. Zero picks a random seed per batch.
	Seed uint64
	// Realtime paces sessions on the wall clock. Otherwise each worker runs
	// on a virtual clock and sessions complete instantly with backdated or
	// forward-dated timestamps.
	Realtime bool
	// StartOffset shifts the virtual clock start relative to now.
	StartOffset time.Duration
}

// Summary is the aggregate outcome of a batch.
type Summary struct {
	tracker.Snapshot

	Requested  int           `json:"requested"`
	Completed  int           `json:"completed"`
	Canceled   bool          `json:"canceled"`
	Seed       uint64        `json:"seed"`
	Workers    int           `json:"workers"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Elapsed    time.Duration `json:"elapsedNs"`
	Error      string        `json:"error,omitempty"`
}

// ConnectRate returns the fraction of sessions that connected.
func (s Summary) ConnectRate() float64 {
	if s.Sessions == 0 {
		return 0
	}

	return float64(s.Connected) / float64(s.Sessions)
}

// CommandFailureRate returns the fraction of commands whose write failed.
func (s Summary) CommandFailureRate() float64 {
	if s.Commands == 0 {
		return 0
	}

	return float64(s.CommandFailures) / float64(s.Commands)
}

// Observer receives progress and completion notifications. Calls are
// serialized; progress is reported in increasing order. OnComplete runs
// before Wait returns, so it must not call Wait or Run itself.
type Observer interface {
	OnProgress(done, total int)
	OnComplete(summary Summary)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Progress func(done, total int)
	Complete func(summary Summary)
}

func (f ObserverFuncs) OnProgress(done, total int) {
	if f.Progress != nil {
		f.Progress(done, total)
	}
}

func (f ObserverFuncs) OnComplete(summary Summary) {
	if f.Complete != nil {
		f.Complete(summary)
	}
}

// Status is a snapshot of the runner state.
type Status struct {
	Running bool     `json:"running"`
	Done    int      `json:"done"`
	Total   int      `json:"total"`
	Last    *Summary `json:"last,omitempty"`
}

// Runner runs batches of sessions.
type Runner struct {
	sessions SessionRunner
	logger   *zap.Logger
	metrics  *Metrics
	now      func() time.Time

	mu        sync.Mutex
	cfg       Config
	observers []Observer
	running   bool
	done      chan struct{}
	cancel    context.CancelFunc
	last      *Summary
	lastErr   error

	notifyMu sync.Mutex
	stop     atomic.Bool
	progress atomic.Int64
	total    atomic.Int64
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records per-session OTel metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithNow overrides the wall clock used for virtual clock starts and summary
// timestamps.
func WithNow(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Runner.
func New(sessions SessionRunner, cfg Config, opts ...Option) (*Runner, error) {
	if sessions == nil {
		return nil, errors.New("batch: nil session runner")
	}
	if cfg.Sessions < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSessionCount, cfg.Sessions)
	}
	if err := cfg.Pause.Validate(); err != nil || cfg.Pause.Min < 0 {
		return nil, fmt.Errorf("batch: invalid pause range %+v: %w", cfg.Pause, sampler.ErrInvalidParameter)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	r := &Runner{
		sessions: sessions,
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.total.Store(int64(cfg.Sessions))

	return r, nil
}

// Observe registers an observer for subsequent notifications.
func (r *Runner) Observe(o Observer) {
	if o == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.observers = append(r.observers, o)
}

// Configure sets the session count for the next batch.
func (r *Runner) Configure(sessions int) error {
	if sessions < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSessionCount, sessions)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}
	r.cfg.Sessions = sessions
	r.total.Store(int64(sessions))
	r.progress.Store(0)

	return nil
}

// Start launches a batch in the background.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}

	cfg := r.cfg
	if cfg.Seed == 0 {
		cfg.Seed = sampler.RandomSeed()
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.done = make(chan struct{})
	r.cancel = cancel
	r.stop.Store(false)
	r.progress.Store(0)
	r.total.Store(int64(cfg.Sessions))

	r.logger.Info("batch started",
		zap.Int("sessions", cfg.Sessions),
		zap.Int("workers", cfg.Workers),
		zap.Uint64("seed", cfg.Seed),
		zap.Bool("realtime", cfg.Realtime),
	)

	go r.run(runCtx, cancel, cfg, r.done)

	return nil
}

// Cancel asks the running batch to stop after the sessions in flight.
func (r *Runner) Cancel() {
	r.stop.Store(true)

	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current batch finishes or ctx is done.
func (r *Runner) Wait(ctx context.Context) (Summary, error) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return Summary{}, ErrNotStarted
	}

	select {
	case <-done:
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return *r.last, r.lastErr
}

// Run starts a batch and waits for it.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if err := r.Start(ctx); err != nil {
		return Summary{}, err
	}

	return r.Wait(context.WithoutCancel(ctx))
}

// Progress returns completed and total sessions of the current or last batch.
func (r *Runner) Progress() (done, total int) {
	return int(r.progress.Load()), int(r.total.Load())
}

// Status returns a snapshot of the runner.
func (r *Runner) Status() Status {
	done, total := r.Progress()

	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{Running: r.running, Done: done, Total: total}
	if r.last != nil {
		last := *r.last
		st.Last = &last
	}

	return st
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, cfg Config, done chan struct{}) {
	defer cancel()

	startedAt := r.now()
	tally := tracker.New()
	jobs := make(chan uint64)

	var (
		errMu    sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)

	fail := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
		r.stop.Store(true)
	}

	for w := range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.work(ctx, cfg, w, startedAt, jobs, tally, fail)
		}()
	}

feed:
	for seq := uint64(1); seq <= uint64(cfg.Sessions); seq++ {
		if r.stop.Load() {
			break
		}
		select {
		case jobs <- seq:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	snap := tally.Snapshot()
	summary := Summary{
		Snapshot:   snap,
		Requested:  cfg.Sessions,
		Completed:  int(snap.Sessions),
		Seed:       cfg.Seed,
		Workers:    cfg.Workers,
		StartedAt:  startedAt,
		FinishedAt: r.now(),
	}
	summary.Elapsed = summary.FinishedAt.Sub(startedAt)
	summary.Canceled = firstErr == nil && summary.Completed < summary.Requested
	if firstErr != nil {
		summary.Error = firstErr.Error()
		r.logger.Error("batch aborted", zap.Error(firstErr), zap.Int("completed", summary.Completed))
	} else {
		r.logger.Info("batch finished",
			zap.Int("completed", summary.Completed),
			zap.Int("requested", summary.Requested),
			zap.Bool("canceled", summary.Canceled),
			zap.Int64("spans", summary.Spans),
			zap.Float64("connect_rate", summary.ConnectRate()),
			zap.Float64("command_failure_rate", summary.CommandFailureRate()),
			zap.Duration("elapsed", summary.Elapsed),
		)
	}

	r.mu.Lock()
	r.last = &summary
	r.lastErr = firstErr
	observers := append([]Observer(nil), r.observers...)
	r.mu.Unlock()

	// The batch stays running until every observer has seen the summary, so
	// Wait never returns ahead of OnComplete and no new batch overlaps it.
	r.notifyMu.Lock()
	for _, o := range observers {
		o.OnComplete(summary)
	}
	r.notifyMu.Unlock()

	r.mu.Lock()
	r.running = false
	r.cancel = nil
	close(done)
	r.mu.Unlock()
}

// work consumes sequence numbers until jobs is closed. A contract error from
// a session is passed to fail, which raises the stop flag; the worker keeps
// draining jobs without running them.
func (r *Runner) work(
	ctx context.Context,
	cfg Config,
	worker int,
	startedAt time.Time,
	jobs <-chan uint64,
	tally *tracker.Tally,
	fail func(error),
) {
	var clk clock.Clock = clock.Real{}
	if !cfg.Realtime {
		clk = clock.NewVirtual(startedAt.Add(cfg.StartOffset))
	}
	pauses := sampler.New(cfg.Seed, math.MaxUint64-uint64(worker))
	sessionCtx := context.WithoutCancel(ctx)

	first := true
	for seq := range jobs {
		if r.stop.Load() {
			continue
		}

		if !first {
			ms, err := pauses.Uniform(cfg.Pause)
			if err != nil {
				fail(err)
				continue
			}
			if err := clk.Sleep(ctx, sampler.Millis(ms)); err != nil || r.stop.Load() {
				continue
			}
		}
		first = false

		res, err := r.sessions.Run(sessionCtx, seq, sampler.New(cfg.Seed, seq), clk)
		if err != nil {
			fail(err)
			continue
		}

		tally.Add(tracker.Outcome{
			Spans:           res.Spans,
			Connected:       res.Connected,
			Commands:        res.Commands,
			CommandFailures: res.CommandFailures,
			ScanOutcome:     string(res.ScanOutcome),
			Persona:         res.Persona,
			Device:          res.Device,
			Scenario:        res.Scenario,
			Duration:        res.Duration,
		})
		r.metrics.Record(sessionCtx, res)
		r.advance()
	}
}

func (r *Runner) advance() {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	done := int(r.progress.Add(1))
	total := int(r.total.Load())

	r.mu.Lock()
	observers := append([]Observer(nil), r.observers...)
	r.mu.Unlock()

	for _, o := range observers {
		o.OnProgress(done, total)
	}
}
