// Package spantree builds the hierarchical unit-of-work structure of one
// simulated session.
//
// A Tree owns the spans of a single session and forwards them to a
// [tracing.Client]. Tags and numeric fields are buffered on the span and
// flushed, sorted by key, when the span finishes, so the emitted record always
// carries the last value written.
//
// Nesting is enforced: a span finished while some of its children are still
// open is either rejected (strict mode) or closes those children first at the
// same timestamp and logs a warning. A Tree is not safe for concurrent use;
// each session owns its own.
package spantree

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/arloliu/remotesim/internal/clock"
	"github.com/arloliu/remotesim/tracing"
)

var (
	// ErrFinishedTwice is returned when Finish is called on a finished span.
	ErrFinishedTwice = errors.New("spantree: span finished twice")
	// ErrNotFinished is returned when reading the duration of an open span.
	ErrNotFinished = errors.New("spantree: span not finished")
	// ErrUnfinishedChildren is returned in strict mode when a parent is
	// finished before all of its children.
	ErrUnfinishedChildren = errors.New("spantree: parent finished with unfinished children")
)

// TagFinishedByParent marks children closed on behalf of their parent.
const TagFinishedByParent = "finished_by_parent"

// Tree creates spans for one session.
type Tree struct {
	client tracing.Client
	clock  clock.Clock
	logger *zap.Logger
	strict bool

	started  int
	finished int
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger used for contract warnings.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithStrict makes Finish reject parents with open children instead of
// closing the children implicitly.
func WithStrict(strict bool) Option {
	return func(t *Tree) {
		t.strict = strict
	}
}

// NewTree creates a Tree that reports to client and reads time from clk.
func NewTree(client tracing.Client, clk clock.Clock, opts ...Option) *Tree {
	if client == nil {
		client = tracing.Nop{}
	}
	if clk == nil {
		clk = clock.Real{}
	}

	t := &Tree{
		client: client,
		clock:  clk,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Now returns the tree's current time.
func (t *Tree) Now() time.Time {
	return t.clock.Now()
}

// Wait suspends for d on the tree's clock. A done ctx cuts the wait short;
// the remaining spans of the session then carry shortened timings, which is
// logged at debug level rather than failing the operation.
func (t *Tree) Wait(ctx context.Context, d time.Duration) {
	if err := t.clock.Sleep(ctx, d); err != nil {
		t.logger.Debug("simulated wait interrupted", zap.Duration("wait", d), zap.Error(err))
	}
}

// Start creates a span under parent and records its start time. A nil parent
// creates a root span. ctx is handed to the client for root spans.
func (t *Tree) Start(ctx context.Context, parent *Span, op, description string) *Span {
	s := &Span{
		tree:        t,
		parent:      parent,
		op:          op,
		description: description,
		start:       t.clock.Now(),
		tags:        map[string]string{},
		data:        map[string]float64{},
	}

	var ph tracing.Handle
	if parent != nil {
		if parent.finished {
			t.logger.Warn("span started under finished parent",
				zap.String("op", op), zap.String("parent_op", parent.op))
		}
		ph = parent.handle
		parent.children = append(parent.children, s)
	}
	s.handle = t.client.StartSpan(ctx, ph, op, description, s.start)
	t.started++

	return s
}

// Emitted returns the number of spans flushed to the client.
func (t *Tree) Emitted() int {
	return t.finished
}

// Open returns the number of spans started but not yet finished.
func (t *Tree) Open() int {
	return t.started - t.finished
}

// CaptureError reports err against span to the client's error sink.
func (t *Tree) CaptureError(span *Span, err error, tags map[string]string) {
	if err == nil {
		return
	}
	t.client.CaptureError(handleOf(span), err, tags, t.clock.Now())
}

// Breadcrumb leaves a breadcrumb on span.
func (t *Tree) Breadcrumb(span *Span, level tracing.Level, category, message string) {
	t.client.AddBreadcrumb(handleOf(span), tracing.Breadcrumb{
		Level:    level,
		Category: category,
		Message:  message,
		Time:     t.clock.Now(),
	})
}

// SetUser attaches the simulated user id to span.
func (t *Tree) SetUser(span *Span, userID string) {
	t.client.SetUserContext(handleOf(span), userID)
}

func handleOf(s *Span) tracing.Handle {
	if s == nil {
		return nil
	}

	return s.handle
}
