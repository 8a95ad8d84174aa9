package nats

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/arloliu/remotesim/tracing"
)

// Header keys set on every record message.
const (
	HeaderOp      = "Remotesim-Op"
	HeaderTraceID = "Remotesim-Trace-Id"
)

// Publisher is the part of jetstream.JetStream the sink needs.
type Publisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Stats counts what happened to finished spans.
type Stats struct {
	Published uint64
	Dropped   uint64
	Failed    uint64
}

// Sink is a tracing.Client that publishes every finished span as a JSON
// Record. Publishing happens on a background goroutine fed by a bounded
// queue, so the simulation never waits on the network.
type Sink struct {
	pub  Publisher
	opts options

	mu     sync.RWMutex
	closed bool
	queue  chan *nats.Msg
	done   chan struct{}

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

var _ tracing.Client = (*Sink)(nil)

type span struct {
	ctx    context.Context
	rec    Record
	userID string
}

// NewSink starts a Sink publishing through pub. Close must be called to
// flush the queue.
//
// Panics if pub is nil.
func NewSink(pub Publisher, opts ...Option) *Sink {
	if pub == nil {
		panic("remotesim/nats: publisher must not be nil")
	}

	o := applyOptions(opts)
	s := &Sink{
		pub:   pub,
		opts:  o,
		queue: make(chan *nats.Msg, o.size),
		done:  make(chan struct{}),
	}
	go s.loop()

	return s
}

func (s *Sink) StartSpan(ctx context.Context, parent tracing.Handle, op, description string, start time.Time) tracing.Handle {
	sp := &span{
		ctx: ctx,
		rec: Record{
			ID:          uuid.NewString(),
			Op:          op,
			Description: description,
			Start:       start,
		},
	}

	if p, ok := parent.(*span); ok {
		sp.ctx = p.ctx
		sp.rec.TraceID = p.rec.TraceID
		sp.rec.ParentID = p.rec.ID
		sp.userID = p.userID
	} else {
		sp.rec.TraceID = sp.rec.ID
	}

	return sp
}

func (s *Sink) SetTag(h tracing.Handle, key, value string) {
	sp, ok := h.(*span)
	if !ok {
		return
	}
	if sp.rec.Tags == nil {
		sp.rec.Tags = make(map[string]string)
	}
	sp.rec.Tags[key] = value
}

func (s *Sink) SetNumericField(h tracing.Handle, key string, value float64) {
	sp, ok := h.(*span)
	if !ok {
		return
	}
	if sp.rec.Data == nil {
		sp.rec.Data = make(map[string]float64)
	}
	sp.rec.Data[key] = value
}

func (s *Sink) CaptureError(h tracing.Handle, err error, tags map[string]string, at time.Time) {
	sp, ok := h.(*span)
	if !ok || err == nil {
		return
	}
	sp.rec.Errors = append(sp.rec.Errors, ErrorEvent{Message: err.Error(), Tags: maps.Clone(tags), Time: at})
}

func (s *Sink) AddBreadcrumb(h tracing.Handle, b tracing.Breadcrumb) {
	sp, ok := h.(*span)
	if !ok {
		return
	}
	sp.rec.Breadcrumbs = append(sp.rec.Breadcrumbs, BreadcrumbEvent{
		Level:    b.Level,
		Category: b.Category,
		Message:  b.Message,
		Time:     b.Time,
	})
}

func (s *Sink) SetUserContext(h tracing.Handle, userID string) {
	sp, ok := h.(*span)
	if !ok {
		return
	}
	sp.userID = userID
	if ctx, err := tracing.SetBaggage(sp.ctx, tracing.BaggageUserID, userID); err == nil {
		sp.ctx = ctx
	}
}

// FinishSpan encodes the record and queues it. A full queue drops the record.
func (s *Sink) FinishSpan(h tracing.Handle, end time.Time) {
	sp, ok := h.(*span)
	if !ok {
		return
	}

	rec := sp.rec
	rec.End = end
	rec.DurationMs = float64(end.Sub(rec.Start)) / float64(time.Millisecond)
	rec.UserID = sp.userID

	data, err := json.Marshal(rec)
	if err != nil {
		s.failed.Add(1)
		s.opts.logger.Warn("encode span record", zap.String("op", rec.Op), zap.Error(err))
		return
	}

	msg := &nats.Msg{
		Subject: s.opts.prefix + "." + rec.Op,
		Data:    data,
		Header:  make(nats.Header),
	}
	msg.Header.Set(HeaderOp, rec.Op)
	msg.Header.Set(HeaderTraceID, rec.TraceID)
	msg.Header.Set(jetstream.MsgIDHeader, rec.ID)
	inject(sp.ctx, msg, s.opts.prop)

	s.enqueue(msg)
}

func (s *Sink) enqueue(msg *nats.Msg) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		return
	}

	select {
	case s.queue <- msg:
	default:
		n := s.dropped.Add(1)
		s.opts.logger.Warn("span record queue full, dropping",
			zap.String("subject", msg.Subject),
			zap.Uint64("dropped", n),
		)
	}
}

func (s *Sink) loop() {
	defer close(s.done)

	var popts []jetstream.PublishOpt
	if s.opts.stream != "" {
		popts = append(popts, jetstream.WithExpectStream(s.opts.stream))
	}

	for msg := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.timeout)
		_, err := s.pub.PublishMsg(ctx, msg, popts...)
		cancel()

		if err != nil {
			s.failed.Add(1)
			s.opts.logger.Warn("publish span record",
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			continue
		}
		s.published.Add(1)
	}
}

// Close stops accepting records and waits until the queue is drained or ctx
// is done.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("remotesim/nats: queue not drained"), ctx.Err())
	}
}

// Stats returns the counters.
func (s *Sink) Stats() Stats {
	return Stats{
		Published: s.published.Load(),
		Dropped:   s.dropped.Load(),
		Failed:    s.failed.Load(),
	}
}
