package tracing

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// Record is the recorded state of one span.
type Record struct {
	ID          int
	ParentID    int // 0 for root spans
	Op          string
	Description string
	Tags        map[string]string
	Data        map[string]float64
	Start       time.Time
	End         time.Time
	Finished    bool
	// FinishCount counts FinishSpan calls; anything other than one is a defect.
	FinishCount int
	UserID      string
}

// Duration returns End - Start.
func (r Record) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// CapturedError is one CaptureError call.
type CapturedError struct {
	SpanID int
	Err    error
	Tags   map[string]string
	At     time.Time
}

// recordHandle is the handle type returned by Recorder.
type recordHandle int

// Recorder is an in-memory Client that keeps every call for inspection.
// It is safe for concurrent use.
type Recorder struct {
	mu          sync.Mutex
	records     []*Record
	errors      []CapturedError
	breadcrumbs []Breadcrumb
}

var _ Client = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) lookup(h Handle) *Record {
	id, ok := h.(recordHandle)
	if !ok || id < 1 || int(id) > len(r.records) {
		return nil
	}

	return r.records[id-1]
}

func (r *Recorder) StartSpan(_ context.Context, parent Handle, op, description string, start time.Time) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := &Record{
		ID:          len(r.records) + 1,
		Op:          op,
		Description: description,
		Tags:        map[string]string{},
		Data:        map[string]float64{},
		Start:       start,
	}
	if p := r.lookup(parent); p != nil {
		rec.ParentID = p.ID
		rec.UserID = p.UserID
	}
	r.records = append(r.records, rec)

	return recordHandle(rec.ID)
}

func (r *Recorder) SetTag(h Handle, key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec := r.lookup(h); rec != nil {
		rec.Tags[key] = value
	}
}

func (r *Recorder) SetNumericField(h Handle, key string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec := r.lookup(h); rec != nil {
		rec.Data[key] = value
	}
}

func (r *Recorder) FinishSpan(h Handle, end time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec := r.lookup(h); rec != nil {
		rec.FinishCount++
		rec.Finished = true
		rec.End = end
	}
}

func (r *Recorder) CaptureError(h Handle, err error, tags map[string]string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ce := CapturedError{Err: err, Tags: maps.Clone(tags), At: at}
	if rec := r.lookup(h); rec != nil {
		ce.SpanID = rec.ID
	}
	r.errors = append(r.errors, ce)
}

func (r *Recorder) AddBreadcrumb(_ Handle, b Breadcrumb) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.breadcrumbs = append(r.breadcrumbs, b)
}

func (r *Recorder) SetUserContext(h Handle, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec := r.lookup(h); rec != nil {
		rec.UserID = userID
	}
}

// Records returns a snapshot of all spans in start order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, cloneRecord(rec))
	}

	return out
}

// Roots returns the root spans.
func (r *Recorder) Roots() []Record {
	return r.filter(func(rec Record) bool { return rec.ParentID == 0 })
}

// ByOp returns the spans with operation kind op.
func (r *Recorder) ByOp(op string) []Record {
	return r.filter(func(rec Record) bool { return rec.Op == op })
}

// Children returns the direct children of the span with the given id.
func (r *Recorder) Children(id int) []Record {
	return r.filter(func(rec Record) bool { return rec.ParentID == id })
}

// Unfinished returns spans that were started but never finished.
func (r *Recorder) Unfinished() []Record {
	return r.filter(func(rec Record) bool { return !rec.Finished })
}

// Errors returns all captured errors.
func (r *Recorder) Errors() []CapturedError {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.errors)
}

// Breadcrumbs returns all breadcrumbs.
func (r *Recorder) Breadcrumbs() []Breadcrumb {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.breadcrumbs)
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = nil
	r.errors = nil
	r.breadcrumbs = nil
}

func (r *Recorder) filter(keep func(Record) bool) []Record {
	var out []Record
	for _, rec := range r.Records() {
		if keep(rec) {
			out = append(out, rec)
		}
	}

	return out
}

func cloneRecord(rec *Record) Record {
	out := *rec
	out.Tags = maps.Clone(rec.Tags)
	out.Data = maps.Clone(rec.Data)

	return out
}
