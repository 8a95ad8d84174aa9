package spantree

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/arloliu/remotesim/tracing"
)

// Span is one timed unit of work.
type Span struct {
	tree     *Tree
	parent   *Span
	children []*Span
	handle   tracing.Handle

	op          string
	description string
	start       time.Time
	end         time.Time
	finished    bool

	tags map[string]string
	data map[string]float64
}

// Op returns the operation kind, e.g. "bt.connection".
func (s *Span) Op() string { return s.op }

// Description returns the human readable description.
func (s *Span) Description() string { return s.description }

// Parent returns the parent span, nil for a root.
func (s *Span) Parent() *Span { return s.parent }

// Children returns the direct children in start order.
func (s *Span) Children() []*Span { return slices.Clone(s.children) }

// StartTime returns when the span started.
func (s *Span) StartTime() time.Time { return s.start }

// EndTime returns when the span finished, zero while open.
func (s *Span) EndTime() time.Time { return s.end }

// Finished reports whether Finish has completed.
func (s *Span) Finished() bool { return s.finished }

// SetTag sets a string tag. The last value written before Finish wins.
func (s *Span) SetTag(key, value string) {
	if s.finished {
		s.tree.logger.Warn("tag set on finished span", s.fields(zap.String("key", key))...)
		return
	}
	s.tags[key] = value
}

// SetBool is SetTag with a formatted boolean.
func (s *Span) SetBool(key string, value bool) {
	s.SetTag(key, strconv.FormatBool(value))
}

// SetData sets a numeric field. The last value written before Finish wins.
func (s *Span) SetData(key string, value float64) {
	if s.finished {
		s.tree.logger.Warn("data set on finished span", s.fields(zap.String("key", key))...)
		return
	}
	s.data[key] = value
}

// Tag returns the buffered value of a tag.
func (s *Span) Tag(key string) (string, bool) {
	v, ok := s.tags[key]
	return v, ok
}

// Data returns the buffered value of a numeric field.
func (s *Span) Data(key string) (float64, bool) {
	v, ok := s.data[key]
	return v, ok
}

// Duration returns end - start. It fails with ErrNotFinished while the span is open.
func (s *Span) Duration() (time.Duration, error) {
	if !s.finished {
		return 0, fmt.Errorf("%w: %s", ErrNotFinished, s.op)
	}

	return s.end.Sub(s.start), nil
}

// Finish stamps the end time and flushes the span to the client.
//
// Finishing twice returns ErrFinishedTwice. Open children are closed first at
// the same timestamp, or, in strict mode, cause ErrUnfinishedChildren and
// leave the span open.
func (s *Span) Finish() error {
	if s.finished {
		s.tree.logger.Warn("span finished twice", s.fields()...)
		return fmt.Errorf("%w: %s", ErrFinishedTwice, s.op)
	}

	end := s.tree.clock.Now()

	open := s.openChildren()
	if len(open) > 0 {
		if s.tree.strict {
			s.tree.logger.Warn("parent finished with unfinished children",
				s.fields(zap.Int("open_children", len(open)))...)

			return fmt.Errorf("%w: %s has %d open", ErrUnfinishedChildren, s.op, len(open))
		}

		s.tree.logger.Warn("closing unfinished children on parent finish",
			s.fields(zap.Int("open_children", len(open)))...)
	}

	s.finishAt(end)

	return nil
}

func (s *Span) openChildren() []*Span {
	var open []*Span
	for _, c := range s.children {
		if !c.finished {
			open = append(open, c)
		}
	}

	return open
}

// finishAt closes s and any open descendants at end and flushes them.
func (s *Span) finishAt(end time.Time) {
	for _, c := range s.openChildren() {
		c.SetBool(TagFinishedByParent, true)
		c.finishAt(end)
	}

	// a child may carry a later stamp than the parent's clock read
	for _, c := range s.children {
		if c.end.After(end) {
			end = c.end
		}
	}
	if end.Before(s.start) {
		end = s.start
	}

	s.end = end
	s.finished = true
	s.flush()
}

func (s *Span) flush() {
	client := s.tree.client

	for _, k := range sortedKeys(s.tags) {
		client.SetTag(s.handle, k, s.tags[k])
	}
	for _, k := range sortedKeys(s.data) {
		client.SetNumericField(s.handle, k, s.data[k])
	}
	client.FinishSpan(s.handle, s.end)

	s.tree.finished++
}

func (s *Span) fields(extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("op", s.op),
		zap.String("description", s.description),
	}, extra...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}
