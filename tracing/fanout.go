package tracing

import (
	"context"
	"time"
)

// fanoutHandle holds one handle per wrapped client, in client order.
type fanoutHandle []Handle

// Fanout forwards every call to all clients.
type Fanout struct {
	clients []Client
}

var _ Client = (*Fanout)(nil)

// NewFanout returns a Client that forwards to clients. Nil clients are skipped.
// With a single client it returns that client unchanged.
func NewFanout(clients ...Client) Client {
	kept := make([]Client, 0, len(clients))
	for _, c := range clients {
		if c != nil {
			kept = append(kept, c)
		}
	}

	switch len(kept) {
	case 0:
		return Nop{}
	case 1:
		return kept[0]
	default:
		return &Fanout{clients: kept}
	}
}

func (f *Fanout) handle(h Handle, i int) Handle {
	fh, ok := h.(fanoutHandle)
	if !ok || i >= len(fh) {
		return nil
	}

	return fh[i]
}

func (f *Fanout) StartSpan(ctx context.Context, parent Handle, op, description string, start time.Time) Handle {
	out := make(fanoutHandle, len(f.clients))
	for i, c := range f.clients {
		var p Handle
		if parent != nil {
			p = f.handle(parent, i)
		}
		out[i] = c.StartSpan(ctx, p, op, description, start)
	}

	return out
}

func (f *Fanout) SetTag(h Handle, key, value string) {
	for i, c := range f.clients {
		c.SetTag(f.handle(h, i), key, value)
	}
}

func (f *Fanout) SetNumericField(h Handle, key string, value float64) {
	for i, c := range f.clients {
		c.SetNumericField(f.handle(h, i), key, value)
	}
}

func (f *Fanout) FinishSpan(h Handle, end time.Time) {
	for i, c := range f.clients {
		c.FinishSpan(f.handle(h, i), end)
	}
}

func (f *Fanout) CaptureError(h Handle, err error, tags map[string]string, at time.Time) {
	for i, c := range f.clients {
		c.CaptureError(f.handle(h, i), err, tags, at)
	}
}

func (f *Fanout) AddBreadcrumb(h Handle, b Breadcrumb) {
	for i, c := range f.clients {
		c.AddBreadcrumb(f.handle(h, i), b)
	}
}

func (f *Fanout) SetUserContext(h Handle, userID string) {
	for i, c := range f.clients {
		c.SetUserContext(f.handle(h, i), userID)
	}
}
