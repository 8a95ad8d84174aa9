// Package tracing defines the narrow boundary between the simulation and a
// telemetry backend.
//
// The simulation only ever talks to a [Client]. Implementations turn the calls
// into OpenTelemetry spans and log records ([OTelClient]), JetStream messages
// (package nats), in-memory records for tests ([Recorder]) or nothing at all
// ([Nop]). Several clients can be combined with [Fanout].
//
// Every method is fire-and-forget: implementations absorb backend failures and
// never block the caller on network I/O.
package tracing

import (
	"context"
	"time"
)

// Handle identifies a span started by a Client. Its concrete type is owned by
// the Client that returned it.
type Handle any

// Level is the severity of a breadcrumb.
type Level string

// Breadcrumb levels.
const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Breadcrumb is a small trail event attached to a span.
type Breadcrumb struct {
	Level    Level
	Category string
	Message  string
	Time     time.Time
}

// Client receives span lifecycle calls from the span tree.
//
// A nil parent starts a root span. Start and end timestamps are explicit so
// that sessions simulated on a virtual clock land at the right place in time.
type Client interface {
	StartSpan(ctx context.Context, parent Handle, op, description string, start time.Time) Handle
	SetTag(h Handle, key, value string)
	SetNumericField(h Handle, key string, value float64)
	FinishSpan(h Handle, end time.Time)
	CaptureError(h Handle, err error, tags map[string]string, at time.Time)
	AddBreadcrumb(h Handle, b Breadcrumb)
	SetUserContext(h Handle, userID string)
}

// Nop discards every call.
type Nop struct{}

var _ Client = Nop{}

func (Nop) StartSpan(context.Context, Handle, string, string, time.Time) Handle { return nil }
func (Nop) SetTag(Handle, string, string)                                      {}
func (Nop) SetNumericField(Handle, string, float64)                            {}
func (Nop) FinishSpan(Handle, time.Time)                                       {}
func (Nop) CaptureError(Handle, error, map[string]string, time.Time)           {}
func (Nop) AddBreadcrumb(Handle, Breadcrumb)                                   {}
func (Nop) SetUserContext(Handle, string)                                      {}
