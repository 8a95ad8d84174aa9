package nats

import (
	"time"

	"github.com/arloliu/remotesim/tracing"
)

// Record is the JSON document published for every finished span.
type Record struct {
	ID          string             `json:"id"`
	TraceID     string             `json:"traceId"`
	ParentID    string             `json:"parentId,omitempty"`
	Op          string             `json:"op"`
	Description string             `json:"description"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	DurationMs  float64            `json:"durationMs"`
	UserID      string             `json:"userId,omitempty"`
	Tags        map[string]string  `json:"tags,omitempty"`
	Data        map[string]float64 `json:"data,omitempty"`
	Errors      []ErrorEvent       `json:"errors,omitempty"`
	Breadcrumbs []BreadcrumbEvent  `json:"breadcrumbs,omitempty"`
}

// ErrorEvent is a captured error inside a Record.
type ErrorEvent struct {
	Message string            `json:"message"`
	Tags    map[string]string `json:"tags,omitempty"`
	Time    time.Time         `json:"time"`
}

// BreadcrumbEvent is a breadcrumb inside a Record.
type BreadcrumbEvent struct {
	Level    tracing.Level `json:"level"`
	Category string        `json:"category"`
	Message  string        `json:"message"`
	Time     time.Time     `json:"time"`
}
