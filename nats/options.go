package nats

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const (
	// DefaultSubjectPrefix prefixes every record subject.
	DefaultSubjectPrefix = "remotesim.spans"
	// DefaultQueueSize bounds the records waiting to be published.
	DefaultQueueSize = 1024
	// DefaultPublishTimeout bounds one publish call.
	DefaultPublishTimeout = 5 * time.Second
)

type options struct {
	prefix  string
	stream  string
	size    int
	timeout time.Duration
	logger  *zap.Logger
	prop    propagation.TextMapPropagator
}

func defaultOptions() options {
	return options{
		prefix:  DefaultSubjectPrefix,
		size:    DefaultQueueSize,
		timeout: DefaultPublishTimeout,
		logger:  zap.NewNop(),
	}
}

// Option configures a Sink.
type Option func(*options)

// WithSubjectPrefix sets the subject prefix. Records go to <prefix>.<op>.
func WithSubjectPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithStream makes every publish expect the given stream.
func WithStream(stream string) Option {
	return func(o *options) {
		o.stream = stream
	}
}

// WithQueueSize bounds the publish queue. Records finished while the queue
// is full are dropped.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithPublishTimeout bounds each publish call.
func WithPublishTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger for drops and publish failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPropagator sets the propagator for record headers. The global
// propagator is used otherwise.
func WithPropagator(prop propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.prop = prop
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.prop == nil {
		o.prop = otel.GetTextMapPropagator()
	}

	return o
}
