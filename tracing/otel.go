package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope used for tracers and loggers.
const ScopeName = "github.com/arloliu/remotesim"

// otelSpan is the handle type returned by OTelClient.
type otelSpan struct {
	ctx  context.Context
	span trace.Span
}

// OTelClient maps the tracing boundary onto the OpenTelemetry trace and log APIs.
//
// Tags become string attributes, numeric fields become float64 attributes,
// breadcrumbs become span events plus log records and captured errors are
// recorded on the span, set its status to Error and are emitted as error logs.
type OTelClient struct {
	tracer trace.Tracer
	logger otellog.Logger
	namer  Namer
}

var _ Client = (*OTelClient)(nil)

// OTelOption configures an OTelClient.
type OTelOption func(*OTelClient)

// WithTracerProvider sets the tracer provider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelClient) {
		if tp != nil {
			c.tracer = tp.Tracer(ScopeName)
		}
	}
}

// WithLoggerProvider sets the log provider. Defaults to the global provider.
func WithLoggerProvider(lp otellog.LoggerProvider) OTelOption {
	return func(c *OTelClient) {
		if lp != nil {
			c.logger = lp.Logger(ScopeName)
		}
	}
}

// WithNamer sets the span namer. Defaults to OpNamer.
func WithNamer(n Namer) OTelOption {
	return func(c *OTelClient) {
		if n != nil {
			c.namer = n
		}
	}
}

// NewOTelClient creates an OTelClient.
func NewOTelClient(opts ...OTelOption) *OTelClient {
	c := &OTelClient{
		tracer: otel.GetTracerProvider().Tracer(ScopeName),
		logger: global.GetLoggerProvider().Logger(ScopeName),
		namer:  OpNamer{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func asOTel(h Handle) *otelSpan {
	s, _ := h.(*otelSpan)
	return s
}

// StartSpan starts an internal span with an explicit start timestamp.
func (c *OTelClient) StartSpan(ctx context.Context, parent Handle, op, description string, start time.Time) Handle {
	if p := asOTel(parent); p != nil {
		ctx = p.ctx
	}

	attrs := []attribute.KeyValue{attribute.String("operation", op)}
	if description != "" {
		attrs = append(attrs, attribute.String("description", description))
	}
	if user := GetBaggage(ctx, BaggageUserID); user != "" {
		attrs = append(attrs, attribute.String(BaggageUserID, user))
	}

	ctx, span := c.tracer.Start(ctx, c.namer.Name(op, description),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(start),
		trace.WithAttributes(attrs...),
	)

	return &otelSpan{ctx: ctx, span: span}
}

func (*OTelClient) SetTag(h Handle, key, value string) {
	if s := asOTel(h); s != nil {
		s.span.SetAttributes(attribute.String(key, value))
	}
}

func (*OTelClient) SetNumericField(h Handle, key string, value float64) {
	if s := asOTel(h); s != nil {
		s.span.SetAttributes(attribute.Float64(key, value))
	}
}

func (*OTelClient) FinishSpan(h Handle, end time.Time) {
	if s := asOTel(h); s != nil {
		s.span.End(trace.WithTimestamp(end))
	}
}

// CaptureError records err on the span and emits an error log record.
func (c *OTelClient) CaptureError(h Handle, err error, tags map[string]string, at time.Time) {
	s := asOTel(h)
	if s == nil || err == nil {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(tags))
	logAttrs := make([]otellog.KeyValue, 0, len(tags)+1)
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
		logAttrs = append(logAttrs, otellog.String(k, v))
	}
	logAttrs = append(logAttrs, otellog.String("exception.message", err.Error()))

	s.span.RecordError(err, trace.WithTimestamp(at), trace.WithAttributes(attrs...))
	s.span.SetStatus(codes.Error, err.Error())

	var rec otellog.Record
	rec.SetTimestamp(at)
	rec.SetBody(otellog.StringValue(err.Error()))
	rec.SetSeverity(otellog.SeverityError)
	rec.SetSeverityText("ERROR")
	rec.AddAttributes(logAttrs...)
	c.logger.Emit(s.ctx, rec)
}

// AddBreadcrumb adds a "breadcrumb" span event and a matching log record.
func (c *OTelClient) AddBreadcrumb(h Handle, b Breadcrumb) {
	s := asOTel(h)
	if s == nil {
		return
	}

	s.span.AddEvent("breadcrumb",
		trace.WithTimestamp(b.Time),
		trace.WithAttributes(
			attribute.String("level", string(b.Level)),
			attribute.String("category", b.Category),
			attribute.String("message", b.Message),
		),
	)

	var rec otellog.Record
	rec.SetTimestamp(b.Time)
	rec.SetBody(otellog.StringValue(b.Message))
	rec.SetSeverity(toLogSeverity(b.Level))
	rec.SetSeverityText(string(b.Level))
	rec.AddAttributes(otellog.String("category", b.Category))
	c.logger.Emit(s.ctx, rec)
}

// SetUserContext tags the span with enduser.id and stores the id in baggage
// so spans started below it inherit the attribute.
func (*OTelClient) SetUserContext(h Handle, userID string) {
	s := asOTel(h)
	if s == nil || userID == "" {
		return
	}

	s.span.SetAttributes(attribute.String(BaggageUserID, userID))
	if ctx, err := SetBaggage(s.ctx, BaggageUserID, userID); err == nil {
		s.ctx = ctx
	}
}

func toLogSeverity(level Level) otellog.Severity {
	switch level {
	case LevelDebug:
		return otellog.SeverityDebug
	case LevelInfo:
		return otellog.SeverityInfo
	case LevelWarning:
		return otellog.SeverityWarn
	case LevelError:
		return otellog.SeverityError
	default:
		return otellog.SeverityInfo
	}
}
