package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arloliu/remotesim/batch"
)

func TestWebhook_DeliversSummary(t *testing.T) {
	var got batch.Summary
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh, err := NewWebhook(srv.URL)
	require.NoError(t, err)

	summary := batch.Summary{Requested: 10, Completed: 10, Seed: 99}
	summary.Spans = 120
	require.NoError(t, wh.Send(context.Background(), summary))

	assert.Equal(t, 10, got.Completed)
	assert.Equal(t, uint64(99), got.Seed)
	assert.Equal(t, int64(120), got.Spans)
}

func TestWebhook_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh, err := NewWebhook(srv.URL, WithWebhookRetries(3, 0))
	require.NoError(t, err)

	require.NoError(t, wh.Send(context.Background(), batch.Summary{}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhook_GivesUp(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
		rejected  bool
	}{
		{name: "client error is not retried", status: http.StatusBadRequest, wantCalls: 1, rejected: true},
		{name: "server error exhausts attempts", status: http.StatusInternalServerError, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			wh, err := NewWebhook(srv.URL, WithWebhookRetries(2, 0))
			require.NoError(t, err)

			err = wh.Send(context.Background(), batch.Summary{})
			require.Error(t, err)
			assert.Equal(t, tt.rejected, errors.Is(err, ErrWebhookRejected))
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestWebhook_BackoffStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	wh, err := NewWebhook(srv.URL, WithWebhookRetries(5, time.Minute), WithWebhookLogger(zap.New(core)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = wh.Send(ctx, batch.Summary{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, logs.FilterMessage("completion webhook retry").All(), 1)
}

func TestWebhook_OnCompleteLogsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	wh, err := NewWebhook(srv.URL, WithWebhookLogger(zap.New(core)))
	require.NoError(t, err)

	wh.OnProgress(1, 2)
	wh.OnComplete(batch.Summary{})

	entries := logs.FilterMessage("completion webhook failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, srv.URL, entries[0].ContextMap()["url"])
}

func TestWebhook_Traced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("traceparent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	wh, err := NewWebhook(srv.URL, WithWebhookProviders(Providers{
		Tracer:     tp,
		Meter:      noop.NewMeterProvider(),
		Propagator: propagation.TraceContext{},
	}))
	require.NoError(t, err)

	require.NoError(t, wh.Send(context.Background(), batch.Summary{}))
	assert.Len(t, exporter.GetSpans(), 1)
}

func TestNewWebhook_EmptyURL(t *testing.T) {
	_, err := NewWebhook("")
	require.Error(t, err)
}

func TestWebhook_ObservesRunner(t *testing.T) {
	delivered := make(chan batch.Summary, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var s batch.Summary
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&s))
		delivered <- s
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh, err := NewWebhook(srv.URL)
	require.NoError(t, err)

	r, err := batch.New(sessionFunc(instantSession), batch.Config{Sessions: 2}, batch.WithObserver(wh))
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.NoError(t, err)

	s := <-delivered
	assert.Equal(t, 2, s.Completed)
}
