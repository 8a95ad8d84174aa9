// Package control exposes a running batch.Runner over HTTP.
//
// Routes:
//
//	POST   /v1/batches          start a batch, body {"sessions": N}
//	GET    /v1/batches/current  current or last batch status
//	DELETE /v1/batches/current  cancel the running batch
//	GET    /healthz             liveness
//	GET    /metrics             Prometheus metrics
//
// The whole mux is wrapped with otelhttp, so control requests are traced
// with the same providers as the simulated sessions.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/arloliu/remotesim/batch"
)

// Runner is the part of *batch.Runner the server drives.
type Runner interface {
	Configure(sessions int) error
	Start(ctx context.Context) error
	Cancel()
	Status() batch.Status
	Observe(o batch.Observer)
}

// StartRequest is the body of POST /v1/batches. A missing sessions field
// keeps the configured count.
type StartRequest struct {
	Sessions *int `json:"sessions,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the control API.
type Server struct {
	runner    Runner
	metrics   *Metrics
	logger    *zap.Logger
	providers Providers
	handler   http.Handler
	server    *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger.
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProviders sets the OTel providers for the otelhttp middleware.
func WithProviders(p Providers) ServerOption {
	return func(s *Server) {
		s.providers = p
	}
}

// WithPrometheus uses m instead of a fresh Metrics.
func WithPrometheus(m *Metrics) ServerOption {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewServer creates a Server and registers its Prometheus metrics as an
// observer of runner.
func NewServer(runner Runner, opts ...ServerOption) (*Server, error) {
	if runner == nil {
		return nil, errors.New("control: nil runner")
	}

	s := &Server{
		runner: runner,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if err := s.metrics.Watch(runner.Status); err != nil {
		return nil, fmt.Errorf("control: register metrics: %w", err)
	}
	runner.Observe(s.metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/batches", s.handleStart)
	mux.HandleFunc("GET /v1/batches/current", s.handleStatus)
	mux.HandleFunc("DELETE /v1/batches/current", s.handleCancel)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.handler = otelhttp.NewHandler(mux, "remotesim.control", s.providers.options(
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
		}),
	)...)

	return s, nil
}

// Handler returns the instrumented handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the Prometheus metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control server listening", zap.String("addr", addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	s.logger.Info("control server stopping")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Sessions != nil {
		if err := s.runner.Configure(*req.Sessions); err != nil {
			s.writeRunnerError(w, err)
			return
		}
	}

	// The batch outlives the request.
	if err := s.runner.Start(context.WithoutCancel(r.Context())); err != nil {
		s.writeRunnerError(w, err)
		return
	}

	st := s.runner.Status()
	s.logger.Info("batch started over control api", zap.Int("sessions", st.Total))

	writeJSON(w, http.StatusAccepted, st)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Status())
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	if !s.runner.Status().Running {
		writeError(w, http.StatusConflict, "no batch running")
		return
	}

	s.runner.Cancel()
	s.logger.Info("batch cancel requested over control api")

	writeJSON(w, http.StatusAccepted, s.runner.Status())
}

func (s *Server) writeRunnerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, batch.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, batch.ErrInvalidSessionCount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("control request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
