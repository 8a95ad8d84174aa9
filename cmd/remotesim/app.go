package main

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/arloliu/remotesim"
	"github.com/arloliu/remotesim/batch"
	"github.com/arloliu/remotesim/catalog"
	"github.com/arloliu/remotesim/control"
	"github.com/arloliu/remotesim/nats"
	"github.com/arloliu/remotesim/session"
	"github.com/arloliu/remotesim/tracing"
)

const meterName = "github.com/arloliu/remotesim/batch"

// app is the fully wired simulator shared by run and serve.
type app struct {
	cfg     *remotesim.Config
	logger  *zap.Logger
	tel     *remotesim.Telemetry
	catalog *catalog.Catalog
	runner  *batch.Runner
	webhook *control.Webhook

	conn *natsgo.Conn
	sink *nats.Sink
}

// newApp builds telemetry, the tracing client chain, the orchestrator and the
// batch runner from cfg. The caller must Close the app.
func newApp(ctx context.Context, cfg *remotesim.Config, logger *zap.Logger, opts ...batch.Option) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.Close(context.WithoutCancel(ctx)))
		}
	}()

	a.tel, err = remotesim.SetupTelemetry(ctx, &cfg.Telemetry, logger.Named("otel"))
	if err != nil {
		return nil, err
	}

	a.catalog, err = loadCatalog(cfg.Simulation.CatalogFile)
	if err != nil {
		return nil, err
	}

	var client tracing.Client = tracing.NewOTelClient(
		tracing.WithTracerProvider(a.tel.TracerProvider),
		tracing.WithLoggerProvider(a.tel.LoggerProvider),
		tracing.WithNamer(tracing.NamerFor(cfg.Simulation.SpanNamer)),
	)

	if cfg.NATS.Enabled {
		conn, js, err := nats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream, cfg.NATS.SubjectPrefix)
		if err != nil {
			return nil, err
		}
		a.conn = conn
		a.sink = nats.NewSink(js,
			nats.WithSubjectPrefix(cfg.NATS.SubjectPrefix),
			nats.WithStream(cfg.NATS.Stream),
			nats.WithQueueSize(cfg.NATS.QueueSize),
			nats.WithPublishTimeout(cfg.NATS.Timeout),
			nats.WithLogger(logger.Named("nats")),
			nats.WithPropagator(a.tel.Propagator),
		)
		client = tracing.NewFanout(client, a.sink)
		logger.Info("publishing span records",
			zap.String("url", cfg.NATS.URL),
			zap.String("stream", cfg.NATS.Stream),
		)
	}

	orch, err := session.New(a.catalog, client, cfg.Simulation.Session(), session.WithLogger(logger.Named("session")))
	if err != nil {
		return nil, err
	}

	metrics, err := batch.NewMetrics(a.tel.MeterProvider.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("batch metrics: %w", err)
	}

	runnerOpts := append([]batch.Option{
		batch.WithLogger(logger.Named("batch")),
		batch.WithMetrics(metrics),
	}, opts...)
	a.runner, err = batch.New(orch, cfg.Batch.Runner(), runnerOpts...)
	if err != nil {
		return nil, err
	}

	if cfg.Control.WebhookURL != "" {
		a.webhook, err = control.NewWebhook(cfg.Control.WebhookURL,
			control.WithWebhookTimeout(cfg.Control.WebhookTimeout),
			control.WithWebhookLogger(logger.Named("webhook")),
			control.WithWebhookProviders(a.providers()),
		)
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *app) providers() control.Providers {
	return control.Providers{
		Tracer:     a.tel.TracerProvider,
		Meter:      a.tel.MeterProvider,
		Propagator: a.tel.Propagator,
	}
}

// Close drains the NATS sink and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error

	if a.sink != nil {
		if err := a.sink.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close span sink: %w", err))
		}
		stats := a.sink.Stats()
		a.logger.Info("span sink closed",
			zap.Uint64("published", stats.Published),
			zap.Uint64("dropped", stats.Dropped),
			zap.Uint64("failed", stats.Failed),
		)
		a.sink = nil
	}
	if a.conn != nil {
		if err := a.conn.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("drain nats: %w", err))
		}
		a.conn = nil
	}
	if a.tel != nil {
		if err := a.tel.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
		a.tel = nil
	}

	return errors.Join(errs...)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}

	return catalog.LoadFromFile(path)
}
