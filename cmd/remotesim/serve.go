package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/remotesim"
	"github.com/arloliu/remotesim/batch"
	"github.com/arloliu/remotesim/control"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the batch control API",
		Long: `Serve the batch control API.

  POST   /v1/batches           start a batch, body {"sessions": N}
  GET    /v1/batches/current   progress and last summary
  DELETE /v1/batches/current   cancel after the sessions in flight
  GET    /healthz              liveness
  GET    /metrics              Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Control.Listen = listen
			}

			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8089", "Address the control API listens on")

	return cmd
}

func serve(parent context.Context, cfg *remotesim.Config) error {
	logger, err := remotesim.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		// Let a batch in flight finish its current sessions before flushing.
		a.runner.Cancel()
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if _, err := a.runner.Wait(closeCtx); err != nil && !errors.Is(err, batch.ErrNotStarted) {
			logger.Debug("wait for batch", zap.Error(err))
		}
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	if a.webhook != nil {
		a.runner.Observe(a.webhook)
	}

	srv, err := control.NewServer(a.runner,
		control.WithServerLogger(logger.Named("control")),
		control.WithProviders(a.providers()),
	)
	if err != nil {
		return err
	}

	return srv.ListenAndServe(ctx, cfg.Control.Listen)
}
