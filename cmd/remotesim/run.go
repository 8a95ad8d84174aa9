package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/arloliu/remotesim"
	"github.com/arloliu/remotesim/batch"
)

const shutdownTimeout = 10 * time.Second

type runFlags struct {
	sessions    int
	workers     int
	seed        uint64
	realtime    bool
	startOffset time.Duration
	persona     string
	device      string
	scenario    string
	strict      bool
	tui         bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batch of simulated sessions",
		Long: `Run one batch of simulated sessions and print a summary.

Flags override the config file and REMOTESIM_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, g, f)
		},
	}

	f.bind(cmd.Flags())

	return cmd
}

// bind registers the run flags on fs.
func (f *runFlags) bind(fs *pflag.FlagSet) {
	fs.IntVarP(&f.sessions, "sessions", "n", 10, "Number of sessions to simulate")
	fs.IntVarP(&f.workers, "workers", "w", 1, "Concurrent session workers")
	fs.Uint64Var(&f.seed, "seed", 0, "Seed for a reproducible batch (0 picks a random seed)")
	fs.BoolVar(&f.realtime, "realtime", false, "Pace sessions on the wall clock instead of a virtual clock")
	fs.DurationVar(&f.startOffset, "start-offset", 0, "Shift virtual timestamps, e.g. -24h to backfill a day")
	fs.StringVar(&f.persona, "persona", "", "Pin every session to a persona id")
	fs.StringVar(&f.device, "device", "", "Pin every session to a device name")
	fs.StringVar(&f.scenario, "scenario", "", "Pin every session to a scenario name")
	fs.BoolVar(&f.strict, "strict", false, "Reject finishing a span with open children")
	fs.BoolVar(&f.tui, "tui", false, "Show an interactive progress bar")
}

// apply copies the flags the user actually set onto cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *remotesim.Config) {
	fs := cmd.Flags()
	if fs.Changed("sessions") {
		cfg.Batch.Sessions = &f.sessions
	}
	if fs.Changed("workers") {
		cfg.Batch.Workers = &f.workers
	}
	if fs.Changed("seed") {
		cfg.Batch.Seed = f.seed
	}
	if fs.Changed("realtime") {
		cfg.Batch.Realtime = f.realtime
	}
	if fs.Changed("start-offset") {
		cfg.Batch.StartOffset = f.startOffset
	}
	if fs.Changed("persona") {
		cfg.Simulation.Persona = f.persona
	}
	if fs.Changed("device") {
		cfg.Simulation.Device = f.device
	}
	if fs.Changed("scenario") {
		cfg.Simulation.Scenario = f.scenario
	}
	if fs.Changed("strict") {
		cfg.Simulation.Strict = f.strict
	}
	if f.tui && (cfg.Log.Output == "" || cfg.Log.Output == "stderr" || cfg.Log.Output == "stdout") {
		// The progress bar owns the terminal.
		cfg.Log.Output = "nop"
	}
}

func runBatch(cmd *cobra.Command, g *globalFlags, f *runFlags) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	f.apply(cmd, cfg)

	logger, err := remotesim.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	var summary batch.Summary
	if f.tui {
		summary, err = runWithTUI(ctx, a.runner, cfg.Batch.GetSessions(), cmd.OutOrStdout())
	} else {
		summary, err = runPlain(ctx, a.runner, cmd.ErrOrStderr())
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary))

	if a.webhook != nil {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.webhook.Send(sendCtx, summary); err != nil {
			logger.Warn("completion webhook failed", zap.Error(err))
		}
	}

	return nil
}

// runPlain runs the batch and reports every tenth of the progress on w.
func runPlain(ctx context.Context, runner *batch.Runner, w io.Writer) (batch.Summary, error) {
	runner.Observe(batch.ObserverFuncs{
		Progress: func(done, total int) {
			step := max(total/10, 1)
			if done%step == 0 || done == total {
				fmt.Fprintf(w, "%d/%d sessions\n", done, total)
			}
		},
	})

	return runner.Run(ctx)
}
