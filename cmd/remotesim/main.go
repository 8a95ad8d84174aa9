// Package main is the entry point for the remotesim binary.
// It runs batches of simulated Bluetooth remote sessions from the command
// line, serves the batch control API and prints the simulation catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arloliu/remotesim"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "remotesim",
		Short: "Synthetic telemetry for a Bluetooth audio remote app",
		Long: `remotesim simulates users of a Bluetooth audio remote-control app and
reports every session as a tree of spans, breadcrumbs and captured errors.

Sessions run on a virtual clock by default, so a batch of thousands of
sessions completes in seconds with realistic, backdated timestamps.

Examples:
  remotesim run --sessions 500 --seed 42
  remotesim run --tui --workers 4
  remotesim serve --listen :8089
  remotesim list`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&g.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format (console, json)")

	rootCmd.AddCommand(newRunCmd(g), newServeCmd(g), newListCmd(g))

	return rootCmd
}

// loadConfig reads the config file when given, otherwise starts from the
// defaults. Environment variables override both; flags are applied last.
func loadConfig(g *globalFlags) (*remotesim.Config, error) {
	var (
		cfg *remotesim.Config
		err error
	)

	if g.configPath != "" {
		cfg, err = remotesim.LoadConfig(g.configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = remotesim.DefaultConfig()
		if err := remotesim.ApplyEnv(cfg); err != nil {
			return nil, err
		}
	}

	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}

	return cfg, nil
}
