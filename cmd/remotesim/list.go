package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/arloliu/remotesim/catalog"
)

var listHeadingStyle = lipgloss.NewStyle().Bold(true).Underline(true)

func newListCmd(g *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List personas, devices and scenarios",
		Long: `List the simulation catalog: personas, devices with their effective
reliability and per-control lag, and the weighted scenarios.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg.Simulation.CatalogFile)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(cat)
			}

			printCatalog(cmd.OutOrStdout(), cat)

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")

	return cmd
}

func printCatalog(w io.Writer, cat *catalog.Catalog) {
	personas := table.New().Border(lipgloss.NormalBorder()).
		Headers("ID", "ACTIONS", "WRITE FAILURE", "THINK TIME", "DESCRIPTION")
	for _, p := range cat.Personas {
		personas.Row(
			p.ID,
			fmt.Sprintf("%d-%d", p.ActionCount.Min, p.ActionCount.Max),
			percent(p.ErrorProbability),
			fmt.Sprintf("%.0f-%.0f ms", p.ThinkTime.Min, p.ThinkTime.Max),
			p.Description,
		)
	}

	devices := table.New().Border(lipgloss.NormalBorder()).
		Headers("NAME", "TYPE", "LATENCY", "RELIABILITY", "COMMAND x", "LAG")
	for _, d := range cat.Devices {
		eff := cat.Effective(d)
		reliability := percent(eff.Reliability)
		if eff.Reliability != d.Reliability {
			reliability += fmt.Sprintf(" (pinned, nominal %s)", percent(d.Reliability))
		}
		devices.Row(
			d.Name,
			d.Type,
			fmt.Sprintf("%.0f-%.0f ms", d.Latency.Min, d.Latency.Max),
			reliability,
			fmt.Sprintf("%.1f", d.CommandScale()),
			lagSummary(cat, d.Name),
		)
	}

	scenarios := table.New().Border(lipgloss.NormalBorder()).
		Headers("NAME", "WEIGHT", "LATENCY x", "WRITE FAILURE", "DESCRIPTION")
	for _, s := range cat.Scenarios {
		failure := "persona"
		if s.ErrorRateOverride != nil {
			failure = percent(*s.ErrorRateOverride)
		}
		scenarios.Row(
			s.Name,
			fmt.Sprintf("%g", s.Weight),
			fmt.Sprintf("%.1f", s.Latency()),
			failure,
			s.Description,
		)
	}

	fmt.Fprintln(w, listHeadingStyle.Render("Personas"))
	fmt.Fprintln(w, personas.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, listHeadingStyle.Render("Devices"))
	fmt.Fprintln(w, devices.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, listHeadingStyle.Render("Scenarios"))
	fmt.Fprintln(w, scenarios.String())
}

// lagSummary lists the controls whose latency is multiplied on device.
func lagSummary(cat *catalog.Catalog, device string) string {
	var parts []string
	for _, control := range []string{
		catalog.ControlPlayPause, catalog.ControlSkip, catalog.ControlShuffle, catalog.ControlVolume,
	} {
		if m := cat.LagMultiplier(device, control); m != 1 {
			parts = append(parts, fmt.Sprintf("%s %gx", control, m))
		}
	}
	if len(parts) == 0 {
		return "-"
	}

	return strings.Join(parts, ", ")
}

func percent(p float64) string {
	return fmt.Sprintf("%.0f%%", p*100)
}
