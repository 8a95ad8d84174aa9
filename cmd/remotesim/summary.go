package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/arloliu/remotesim/batch"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	summaryLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(18)
	summaryWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	summaryErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	summaryPaneStyle  = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(0, 1)
)

// renderSummary formats a batch summary as a bordered pane.
func renderSummary(s batch.Summary) string {
	var sb strings.Builder

	title := "Batch complete"
	if s.Canceled {
		title = "Batch canceled"
	}
	sb.WriteString(summaryTitleStyle.Render(title) + "\n\n")

	row := func(label, value string) {
		sb.WriteString(summaryLabelStyle.Render(label) + value + "\n")
	}

	sessions := fmt.Sprintf("%d/%d", s.Completed, s.Requested)
	if s.Canceled {
		sessions = summaryWarnStyle.Render(sessions)
	}
	row("Sessions", sessions)
	row("Seed", fmt.Sprintf("%d", s.Seed))
	row("Workers", fmt.Sprintf("%d", s.Workers))
	row("Spans", fmt.Sprintf("%d", s.Spans))
	row("Connected", fmt.Sprintf("%d (%.1f%%)", s.Connected, s.ConnectRate()*100))
	row("Commands", fmt.Sprintf("%d (%.1f%% failed)", s.Commands, s.CommandFailureRate()*100))
	row("Simulated time", s.SimulatedTime.Round(time.Second).String())
	row("Elapsed", s.Elapsed.Round(time.Millisecond).String())

	for _, part := range []struct {
		label  string
		counts map[string]int64
	}{
		{"Scenarios", s.Scenarios},
		{"Devices", s.Devices},
		{"Scan outcomes", s.ScanOutcomes},
	} {
		if len(part.counts) > 0 {
			row(part.label, formatCounts(part.counts))
		}
	}

	if s.Error != "" {
		sb.WriteString("\n" + summaryErrStyle.Render("error: "+s.Error) + "\n")
	}

	return summaryPaneStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

// formatCounts renders counts as "a=1 b=2" in key order.
func formatCounts(counts map[string]int64) string {
	keys := slices.Sorted(maps.Keys(counts))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}

	return strings.Join(parts, " ")
}
