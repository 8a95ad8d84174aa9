package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arloliu/remotesim/batch"
)

const (
	barPadding  = 2
	barMaxWidth = 80
)

var (
	tuiTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	tuiHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type progressMsg struct {
	done  int
	total int
}

type doneMsg struct {
	summary batch.Summary
	err     error
}

// progressModel renders a static progress bar fed by the batch observer.
type progressModel struct {
	bar       progress.Model
	done      int
	total     int
	cancel    func()
	canceling bool
	finished  bool
	err       error
}

func newProgressModel(total int, cancel func()) progressModel {
	return progressModel{
		bar:    progress.New(progress.WithDefaultGradient()),
		total:  total,
		cancel: cancel,
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.canceling {
				m.canceling = true
				m.cancel()
			}

			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = max(min(msg.Width-barPadding*2-4, barMaxWidth), 10)

	case progressMsg:
		m.done, m.total = msg.done, msg.total

	case doneMsg:
		m.finished = true
		m.err = msg.err
		if msg.err == nil {
			m.done = msg.summary.Completed
		}

		return m, tea.Quit
	}

	return m, nil
}

func (m progressModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}

	return float64(m.done) / float64(m.total)
}

func (m progressModel) View() string {
	pad := lipgloss.NewStyle().PaddingLeft(barPadding)

	status := fmt.Sprintf("%d/%d sessions", m.done, m.total)
	switch {
	case m.canceling && !m.finished:
		status += " (canceling, finishing sessions in flight)"
	case m.finished:
		status += " done"
	}

	return "\n" +
		pad.Render(tuiTitleStyle.Render("remotesim")) + "\n\n" +
		pad.Render(m.bar.ViewAs(m.percent())) + "\n\n" +
		pad.Render(status) + "\n" +
		pad.Render(tuiHelpStyle.Render("q: cancel")) + "\n"
}

// runWithTUI runs the batch behind a bubbletea progress bar. Quitting the
// program cancels the batch; the sessions in flight still complete.
func runWithTUI(ctx context.Context, runner *batch.Runner, total int, out io.Writer) (batch.Summary, error) {
	p := tea.NewProgram(newProgressModel(total, runner.Cancel),
		tea.WithContext(ctx),
		tea.WithOutput(out),
	)

	runner.Observe(batch.ObserverFuncs{
		Progress: func(done, total int) {
			p.Send(progressMsg{done: done, total: total})
		},
	})

	results := make(chan doneMsg, 1)
	go func() {
		summary, err := runner.Run(ctx)
		results <- doneMsg{summary: summary, err: err}
		p.Send(doneMsg{summary: summary, err: err})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		runner.Cancel()
		res := <-results

		return res.summary, errors.Join(fmt.Errorf("progress display: %w", err), res.err)
	}

	res := <-results

	return res.summary, res.err
}
