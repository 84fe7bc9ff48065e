package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"surgeq/internal/runner"
	"surgeq/internal/tui/live"
	"surgeq/internal/tui/result"
)

type StatsMsg runner.Snapshot

// ReportMsg is delivered once the coordinator returns.
type ReportMsg struct {
	Report *runner.Report
	Err    error
}

type Model struct {
	Coordinator *runner.Coordinator
	Updates     runner.StatsUpdateChan
	ctx         context.Context

	Live   live.Model
	Result result.Model

	Done   bool
	Report *runner.Report
	Err    error

	// Layout
	Width  int
	Height int
}

func NewModel(ctx context.Context, c *runner.Coordinator) Model {
	return Model{
		Coordinator: c,
		Updates:     c.Updates,
		ctx:         ctx,
		Live:        live.NewModel(c.Cfg),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		startRun(m.ctx, m.Coordinator),
		waitForUpdate(m.Updates),
	)
}

func startRun(ctx context.Context, c *runner.Coordinator) tea.Cmd {
	return func() tea.Msg {
		report, err := c.Run(ctx)
		return ReportMsg{Report: report, Err: err}
	}
}

func waitForUpdate(sub runner.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		return StatsMsg(<-sub)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			// A run in flight is abandoned with the process.
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Live, _ = m.Live.Update(msg)
		m.Result, _ = m.Result.Update(msg)
		return m, nil

	case StatsMsg:
		snap := runner.Snapshot(msg)
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(snap)
		if snap.Done || m.Done {
			return m, cmd
		}
		return m, tea.Batch(cmd, waitForUpdate(m.Updates))

	case ReportMsg:
		m.Done = true
		m.Report = msg.Report
		m.Err = msg.Err
		if msg.Err != nil {
			return m, tea.Quit
		}
		m.Result = result.NewModel(msg.Report)
		m.Result.Width = m.Width
		m.Result.Height = m.Height
		return m, nil
	}

	// Progress bar animation frames
	var cmd tea.Cmd
	m.Live, cmd = m.Live.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Err != nil {
		return fmt.Sprintf("Error: %v\n", m.Err)
	}

	content := m.Live.View()
	if m.Done {
		content = m.Result.View()
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// Start runs the coordinator behind a full-screen live view. The report is
// nil when the user quits before the run finishes.
func Start(c *runner.Coordinator) (*runner.Report, error) {
	p := tea.NewProgram(NewModel(context.Background(), c), tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("run tui: %w", err)
	}
	m := final.(Model)
	return m.Report, m.Err
}
