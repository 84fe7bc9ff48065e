package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"surgeq/internal/runner"
	"surgeq/internal/tui/components"
	"surgeq/internal/tui/styles"
)

// Model renders coordinator snapshots while a run is in flight.
type Model struct {
	Snapshot runner.Snapshot
	Progress progress.Model

	RpsLine components.Sparkline

	URL        string
	StartTime  time.Time
	LastUpdate time.Time
	LastDone   int

	Width  int
	Height int
}

func NewModel(cfg runner.Config) Model {
	slRps := components.NewSparkline(
		40,
		"Throughput (req/s)",
		styles.Active,
	)

	now := time.Now()
	return Model{
		Snapshot:   runner.Snapshot{Total: cfg.TotalRequests},
		Progress:   progress.New(progress.WithDefaultGradient()),
		RpsLine:    slRps,
		URL:        cfg.URL,
		StartTime:  now,
		LastUpdate: now,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runner.Snapshot:
		now := time.Now()
		dt := now.Sub(m.LastUpdate).Seconds()
		if dt < 0.01 {
			dt = 0.01
		}

		// Progress only grows, but a dropped snapshot can make the delta jump.
		delta := msg.Completed - m.LastDone
		if delta < 0 {
			delta = 0
		}
		m.RpsLine.Add(uint64(float64(delta) / dt))

		m.Snapshot = msg
		m.LastDone = msg.Completed
		m.LastUpdate = now

		cmd := m.Progress.SetPercent(msg.Percentage / 100)
		return m, cmd

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := (msg.Width / 2) - 4
		if half < 10 {
			half = 10
		}
		m.RpsLine.Width = half
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// ErrorRate is the failure percentage over completed workers' requests.
func (m Model) ErrorRate() float64 {
	done := m.Snapshot.Success + m.Snapshot.Failure
	if done == 0 {
		return 0
	}
	return float64(m.Snapshot.Failure) / float64(done) * 100
}

func (m Model) View() string {
	s := strings.Builder{}
	snap := m.Snapshot

	s.WriteString(styles.Title.Render("Running " + m.URL))
	s.WriteString("\n\n")

	errRate := m.ErrorRate()

	col1 := fmt.Sprintf("REQ: %d/%d\nELAPSED: %s", snap.Completed, snap.Total, time.Since(m.StartTime).Round(time.Second))
	col2 := fmt.Sprintf("OK: %d\nFAIL: %d (%.2f%%)", snap.Success, snap.Failure, errRate)
	col3 := fmt.Sprintf("WORKERS\n%d/%d done", snap.WorkersDone, snap.Workers)

	grid := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(styles.ErrorRate(errRate).Render(col2)),
		styles.Box.Render(col3),
	)
	s.WriteString(grid)
	s.WriteString("\n\n")

	s.WriteString(styles.Box.Render(m.RpsLine.View()))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.View())
	s.WriteString("\n\n")
	s.WriteString(styles.RenderKey("q", "quit"))

	return s.String()
}
