package result

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"surgeq/internal/runner"
	"surgeq/internal/tui/styles"
)

// Model shows a finished run's report.
type Model struct {
	Report *runner.Report

	Width  int
	Height int
}

func NewModel(r *runner.Report) Model {
	return Model{Report: r}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
	}
	return m, nil
}

func (m Model) View() string {
	r := m.Report
	if r == nil {
		return ""
	}
	s := strings.Builder{}

	s.WriteString(styles.Title.Render("📊 Test Complete"))
	s.WriteString("\n\n")

	// 1. Overview
	s.WriteString(styles.Active.Render("Overview"))
	s.WriteString("\n")

	overview := fmt.Sprintf(
		"Duration:       %.2f s\nRequests/sec:   %.0f\nSuccess:        %d\nFailed:         %d",
		r.Elapsed.Seconds(), r.RequestsPerSecond, r.Success, r.Failure,
	)
	s.WriteString(styles.Box.Render(overview))
	s.WriteString("\n\n")

	// 2. Status codes
	if len(r.StatusCodes) > 0 {
		s.WriteString(styles.Active.Render("Status Codes"))
		s.WriteString("\n")
		lines := make([]string, 0, len(r.StatusCodes))
		for _, sc := range r.StatusCodes {
			lines = append(lines, fmt.Sprintf("%d: %d", sc.Code, sc.Count))
		}
		s.WriteString(styles.Box.Render(strings.Join(lines, "\n")))
		s.WriteString("\n\n")
	}

	// 3. Latency
	if r.Latency != nil && r.Latency.Count() > 0 {
		s.WriteString(styles.Active.Render("Latency"))
		s.WriteString("\n")
		latency := fmt.Sprintf(
			"Avg: %.2f ms\nP50: %.2f ms\nP90: %.2f ms\nP99: %.2f ms\nMax: %.2f ms",
			ms(r.Latency.Mean()),
			ms(r.Latency.Quantile(50)),
			ms(r.Latency.Quantile(90)),
			ms(r.Latency.Quantile(99)),
			ms(r.Latency.Max()),
		)
		s.WriteString(styles.Box.Render(latency))
		s.WriteString("\n\n")
	}

	// 4. Failures
	if len(r.Errors) > 0 || len(r.WorkerErrors) > 0 {
		s.WriteString(styles.Error.Render("Failures"))
		s.WriteString("\n")
		var lines []string
		for _, e := range r.Errors {
			lines = append(lines, fmt.Sprintf("%d x %s", e.Count, e.Category))
		}
		for _, we := range r.WorkerErrors {
			lines = append(lines, fmt.Sprintf("worker %d crashed: %v", we.Worker, we.Err))
		}
		s.WriteString(styles.Box.Render(strings.Join(lines, "\n")))
		s.WriteString("\n\n")
	}

	s.WriteString(styles.Subtle.Render("Press q to quit"))

	return s.String()
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
