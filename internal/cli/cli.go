package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"surgeq/internal/logging"
	"surgeq/internal/metrics"
	"surgeq/internal/runner"
	"surgeq/internal/tui/styles"
)

const rule = "======================================================================"

type Options struct {
	// Out receives the header, progress line and summary. Defaults to os.Stdout.
	Out io.Writer

	// MetricsAddr, when set, exposes Prometheus metrics for the run.
	MetricsAddr string
}

// Start runs a headless load test and prints the summary. Only configuration
// errors are returned; worker crashes are part of the summary.
func Start(cfg runner.Config, opts Options) (*runner.Report, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	updates := make(runner.StatsUpdateChan, 100)
	r, err := runner.NewCoordinator(cfg, updates)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.MetricsAddr != "" {
		r.Metrics = metrics.NewRecorder()
		r.Metrics.Serve(ctx, opts.MetricsAddr, logging.NewLogger("metrics"))
	}

	printHeader(out, r.Cfg)

	report, err := monitor(ctx, r, out)
	if err != nil {
		return nil, err
	}
	PrintSummary(out, report)
	return report, nil
}

type result struct {
	report *runner.Report
	err    error
}

// monitor runs the coordinator and redraws the progress line on every snapshot.
func monitor(ctx context.Context, r *runner.Coordinator, out io.Writer) (*runner.Report, error) {
	done := make(chan result, 1)
	go func() {
		report, err := r.Run(ctx)
		done <- result{report, err}
	}()

	for {
		select {
		case s := <-r.Updates:
			printProgress(out, s)
		case res := <-done:
			// Flush whatever the coordinator published before returning.
			drain(out, r.Updates)
			return res.report, res.err
		}
	}
}

func drain(out io.Writer, updates runner.StatsUpdateChan) {
	for {
		select {
		case s := <-updates:
			printProgress(out, s)
		default:
			return
		}
	}
}

func printHeader(out io.Writer, cfg runner.Config) {
	fmt.Fprintf(out, "\n🚀 STARTING SURGEQ LOAD TEST\n")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Target URL   : %s\n", cfg.URL)
	fmt.Fprintf(out, "Method       : %s\n", cfg.Method)
	fmt.Fprintf(out, "Requests     : %d\n", cfg.TotalRequests)
	fmt.Fprintf(out, "Concurrency  : %d workers\n", cfg.Concurrency)
	fmt.Fprintf(out, "Batch Size   : %d\n", cfg.BatchSize)
	fmt.Fprintf(out, "Timeout      : %s\n", cfg.Timeout)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)
}

func printProgress(out io.Writer, s runner.Snapshot) {
	fmt.Fprintf(out, "\rProgress: %s %3.0f%% | %d/%d | Workers: %d/%d | Success: %d | Failed: %d",
		progressBar(s.Percentage/100, 20), s.Percentage,
		s.Completed, s.Total,
		s.WorkersDone, s.Workers,
		s.Success, s.Failure,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

// PrintSummary writes the final report in the headless layout.
func PrintSummary(out io.Writer, report *runner.Report) {
	fmt.Fprintf(out, "\n\n📊 %s\n", styles.Title.Render("LOAD TEST RESULTS"))
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Run ID         : %s\n", report.RunID)
	fmt.Fprintf(out, "Duration       : %.2f seconds\n", report.Elapsed.Seconds())
	fmt.Fprintf(out, "Requests/sec   : %.0f\n", report.RequestsPerSecond)
	fmt.Fprintf(out, "Successful     : %s\n", styles.Success.Render(fmt.Sprint(report.Success)))
	fmt.Fprintf(out, "Failed         : %s\n", failureStyle(report).Render(fmt.Sprint(report.Failure)))

	if len(report.StatusCodes) > 0 {
		fmt.Fprintf(out, "\n📈 STATUS CODE DISTRIBUTION\n")
		for _, sc := range report.StatusCodes {
			fmt.Fprintf(out, "   %d : %d\n", sc.Code, sc.Count)
		}
	}

	if report.Latency != nil && report.Latency.Count() > 0 {
		fmt.Fprintf(out, "\n⏱️  RESPONSE TIMES (ms)\n")
		fmt.Fprintf(out, "   P50 : %.2f\n", ms(report.Latency.Quantile(50)))
		fmt.Fprintf(out, "   P90 : %.2f\n", ms(report.Latency.Quantile(90)))
		fmt.Fprintf(out, "   P99 : %.2f\n", ms(report.Latency.Quantile(99)))
		fmt.Fprintf(out, "   Max : %.2f\n", ms(report.Latency.Max()))
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(out, "\n❌ %s\n", styles.Error.Render("FAILURE SUMMARY"))
		for _, e := range report.Errors {
			fmt.Fprintf(out, "   %d x %s\n", e.Count, e.Category)
		}
	}

	if len(report.WorkerErrors) > 0 {
		fmt.Fprintf(out, "\n💥 %s\n", styles.Error.Render("WORKER CRASHES"))
		for _, we := range report.WorkerErrors {
			fmt.Fprintf(out, "   worker %d: %v\n", we.Worker, we.Err)
		}
		fmt.Fprintln(out, styles.Subtle.Render("   Requests owed by crashed workers are not counted."))
	}
	fmt.Fprintln(out, rule)
}

func failureStyle(report *runner.Report) lipgloss.Style {
	rate := 0.0
	if total := report.Total(); total > 0 {
		rate = float64(report.Failure) / float64(total) * 100
	}
	return styles.ErrorRate(rate)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
