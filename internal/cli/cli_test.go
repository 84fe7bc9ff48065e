package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surgeq/internal/runner"
	"surgeq/internal/stats"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[----------]", progressBar(0, 10))
	assert.Equal(t, "[█████-----]", progressBar(0.5, 10))
	assert.Equal(t, "[██████████]", progressBar(1, 10))
	assert.Equal(t, "[██████████]", progressBar(1.7, 10))
	assert.Equal(t, "[----------]", progressBar(-0.2, 10))
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	printProgress(&buf, runner.Snapshot{
		Completed: 250, Total: 1000, Percentage: 25,
		Success: 200, Failure: 3, WorkersDone: 1, Workers: 4,
	})

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "\rProgress: [█████---------------]  25%"))
	assert.Contains(t, line, "250/1000")
	assert.Contains(t, line, "Workers: 1/4")
	assert.Contains(t, line, "Success: 200 | Failed: 3")
}

func TestPrintSummary(t *testing.T) {
	latency := stats.NewHistogram()
	latency.Record(10 * time.Millisecond)
	latency.Record(20 * time.Millisecond)

	report := &runner.Report{
		RunID:             "run-1",
		Elapsed:           2500 * time.Millisecond,
		RequestsPerSecond: 39.6,
		Success:           90,
		Failure:           9,
		StatusCodes: []stats.StatusCount{
			{Code: 200, Count: 90},
			{Code: 404, Count: 4},
			{Code: 500, Count: 3},
		},
		Errors:       []stats.ErrorCount{{Category: stats.CategoryTimeout, Count: 2}},
		Latency:      latency,
		WorkerErrors: []runner.WorkerError{{Worker: 2, Err: errors.New("build client: no sockets")}},
	}

	var buf bytes.Buffer
	PrintSummary(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "LOAD TEST RESULTS")
	assert.Contains(t, out, "Run ID         : run-1")
	assert.Contains(t, out, "Duration       : 2.50 seconds")
	assert.Contains(t, out, "Requests/sec   : 40")
	assert.Contains(t, out, "90")
	assert.Contains(t, out, "2 x timeout")
	assert.Contains(t, out, "worker 2: build client: no sockets")
	assert.Contains(t, out, "P50 :")

	i200 := strings.Index(out, "   200 : 90")
	i404 := strings.Index(out, "   404 : 4")
	i500 := strings.Index(out, "   500 : 3")
	require.True(t, i200 >= 0 && i404 >= 0 && i500 >= 0)
	assert.Less(t, i200, i404)
	assert.Less(t, i404, i500)
}

func TestPrintSummary_OmitsEmptySections(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, &runner.Report{Latency: stats.NewHistogram()})
	out := buf.String()

	assert.NotContains(t, out, "STATUS CODE DISTRIBUTION")
	assert.NotContains(t, out, "RESPONSE TIMES")
	assert.NotContains(t, out, "FAILURE SUMMARY")
	assert.NotContains(t, out, "WORKER CRASHES")
}

func TestStart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := runner.DefaultConfig()
	cfg.URL = server.URL
	cfg.TotalRequests = 40
	cfg.Concurrency = 2
	cfg.BatchSize = 5
	cfg.ReportInterval = 10

	var buf bytes.Buffer
	report, err := Start(cfg, Options{Out: &buf})
	require.NoError(t, err)

	assert.Equal(t, 40, report.Success)
	out := buf.String()
	assert.Contains(t, out, "Target URL   : "+server.URL)
	assert.Contains(t, out, "Concurrency  : 2 workers")
	assert.Contains(t, out, "\rProgress:")
	assert.Contains(t, out, "   200 : 40")
	assert.Less(t, strings.Index(out, "STARTING SURGEQ"), strings.Index(out, "LOAD TEST RESULTS"))
}

func TestStart_RejectsBadConfig(t *testing.T) {
	cfg := runner.DefaultConfig()
	cfg.URL = "ftp://example.com"

	var buf bytes.Buffer
	report, err := Start(cfg, Options{Out: &buf})

	assert.Nil(t, report)
	var cfgErr *runner.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "url", cfgErr.Field)
	assert.Empty(t, buf.String())
}
