package runner

import (
	"time"

	"surgeq/internal/stats"
)

// Assignment is one worker's immutable slice of the request budget.
type Assignment struct {
	Index    int
	Config   *Config
	Requests int
}

// Message is what workers send to the coordinator.
// It is one of Progress, Complete or Failure.
type Message interface {
	worker() int
}

// Progress is sent after a batch when the cadence or the final batch says so.
type Progress struct {
	Worker     int
	Completed  int
	Total      int
	Percentage float64
}

// Complete carries a worker's final tally. It is the last message a worker sends.
type Complete struct {
	Worker int
	Tally  *stats.Tally
}

// Failure replaces Complete when a worker crashes.
type Failure struct {
	Worker int
	Err    error
}

func (m Progress) worker() int { return m.Worker }
func (m Complete) worker() int { return m.Worker }
func (m Failure) worker() int  { return m.Worker }

// Snapshot is sent over the updates channel for live progress displays.
type Snapshot struct {
	RunID string

	Completed  int
	Total      int
	Percentage float64

	// Success and Failure only include workers that have completed.
	Success int
	Failure int

	WorkersDone int
	Workers     int
	Done        bool
}

// StatsUpdateChan carries coordinator snapshots to a progress display. The
// coordinator never blocks on it; a full channel drops the snapshot.
type StatsUpdateChan chan Snapshot

// WorkerError records a worker that crashed before completing.
type WorkerError struct {
	Worker int
	Err    error
}

// Report is the frozen result of a finished run.
type Report struct {
	RunID  string
	URL    string
	Method string

	Workers       int
	TotalRequests int

	Elapsed           time.Duration
	RequestsPerSecond float64

	Success     int
	Failure     int
	StatusCodes []stats.StatusCount
	Errors      []stats.ErrorCount
	Latency     *stats.Histogram

	WorkerErrors []WorkerError
}

func (r *Report) Total() int {
	return r.Success + r.Failure
}
