package stats

import (
	"sort"
	"time"
)

// Outcome is the terminal state of one request.
// Err is set for transport failures, in which case Status is meaningless.
type Outcome struct {
	Status  int
	Latency time.Duration
	Err     error
}

// Succeeded reports whether the outcome is a 2xx response.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Status >= 200 && o.Status < 300
}

// Tally is a worker's running count of outcomes.
// Owned by exactly one worker until it is handed to the coordinator.
type Tally struct {
	Success     int
	Failure     int
	StatusCodes map[int]int
	Errors      map[string]int
	Latency     *Histogram
}

func NewTally() *Tally {
	return &Tally{
		StatusCodes: make(map[int]int),
		Errors:      make(map[string]int),
		Latency:     NewHistogram(),
	}
}

// Record classifies o into the tally. Transport failures count as failures
// but never create a status bucket.
func (t *Tally) Record(o Outcome) {
	if o.Err != nil {
		t.Failure++
		t.Errors[Categorize(o.Err)]++
		return
	}

	t.StatusCodes[o.Status]++
	t.Latency.Record(o.Latency)
	if o.Succeeded() {
		t.Success++
	} else {
		t.Failure++
	}
}

func (t *Tally) Total() int {
	return t.Success + t.Failure
}

// TransportFailures is the number of failures that produced no status code.
func (t *Tally) TransportFailures() int {
	n := 0
	for _, c := range t.Errors {
		n += c
	}
	return n
}

// StatusCount is one bucket of a status-code histogram.
type StatusCount struct {
	Code  int
	Count int
}

// ErrorCount is one bucket of the transport error breakdown.
type ErrorCount struct {
	Category string
	Count    int
}

// Aggregate is the coordinator's merged view of every worker's tally.
type Aggregate struct {
	Success     int
	Failure     int
	StatusCodes map[int]int
	Errors      map[string]int
	Latency     *Histogram

	CompletedWorkers int
	FailedWorkers    int
}

func NewAggregate() *Aggregate {
	return &Aggregate{
		StatusCodes: make(map[int]int),
		Errors:      make(map[string]int),
		Latency:     NewHistogram(),
	}
}

// Merge adds t to the aggregate and counts one more completed worker.
// A nil tally is merged as a zero tally.
func (a *Aggregate) Merge(t *Tally) {
	a.CompletedWorkers++
	if t == nil {
		return
	}

	a.Success += t.Success
	a.Failure += t.Failure
	for code, n := range t.StatusCodes {
		a.StatusCodes[code] += n
	}
	for cat, n := range t.Errors {
		a.Errors[cat] += n
	}
	a.Latency.Merge(t.Latency)
}

// MarkFailed counts a crashed worker as completed with nothing to merge.
func (a *Aggregate) MarkFailed() {
	a.CompletedWorkers++
	a.FailedWorkers++
}

func (a *Aggregate) Total() int {
	return a.Success + a.Failure
}

func (a *Aggregate) ErrorRate() float64 {
	total := a.Total()
	if total == 0 {
		return 0
	}
	return float64(a.Failure) / float64(total) * 100
}

// SortedStatusCodes returns the status histogram in ascending code order.
func (a *Aggregate) SortedStatusCodes() []StatusCount {
	out := make([]StatusCount, 0, len(a.StatusCodes))
	for code, n := range a.StatusCodes {
		out = append(out, StatusCount{Code: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Code < out[j].Code
	})
	return out
}

// SortedErrors returns the error breakdown, most frequent first.
func (a *Aggregate) SortedErrors() []ErrorCount {
	out := make([]ErrorCount, 0, len(a.Errors))
	for cat, n := range a.Errors {
		out = append(out, ErrorCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
