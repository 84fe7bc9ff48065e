package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"surgeq/internal/logging"
	"surgeq/internal/metrics"
	"surgeq/internal/stats"
)

// Coordinator partitions the request budget, spawns one worker per share and
// merges their results. All aggregation happens on the goroutine that calls Run.
type Coordinator struct {
	Cfg       Config
	NewClient ClientFactory
	Metrics   *metrics.Recorder

	// Event Channel
	Updates StatsUpdateChan

	logger zerolog.Logger
}

func NewCoordinator(cfg Config, updates StatsUpdateChan) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}

	return &Coordinator{
		Cfg:       cfg.clone(),
		NewClient: DefaultClientFactory,
		Updates:   updates,
		logger:    logging.NewLogger("coordinator"),
	}, nil
}

// run is the coordinator-side state of one Run call. It is only touched from
// the receive loop.
type run struct {
	id          string
	cfg         *Config
	assignments []Assignment
	start       time.Time

	agg          *stats.Aggregate
	progress     map[int]int
	done         map[int]bool
	workerErrors []WorkerError
	log          zerolog.Logger
}

// Run executes the whole load test and returns the final report. It returns an
// error only for configuration problems found before any worker starts.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	cfg := c.Cfg.clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	counts, err := Partition(cfg.TotalRequests, cfg.Concurrency)
	if err != nil {
		return nil, err
	}

	newClient := c.NewClient
	if newClient == nil {
		newClient = DefaultClientFactory
	}

	r := &run{
		id:       uuid.NewString(),
		cfg:      &cfg,
		agg:      stats.NewAggregate(),
		progress: make(map[int]int, len(counts)),
		done:     make(map[int]bool, len(counts)),
	}
	r.assignments = assign(r.cfg, counts)
	r.log = c.logger.With().Str("run_id", r.id).Logger()

	r.log.Info().
		Str("url", cfg.URL).
		Str("method", cfg.Method).
		Int("requests", cfg.TotalRequests).
		Int("workers", len(r.assignments)).
		Int("batch_size", cfg.BatchSize).
		Msg("Starting load test")

	msgs := make(chan Message, 2*len(r.assignments)+1)
	r.start = time.Now()
	for _, a := range r.assignments {
		c.spawn(ctx, a, newClient, msgs, r.log)
	}

	for r.agg.CompletedWorkers < len(r.assignments) {
		switch m := (<-msgs).(type) {
		case Progress:
			c.onProgress(r, m)
		case Complete:
			c.onComplete(r, m)
		case Failure:
			c.onWorkerError(r, m)
		}
	}

	return c.finish(r), nil
}

// spawn launches one worker on its own goroutine. Whatever happens inside,
// exactly one Complete or Failure reaches msgs.
func (c *Coordinator) spawn(ctx context.Context, a Assignment, newClient ClientFactory, msgs chan<- Message, logger zerolog.Logger) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				msgs <- Failure{Worker: a.Index, Err: fmt.Errorf("%w: %v", ErrWorkerPanic, rec)}
			}
		}()

		client, err := newClient(a.Index, a.Config)
		if err != nil {
			msgs <- Failure{Worker: a.Index, Err: fmt.Errorf("build client: %w", err)}
			return
		}

		if err := NewWorker(a, client, msgs, logger).Run(ctx); err != nil {
			msgs <- Failure{Worker: a.Index, Err: err}
		}
	}()
}

func (c *Coordinator) onProgress(r *run, m Progress) {
	if r.done[m.Worker] {
		return
	}
	r.progress[m.Worker] = m.Completed
	c.publish(r, false)
}

func (c *Coordinator) onComplete(r *run, m Complete) {
	if r.done[m.Worker] {
		r.log.Warn().Int("worker", m.Worker).Msg("Ignoring duplicate completion")
		return
	}
	r.done[m.Worker] = true
	r.agg.Merge(m.Tally)
	if m.Tally != nil {
		r.progress[m.Worker] = m.Tally.Total()
	}
	c.Metrics.ObserveTally(m.Tally)
	c.publish(r, false)
}

// onWorkerError counts a crashed worker as done with a zero tally. Its owed
// requests are not added to the failures.
func (c *Coordinator) onWorkerError(r *run, m Failure) {
	if r.done[m.Worker] {
		return
	}
	r.done[m.Worker] = true
	r.agg.MarkFailed()
	r.workerErrors = append(r.workerErrors, WorkerError{Worker: m.Worker, Err: m.Err})
	c.Metrics.ObserveCrash()

	r.log.Error().Err(m.Err).Int("worker", m.Worker).Msg("Worker crashed")
	c.publish(r, false)
}

func (c *Coordinator) finish(r *run) *Report {
	elapsed := time.Since(r.start)
	rps := 0.0
	if elapsed > 0 {
		rps = float64(r.agg.Total()) / elapsed.Seconds()
	}

	report := &Report{
		RunID:             r.id,
		URL:               r.cfg.URL,
		Method:            r.cfg.Method,
		Workers:           len(r.assignments),
		TotalRequests:     r.cfg.TotalRequests,
		Elapsed:           elapsed,
		RequestsPerSecond: rps,
		Success:           r.agg.Success,
		Failure:           r.agg.Failure,
		StatusCodes:       r.agg.SortedStatusCodes(),
		Errors:            r.agg.SortedErrors(),
		Latency:           r.agg.Latency,
		WorkerErrors:      r.workerErrors,
	}

	c.Metrics.ObserveRun(elapsed, rps)
	c.publish(r, true)

	r.log.Info().
		Dur("elapsed", elapsed).
		Float64("rps", rps).
		Int("success", report.Success).
		Int("failure", report.Failure).
		Int("crashed_workers", r.agg.FailedWorkers).
		Msg("Load test completed")

	return report
}

func (c *Coordinator) publish(r *run, done bool) {
	completed := 0
	for _, n := range r.progress {
		completed += n
	}
	pct := 100.0
	if r.cfg.TotalRequests > 0 {
		pct = float64(completed) / float64(r.cfg.TotalRequests) * 100
	}
	c.Metrics.SetProgress(completed, r.cfg.TotalRequests)

	s := Snapshot{
		RunID:       r.id,
		Completed:   completed,
		Total:       r.cfg.TotalRequests,
		Percentage:  pct,
		Success:     r.agg.Success,
		Failure:     r.agg.Failure,
		WorkersDone: r.agg.CompletedWorkers,
		Workers:     len(r.assignments),
		Done:        done,
	}

	// Non-blocking send
	select {
	case c.Updates <- s:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}
