package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"surgeq/internal/stats"
)

// ErrWorkerPanic wraps a panic recovered inside a worker.
var ErrWorkerPanic = errors.New("worker panicked")

// Worker executes one assignment in sequential batches. Its tally is private
// until it is sent in the Complete message.
type Worker struct {
	assignment Assignment
	client     Requester
	out        chan<- Message
	logger     zerolog.Logger
}

func NewWorker(a Assignment, client Requester, out chan<- Message, logger zerolog.Logger) *Worker {
	return &Worker{
		assignment: a,
		client:     client,
		out:        out,
		logger:     logger.With().Int("worker", a.Index).Logger(),
	}
}

// Run executes every owed request and sends Complete. When it returns an
// error, no Complete has been sent and the caller must report a Failure.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.assignment.Config
	owed := w.assignment.Requests
	tally := stats.NewTally()
	completed := 0

	w.logger.Debug().Int("requests", owed).Int("batch_size", cfg.BatchSize).Msg("Worker started")

	for _, size := range batchSizes(owed, cfg.BatchSize) {
		outcomes, err := w.runBatch(ctx, size)
		if err != nil {
			return fmt.Errorf("worker %d after %d requests: %w", w.assignment.Index, completed, err)
		}
		for _, o := range outcomes {
			tally.Record(o)
		}
		completed += size

		if completed%cfg.ReportInterval == 0 || completed == owed {
			w.out <- Progress{
				Worker:     w.assignment.Index,
				Completed:  completed,
				Total:      owed,
				Percentage: float64(completed) / float64(owed) * 100,
			}
		}
	}

	w.logger.Debug().
		Int("success", tally.Success).
		Int("failure", tally.Failure).
		Msg("Worker finished")

	w.out <- Complete{Worker: w.assignment.Index, Tally: tally}
	return nil
}

// runBatch fires size requests at once and waits for all of them to reach a
// terminal state. Each goroutine writes only its own slot.
func (w *Worker) runBatch(ctx context.Context, size int) ([]stats.Outcome, error) {
	outcomes := make([]stats.Outcome, size)

	var g errgroup.Group
	for i := range outcomes {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
				}
			}()
			outcomes[i] = w.execute(ctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (w *Worker) execute(ctx context.Context) stats.Outcome {
	cfg := w.assignment.Config

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var body io.Reader
	if cfg.Body != nil {
		body = bytes.NewReader(cfg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, body)
	if err != nil {
		return stats.Outcome{Err: err}
	}
	for k, v := range cfg.Headers {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return stats.Outcome{Err: err, Latency: time.Since(start)}
	}
	// Only the status counts; a failed body read is not a failed request.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		w.logger.Debug().Err(err).Int("status", resp.StatusCode).Msg("Discarding response body failed")
	}
	resp.Body.Close()

	return stats.Outcome{Status: resp.StatusCode, Latency: time.Since(start)}
}

// batchSizes splits owed requests into batches of at most size; only the last
// batch may be smaller.
func batchSizes(owed, size int) []int {
	if owed <= 0 || size <= 0 {
		return nil
	}
	sizes := make([]int, 0, (owed+size-1)/size)
	for remaining := owed; remaining > 0; remaining -= size {
		sizes = append(sizes, min(size, remaining))
	}
	return sizes
}
