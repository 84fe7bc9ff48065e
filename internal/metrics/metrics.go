// Package metrics exposes load test progress and results as Prometheus metrics.
//
// Each run gets its own registry so that repeated runs in one process (and
// tests) never collide on the default registerer. All observations are made
// from the coordinator loop, never from workers.
//
// Metrics:
//   - surgeq_requests_total{code} (Counter): completed requests by status code,
//     code="transport" for failures that produced no response
//   - surgeq_transport_errors_total{category} (Counter): transport failures by category
//   - surgeq_workers_total{state} (Counter): finished workers, state is "completed" or "crashed"
//   - surgeq_progress_ratio (Gauge): completed / total requests, 0..1
//   - surgeq_run_duration_seconds (Gauge): wall time of the last finished run
//   - surgeq_requests_per_second (Gauge): throughput of the last finished run
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"surgeq/internal/stats"
)

const namespace = "surgeq"

// Recorder owns a registry and the collectors registered in it.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
	workers         *prometheus.CounterVec
	progress        prometheus.Gauge
	runDuration     prometheus.Gauge
	throughput      prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Completed requests by HTTP status code",
		}, []string{"code"}),
		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Requests that failed before a response was received, by category",
		}, []string{"category"}),
		workers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workers_total",
			Help:      "Finished workers by terminal state",
		}, []string{"state"}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "progress_ratio",
			Help:      "Fraction of the request budget completed",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last finished run",
		}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_per_second",
			Help:      "Requests per second of the last finished run",
		}),
	}

	r.registry.MustRegister(
		r.requests,
		r.transportErrors,
		r.workers,
		r.progress,
		r.runDuration,
		r.throughput,
	)
	return r
}

// ObserveTally records a completed worker's tally.
func (r *Recorder) ObserveTally(t *stats.Tally) {
	if r == nil {
		return
	}
	r.workers.WithLabelValues("completed").Inc()
	if t == nil {
		return
	}
	for code, n := range t.StatusCodes {
		r.requests.WithLabelValues(strconv.Itoa(code)).Add(float64(n))
	}
	for cat, n := range t.Errors {
		r.requests.WithLabelValues("transport").Add(float64(n))
		r.transportErrors.WithLabelValues(cat).Add(float64(n))
	}
}

// ObserveCrash records a worker that terminated without a tally.
func (r *Recorder) ObserveCrash() {
	if r == nil {
		return
	}
	r.workers.WithLabelValues("crashed").Inc()
}

func (r *Recorder) SetProgress(completed, total int) {
	if r == nil || total <= 0 {
		return
	}
	r.progress.Set(float64(completed) / float64(total))
}

// ObserveRun records the headline numbers of a finished run.
func (r *Recorder) ObserveRun(elapsed time.Duration, rps float64) {
	if r == nil {
		return
	}
	r.runDuration.Set(elapsed.Seconds())
	r.throughput.Set(rps)
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return server
}
