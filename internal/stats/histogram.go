package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minTrackableUs = 1
	maxTrackableUs = int64(10 * time.Minute / time.Microsecond)
)

// Histogram records request latencies in microseconds.
// It is not safe for concurrent use; a histogram always has a single owner
// (a worker's tally, or the coordinator's aggregate).
type Histogram struct {
	hist *hdrhistogram.Histogram
}

func NewHistogram() *Histogram {
	// 1us to 10min, 3 significant figures
	return &Histogram{hist: hdrhistogram.New(minTrackableUs, maxTrackableUs, 3)}
}

// Record adds one latency sample. Samples above the trackable range are clamped.
func (h *Histogram) Record(d time.Duration) {
	us := d.Microseconds()
	if us < minTrackableUs {
		us = minTrackableUs
	}
	if us > maxTrackableUs {
		us = maxTrackableUs
	}
	_ = h.hist.RecordValue(us)
}

// Merge folds other into h. A nil other is a no-op.
func (h *Histogram) Merge(other *Histogram) {
	if other == nil {
		return
	}
	h.hist.Merge(other.hist)
}

// Quantile returns the latency at q, where q is a percentile in [0, 100].
func (h *Histogram) Quantile(q float64) time.Duration {
	return time.Duration(h.hist.ValueAtQuantile(q)) * time.Microsecond
}

func (h *Histogram) Max() time.Duration {
	if h.hist.TotalCount() == 0 {
		return 0
	}
	return time.Duration(h.hist.Max()) * time.Microsecond
}

func (h *Histogram) Mean() time.Duration {
	return time.Duration(h.hist.Mean() * float64(time.Microsecond))
}

func (h *Histogram) Count() int64 {
	return h.hist.TotalCount()
}
