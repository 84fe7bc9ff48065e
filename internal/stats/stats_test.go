package stats

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTally_Record(t *testing.T) {
	tally := NewTally()

	tally.Record(Outcome{Status: 200, Latency: 3 * time.Millisecond})
	tally.Record(Outcome{Status: 204, Latency: time.Millisecond})
	tally.Record(Outcome{Status: 404, Latency: 2 * time.Millisecond})
	tally.Record(Outcome{Status: 302})
	tally.Record(Outcome{Err: context.DeadlineExceeded})

	assert.Equal(t, 2, tally.Success)
	assert.Equal(t, 3, tally.Failure)
	assert.Equal(t, map[int]int{200: 1, 204: 1, 404: 1, 302: 1}, tally.StatusCodes)
	assert.Equal(t, map[string]int{CategoryTimeout: 1}, tally.Errors)
	assert.EqualValues(t, 4, tally.Latency.Count())
	assert.Equal(t, 5, tally.Total())
}

func TestTally_BucketsPlusTransportFailuresEqualTotal(t *testing.T) {
	tally := NewTally()
	for i := 0; i < 50; i++ {
		switch i % 5 {
		case 0:
			tally.Record(Outcome{Err: errors.New("connection refused")})
		case 1:
			tally.Record(Outcome{Status: 500})
		default:
			tally.Record(Outcome{Status: 200})
		}
	}

	buckets := 0
	for _, n := range tally.StatusCodes {
		assert.GreaterOrEqual(t, n, 0)
		buckets += n
	}
	assert.Equal(t, tally.Total(), buckets+tally.TransportFailures())
	assert.Equal(t, 10, tally.TransportFailures())
}

func TestAggregate_Merge(t *testing.T) {
	a := NewAggregate()

	t1 := NewTally()
	t1.Record(Outcome{Status: 200, Latency: time.Millisecond})
	t1.Record(Outcome{Status: 503, Latency: time.Millisecond})

	t2 := NewTally()
	t2.Record(Outcome{Status: 200, Latency: 5 * time.Millisecond})
	t2.Record(Outcome{Err: errors.New("dial tcp: lookup nowhere: no such host")})

	a.Merge(t1)
	a.Merge(t2)
	a.Merge(nil)
	a.MarkFailed()

	assert.Equal(t, 2, a.Success)
	assert.Equal(t, 2, a.Failure)
	assert.Equal(t, map[int]int{200: 2, 503: 1}, a.StatusCodes)
	assert.Equal(t, map[string]int{CategoryDNS: 1}, a.Errors)
	assert.Equal(t, 4, a.CompletedWorkers)
	assert.Equal(t, 1, a.FailedWorkers)
	assert.EqualValues(t, 3, a.Latency.Count())
	assert.InDelta(t, 50.0, a.ErrorRate(), 0.001)
}

func TestAggregate_Sorted(t *testing.T) {
	a := NewAggregate()
	a.StatusCodes = map[int]int{500: 1, 200: 7, 404: 2, 301: 3}
	a.Errors = map[string]int{CategoryTimeout: 2, CategoryDNS: 5, CategoryRefused: 2}

	assert.Equal(t, []StatusCount{
		{200, 7}, {301, 3}, {404, 2}, {500, 1},
	}, a.SortedStatusCodes())
	assert.Equal(t, []ErrorCount{
		{CategoryDNS, 5}, {CategoryRefused, 2}, {CategoryTimeout, 2},
	}, a.SortedErrors())
}

func TestAggregate_EmptyErrorRate(t *testing.T) {
	assert.Zero(t, NewAggregate().ErrorRate())
}

func TestHistogram(t *testing.T) {
	h := NewHistogram()
	assert.Zero(t, h.Max())

	for i := 1; i <= 100; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}
	h.Record(-time.Second)
	h.Record(time.Hour)

	assert.EqualValues(t, 102, h.Count())
	assert.InDelta(t, 50*time.Millisecond, h.Quantile(50), float64(time.Millisecond))
	assert.InDelta(t, 10*time.Minute, h.Max(), float64(2*time.Second))

	other := NewHistogram()
	other.Record(time.Millisecond)
	h.Merge(other)
	h.Merge(nil)
	assert.EqualValues(t, 103, h.Count())
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), CategoryTimeout},
		{"canceled", context.Canceled, CategoryCanceled},
		{"url timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, CategoryTimeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "nowhere"}, CategoryDNS},
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, CategoryRefused},
		{"reset", &net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}, CategoryReset},
		{"redirects", fmt.Errorf("%w (5)", ErrTooManyRedirects), CategoryRedirects},
		{"redirect message", errors.New("stopped after 10 redirects"), CategoryRedirects},
		{"tls message", errors.New("remote error: tls: handshake failure"), CategoryTLS},
		{"other", errors.New("unexpected EOF"), CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.err))
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
