package runner

import (
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeRequester answers every request with a fixed status (or error) and
// tracks how many requests are in flight at once.
type fakeRequester struct {
	status int
	err    error
	delay  time.Duration
	panics bool

	// bodyErr makes reading the response body fail after the status arrived.
	bodyErr error

	calls    atomic.Int64
	inflight atomic.Int64
	maxSeen  atomic.Int64
}

func (f *fakeRequester) Do(req *http.Request) (*http.Response, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	f.calls.Add(1)

	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	var body io.Reader = strings.NewReader("ok")
	if f.bodyErr != nil {
		body = io.MultiReader(strings.NewReader("partial"), errReader{f.bodyErr})
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(body),
		Request:    req,
	}, nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func testConfig(t *testing.T, url string) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.Timeout = 2 * time.Second
	return cfg
}

// drain collects every message a worker sent on a buffered channel.
func drain(ch chan Message) []Message {
	var out []Message
	for {
		select {
		case m := <-ch:
			out = append(out, m)
		default:
			return out
		}
	}
}
