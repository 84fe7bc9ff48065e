package runner

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"surgeq/internal/stats"
)

// Requester performs one HTTP exchange. *http.Client satisfies it.
type Requester interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientFactory builds the client a worker uses for its whole run.
// An error here is treated as a crash of that worker.
type ClientFactory func(worker int, cfg *Config) (Requester, error)

// DefaultClientFactory gives every worker its own pooled *http.Client.
func DefaultClientFactory(_ int, cfg *Config) (Requester, error) {
	return NewHTTPClient(cfg), nil
}

// NewHTTPClient builds a persistent-connection client configured from cfg.
func NewHTTPClient(cfg *Config) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = cfg.MaxSockets
	t.MaxIdleConnsPerHost = cfg.MaxSockets
	t.MaxConnsPerHost = cfg.MaxSockets
	t.DisableKeepAlives = !cfg.KeepAlive
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS}

	return &http.Client{
		Timeout:       cfg.Timeout,
		Transport:     t,
		CheckRedirect: redirectPolicy(cfg),
	}
}

// redirectPolicy follows up to MaxRedirects hops, or returns the 3xx response
// untouched when redirects are disabled.
func redirectPolicy(cfg *Config) func(req *http.Request, via []*http.Request) error {
	follow := cfg.FollowRedirects
	maxHops := cfg.MaxRedirects

	return func(req *http.Request, via []*http.Request) error {
		if !follow {
			return http.ErrUseLastResponse
		}
		// via holds every request already sent, so len(via) is the hop about to be taken.
		if len(via) > maxHops {
			return fmt.Errorf("%w (%d)", stats.ErrTooManyRedirects, maxHops)
		}
		return nil
	}
}
