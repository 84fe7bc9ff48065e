package runner

import (
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"
)

// Config describes one load test run. It is built once, validated, and then
// shared read-only by every worker of the run.
type Config struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte // nil means no body

	TotalRequests int
	Concurrency   int // number of workers
	BatchSize     int // max in-flight requests per worker
	Timeout       time.Duration

	FollowRedirects bool
	MaxRedirects    int

	KeepAlive  bool
	MaxSockets int
	VerifyTLS  bool

	// ReportInterval is the progress cadence in completed requests.
	ReportInterval int
}

func DefaultConfig() Config {
	return Config{
		Method:          "GET",
		Headers:         map[string]string{},
		TotalRequests:   5000,
		Concurrency:     runtime.NumCPU(),
		BatchSize:       50,
		Timeout:         30 * time.Second,
		FollowRedirects: true,
		MaxRedirects:    5,
		KeepAlive:       true,
		MaxSockets:      100,
		VerifyTLS:       true,
		ReportInterval:  500,
	}
}

// ConfigError reports an invalid configuration value. It is always detected
// before any worker is spawned.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func (c *Config) Validate() error {
	if c.URL == "" {
		return &ConfigError{Field: "url", Reason: "is required"}
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return &ConfigError{Field: "url", Reason: fmt.Sprintf("is not a valid URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Field: "url", Reason: fmt.Sprintf("must use http or https, got %q", u.Scheme)}
	}
	if u.Host == "" {
		return &ConfigError{Field: "url", Reason: "has no host"}
	}
	if strings.TrimSpace(c.Method) == "" {
		return &ConfigError{Field: "method", Reason: "is required"}
	}
	if c.TotalRequests < 0 {
		return &ConfigError{Field: "requests", Reason: fmt.Sprintf("must not be negative (got %d)", c.TotalRequests)}
	}
	if c.Concurrency < 1 {
		return &ConfigError{Field: "concurrency", Reason: fmt.Sprintf("must be at least 1 (got %d)", c.Concurrency)}
	}
	if c.BatchSize < 1 {
		return &ConfigError{Field: "batch-size", Reason: fmt.Sprintf("must be at least 1 (got %d)", c.BatchSize)}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "timeout", Reason: fmt.Sprintf("must be positive (got %s)", c.Timeout)}
	}
	if c.MaxRedirects < 0 {
		return &ConfigError{Field: "max-redirects", Reason: fmt.Sprintf("must not be negative (got %d)", c.MaxRedirects)}
	}
	if c.MaxSockets < 1 {
		return &ConfigError{Field: "max-sockets", Reason: fmt.Sprintf("must be at least 1 (got %d)", c.MaxSockets)}
	}
	if c.ReportInterval < 1 {
		return &ConfigError{Field: "report-interval", Reason: fmt.Sprintf("must be at least 1 (got %d)", c.ReportInterval)}
	}
	return nil
}

// clone returns a deep copy so a run never observes later edits to the caller's config.
func (c Config) clone() Config {
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}
	c.Headers = headers
	if c.Body != nil {
		c.Body = append([]byte(nil), c.Body...)
	}
	return c
}

// ParseHeaders turns "Name: value" pairs into a header map. Entries without a
// colon are ignored; later duplicates win.
func ParseHeaders(pairs []string) map[string]string {
	headers := make(map[string]string, len(pairs))
	for _, h := range pairs {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
