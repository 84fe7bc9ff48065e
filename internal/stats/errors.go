package stats

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrTooManyRedirects is returned by a redirect policy once the hop limit is hit.
var ErrTooManyRedirects = errors.New("stopped after too many redirects")

// Transport error categories.
const (
	CategoryTimeout   = "timeout"
	CategoryRefused   = "connection refused"
	CategoryReset     = "connection reset"
	CategoryDNS       = "dns"
	CategoryTLS       = "tls"
	CategoryRedirects = "too many redirects"
	CategoryCanceled  = "canceled"
	CategoryOther     = "other"
)

// Categorize maps a transport error onto a short, stable category name.
func Categorize(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrTooManyRedirects) {
		return CategoryRedirects
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if errors.Is(err, context.Canceled) {
		return CategoryCanceled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return CategoryRefused
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return CategoryReset
	}

	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var certErr x509.CertificateInvalidError
	var verifyErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &unknownAuth) || errors.As(err, &hostErr) ||
		errors.As(err, &certErr) || errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) {
		return CategoryTLS
	}

	// Fall back to the message for errors the stdlib does not type.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "stopped after") && strings.Contains(msg, "redirect"):
		return CategoryRedirects
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return CategoryTimeout
	case strings.Contains(msg, "connection refused"):
		return CategoryRefused
	case strings.Contains(msg, "connection reset"):
		return CategoryReset
	case strings.Contains(msg, "no such host"):
		return CategoryDNS
	case strings.Contains(msg, "tls") || strings.Contains(msg, "x509") || strings.Contains(msg, "certificate"):
		return CategoryTLS
	}
	return CategoryOther
}
