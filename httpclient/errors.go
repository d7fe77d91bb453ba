package httpclient

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"
)

// ErrorKind tags the concrete shape of a NormalizedError.
type ErrorKind int

const (
	KindHTTPError ErrorKind = iota
	KindTimeoutError
	KindAbortError
	KindNetworkError
	KindParseError
	KindHedgingError
	KindRateLimitError
)

func (k ErrorKind) String() string {
	switch k {
	case KindHTTPError:
		return "HttpError"
	case KindTimeoutError:
		return "TimeoutError"
	case KindAbortError:
		return "AbortError"
	case KindNetworkError:
		return "NetworkError"
	case KindParseError:
		return "ParseError"
	case KindHedgingError:
		return "HedgingError"
	case KindRateLimitError:
		return "RateLimitError"
	default:
		return "UnknownError"
	}
}

// NormalizedError is the single error shape surfaced by the driver and
// propagated through the pipeline. Kind-specific data lives in the optional
// fields below; which ones are populated depends on Kind.
type NormalizedError struct {
	Kind    ErrorKind
	Message string
	Cause   error

	Options *ResolvedRequest
	Attempt int

	// HttpError
	Status     int
	StatusText string
	Body       []byte
	Header     http.Header

	// TimeoutError
	Timeout time.Duration

	// AbortError
	Reason string

	// HedgingError
	AttemptErrors []error
}

func (e *NormalizedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

// Unwrap exposes the underlying cause for errors.As/errors.Is.
func (e *NormalizedError) Unwrap() error {
	return e.Cause
}

func newHTTPError(resp *http.Response, body []byte, req *ResolvedRequest, attempt int) *NormalizedError {
	return &NormalizedError{
		Kind:       KindHTTPError,
		Message:    fmt.Sprintf("http error: %s", resp.Status),
		Status:     resp.StatusCode,
		StatusText: resp.Status,
		Body:       body,
		Header:     resp.Header,
		Options:    req,
		Attempt:    attempt,
	}
}

func newTimeoutError(timeout time.Duration, req *ResolvedRequest, attempt int, cause error) *NormalizedError {
	return &NormalizedError{
		Kind:    KindTimeoutError,
		Message: fmt.Sprintf("request timed out after %s", timeout),
		Timeout: timeout,
		Options: req,
		Attempt: attempt,
		Cause:   cause,
	}
}

func newAbortError(reason string, req *ResolvedRequest, attempt int, cause error) *NormalizedError {
	return &NormalizedError{
		Kind:    KindAbortError,
		Message: fmt.Sprintf("request aborted: %s", reason),
		Reason:  reason,
		Options: req,
		Attempt: attempt,
		Cause:   cause,
	}
}

func newNetworkError(cause error, req *ResolvedRequest, attempt int) *NormalizedError {
	return &NormalizedError{
		Kind:    KindNetworkError,
		Message: fmt.Sprintf("network error: %v", cause),
		Options: req,
		Attempt: attempt,
		Cause:   cause,
	}
}

func newParseError(cause error, body []byte, header http.Header, req *ResolvedRequest, attempt int) *NormalizedError {
	return &NormalizedError{
		Kind:    KindParseError,
		Message: fmt.Sprintf("failed to decode response: %v", cause),
		Body:    body,
		Header:  header,
		Options: req,
		Attempt: attempt,
		Cause:   cause,
	}
}

func newHedgingError(errs []error, req *ResolvedRequest, attempt int) *NormalizedError {
	return &NormalizedError{
		Kind:          KindHedgingError,
		Message:       "all hedged attempts failed",
		AttemptErrors: errs,
		Options:       req,
		Attempt:       attempt,
	}
}

func newRateLimitError(req *ResolvedRequest, attempt int) *NormalizedError {
	return &NormalizedError{
		Kind:    KindRateLimitError,
		Message: "rate limiter queue is full",
		Cause:   ErrRateLimited,
		Options: req,
		Attempt: attempt,
	}
}

// isRetryableNetworkError returns true for transport errors that are
// typically transient and may succeed on retry. Dispatch mirrors the
// classifier used elsewhere in the driver's retryable-status-code checks.
func isRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF) {
		return true
	}

	return containsTransientPattern(err)
}

func containsTransientPattern(err error) bool {
	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused", "connection reset", "no such host",
		"network is down", "network unreachable", "i/o timeout",
		"temporary failure", "server closed", "broken pipe", "eof",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// isPermanentError returns true for errors that will not succeed on retry.
func isPermanentError(err error) bool {
	if err == nil {
		return false
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return true
	}

	if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EHOSTDOWN) {
		return true
	}

	return containsPermanentPattern(err)
}

func containsPermanentPattern(err error) bool {
	errStr := strings.ToLower(err.Error())
	patterns := []string{"x509:", "certificate", "tls:", "protocol error", "no route to host", "permission denied"}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}
