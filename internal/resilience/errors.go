package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

var (
	// ErrAuth marks authentication and configuration failures (401/403,
	// missing credentials). Retrying cannot fix them.
	ErrAuth = eris.New("provider authentication failed")

	// ErrMalformed marks provider payloads that could not be parsed.
	ErrMalformed = eris.New("malformed provider response")
)

// Error classes used in log fields.
const (
	ClassTransient = "transient"
	ClassAuth      = "auth"
	ClassMalformed = "malformed"
	ClassCancelled = "cancelled"
	ClassThrottled = "throttled"
	ClassPermanent = "permanent"
)

// TransientError wraps an error that is safe to retry (e.g., 429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// AuthError wraps a credential or permission failure for a provider.
type AuthError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Err.Error()
	}
	return e.Provider + ": " + ErrAuth.Error()
}

func (e *AuthError) Unwrap() error {
	return ErrAuth
}

// NewAuthError builds an AuthError. err may be nil.
func NewAuthError(provider string, statusCode int, err error) *AuthError {
	return &AuthError{Provider: provider, StatusCode: statusCode, Err: err}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsAuth reports whether err is an authentication or configuration failure.
func IsAuth(err error) bool {
	return err != nil && errors.Is(err, ErrAuth)
}

// IsMalformed reports whether err came from an unparseable payload.
func IsMalformed(err error) bool {
	return err != nil && errors.Is(err, ErrMalformed)
}

// IsRateLimited reports whether err is a limiter wait that ran out of time.
func IsRateLimited(err error) bool {
	return err != nil && errors.Is(err, ErrRateLimited)
}

// Retryable is the default retry predicate: every failure is retried except
// those a retry cannot fix.
func Retryable(err error) bool {
	return err != nil && !IsAuth(err) && !IsMalformed(err) && !IsRateLimited(err)
}

// Classify categorizes an error for logs and metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return ClassCancelled
	case IsAuth(err):
		return ClassAuth
	case IsMalformed(err):
		return ClassMalformed
	case IsRateLimited(err):
		return ClassThrottled
	case IsTransient(err):
		return ClassTransient
	default:
		return ClassPermanent
	}
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// IsAuthHTTPStatus returns true for 401 and 403.
func IsAuthHTTPStatus(statusCode int) bool {
	return statusCode == 401 || statusCode == 403
}
