package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind identifies a failure class. Every error that crosses a package
// boundary in this module is an *Error carrying exactly one Kind.
type Kind string

const (
	// Authentication is an invalid or revoked API key (HTTP 401).
	Authentication Kind = "authentication"
	// InsufficientCredits means the account balance can't cover the
	// operation (HTTP 402).
	InsufficientCredits Kind = "insufficient_credits"
	// InvalidParameter is a rejected request payload (HTTP 400/422).
	InvalidParameter Kind = "invalid_parameter"
	// NotFound is a missing task, clip or persona (HTTP 404).
	NotFound Kind = "not_found"
	// RateLimited is HTTP 429, optionally with a server-supplied wait.
	RateLimited Kind = "rate_limited"
	// TaskFailed means the remote job itself finished in a failed state.
	// This is not a transport problem and is never retried.
	TaskFailed Kind = "task_failed"
	// Timeout covers both a single request timing out before response
	// headers and a poll session exceeding its deadline.
	Timeout Kind = "timeout"
	// Transport covers connection resets, DNS and TLS failures, 5xx
	// responses and malformed response bodies.
	Transport Kind = "transport"
	// WebhookVerification is a webhook signature mismatch or a payload
	// that can't be parsed after verification.
	WebhookVerification Kind = "webhook_verification"
)

// Retryable reports whether a failure of this kind may succeed on a
// later attempt.
func (k Kind) Retryable() bool {
	switch k {
	case RateLimited, Timeout, Transport:
		return true
	default:
		return false
	}
}

type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	// RetryAfter is the server-supplied wait for rate_limited errors,
	// zero when the server didn't send one.
	RetryAfter time.Duration
	// TaskID is set for task_failed errors observed via poll or webhook.
	TaskID string
	// ErrorCode is the API's machine-readable code, when present.
	ErrorCode string
	// Elapsed is set for poll-session timeouts and carries the total
	// poll duration, not a single-call duration.
	Elapsed time.Duration

	cause error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an error of the given kind keeping the original cause
// available to errors.Is/As.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

// FromStatus maps an HTTP status code to an error. retryAfter is the
// parsed Retry-After header, zero if absent.
func FromStatus(status int, message, errorCode string, retryAfter time.Duration) *Error {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	var kind Kind
	switch {
	case status == http.StatusUnauthorized:
		kind = Authentication
	case status == http.StatusPaymentRequired:
		kind = InsufficientCredits
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		kind = InvalidParameter
	case status == http.StatusNotFound:
		kind = NotFound
	case status == http.StatusTooManyRequests:
		kind = RateLimited
	case status == http.StatusRequestTimeout:
		kind = Timeout
	default:
		// Remaining 4xx are parameter-level rejections, 5xx and
		// anything unexpected is a transient upstream problem.
		if status >= 400 && status < 500 {
			kind = InvalidParameter
		} else {
			kind = Transport
		}
	}
	return &Error{
		Kind:       kind,
		Message:    message,
		StatusCode: status,
		ErrorCode:  errorCode,
		RetryAfter: retryAfter,
	}
}

// KindOf extracts the Kind from err, or the empty Kind if err is not an
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
