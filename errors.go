package dream

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request, message or config failed validation.
	ErrValidation = errors.New("validation error")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)

// Sentinels matched by *Error through errors.Is, one per ErrorKind.
var (
	ErrTransport   = errors.New("transport failure")
	ErrRateLimited = errors.New("rate limited")
	ErrHTTPStatus  = errors.New("unexpected http status")
	ErrUpstreamAPI = errors.New("upstream api error")
	ErrDecode      = errors.New("decode error")
)

// ErrorKind classifies a failed send.
type ErrorKind int

const (
	KindTransport   ErrorKind = iota + 1 // Connection, TLS, or body read failure.
	KindRateLimit                        // HTTP 429.
	KindHTTPStatus                       // Any other non-2xx status.
	KindUpstreamAPI                      // Error object received inside the stream.
	KindDecode                           // Malformed frame data.
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRateLimit:
		return "rate_limit"
	case KindHTTPStatus:
		return "http_status"
	case KindUpstreamAPI:
		return "upstream_api"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error describes why an attempt or a whole send failed.
//
// Retries is the number of retries performed before the error became
// terminal. It is zero on errors reported for a single attempt.
type Error struct {
	Kind    ErrorKind
	Status  int    // HTTP status, for KindRateLimit and KindHTTPStatus.
	Message string // Human readable message, from the server when available.
	Detail  string // Provider specific detail (metadata.raw) for KindUpstreamAPI.
	Retries int
	Err     error // Underlying cause, if any.
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("transport failure after %d retries: %s", e.Retries, e.cause())
	case KindRateLimit:
		return fmt.Sprintf("rate limited (HTTP %d) after %d retries: %s", e.Status, e.Retries, e.cause())
	case KindHTTPStatus:
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.cause())
	case KindUpstreamAPI:
		msg := fmt.Sprintf("API error (after %d retries): %s", e.Retries, e.Message)
		if e.Detail != "" {
			msg += " - detail: " + e.Detail
		}
		return msg
	case KindDecode:
		return "decode: " + e.cause()
	default:
		return e.cause()
	}
}

func (e *Error) cause() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrRateLimited:
		return e.Kind == KindRateLimit
	case ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	case ErrUpstreamAPI:
		return e.Kind == KindUpstreamAPI
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

// Retryable reports whether a failed attempt may be retried. Transport
// failures, rate limiting, and in-stream API errors are retryable. Other
// HTTP statuses and decode errors never are.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindTransport, KindRateLimit, KindUpstreamAPI:
		return true
	default:
		return false
	}
}

// KindOf returns the ErrorKind of err, or zero if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
