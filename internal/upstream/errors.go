package upstream

import (
	"errors"
	"fmt"
)

// The internal attempt-failure taxonomy. None of these reach Complete's
// callers, which always receive a result; they drive the retry decision
// and the diagnostic logs.
var (
	// ErrTimeout marks an attempt aborted by its per-attempt deadline.
	ErrTimeout = errors.New("upstream: request timed out")

	// ErrNetwork marks a transport-level failure (DNS, refused, reset).
	ErrNetwork = errors.New("upstream: network error")

	// ErrNoEndpoints marks a call issued against an empty endpoint
	// rotation; the call is served from the mock without an attempt.
	ErrNoEndpoints = errors.New("upstream: no endpoints configured")
)

// ErrNoCredential is the one user-actionable configuration error: a call
// path that requires a client credential has none configured. It may
// propagate to UI layers.
var ErrNoCredential = errors.New("upstream: no API credential configured and server proxy disabled")

// HTTPError is a non-success status from an endpoint, with the logged
// error body.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream: HTTP %d: %s", e.Status, e.Body)
}

// Retryable reports whether the status is worth another attempt.
// 429 and 5xx are; other 4xx are client mistakes and are not, but the
// call still degrades to the mock rather than failing the caller.
func (e *HTTPError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// MalformedResponseError is a parse failure on an otherwise successful
// HTTP response. Retryable once, then the call degrades.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream: malformed response: %s: %v", e.Reason, e.Err)
	}
	return "upstream: malformed response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
