package retry

import (
	"fmt"
	"time"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrUnavailable indicates the provider is down or unreachable.
type ErrUnavailable struct {
	Service string
	Err     error
}

func (e *ErrUnavailable) Error() string {
	name := e.Service
	if name == "" {
		name = "provider"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", name, e.Err)
	}
	return name + " unavailable"
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// FromStatus maps an HTTP status code from a provider SDK error to a
// retryable error type. Non-throttling client errors still map to
// ErrUnavailable so the caller's policy decides.
func FromStatus(service string, status int, err error) error {
	if status == 429 {
		return &ErrRateLimit{Err: err}
	}
	return &ErrUnavailable{Service: service, Err: err}
}
