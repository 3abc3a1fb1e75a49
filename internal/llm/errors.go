package llm

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/readlevel/internal/retry"
)

// Errors shared with the embedding layer so one retry policy covers both.
type (
	ErrRateLimit           = retry.ErrRateLimit
	ErrProviderUnavailable = retry.ErrUnavailable
)

// ErrInvalidResponse is returned when the output is not JSON or does not
// match the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid model output: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is returned for output cut off at MaxTokens.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return fmt.Sprintf("model output truncated after %d bytes", len(e.Content))
}

// fromAPIError classifies an SDK error by the HTTP status carried in its
// typed error E. Errors without one count as the service being unavailable.
func fromAPIError[E error](service string, err error, status func(E) int) error {
	var apiErr E
	code := 0
	if errors.As(err, &apiErr) {
		code = status(apiErr)
	}
	return retry.FromStatus(service, code, err)
}
