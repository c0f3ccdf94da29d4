package lang

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
	Err error
}

func (e *ErrUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("language provider unavailable: %v", e.Err)
	}
	return "language provider unavailable"
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// ErrBadResponse indicates the provider answered with something the client
// could not use, e.g. malformed translation JSON or a response without
// audio data.
type ErrBadResponse struct {
	Detail string
	Err    error
}

func (e *ErrBadResponse) Error() string {
	return fmt.Sprintf("unusable provider response: %s: %v", e.Detail, e.Err)
}

func (e *ErrBadResponse) Unwrap() error { return e.Err }
