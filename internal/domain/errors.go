package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	ErrNoMarkets   = errors.New("event has no markets")
)

// ResolutionError reports that a slug could not be resolved to an analyzable
// event. It is definitional (bad slug, empty event), never transient, and is
// not retried.
type ResolutionError struct {
	Slug string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve event %q: %v", e.Slug, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// FetchError reports that the trade pagination failed after exhausting its
// retry budget. It is the only fatal fetcher error.
type FetchError struct {
	EventID int64
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch trades for event %d: %v", e.EventID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports a malformed or missing required field in an
// upstream payload.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload field %q: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
