// internal/errors/errors.go
package errors

import (
	"fmt"
	"time"
)

// RateLimitError is returned when the GitHub rate-limit budget is exhausted.
// Wait is how long the caller must pause before issuing any further request;
// it is never negative.
type RateLimitError struct {
	ResetAt time.Time
	Wait    time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github rate limit exhausted, next reset window in %s (at %s)",
		e.Wait.Round(time.Second), e.ResetAt.Format(time.RFC3339))
}

// RequestError is a non-rate-limit HTTP failure from the GitHub API.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("github request failed with status %d: %s", e.StatusCode, e.Body)
}

// NoPositiveWeekError reports a contributor whose total commit count is
// positive but whose weekly histogram contains no positive week. This is a
// data-integrity condition in the stats payload, fatal only for that
// contributor's record.
type NoPositiveWeekError struct {
	Login string
}

func (e *NoPositiveWeekError) Error() string {
	return fmt.Sprintf("contributor %q has a positive commit total but no positive week", e.Login)
}

// PersistenceError wraps a storage-layer failure during the persist step.
// Re-running the same batch is safe because the upsert is idempotent.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting first contributions: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
