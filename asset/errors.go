package asset

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrapped errors carry key/type context; match with
// errors.Is.
var (
	// ErrNoLoader — the descriptor's type has no registered loader.
	ErrNoLoader = errors.New("asset: no loader registered")

	// ErrTimeout — the per-entry timer expired before the load settled.
	// The loader itself is not stopped.
	ErrTimeout = errors.New("asset: load timed out")

	// ErrRetryExhausted — the load failed after maxRetries+1 attempts.
	ErrRetryExhausted = errors.New("asset: retries exhausted")

	// ErrBundle — a bundle payload is missing or unparsable.
	ErrBundle = errors.New("asset: bad bundle")

	// ErrClosed — the operation ran against a closed manager.
	ErrClosed = errors.New("asset: manager closed")

	// ErrCanceled — the load was canceled while still queued.
	ErrCanceled = errors.New("asset: load canceled")
)

// RetryError reports a terminally failed load. It matches both
// ErrRetryExhausted and the last underlying loader error via errors.Is/As.
type RetryError struct {
	Key      Key
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("asset %q: failed after %d attempts: %v", e.Key, e.Attempts, e.Last)
}

func (e *RetryError) Unwrap() []error { return []error{ErrRetryExhausted, e.Last} }

// BundleError reports a malformed or incomplete bundle.
type BundleError struct {
	ID  string
	Err error
}

func (e *BundleError) Error() string {
	return fmt.Sprintf("bundle %q: %v", e.ID, e.Err)
}

func (e *BundleError) Unwrap() []error { return []error{ErrBundle, e.Err} }
