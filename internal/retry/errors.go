package retry

import (
	"errors"
	"fmt"
)

// NoRetry marks an error as non-retryable.
//
// Callers wrap validation or configuration faults with NoRetry so the
// policy surfaces them immediately instead of burning attempts.
//
// Example:
//
//	return retry.NoRetry(fmt.Errorf("bad payload: %w", err))
func NoRetry(err error) error {
	if err == nil {
		return nil
	}
	return noRetryError{err: err}
}

// IsNoRetry reports whether err is wrapped with NoRetry.
func IsNoRetry(err error) bool {
	var e noRetryError
	return errors.As(err, &e)
}

type noRetryError struct{ err error }

func (e noRetryError) Error() string { return fmt.Sprintf("no-retry: %v", e.err) }
func (e noRetryError) Unwrap() error { return e.err }
