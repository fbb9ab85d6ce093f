// Package errors provides error wrapping utilities and the sentinel errors
// shared across launcher components.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Sentinels for the two failures that are surfaced to the user. Everything
// else the launcher degrades around.
var (
	// ErrInstanceBlocked means a prior running instance survived both the
	// graceful shutdown request and forced termination.
	ErrInstanceBlocked = stderrors.New("running instance could not be retired")

	// ErrNoBinary means no runnable application binary exists after all
	// installation attempts.
	ErrNoBinary = stderrors.New("no runnable application binary available")
)

// Wrap wraps an error with additional context information.
// If err is nil, it returns nil without wrapping.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf is Wrap with a formatted context string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
