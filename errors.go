/*
 * Filename: errors.go
 * Path: modisco
 */

package modisco

import "errors"

var (
	// ErrEmptyInput is returned when a stage receives nothing to work on. The
	// pipeline turns it into a failed result instead of returning it.
	ErrEmptyInput = errors.New("empty input")
	// ErrConfiguration is returned before any computation starts when the
	// parameters cannot work together
	ErrConfiguration = errors.New("configuration error")
	// ErrInvariantViolation signals a logic bug, the run is aborted
	ErrInvariantViolation = errors.New("invariant violation")
)
