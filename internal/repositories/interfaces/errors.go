package interfaces

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional write lost its race,
	// e.g. a claim attempt against a unit that is no longer idle.
	ErrConflict = errors.New("conflicting concurrent update")
)
