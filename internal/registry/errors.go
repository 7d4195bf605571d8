package registry

import "errors"

// Domain errors.
var (
	// ErrNotFound is returned when no parameter has the requested name.
	ErrNotFound = errors.New("registry: parameter not found")

	// ErrInvalidSlot is returned for host slots outside the slot range.
	ErrInvalidSlot = errors.New("registry: invalid host slot")

	// ErrEmptySlot is returned when a host slot has no parameter bound.
	ErrEmptySlot = errors.New("registry: host slot not bound")

	// ErrDuplicateScopeCode is returned when two parameters claim the same
	// scope code.
	ErrDuplicateScopeCode = errors.New("registry: duplicate scope code")
)
