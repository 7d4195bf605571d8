package parameter

import "errors"

// Domain-specific errors for parameter operations.
var (
	// ErrInvalidDefinition is returned when a definition cannot produce a parameter.
	ErrInvalidDefinition = errors.New("parameter: invalid definition")

	// ErrDuplicateName is returned when two definitions share a name.
	ErrDuplicateName = errors.New("parameter: duplicate name")

	// ErrAddressInUse is returned by a Channel when an address already has a listener.
	ErrAddressInUse = errors.New("parameter: device address already registered")
)
