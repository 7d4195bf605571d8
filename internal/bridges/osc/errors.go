package osc

import "errors"

// Domain errors for the OSC bridge package.
var (
	// ErrNotConnected is returned when sending without a transport.
	ErrNotConnected = errors.New("osc: no transport")

	// ErrInvalidAddress is returned for an empty or relative OSC address.
	ErrInvalidAddress = errors.New("osc: invalid address")

	// ErrInvalidConfig is returned when transport options are incomplete.
	ErrInvalidConfig = errors.New("osc: invalid transport configuration")
)
