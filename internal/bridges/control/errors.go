package control

import "errors"

// Domain-specific errors for the control bridge.
var (
	// ErrInvalidCommand is returned when a command payload is malformed or
	// names no value to set.
	ErrInvalidCommand = errors.New("control: invalid command")

	// ErrUnknownParameter is returned when a command topic names no parameter.
	ErrUnknownParameter = errors.New("control: unknown parameter")

	// ErrInvalidTopic is returned for topics outside the expected layout.
	ErrInvalidTopic = errors.New("control: invalid topic")

	// ErrRejected is returned when a write is dropped by the parameter
	// (read-only, blocked by another source, or unchanged).
	ErrRejected = errors.New("control: write not applied")
)
