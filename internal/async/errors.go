package async

import "errors"

// Domain errors.
var (
	// ErrInvalidSlot is returned for slot indices outside the frame.
	ErrInvalidSlot = errors.New("async: invalid slot")

	// ErrUnknownCode is returned for scope codes that name no slot.
	ErrUnknownCode = errors.New("async: unknown scope code")

	// ErrInvalidAddress is returned when a plugin host address is not IPv4.
	ErrInvalidAddress = errors.New("async: plugin host must be an IPv4 address")
)
