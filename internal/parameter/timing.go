package parameter

import "time"

// Default suppression windows.
const (
	DefaultDeadTime    = 100 * time.Millisecond
	DefaultSourceBlock = 200 * time.Millisecond
	DefaultSendMute    = 500 * time.Millisecond
)

// Timing holds the suppression windows used by a parameter.
//
// SendMute must be at least SourceBlock; both windows restart on every write
// rather than accumulating.
type Timing struct {
	// DeadTime is how long legacy control echoes are held back after an
	// inbound legacy control message.
	DeadTime time.Duration

	// SourceBlock is how long writes from a competing source are dropped
	// after an accepted write.
	SourceBlock time.Duration

	// SendMute is how long inbound device messages are ignored after a send.
	SendMute time.Duration
}

// DefaultTiming returns the standard suppression windows.
func DefaultTiming() Timing {
	return Timing{
		DeadTime:    DefaultDeadTime,
		SourceBlock: DefaultSourceBlock,
		SendMute:    DefaultSendMute,
	}
}

// Clock returns the current time. Tests substitute a controllable clock.
type Clock func() time.Time
