package parameter

import "time"

// Change describes a settled parameter value, reported to observers after
// every accepted write.
type Change struct {
	Name             string    `json:"name"`
	HostIdx          int       `json:"host_idx"`
	LinearNormalised float64   `json:"linear_normalised"`
	UIValue          float64   `json:"ui_value"`
	HostValue        float64   `json:"host_value"`
	DeviceValue      int       `json:"device_value"`
	Text             string    `json:"text"`
	Source           Source    `json:"-"`
	SourceName       string    `json:"source"`
	Time             time.Time `json:"timestamp"`
}

// Observer is notified of every accepted parameter write.
// Implementations must not block; they run on the writer's goroutine.
type Observer interface {
	OnParameterChanged(change Change)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(change Change)

// OnParameterChanged calls f(change).
func (f ObserverFunc) OnParameterChanged(change Change) {
	f(change)
}

// HostAdapter is the host automation collaborator. A plugin host implements
// all three; an embedded device host may treat gestures as no-ops.
type HostAdapter interface {
	// UpdateListeners tells the host a slot's value changed from a
	// non-host source.
	UpdateListeners(hostIdx int, value float64)

	// BeginGesture opens an interactive edit on a host slot.
	BeginGesture(hostIdx int)

	// EndGesture closes an interactive edit on a host slot.
	EndGesture(hostIdx int)
}

// GestureHandler brackets interactive edits for a host slot. The registry
// implements it so repeated begins collapse and open gestures can be ended in
// bulk. When a parameter has no GestureHandler, gestures mark the parameter
// as being edited and device updates are dropped until the gesture ends.
type GestureHandler interface {
	BeginParameterChangeGesture(hostIdx int)
	EndParameterChangeGesture(hostIdx int)
}

// Listener receives inbound device messages for one address.
type Listener func(address string, args []any)

// Channel is the shared device message channel. Inbound messages are
// dispatched to the listener registered for the exact address.
type Channel interface {
	// Register attaches l to address. It fails with ErrAddressInUse if the
	// address already has a listener.
	Register(address string, l Listener) error

	// Unregister removes the listener for address, if any.
	Unregister(address string)

	// Send transmits one message.
	Send(address string, args ...any) error
}
