// Package osc carries device messages over OpenSoundControl.
//
// The device addresses every parameter at /{session}/0/{group}/{id} and
// every host slot at /{session}/{slot} on the legacy control path. A Router
// implements parameter.Channel: parameters register their exact addresses
// and incoming messages are delivered to the single listener registered at
// the message address. Pattern matching is not used.
//
// A Transport connects a Router to the network using
// github.com/chabad360/go-osc: a UDP server receives messages for the
// Router and a client sends outgoing messages to the device.
//
//	┌─────────────┐  Send   ┌────────┐  UDP  ┌────────┐
//	│ parameters  │────────►│ Router │──────►│ device │
//	│             │◄────────│        │◄──────│        │
//	└─────────────┘ Listener└────────┘       └────────┘
package osc
