// Package registry owns every parameter of a running ScopeSync instance.
//
// A Registry holds the fixed Scope parameters, which are always present, and
// the dynamic parameters loaded from a definition file. It exposes the
// dynamic ones to a plugin host through a constant number of host slots,
// brackets host edits with idempotent gestures, resends every value to the
// device on snapshot, and drains device-side changes from the async bridge.
//
// The Registry is the observer of all its parameters. It mirrors local
// changes into the async bridge and fans every change out to its own
// observers (the API hub, the MQTT control bridge, telemetry).
//
// Stored host values can be persisted per configuration UID through a
// Repository; SQLiteRepository is the production implementation.
package registry
