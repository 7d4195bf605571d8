// Package parameter implements the value model shared by the host, the user
// interface and the DSP device for a single control parameter.
//
// A Parameter holds one canonical value in three coordinate systems:
//
//   - linear-normalised [0, 1], unskewed
//   - UI units within [UI.Min, UI.Max]
//   - host units, the linear-normalised value with the skew applied
//
// Every write, whatever its origin, funnels through one update routine tagged
// with a Source. The source tag drives loop suppression: a device-origin update
// is never echoed back to the device, host-origin updates are not reported back
// to the host, and a short update-source block drops competing writes from a
// different source while a burst is settling.
//
// Each Parameter owns a DeviceSync, which keeps the device-side integer value,
// sends it over a Channel when it changes and ignores inbound messages for a
// short window after every send.
//
// Thread Safety: Parameter and DeviceSync are safe for concurrent use. Locks are
// never held while calling out to the channel, host adapter or observers.
package parameter
