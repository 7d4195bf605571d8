// Package async is the lock-free hand-off between the DSP device's polled
// async callback and the parameter system.
//
// The device exchanges a frame of integer values with the host at its own
// cadence. Each frame slot is identified by a scope code (A1..P8 for device
// parameters, LA1..LP8 for locals, FA1..FP8 for feedback values, and a fixed
// set of built-in codes). Bridge keeps the authoritative current value of
// every slot in atomic cells and resolves each incoming frame against it with
// compare-and-swap, so a value changed locally between two frames is never
// overwritten by a stale device read.
//
// Link carries the out-of-band values exchanged on the same callback: the
// device session identifier, the configuration UID handshake, snapshot and
// sync counters, and the plugin host address.
//
// Thread Safety:
//
// Bridge and Link methods may be called from any goroutine and never block.
// Processor holds the previous-frame snapshot and must only be driven from the
// device callback goroutine.
package async
