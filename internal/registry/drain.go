package registry

import (
	"context"
	"time"
)

// ApplyAsyncUpdates applies the pending async bridge updates as device
// writes. Codes with no parameter are skipped.
//
// Returns:
//   - int: Number of updates applied
func (r *Registry) ApplyAsyncUpdates() int {
	if r.opts.Bridge == nil {
		return 0
	}

	applied := 0
	for _, u := range r.opts.Bridge.AsyncUpdates() {
		p, ok := r.ParameterByScopeCode(u.Code)
		if !ok {
			continue
		}
		if p.SetDeviceValue(int(u.Value)) {
			applied++
		}
	}
	return applied
}

// SyncLink follows session and configuration UID changes reported by the
// device link.
func (r *Registry) SyncLink() {
	link := r.opts.Link
	if link == nil {
		return
	}

	if session := link.DeviceInstance(); session != r.Session() {
		if err := r.SetSession(session); err != nil {
			r.logWarn("changing device session failed", "session", session, "error", err)
		}
	}

	uid := link.ConfigUID()
	r.mu.Lock()
	changed := uid != r.configUID
	r.configUID = uid
	r.mu.Unlock()

	if changed {
		r.logInfo("configuration uid changed", "config_uid", uid)
		if r.opts.OnConfigUIDChange != nil {
			r.opts.OnConfigUIDChange(uid)
		}
	}
}

// ConfigUID returns the configuration UID last seen on the link.
func (r *Registry) ConfigUID() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configUID
}

// Run drains the async bridge and follows the link every poll interval
// until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	r.logInfo("async drain started", "poll_interval", r.opts.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			r.EndAllParameterChangeGestures()
			r.logInfo("async drain stopped")
			return nil
		case <-ticker.C:
			r.SyncLink()
			if n := r.ApplyAsyncUpdates(); n > 0 {
				r.logDebug("async updates applied", "count", n)
			}
		}
	}
}
