// Package telemetry records parameter activity to a time-series store.
package telemetry

import (
	"sync"
	"time"

	"github.com/bcmodular/scopesync-core/internal/infrastructure/influxdb"
	"github.com/bcmodular/scopesync-core/internal/parameter"
)

// Writer is the time-series sink. *influxdb.Client satisfies it.
type Writer interface {
	WriteParameterValue(v influxdb.ParameterValue)
	WriteSessionEvent(event string, value int)
}

// Recorder is a parameter.Observer that writes every accepted change.
// With a MinInterval, changes of one parameter closer together than the
// interval are dropped, except the first change from a new source.
//
// Thread Safety: All methods are safe for concurrent use.
type Recorder struct {
	writer      Writer
	minInterval time.Duration
	skipDevice  bool

	mu   sync.Mutex
	last map[string]sample

	written uint64
	dropped uint64
}

type sample struct {
	at     time.Time
	source string
}

// Options configures a Recorder.
type Options struct {
	// MinInterval throttles writes per parameter. Zero records everything.
	MinInterval time.Duration

	// SkipDevice drops changes that originated on the device.
	SkipDevice bool
}

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w Writer, opts Options) *Recorder {
	return &Recorder{
		writer:      w,
		minInterval: opts.MinInterval,
		skipDevice:  opts.SkipDevice,
		last:        make(map[string]sample),
	}
}

// OnParameterChanged implements parameter.Observer.
func (r *Recorder) OnParameterChanged(c parameter.Change) {
	if r.skipDevice && c.Source == parameter.SourceDevice {
		return
	}

	at := c.Time
	if at.IsZero() {
		at = time.Now()
	}

	r.mu.Lock()
	prev, seen := r.last[c.Name]
	if seen && r.minInterval > 0 && prev.source == c.SourceName && at.Sub(prev.at) < r.minInterval {
		r.dropped++
		r.mu.Unlock()
		return
	}
	r.last[c.Name] = sample{at: at, source: c.SourceName}
	r.written++
	r.mu.Unlock()

	r.writer.WriteParameterValue(influxdb.ParameterValue{
		Name:        c.Name,
		Source:      c.SourceName,
		HostIdx:     c.HostIdx,
		UIValue:     c.UIValue,
		HostValue:   c.HostValue,
		DeviceValue: c.DeviceValue,
		Time:        at,
	})
}

// SessionChanged records a device session id change.
func (r *Recorder) SessionChanged(session int) {
	r.writer.WriteSessionEvent("session", session)
}

// ConfigUIDChanged records a device configuration UID change.
func (r *Recorder) ConfigUIDChanged(uid int) {
	r.writer.WriteSessionEvent("config_uid", uid)
}

// SnapshotSent records a completed snapshot.
func (r *Recorder) SnapshotSent(parameters int) {
	r.writer.WriteSessionEvent("snapshot", parameters)
}

// Stats returns the number of written and throttled changes.
func (r *Recorder) Stats() (written, dropped uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written, r.dropped
}
