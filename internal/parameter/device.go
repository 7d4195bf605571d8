package parameter

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/bcmodular/scopesync-core/internal/scaling"
)

// DeviceSync keeps a parameter in step with its value inside the DSP device.
//
// It owns the integer device value, sends it over the Channel when the model
// changes and applies values received at its address back to the model. After
// every send it stops listening for the send-mute window so the device's echo
// of the value is not applied as a new change.
type DeviceSync struct {
	owner   *Parameter
	group   int
	id      int
	min     int
	max     int
	dbRef   float64
	channel Channel

	mu        sync.Mutex
	session   int
	address   string
	intValue  int
	muteUntil time.Time
	closed    bool
}

func newDeviceSync(owner *Parameter, def Definition, ch Channel, session int) *DeviceSync {
	d := &DeviceSync{
		owner:   owner,
		group:   Unmapped,
		id:      Unmapped,
		channel: ch,
		session: session,
	}

	if def.Device != nil {
		d.group = def.Device.Group
		d.id = def.Device.ID
		d.min = def.Device.Min
		d.max = def.Device.Max
		d.dbRef = def.Device.DBRef
	}

	if d.min == 0 && d.max == 0 {
		if def.IsDiscrete() {
			d.min, d.max = settingsValueRange(def.Settings)
		} else {
			d.max = DefaultDeviceMax
		}
	}
	if d.min == d.max {
		d.max = d.min + 1
	}

	return d
}

func settingsValueRange(s Settings) (lo, hi int) {
	for i, setting := range s {
		if i == 0 || setting.Value < lo {
			lo = setting.Value
		}
		if i == 0 || setting.Value > hi {
			hi = setting.Value
		}
	}
	return lo, hi
}

// FormatAddress returns the device address for a session, group and id.
func FormatAddress(session, group, id int) string {
	return fmt.Sprintf("/%d/0/%d/%d", session, group, id)
}

// IsMapped reports whether the parameter has a device address.
func (d *DeviceSync) IsMapped() bool {
	return d.group != Unmapped && d.id != Unmapped
}

// Group returns the device group, or Unmapped.
func (d *DeviceSync) Group() int { return d.group }

// ID returns the device id within the group, or Unmapped.
func (d *DeviceSync) ID() int { return d.id }

// Range returns the device integer range.
func (d *DeviceSync) Range() (min, max int) { return d.min, d.max }

// Address returns the current device address, or "" when unmapped.
func (d *DeviceSync) Address() string {
	if !d.IsMapped() {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return FormatAddress(d.session, d.group, d.id)
}

// ScopeParamText returns "group:id", or "" when unmapped.
func (d *DeviceSync) ScopeParamText() string {
	if !d.IsMapped() {
		return ""
	}
	return strconv.Itoa(d.group) + ":" + strconv.Itoa(d.id)
}

// Value returns the last value sent to or received from the device.
func (d *DeviceSync) Value() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.intValue
}

// IsListening reports whether inbound messages would currently be applied.
func (d *DeviceSync) IsListening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed && !d.owner.now().Before(d.muteUntil)
}

// FindNearestSetting returns the index of the setting nearest to v.
func (d *DeviceSync) FindNearestSetting(v int) int {
	return d.owner.settings.FindNearest(v)
}

func (d *DeviceSync) record(v int) {
	d.mu.Lock()
	d.intValue = v
	d.mu.Unlock()
}

// deviceValueFor converts model values to a device integer.
func (d *DeviceSync) deviceValueFor(ln, ui float64) int {
	p := d.owner
	if p.discrete {
		v, ok := p.settings.Value(int(math.Round(ui)))
		if !ok {
			return 0
		}
		return v
	}

	n := ln
	if d.dbRef != 0 {
		n = scaling.DBSkew(ln, d.dbRef, p.uiMin, p.uiMax, true)
	}
	return int(math.Round(scaling.LinearScale(0, 1, float64(d.min), float64(d.max), n)))
}

// toModel converts a device integer to model values.
func (d *DeviceSync) toModel(v int) (ln, ui float64) {
	p := d.owner
	if p.discrete {
		ui = float64(p.settings.FindNearest(v))
		return p.uiToLinear(ui), ui
	}

	ln = scaling.LinearScale(float64(d.min), float64(d.max), 0, 1, float64(v))
	if d.dbRef != 0 {
		ln = scaling.DBSkew(ln, d.dbRef, p.uiMin, p.uiMax, false)
	}
	return ln, p.linearToUI(ln)
}

// UpdateValue recomputes the device value from the model and sends it if it
// changed.
func (d *DeviceSync) UpdateValue(ln, ui float64) {
	v := d.deviceValueFor(ln, ui)

	d.mu.Lock()
	changed := v != d.intValue
	d.mu.Unlock()

	if changed {
		d.transmit(v, true)
	}
}

// SendCurrentValue sends the current device value unconditionally.
func (d *DeviceSync) SendCurrentValue() { d.transmit(d.Value(), true) }

// SendMinValue sends the bottom of the device range. The recorded device
// value is left unchanged.
func (d *DeviceSync) SendMinValue() { d.transmit(d.min, false) }

// SendMaxValue sends the top of the device range. The recorded device value
// is left unchanged.
func (d *DeviceSync) SendMaxValue() { d.transmit(d.max, false) }

// transmit arms the send mute before the value leaves so that an immediate
// echo is already suppressed.
func (d *DeviceSync) transmit(v int, record bool) {
	d.mu.Lock()
	if record {
		d.intValue = v
	}
	if d.closed || !d.IsMapped() || d.channel == nil {
		d.mu.Unlock()
		return
	}
	d.muteUntil = d.owner.now().Add(d.owner.timing.SendMute)
	address := FormatAddress(d.session, d.group, d.id)
	d.mu.Unlock()

	if err := d.channel.Send(address, int32(v)); err != nil {
		d.owner.logDebug("device send failed", "address", address, "error", err)
	}
}

// OnDeviceMessage handles a message received from the device. It expects a
// single int32 argument at the parameter's exact address.
func (d *DeviceSync) OnDeviceMessage(address string, args []any) {
	d.mu.Lock()
	if d.closed || d.owner.now().Before(d.muteUntil) {
		d.mu.Unlock()
		return
	}
	expected := FormatAddress(d.session, d.group, d.id)
	d.mu.Unlock()

	if address != expected || len(args) != 1 {
		d.owner.logDebug("device message not processed", "address", address, "args", len(args))
		return
	}

	v, ok := args[0].(int32)
	if !ok {
		d.owner.logDebug("device message not processed", "address", address, "type", fmt.Sprintf("%T", args[0]))
		return
	}

	d.owner.SetDeviceValue(int(v))
}

func (d *DeviceSync) register() error {
	if !d.IsMapped() || d.channel == nil {
		return nil
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	address := FormatAddress(d.session, d.group, d.id)
	d.mu.Unlock()

	if err := d.channel.Register(address, d.OnDeviceMessage); err != nil {
		return err
	}

	d.mu.Lock()
	d.address = address
	d.mu.Unlock()
	return nil
}

// SetSession moves the listener to the address for the new session.
func (d *DeviceSync) SetSession(session int) error {
	d.mu.Lock()
	old := d.address
	d.address = ""
	d.session = session
	d.mu.Unlock()

	if old != "" {
		d.channel.Unregister(old)
	}
	return d.register()
}

// Close deregisters the listener. Later sends are dropped.
func (d *DeviceSync) Close() {
	d.mu.Lock()
	d.closed = true
	old := d.address
	d.address = ""
	d.mu.Unlock()

	if old != "" {
		d.channel.Unregister(old)
	}
}
