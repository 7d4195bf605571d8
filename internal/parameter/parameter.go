package parameter

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/bcmodular/scopesync-core/internal/scaling"
)

// Decimal place derivation constants.
const (
	// maxDecimalPlaces is the display precision used when no interval is set.
	maxDecimalPlaces = 7

	// intervalScale scales an interval so its trailing zeros can be counted.
	intervalScale = 1e7
)

// Options holds everything needed to construct a Parameter.
type Options struct {
	// Definition is the declarative record (required).
	Definition Definition

	// Fixed marks a built-in parameter that survives configuration reloads.
	Fixed bool

	// Timing holds the suppression windows. Zero means DefaultTiming().
	Timing Timing

	// Channel is the optional device message channel.
	Channel Channel

	// Session is the device session identifier used in message addresses.
	Session int

	// Host is the optional host automation collaborator.
	Host HostAdapter

	// Gestures brackets host edits. If nil, gestures mark the parameter as
	// being edited instead.
	Gestures GestureHandler

	// Observer receives every accepted change.
	Observer Observer

	// Clock defaults to time.Now.
	Clock Clock

	// Logger is optional.
	Logger Logger
}

// Parameter is the canonical value of one control parameter.
//
// The linear-normalised value is stored unskewed. UI values are a linear
// mapping of it onto [UI.Min, UI.Max]; host values apply the skew factor on
// top unless the skew is UI-only.
//
// Thread Safety: All methods are safe for concurrent use.
type Parameter struct {
	def   Definition
	fixed bool

	uiMin, uiMax     float64
	uiInterval       float64
	uiReset          float64
	skewFactor       float64
	skewUIOnly       bool
	readOnly         bool
	discrete         bool
	settings         Settings
	numDecimalPlaces int

	timing   Timing
	now      Clock
	channel  Channel
	host     HostAdapter
	gestures GestureHandler
	observer Observer

	device *DeviceSync

	mu               sync.Mutex
	linearNormalised float64
	uiValue          float64
	blockSource      Source
	blockUntil       time.Time
	affectedByUI     bool
	hostIdx          int
	session          int
	legacyAddress    string
	legacyDeadUntil  time.Time
	closed           bool

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a Parameter from a definition and registers its device
// listener on the channel, if one is given.
//
// Parameters:
//   - opts: Construction options; Definition is required
//
// Returns:
//   - *Parameter: Parameter initialised to its reset value
//   - error: If the definition is invalid or its device address is taken
func New(opts Options) (*Parameter, error) {
	def := opts.Definition
	if err := def.Validate(); err != nil {
		return nil, err
	}

	p := &Parameter{
		def:         def,
		fixed:       opts.Fixed,
		uiMin:       def.UI.Min,
		uiMax:       def.UI.Max,
		uiInterval:  def.UI.Interval,
		skewFactor:  def.SkewFactor(),
		skewUIOnly:  def.UI.SkewUIOnly,
		readOnly:    def.ReadOnly,
		discrete:    def.IsDiscrete(),
		settings:    def.Settings,
		timing:      opts.Timing,
		now:         opts.Clock,
		channel:     opts.Channel,
		host:        opts.Host,
		gestures:    opts.Gestures,
		observer:    opts.Observer,
		blockSource: SourceNone,
		hostIdx:     -1,
		session:     opts.Session,
		logger:      opts.Logger,
	}

	if p.timing == (Timing{}) {
		p.timing = DefaultTiming()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}

	if p.discrete && p.uiMin == 0 && p.uiMax == 0 {
		p.uiMax = float64(p.settings.MaxIndex())
	}
	if p.uiMin == p.uiMax {
		p.uiMax = p.uiMin + 1
	}

	p.uiReset = clamp(def.UI.Reset, p.uiMin, p.uiMax)
	p.numDecimalPlaces = decimalPlaces(p.uiInterval)

	p.device = newDeviceSync(p, def, opts.Channel, opts.Session)

	p.uiValue = p.uiReset
	p.linearNormalised = p.uiToLinear(p.uiReset)
	p.device.record(p.device.deviceValueFor(p.linearNormalised, p.uiValue))

	if err := p.device.register(); err != nil {
		return nil, fmt.Errorf("registering %s: %w", def.Name, err)
	}

	return p, nil
}

// decimalPlaces returns the digits needed to display every step of interval.
func decimalPlaces(interval float64) int {
	places := maxDecimalPlaces
	if interval == 0 {
		return places
	}

	v := int64(math.Abs(math.Round(interval * intervalScale)))
	for v > 0 && v%10 == 0 && places > 0 {
		places--
		v /= 10
	}

	return places
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// =============================================================================
// Accessors
// =============================================================================

// Name returns the parameter name.
func (p *Parameter) Name() string { return p.def.Name }

// Definition returns the definition the parameter was built from.
func (p *Parameter) Definition() Definition { return p.def }

// IsFixed reports whether the parameter is built in.
func (p *Parameter) IsFixed() bool { return p.fixed }

// IsDiscrete reports whether the parameter is an enumeration.
func (p *Parameter) IsDiscrete() bool { return p.discrete }

// IsReadOnly reports whether external writes are ignored.
func (p *Parameter) IsReadOnly() bool { return p.readOnly }

// Settings returns the discrete setting table (empty when continuous).
func (p *Parameter) Settings() Settings { return p.settings }

// NumDecimalPlaces returns the display precision for continuous values.
func (p *Parameter) NumDecimalPlaces() int { return p.numDecimalPlaces }

// SkewFactor returns the effective skew factor.
func (p *Parameter) SkewFactor() float64 { return p.skewFactor }

// Device returns the device sync object owned by the parameter.
func (p *Parameter) Device() *DeviceSync { return p.device }

// UIRanges returns the effective UI range, interval and suffix.
func (p *Parameter) UIRanges() (min, max, interval float64, suffix string) {
	return p.uiMin, p.uiMax, p.uiInterval, p.def.UI.Suffix
}

// UIResetValue returns the reset value clamped into the UI range.
func (p *Parameter) UIResetValue() float64 { return p.uiReset }

// HostIdx returns the host slot, or -1 when the parameter is not host-visible.
func (p *Parameter) HostIdx() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hostIdx
}

// LinearNormalised returns the canonical [0, 1] value.
func (p *Parameter) LinearNormalised() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.linearNormalised
}

// UIValue returns the value in UI units.
func (p *Parameter) UIValue() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uiValue
}

// values returns a consistent pair of the linear-normalised and UI values.
func (p *Parameter) values() (ln, ui float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.linearNormalised, p.uiValue
}

// HostValue returns the value as seen by the host, skewed unless the skew is
// UI-only.
func (p *Parameter) HostValue() float64 {
	return p.linearToHost(p.LinearNormalised())
}

// DefaultHostValue returns the host value of the UI reset value.
func (p *Parameter) DefaultHostValue() float64 {
	return p.linearToHost(p.uiToLinear(p.uiReset))
}

// UIText returns the display text for the current value.
func (p *Parameter) UIText() string {
	return p.textFor(p.UIValue())
}

// TextForHostValue returns the display text the given host value would have.
func (p *Parameter) TextForHostValue(v float64) string {
	return p.textFor(p.linearToUI(p.hostToLinear(v)))
}

// ScopeParamText returns the device address as "group:id".
func (p *Parameter) ScopeParamText() string {
	return p.device.ScopeParamText()
}

// AffectedByUI reports whether a gesture without a GestureHandler is open.
func (p *Parameter) AffectedByUI() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.affectedByUI
}

func (p *Parameter) textFor(ui float64) string {
	if p.discrete {
		name, _ := p.settings.Name(int(math.Round(ui)))
		return name
	}
	return strconv.FormatFloat(ui, 'f', p.numDecimalPlaces, 64) + p.def.UI.Suffix
}

// =============================================================================
// Coordinate conversion
// =============================================================================

func (p *Parameter) uiToLinear(ui float64) float64 {
	return scaling.LinearScale(p.uiMin, p.uiMax, 0, 1, ui)
}

func (p *Parameter) linearToUI(ln float64) float64 {
	return scaling.LinearScale(0, 1, p.uiMin, p.uiMax, ln)
}

func (p *Parameter) linearToHost(ln float64) float64 {
	if p.skewUIOnly {
		return ln
	}
	return scaling.Skew(ln, p.skewFactor, 0, 1, false)
}

func (p *Parameter) hostToLinear(v float64) float64 {
	v = clamp(v, 0, 1)
	if p.skewUIOnly {
		return v
	}
	return scaling.Skew(v, p.skewFactor, 0, 1, true)
}

// =============================================================================
// Writers
// =============================================================================

// SetHostValue applies a value from host automation. The value is in host
// units; the skew is reversed here, callers must not pre-skew.
func (p *Parameter) SetHostValue(v float64) bool {
	return p.setHostValue(v, false)
}

// ForceHostValue applies a host value regardless of the update-source block.
// Used when restoring stored state.
func (p *Parameter) ForceHostValue(v float64) bool {
	return p.setHostValue(v, true)
}

func (p *Parameter) setHostValue(v float64, force bool) bool {
	ln := p.hostToLinear(v)
	return p.setParameterValues(SourceHost, ln, p.linearToUI(ln), force)
}

// SetUIValue applies a value in UI units from the user interface.
func (p *Parameter) SetUIValue(v float64) bool {
	ui := clamp(v, p.uiMin, p.uiMax)
	return p.setParameterValues(SourceGUI, p.uiToLinear(ui), ui, false)
}

// SetOSCValue applies a UI value received on the legacy control path and
// holds back echoes of it for the dead time.
func (p *Parameter) SetOSCValue(v float64) bool {
	p.mu.Lock()
	p.legacyDeadUntil = p.now().Add(p.timing.DeadTime)
	p.mu.Unlock()

	ui := clamp(v, p.uiMin, p.uiMax)
	return p.setParameterValues(SourceOSC, p.uiToLinear(ui), ui, false)
}

// SetMIDIValue applies a normalised [0, 1] value from a MIDI controller.
func (p *Parameter) SetMIDIValue(normalised float64) bool {
	ln := clamp(normalised, 0, 1)
	return p.setParameterValues(SourceMIDI, ln, p.linearToUI(ln), false)
}

// SetDeviceValue applies a value in device units. Discrete parameters resolve
// it to the nearest setting; continuous ones scale it through the device range
// and optional dB law. The value is never sent back to the device.
func (p *Parameter) SetDeviceValue(v int) bool {
	p.device.record(v)
	ln, ui := p.device.toModel(v)
	return p.setParameterValues(SourceDevice, ln, ui, false)
}

// ResetToDefault sets the UI reset value as a user interface write.
func (p *Parameter) ResetToDefault() bool {
	return p.SetUIValue(p.uiReset)
}

// ApplyButton moves a discrete parameter according to a button mapping.
func (p *Parameter) ApplyButton(m ButtonMapping) bool {
	if !p.discrete {
		return false
	}

	next, ok := m.Next(p.settings, int(math.Round(p.UIValue())))
	if !ok {
		return false
	}
	return p.SetUIValue(float64(next))
}

// PutValuesInRange re-clamps the current UI value into the range and
// re-derives the linear-normalised value as an internal update.
func (p *Parameter) PutValuesInRange() {
	ui := clamp(p.UIValue(), p.uiMin, p.uiMax)
	p.setParameterValues(SourceInternal, p.uiToLinear(ui), ui, false)
}

// setParameterValues is the single funnel for every write.
//
// Unless force is set, a write from a source other than the one currently
// holding the update-source block is dropped while the block is live. An
// accepted non-internal write takes the block and restarts its window. Values
// are stored under the lock; the device, host and observers are updated after
// it is released.
func (p *Parameter) setParameterValues(source Source, ln, ui float64, force bool) bool {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return false
	}
	if p.readOnly && source != SourceInternal {
		p.mu.Unlock()
		p.logDebug("write to read-only parameter ignored", "parameter", p.def.Name, "source", source.String())
		return false
	}
	if source == SourceDevice && p.affectedByUI {
		p.mu.Unlock()
		p.logDebug("device update ignored while edited", "parameter", p.def.Name)
		return false
	}

	now := p.now()
	if source != SourceInternal {
		blocked := p.blockSource != SourceNone && p.blockSource != source && now.Before(p.blockUntil)
		if blocked && !force {
			p.mu.Unlock()
			p.logDebug("write blocked by competing source",
				"parameter", p.def.Name, "source", source.String(), "blocked_by", p.blockSource.String())
			return false
		}
		p.blockSource = source
		p.blockUntil = now.Add(p.timing.SourceBlock)
	}

	p.linearNormalised = ln
	p.uiValue = ui
	hostIdx := p.hostIdx
	legacyAddress := p.legacyAddress
	echoLegacy := source != SourceOSC && legacyAddress != "" && !now.Before(p.legacyDeadUntil)
	p.mu.Unlock()

	if source != SourceDevice {
		p.device.UpdateValue(p.values())
	}

	hostValue := p.linearToHost(ln)
	if source != SourceHost && source != SourceInternal && hostIdx >= 0 && p.host != nil {
		p.host.UpdateListeners(hostIdx, hostValue)
	}

	if echoLegacy && p.channel != nil {
		if err := p.channel.Send(legacyAddress, float32(ui)); err != nil {
			p.logDebug("legacy control echo failed", "address", legacyAddress, "error", err)
		}
	}

	if p.observer != nil {
		p.observer.OnParameterChanged(Change{
			Name:             p.def.Name,
			HostIdx:          hostIdx,
			LinearNormalised: ln,
			UIValue:          ui,
			HostValue:        hostValue,
			DeviceValue:      p.device.Value(),
			Text:             p.textFor(ui),
			Source:           source,
			SourceName:       source.String(),
			Time:             now,
		})
	}

	return true
}

// =============================================================================
// Gestures
// =============================================================================

// BeginChangeGesture opens an interactive edit.
func (p *Parameter) BeginChangeGesture() {
	if p.gestures != nil {
		p.gestures.BeginParameterChangeGesture(p.HostIdx())
		return
	}
	p.mu.Lock()
	p.affectedByUI = true
	p.mu.Unlock()
}

// EndChangeGesture closes an interactive edit.
func (p *Parameter) EndChangeGesture() {
	if p.gestures != nil {
		p.gestures.EndParameterChangeGesture(p.HostIdx())
		return
	}
	p.mu.Lock()
	p.affectedByUI = false
	p.mu.Unlock()
}

// =============================================================================
// Addressing and lifecycle
// =============================================================================

// SetHostIdx binds the parameter to a host slot (-1 to unbind) and moves its
// legacy control listener accordingly.
func (p *Parameter) SetHostIdx(idx int) error {
	p.mu.Lock()
	p.hostIdx = idx
	p.mu.Unlock()
	return p.reregisterLegacy()
}

// SetSession changes the device session identifier and re-registers every
// listener at its new address.
func (p *Parameter) SetSession(session int) error {
	p.mu.Lock()
	p.session = session
	p.mu.Unlock()

	if err := p.device.SetSession(session); err != nil {
		return err
	}
	return p.reregisterLegacy()
}

// legacyAddressFor returns the legacy control address for a host slot.
func legacyAddressFor(session, hostIdx int) string {
	return fmt.Sprintf("/%d/%d", session, hostIdx)
}

func (p *Parameter) reregisterLegacy() error {
	p.mu.Lock()
	old := p.legacyAddress
	p.legacyAddress = ""
	next := ""
	if p.hostIdx >= 0 && p.channel != nil && !p.closed {
		next = legacyAddressFor(p.session, p.hostIdx)
	}
	p.mu.Unlock()

	if old != "" {
		p.channel.Unregister(old)
	}
	if next == "" {
		return nil
	}

	if err := p.channel.Register(next, p.handleLegacyMessage); err != nil {
		return fmt.Errorf("registering legacy control for %s: %w", p.def.Name, err)
	}

	p.mu.Lock()
	p.legacyAddress = next
	p.mu.Unlock()
	return nil
}

// handleLegacyMessage accepts a single float32 UI value on the legacy address.
func (p *Parameter) handleLegacyMessage(address string, args []any) {
	p.mu.Lock()
	expected := p.legacyAddress
	p.mu.Unlock()

	if address != expected || len(args) != 1 {
		p.logDebug("legacy control message not processed", "address", address, "args", len(args))
		return
	}

	v, ok := args[0].(float32)
	if !ok {
		p.logDebug("legacy control message not processed", "address", address, "type", fmt.Sprintf("%T", args[0]))
		return
	}

	p.SetOSCValue(float64(v))
}

// Close deregisters every listener. Later writes are ignored.
func (p *Parameter) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	legacy := p.legacyAddress
	p.legacyAddress = ""
	p.mu.Unlock()

	if legacy != "" {
		p.channel.Unregister(legacy)
	}
	p.device.Close()
}

// =============================================================================
// Logging
// =============================================================================

// SetLogger sets the logger.
func (p *Parameter) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	p.loggerMu.Lock()
	p.logger = logger
	p.loggerMu.Unlock()
}

func (p *Parameter) logDebug(msg string, keysAndValues ...any) {
	p.loggerMu.RLock()
	logger := p.logger
	p.loggerMu.RUnlock()
	logger.Debug(msg, keysAndValues...)
}
