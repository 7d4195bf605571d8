package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bcmodular/scopesync-core/internal/async"
	"github.com/bcmodular/scopesync-core/internal/parameter"
)

// Registry defaults.
const (
	// DefaultHostSlots is the constant number of parameters offered to a
	// plugin host.
	DefaultHostSlots = 512

	// DefaultSnapshotStep is the pause between snapshot stages in plugin mode.
	DefaultSnapshotStep = 100 * time.Millisecond

	// DefaultPollInterval is how often pending device updates are drained.
	DefaultPollInterval = 100 * time.Millisecond

	// DummyParamName is the name and text of an unbound host slot.
	DummyParamName = "Dummy Param"

	// DefaultNumSteps is the step count reported for continuous parameters.
	DefaultNumSteps = 0x7fffffff
)

// Mode selects the host personality.
type Mode string

// Host personalities.
const (
	// ModePlugin runs behind a plugin host: gestures are forwarded to it and
	// snapshots sweep min, max and current values.
	ModePlugin Mode = "plugin"

	// ModeFX runs inside the device: gestures mark parameters as being edited
	// and snapshots send current values only.
	ModeFX Mode = "fx"
)

// Options configures a Registry.
type Options struct {
	Mode         Mode
	HostSlots    int
	Timing       parameter.Timing
	SnapshotStep time.Duration
	PollInterval time.Duration

	// Channel is the device message channel shared by all parameters.
	Channel parameter.Channel

	// Host receives host slot updates and gestures.
	Host parameter.HostAdapter

	// Bridge and Link are the async device hand-off; both are optional.
	Bridge *async.Bridge
	Link   *async.Link

	// Session is the initial device session identifier.
	Session int

	// OnConfigUIDChange is called from the drain loop when the device
	// reports a new configuration UID.
	OnConfigUIDChange func(uid int)

	// OnSessionChange is called after every parameter moved to a new
	// session. OnSnapshot is called when a snapshot has been sent in full.
	OnSessionChange func(session int)
	OnSnapshot      func(parameters int)

	Clock  parameter.Clock
	Logger parameter.Logger
}

// Registry owns the fixed and dynamic parameters.
//
// Thread Safety: All methods are safe for concurrent use.
type Registry struct {
	opts Options

	addMu sync.Mutex

	mu        sync.RWMutex
	fixed     []*parameter.Parameter
	dynamic   []*parameter.Parameter
	byName    map[string]*parameter.Parameter
	byCode    map[string]*parameter.Parameter
	codeOf    map[string]string
	hostSlots []*parameter.Parameter
	session   int
	configUID int

	gestureMu sync.Mutex
	changing  []bool

	observerMu     sync.RWMutex
	observers      map[int]parameter.Observer
	nextObserverID int

	logger   parameter.Logger
	loggerMu sync.RWMutex
}

// New creates a Registry and its fixed parameters.
//
// Parameters:
//   - opts: Registry options; zero values take the package defaults
//
// Returns:
//   - *Registry: Registry holding the fixed parameters
//   - error: If a fixed parameter cannot be registered on the channel
func New(opts Options) (*Registry, error) {
	if opts.Mode == "" {
		opts.Mode = ModePlugin
	}
	if opts.HostSlots <= 0 {
		opts.HostSlots = DefaultHostSlots
	}
	if opts.SnapshotStep <= 0 {
		opts.SnapshotStep = DefaultSnapshotStep
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Timing == (parameter.Timing{}) {
		opts.Timing = parameter.DefaultTiming()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	r := &Registry{
		opts:      opts,
		byName:    make(map[string]*parameter.Parameter),
		byCode:    make(map[string]*parameter.Parameter),
		codeOf:    make(map[string]string),
		hostSlots: make([]*parameter.Parameter, opts.HostSlots),
		changing:  make([]bool, opts.HostSlots),
		session:   opts.Session,
		observers: make(map[int]parameter.Observer),
		logger:    opts.Logger,
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	if opts.Link != nil {
		opts.Link.SetDeviceInstance(opts.Session)
		r.configUID = opts.Link.ConfigUID()
	}

	for _, def := range fixedDefinitions() {
		if _, err := r.AddParameter(def, true); err != nil {
			r.Close()
			return nil, fmt.Errorf("adding fixed parameter: %w", err)
		}
	}

	return r, nil
}

// Mode returns the host personality.
func (r *Registry) Mode() Mode { return r.opts.Mode }

// AddParameter builds a parameter from def and indexes it by name and scope
// code. Dynamic parameters are not host-visible until SetupHostParameters.
func (r *Registry) AddParameter(def parameter.Definition, fixed bool) (*parameter.Parameter, error) {
	r.addMu.Lock()
	defer r.addMu.Unlock()

	r.mu.RLock()
	_, exists := r.byName[def.Name]
	code := scopeCodeFor(def)
	_, codeTaken := r.byCode[code]
	session := r.session
	r.mu.RUnlock()

	if exists {
		return nil, fmt.Errorf("%s: %w", def.Name, parameter.ErrDuplicateName)
	}
	if code != "" && codeTaken {
		return nil, fmt.Errorf("%s: %w: %s", def.Name, ErrDuplicateScopeCode, code)
	}

	opts := parameter.Options{
		Definition: def,
		Fixed:      fixed,
		Timing:     r.opts.Timing,
		Channel:    r.opts.Channel,
		Session:    session,
		Host:       r.opts.Host,
		Observer:   r,
		Clock:      r.opts.Clock,
		Logger:     r.currentLogger(),
	}
	if r.opts.Mode == ModePlugin {
		opts.Gestures = r
	}

	p, err := parameter.New(opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if fixed {
		r.fixed = append(r.fixed, p)
	} else {
		r.dynamic = append(r.dynamic, p)
	}
	r.byName[def.Name] = p
	if code != "" {
		r.byCode[code] = p
		r.codeOf[def.Name] = code
	}
	r.mu.Unlock()

	r.logDebug("parameter added", "name", def.Name, "fixed", fixed, "scope_code", code)
	return p, nil
}

// scopeCodeFor returns the async scope code of a definition: the explicit
// code if set, otherwise the A1..P8 code of its device address.
func scopeCodeFor(def parameter.Definition) string {
	if def.ScopeCode != "" {
		return def.ScopeCode
	}
	group, id := def.DeviceAddress()
	if slot, ok := async.SlotForDeviceAddress(group, id); ok {
		return async.Code(slot)
	}
	return ""
}

// LoadDefinitions replaces the dynamic parameters with defs. It is Reload
// without cancellation.
func (r *Registry) LoadDefinitions(defs []parameter.Definition) error {
	return r.Reload(context.Background(), defs)
}

// Reload replaces the dynamic parameters with defs, binds them to host slots
// and brings the device back in step.
//
// Device frames are adopted as-is while the parameters are rebuilt. In
// plugin mode the host values of the old slots are carried over to the new
// ones and the device is snapshotted. In FX mode the device is snapshotted,
// every bridge slot is queued for the drain loop and a scope sync is
// requested.
func (r *Registry) Reload(ctx context.Context, defs []parameter.Definition) error {
	if err := parameter.ValidateDefinitions(defs); err != nil {
		return err
	}

	if b := r.opts.Bridge; b != nil {
		b.ToggleUpdateProcessing(false)
		defer b.ToggleUpdateProcessing(true)
	}

	var stored []float64
	if r.opts.Mode == ModePlugin {
		stored = r.StoreParameterValues()
	}

	r.Reset()

	for _, def := range defs {
		if _, err := r.AddParameter(def, false); err != nil {
			r.Reset()
			return fmt.Errorf("loading definitions: %w", err)
		}
	}

	r.SetupHostParameters()
	r.mirrorToBridge()
	r.logInfo("parameter definitions loaded", "count", len(defs))

	if r.opts.Mode == ModePlugin {
		return r.RestoreParameterValues(ctx, stored)
	}

	if err := r.Snapshot(ctx); err != nil {
		return err
	}
	if r.opts.Bridge != nil {
		r.opts.Bridge.Snapshot()
	}
	if r.opts.Link != nil {
		r.opts.Link.SyncScope()
	}
	return nil
}

// mirrorToBridge writes every parameter's device value into its bridge slot.
func (r *Registry) mirrorToBridge() {
	if r.opts.Bridge == nil {
		return
	}
	for _, p := range r.Parameters() {
		code := r.ScopeCodeOf(p.Name())
		if code == "" {
			continue
		}
		if err := r.opts.Bridge.SetValueByCode(code, int32(p.Device().Value())); err != nil { // #nosec G115 -- device range is int32
			r.logDebug("bridge mirror skipped", "name", p.Name(), "scope_code", code, "error", err)
		}
	}
}

// SetupHostParameters binds dynamic parameters to host slots 0..N-1 in
// declaration order. Parameters beyond the slot count and all fixed
// parameters stay host-invisible.
func (r *Registry) SetupHostParameters() {
	r.mu.Lock()
	for i := range r.hostSlots {
		r.hostSlots[i] = nil
	}
	var bind, unbind []*parameter.Parameter
	for i, p := range r.dynamic {
		if i < len(r.hostSlots) {
			r.hostSlots[i] = p
			bind = append(bind, p)
		} else {
			unbind = append(unbind, p)
		}
	}
	unbind = append(unbind, r.fixed...)
	r.mu.Unlock()

	for i, p := range bind {
		if err := p.SetHostIdx(i); err != nil {
			r.logWarn("binding host slot failed", "name", p.Name(), "slot", i, "error", err)
		}
	}
	for _, p := range unbind {
		if err := p.SetHostIdx(-1); err != nil {
			r.logWarn("unbinding host slot failed", "name", p.Name(), "error", err)
		}
	}
}

// Reset ends every open gesture and drops the dynamic parameters. Fixed
// parameters are kept.
func (r *Registry) Reset() {
	r.EndAllParameterChangeGestures()

	r.mu.Lock()
	dropped := r.dynamic
	r.dynamic = nil
	for i := range r.hostSlots {
		r.hostSlots[i] = nil
	}
	for _, p := range dropped {
		delete(r.byName, p.Name())
		if code, ok := r.codeOf[p.Name()]; ok {
			delete(r.byCode, code)
			delete(r.codeOf, p.Name())
		}
	}
	r.mu.Unlock()

	for _, p := range dropped {
		p.Close()
	}
}

// Close releases every parameter, fixed ones included.
func (r *Registry) Close() {
	r.Reset()

	r.mu.Lock()
	fixed := r.fixed
	r.fixed = nil
	for _, p := range fixed {
		delete(r.byName, p.Name())
		if code, ok := r.codeOf[p.Name()]; ok {
			delete(r.byCode, code)
			delete(r.codeOf, p.Name())
		}
	}
	r.mu.Unlock()

	for _, p := range fixed {
		p.Close()
	}
}

// =============================================================================
// Lookups
// =============================================================================

// Parameter returns the parameter called name.
func (r *Registry) Parameter(name string) (*parameter.Parameter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// FixedParameter returns the fixed parameter called name.
func (r *Registry) FixedParameter(name string) (*parameter.Parameter, error) {
	p, err := r.Parameter(name)
	if err != nil {
		return nil, err
	}
	if !p.IsFixed() {
		return nil, fmt.Errorf("%w: %s is not fixed", ErrNotFound, name)
	}
	return p, nil
}

// ParameterByScopeCode returns the parameter exchanged under a scope code.
func (r *Registry) ParameterByScopeCode(code string) (*parameter.Parameter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byCode[code]
	return p, ok
}

// ScopeCodeOf returns the scope code of a parameter, or "".
func (r *Registry) ScopeCodeOf(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.codeOf[name]
}

// Parameters returns the fixed then the dynamic parameters.
func (r *Registry) Parameters() []*parameter.Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*parameter.Parameter, 0, len(r.fixed)+len(r.dynamic))
	out = append(out, r.fixed...)
	return append(out, r.dynamic...)
}

// DynamicParameters returns the configuration-defined parameters in
// declaration order.
func (r *Registry) DynamicParameters() []*parameter.Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*parameter.Parameter, len(r.dynamic))
	copy(out, r.dynamic)
	return out
}

// =============================================================================
// Session
// =============================================================================

// Session returns the device session identifier.
func (r *Registry) Session() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// SetSession moves every parameter to a new device session identifier.
func (r *Registry) SetSession(session int) error {
	r.mu.Lock()
	if session == r.session {
		r.mu.Unlock()
		return nil
	}
	r.session = session
	r.mu.Unlock()

	if r.opts.Link != nil {
		r.opts.Link.SetDeviceInstance(session)
	}

	var errs []error
	for _, p := range r.Parameters() {
		if err := p.SetSession(session); err != nil {
			errs = append(errs, err)
		}
	}

	r.logInfo("device session changed", "session", session)
	if r.opts.OnSessionChange != nil {
		r.opts.OnSessionChange(session)
	}
	return errors.Join(errs...)
}

// =============================================================================
// Logging
// =============================================================================

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SetLogger sets the logger used by the registry and parameters added later.
func (r *Registry) SetLogger(logger parameter.Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

func (r *Registry) currentLogger() parameter.Logger {
	r.loggerMu.RLock()
	defer r.loggerMu.RUnlock()
	return r.logger
}

func (r *Registry) logDebug(msg string, kv ...any) { r.currentLogger().Debug(msg, kv...) }
func (r *Registry) logInfo(msg string, kv ...any)  { r.currentLogger().Info(msg, kv...) }
func (r *Registry) logWarn(msg string, kv ...any)  { r.currentLogger().Warn(msg, kv...) }
