package registry

import (
	"fmt"

	"github.com/bcmodular/scopesync-core/internal/parameter"
)

// HostSlots returns the constant number of host slots.
func (r *Registry) HostSlots() int {
	return len(r.hostSlots)
}

// HostParameter returns the parameter bound to a host slot.
func (r *Registry) HostParameter(idx int) (*parameter.Parameter, error) {
	if idx < 0 || idx >= len(r.hostSlots) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, idx)
	}

	r.mu.RLock()
	p := r.hostSlots[idx]
	r.mu.RUnlock()

	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrEmptySlot, idx)
	}
	return p, nil
}

func (r *Registry) slot(idx int) *parameter.Parameter {
	p, err := r.HostParameter(idx)
	if err != nil {
		return nil
	}
	return p
}

// HostValue returns the host value of a slot, or 0 for an unbound slot.
func (r *Registry) HostValue(idx int) float64 {
	if p := r.slot(idx); p != nil {
		return p.HostValue()
	}
	return 0
}

// HostName returns the name shown by the host for a slot.
func (r *Registry) HostName(idx int) string {
	if p := r.slot(idx); p != nil {
		if d := p.Definition().FullDescription; d != "" {
			return d
		}
		return p.Name()
	}
	return DummyParamName
}

// HostText returns the display text of a slot's current value.
func (r *Registry) HostText(idx int) string {
	if p := r.slot(idx); p != nil {
		return p.UIText()
	}
	return DummyParamName
}

// HostTextForValue returns the display text a host value would have.
func (r *Registry) HostTextForValue(idx int, v float64) string {
	if p := r.slot(idx); p != nil {
		return p.TextForHostValue(v)
	}
	return DummyParamName
}

// HostDefaultValue returns the host value of a slot's reset value.
func (r *Registry) HostDefaultValue(idx int) float64 {
	if p := r.slot(idx); p != nil {
		return p.DefaultHostValue()
	}
	return 0
}

// IsHostDiscrete reports whether a slot holds a discrete parameter.
func (r *Registry) IsHostDiscrete(idx int) bool {
	if p := r.slot(idx); p != nil {
		return p.IsDiscrete()
	}
	return false
}

// HostNumSteps returns the number of steps a host should offer for a slot.
func (r *Registry) HostNumSteps(idx int) int {
	if p := r.slot(idx); p != nil && p.IsDiscrete() {
		return len(p.Settings())
	}
	return DefaultNumSteps
}

// SetHostValue applies a host write to a slot. Writes to unbound slots are
// ignored.
func (r *Registry) SetHostValue(idx int, v float64) bool {
	if p := r.slot(idx); p != nil {
		return p.SetHostValue(v)
	}
	return false
}

// =============================================================================
// Gestures
// =============================================================================

// BeginParameterChangeGesture opens a host gesture on a slot. A second begin
// on a slot that is already changing is ignored.
func (r *Registry) BeginParameterChangeGesture(idx int) {
	if idx < 0 || idx >= len(r.changing) {
		return
	}

	r.gestureMu.Lock()
	defer r.gestureMu.Unlock()

	if r.changing[idx] {
		return
	}
	r.gesture(idx, true)
	r.changing[idx] = true
}

// EndParameterChangeGesture closes a host gesture on a slot. Ending a slot
// that is not changing is ignored.
func (r *Registry) EndParameterChangeGesture(idx int) {
	if idx < 0 || idx >= len(r.changing) {
		return
	}

	r.gestureMu.Lock()
	defer r.gestureMu.Unlock()

	if !r.changing[idx] {
		return
	}
	r.gesture(idx, false)
	r.changing[idx] = false
}

// EndAllParameterChangeGestures closes every open gesture. In FX mode it
// also releases every parameter held by a UI edit.
func (r *Registry) EndAllParameterChangeGestures() {
	r.gestureMu.Lock()
	defer r.gestureMu.Unlock()

	for idx, open := range r.changing {
		if !open {
			continue
		}
		if r.opts.Mode == ModePlugin && r.opts.Host != nil {
			r.opts.Host.EndGesture(idx)
		}
		r.changing[idx] = false
	}

	if r.opts.Mode == ModeFX {
		for _, p := range r.Parameters() {
			p.EndChangeGesture()
		}
	}
}

// gesture routes a slot gesture. A plugin forwards it to the host; in FX
// mode the parameter itself is marked, which holds off device writes until
// the gesture ends.
func (r *Registry) gesture(idx int, begin bool) {
	if r.opts.Mode == ModeFX {
		if p := r.slot(idx); p != nil {
			if begin {
				p.BeginChangeGesture()
			} else {
				p.EndChangeGesture()
			}
		}
		return
	}

	if r.opts.Host == nil {
		return
	}
	if begin {
		r.opts.Host.BeginGesture(idx)
	} else {
		r.opts.Host.EndGesture(idx)
	}
}

// IsChanging reports whether a gesture is open on a slot.
func (r *Registry) IsChanging(idx int) bool {
	if idx < 0 || idx >= len(r.changing) {
		return false
	}
	r.gestureMu.Lock()
	defer r.gestureMu.Unlock()
	return r.changing[idx]
}
