package async

import (
	"fmt"
	"sync/atomic"
)

// Update is a pending slot value produced by the device side.
type Update struct {
	Slot  int
	Code  string
	Value int32
}

// Bridge holds the authoritative current value of every frame slot.
type Bridge struct {
	current [NumSlots]atomic.Int32

	pending      [NumSlots]atomic.Bool
	pendingValue [NumSlots]atomic.Int32

	initialising      atomic.Bool
	processUpdates    atomic.Bool
	enableScopeInputs atomic.Bool
}

// NewBridge creates a Bridge. The first frame it handles is adopted wholesale.
func NewBridge() *Bridge {
	b := &Bridge{}
	b.initialising.Store(true)
	b.processUpdates.Store(true)
	return b
}

// HandleUpdate resolves one device frame against the current values.
//
// For every slot, in index order:
//   - while initialising or with processing disabled, the device value is
//     adopted and queued as pending;
//   - otherwise an eligible slot whose device value differs from prev is
//     swapped in with compare-and-swap from prev; a successful swap is
//     queued, a failed one means the slot changed locally and the device
//     slot is overwritten with the local value;
//   - any other slot is overwritten with the current value.
//
// prev is then updated to the resolved current value. Slices shorter than
// NumSlots are processed up to their length.
func (b *Bridge) HandleUpdate(values, prev []int32) {
	n := min(len(values), len(prev), NumSlots)
	initialising := b.initialising.Load()
	processing := b.processUpdates.Load()
	scopeInputs := b.enableScopeInputs.Load()

	for i := 0; i < n; i++ {
		switch {
		case initialising || !processing:
			b.current[i].Store(values[i])
			b.markPending(i, values[i])

		case eligible(i, scopeInputs) && values[i] != prev[i]:
			if b.current[i].CompareAndSwap(prev[i], values[i]) {
				b.markPending(i, values[i])
			} else {
				values[i] = b.current[i].Load()
			}

		default:
			values[i] = b.current[i].Load()
		}

		prev[i] = b.current[i].Load()
	}

	b.initialising.Store(false)
}

// eligible reports whether a slot accepts device-originated changes. Scope
// slots and the X/Y pads only do so when scope inputs are enabled.
func eligible(slot int, scopeInputs bool) bool {
	return scopeInputs || (slot >= LocalBase && slot != SlotX && slot != SlotY)
}

func (b *Bridge) markPending(slot int, v int32) {
	b.pendingValue[slot].Store(v)
	b.pending[slot].Store(true)
}

// AsyncUpdates swaps out the pending updates in slot order.
func (b *Bridge) AsyncUpdates() []Update {
	var updates []Update
	for i := range b.pending {
		if b.pending[i].Swap(false) {
			updates = append(updates, Update{Slot: i, Code: codes[i], Value: b.pendingValue[i].Load()})
		}
	}
	return updates
}

// SetValue stores a locally produced value for a slot.
func (b *Bridge) SetValue(slot int, v int32) error {
	if !validSlot(slot) {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	b.current[slot].Store(v)
	return nil
}

// SetValueByCode stores a locally produced value for a scope code.
func (b *Bridge) SetValueByCode(code string, v int32) error {
	slot, err := CodeIndex(code)
	if err != nil {
		return err
	}
	b.current[slot].Store(v)
	return nil
}

// Value returns the current value of a slot, or 0 for an invalid slot.
func (b *Bridge) Value(slot int) int32 {
	if !validSlot(slot) {
		return 0
	}
	return b.current[slot].Load()
}

// ToggleUpdateProcessing enables or disables change detection. While
// disabled every frame is adopted as-is.
func (b *Bridge) ToggleUpdateProcessing(on bool) {
	b.processUpdates.Store(on)
}

// SetScopeInputsEnabled controls whether scope slots and the X/Y pads accept
// device-originated changes.
func (b *Bridge) SetScopeInputsEnabled(on bool) {
	b.enableScopeInputs.Store(on)
}

// ScopeInputsEnabled reports the scope input policy.
func (b *Bridge) ScopeInputsEnabled() bool {
	return b.enableScopeInputs.Load()
}

// Reinitialise makes the next frame be adopted wholesale.
func (b *Bridge) Reinitialise() {
	b.initialising.Store(true)
}

// Snapshot queues every slot's current value as pending.
func (b *Bridge) Snapshot() {
	for i := range b.current {
		b.markPending(i, b.current[i].Load())
	}
}

// Outputs returns the slots written back to the device, in slot order,
// skipping feedback and input-only slots.
func Outputs(values []int32) []int32 {
	out := make([]int32, 0, len(values))
	for i, v := range values {
		if i >= NumSlots {
			break
		}
		if IsOutput(i) {
			out = append(out, v)
		}
	}
	return out
}
