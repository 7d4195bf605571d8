package async

import "testing"

func TestProcessorRoundTrip(t *testing.T) {
	b := NewBridge()
	l := NewLink(0)
	p := NewProcessor(b, l, nil)

	local, _ := CodeIndex("LB2")
	first := make([]int32, NumSlots)
	first[local] = 5

	out := p.Process(Frame{Values: first, DeviceInstance: 2})
	if !out.Loaded {
		t.Error("Loaded = false")
	}
	if out.Link.DeviceInstance != 2 {
		t.Errorf("DeviceInstance = %d, want 2", out.Link.DeviceInstance)
	}
	if len(out.Values) != len(Outputs(make([]int32, NumSlots))) {
		t.Errorf("len(Values) = %d", len(out.Values))
	}
	b.AsyncUpdates()

	// A local write shows up in the next reply.
	b.SetValue(local, 9)
	out = p.Process(Frame{Values: first, DeviceInstance: 2})
	if out.Values[local] != 9 {
		t.Errorf("reply slot = %d, want 9", out.Values[local])
	}

	// A genuine device change is queued.
	next := make([]int32, NumSlots)
	next[local] = 12
	p.Process(Frame{Values: next, DeviceInstance: 2})
	updates := b.AsyncUpdates()
	if len(updates) != 1 || updates[0].Value != 12 {
		t.Errorf("AsyncUpdates() = %+v, want LB2=12", updates)
	}
}

func TestProcessorScopeInputSwitch(t *testing.T) {
	b := NewBridge()
	p := NewProcessor(b, nil, func() bool { return false })

	out := p.Process(Frame{EnableScopeInputs: 1})
	if out.Loaded {
		t.Error("Loaded = true, want false")
	}
	if !b.ScopeInputsEnabled() {
		t.Error("scope inputs should follow the frame switch")
	}
}

func TestProcessorScopeInputSwitchOnlyOnChange(t *testing.T) {
	b := NewBridge()
	b.SetScopeInputsEnabled(true)
	p := NewProcessor(b, nil, nil)

	// An unchanged switch keeps the configured policy.
	p.Process(Frame{EnableScopeInputs: 0})
	p.Process(Frame{EnableScopeInputs: 0})
	if !b.ScopeInputsEnabled() {
		t.Fatal("configured scope inputs overwritten by an unchanged switch")
	}

	p.Process(Frame{EnableScopeInputs: 1})
	p.Process(Frame{EnableScopeInputs: 0})
	if b.ScopeInputsEnabled() {
		t.Error("switching off on the device should disable scope inputs")
	}

	// Once set from the device, the policy holds until the switch moves.
	b.SetScopeInputsEnabled(true)
	p.Process(Frame{EnableScopeInputs: 0})
	if !b.ScopeInputsEnabled() {
		t.Error("policy changed without a switch change")
	}
}
