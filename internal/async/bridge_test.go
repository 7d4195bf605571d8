package async

import "testing"

func frame() []int32 {
	return make([]int32, NumSlots)
}

func TestHandleUpdateInitialAdopts(t *testing.T) {
	b := NewBridge()
	values, prev := frame(), frame()
	values[0] = 11
	values[SlotX] = 7

	b.HandleUpdate(values, prev)

	if b.Value(0) != 11 || b.Value(SlotX) != 7 {
		t.Errorf("initial frame not adopted: A1 = %d, X = %d", b.Value(0), b.Value(SlotX))
	}
	if prev[0] != 11 {
		t.Errorf("prev[0] = %d, want 11", prev[0])
	}
	if updates := b.AsyncUpdates(); len(updates) != NumSlots {
		t.Errorf("len(AsyncUpdates()) = %d, want %d", len(updates), NumSlots)
	}
	if updates := b.AsyncUpdates(); len(updates) != 0 {
		t.Errorf("AsyncUpdates() should be swapped out, got %d", len(updates))
	}
}

func TestHandleUpdateEligibility(t *testing.T) {
	b := NewBridge()
	values, prev := frame(), frame()
	b.HandleUpdate(values, prev)
	b.AsyncUpdates()

	local, _ := CodeIndex("LA1")

	values = frame()
	values[0] = 5
	values[SlotX] = 9
	values[local] = 3
	b.HandleUpdate(values, prev)

	if b.Value(0) != 0 || values[0] != 0 {
		t.Errorf("scope slot accepted with inputs disabled: current = %d, out = %d", b.Value(0), values[0])
	}
	if b.Value(SlotX) != 0 {
		t.Error("X pad accepted with inputs disabled")
	}
	if b.Value(local) != 3 {
		t.Errorf("local slot = %d, want 3", b.Value(local))
	}

	updates := b.AsyncUpdates()
	if len(updates) != 1 || updates[0].Slot != local || updates[0].Code != "LA1" || updates[0].Value != 3 {
		t.Errorf("AsyncUpdates() = %+v, want LA1=3", updates)
	}

	b.SetScopeInputsEnabled(true)
	values = frame()
	values[0] = 5
	values[local] = 3
	b.HandleUpdate(values, prev)
	if b.Value(0) != 5 {
		t.Errorf("scope slot = %d, want 5 with inputs enabled", b.Value(0))
	}
}

func TestHandleUpdateNoClobber(t *testing.T) {
	b := NewBridge()
	b.SetScopeInputsEnabled(true)
	values, prev := frame(), frame()
	values[3] = 10
	b.HandleUpdate(values, prev)
	b.AsyncUpdates()

	// Local change between frames.
	if err := b.SetValue(3, 42); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}

	// The device still reports a stale change based on the old value.
	values = frame()
	values[3] = 12
	b.HandleUpdate(values, prev)

	if b.Value(3) != 42 {
		t.Errorf("current = %d, want local 42", b.Value(3))
	}
	if values[3] != 42 {
		t.Errorf("device slot = %d, want overwritten with 42", values[3])
	}
	if prev[3] != 42 {
		t.Errorf("prev = %d, want 42", prev[3])
	}
	if updates := b.AsyncUpdates(); len(updates) != 0 {
		t.Errorf("failed swap should not queue an update, got %+v", updates)
	}
}

func TestHandleUpdateUnchangedReflectsLocal(t *testing.T) {
	b := NewBridge()
	b.SetScopeInputsEnabled(true)
	values, prev := frame(), frame()
	b.HandleUpdate(values, prev)

	b.SetValue(8, 77)

	values = frame()
	b.HandleUpdate(values, prev)
	if values[8] != 77 {
		t.Errorf("device slot = %d, want 77", values[8])
	}
}

func TestHandleUpdateProcessingDisabled(t *testing.T) {
	b := NewBridge()
	values, prev := frame(), frame()
	b.HandleUpdate(values, prev)
	b.AsyncUpdates()

	b.SetValue(0, 50)
	b.ToggleUpdateProcessing(false)

	values = frame()
	values[0] = 1
	b.HandleUpdate(values, prev)

	if b.Value(0) != 1 {
		t.Errorf("current = %d, want device value 1 while processing is off", b.Value(0))
	}
}

func TestBridgeSnapshot(t *testing.T) {
	b := NewBridge()
	b.SetValue(SlotVoiceCount, 4)
	b.Snapshot()

	updates := b.AsyncUpdates()
	if len(updates) != NumSlots {
		t.Fatalf("len(AsyncUpdates()) = %d, want %d", len(updates), NumSlots)
	}
	if u := updates[SlotVoiceCount]; u.Value != 4 || u.Code != "vc" {
		t.Errorf("update = %+v, want vc=4", u)
	}
}

func TestBridgeSetValueErrors(t *testing.T) {
	b := NewBridge()
	if err := b.SetValue(NumSlots, 1); err == nil {
		t.Error("SetValue() on an invalid slot should fail")
	}
	if err := b.SetValueByCode("nope", 1); err == nil {
		t.Error("SetValueByCode() on an unknown code should fail")
	}
	if err := b.SetValueByCode("byp", 1); err != nil || b.Value(SlotBypass) != 1 {
		t.Errorf("SetValueByCode(byp) error = %v, value = %d", err, b.Value(SlotBypass))
	}
	if b.Value(-1) != 0 {
		t.Error("Value() of an invalid slot should be 0")
	}
}
