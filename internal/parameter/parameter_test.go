package parameter

import (
	"errors"
	"math"
	"testing"
	"time"
)

type testRig struct {
	param    *Parameter
	clock    *fakeClock
	channel  *mockChannel
	host     *mockHost
	observer *recordingObserver
}

// newRig builds a parameter wired to mocks. If withGestures is set the mock
// host also handles gestures.
func newRig(t *testing.T, def Definition, withGestures bool) *testRig {
	t.Helper()

	r := &testRig{
		clock:    newFakeClock(),
		channel:  newMockChannel(),
		host:     &mockHost{},
		observer: &recordingObserver{},
	}

	opts := Options{
		Definition: def,
		Channel:    r.channel,
		Host:       r.host,
		Observer:   r.observer,
		Clock:      r.clock.Now,
	}
	if withGestures {
		opts.Gestures = r.host
	}

	p, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.param = p
	return r
}

func cutoffDefinition() Definition {
	return Definition{
		Name: "Cutoff",
		UI: UIRange{
			Min:          20,
			Max:          20000,
			Interval:     1,
			Reset:        20,
			SkewMidpoint: 1000,
		},
		Device: &DeviceMapping{Group: 1, ID: 1, Min: 0, Max: 1000},
	}
}

func modeDefinition() Definition {
	return Definition{
		Name:      "Mode",
		ValueType: ValueTypeDiscrete,
		UI:        UIRange{Reset: 0},
		Device:    &DeviceMapping{Group: 1, ID: 2},
		Settings:  Settings{{"Saw", 0}, {"Square", 10}, {"Noise", 20}},
	}
}

// ─── Construction ───────────────────────────────────────────────────

func TestNewDegenerateRange(t *testing.T) {
	r := newRig(t, Definition{Name: "Flat", UI: UIRange{Min: 5, Max: 5, Reset: 5}}, false)

	min, max, _, _ := r.param.UIRanges()
	if min != 5 || max != 6 {
		t.Fatalf("UIRanges() = [%v, %v], want [5, 6]", min, max)
	}

	r.param.SetUIValue(5.5)
	if got := r.param.LinearNormalised(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("LinearNormalised() = %v, want 0.5", got)
	}
}

func TestNewDiscreteDefaultRange(t *testing.T) {
	r := newRig(t, modeDefinition(), false)

	min, max, _, _ := r.param.UIRanges()
	if min != 0 || max != 2 {
		t.Errorf("UIRanges() = [%v, %v], want [0, 2]", min, max)
	}
	if got := r.param.UIText(); got != "Saw" {
		t.Errorf("UIText() = %q, want Saw", got)
	}
}

func TestNewRejectsInvalidDefinition(t *testing.T) {
	_, err := New(Options{Definition: Definition{}})
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("New() error = %v, want ErrInvalidDefinition", err)
	}
}

func TestNewRejectsSharedAddress(t *testing.T) {
	ch := newMockChannel()

	if _, err := New(Options{Definition: cutoffDefinition(), Channel: ch}); err != nil {
		t.Fatalf("first New() error = %v", err)
	}

	other := cutoffDefinition()
	other.Name = "Cutoff 2"
	if _, err := New(Options{Definition: other, Channel: ch}); !errors.Is(err, ErrAddressInUse) {
		t.Errorf("second New() error = %v, want ErrAddressInUse", err)
	}
}

func TestNewResetValue(t *testing.T) {
	def := cutoffDefinition()
	def.UI.Reset = 50000

	r := newRig(t, def, false)
	if got := r.param.UIValue(); got != 20000 {
		t.Errorf("UIValue() = %v, want reset clamped to 20000", got)
	}
	if len(r.channel.Sent()) != 0 {
		t.Error("construction should not send to the device")
	}
}

func TestDecimalPlaces(t *testing.T) {
	tests := []struct {
		interval float64
		want     int
	}{
		{0, 7},
		{1, 0},
		{10, 0},
		{0.5, 1},
		{0.01, 2},
		{0.125, 3},
		{0.0000001, 7},
		{-0.1, 1},
	}

	for _, tt := range tests {
		if got := decimalPlaces(tt.interval); got != tt.want {
			t.Errorf("decimalPlaces(%v) = %d, want %d", tt.interval, got, tt.want)
		}
	}
}

// ─── Value coordinates ──────────────────────────────────────────────

func TestCutoffEndToEnd(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)

	r.param.SetUIValue(1000)
	if got := r.param.HostValue(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("HostValue() = %v, want 0.5", got)
	}

	r.clock.Advance(time.Second)

	if !r.param.SetHostValue(0.5) {
		t.Fatal("SetHostValue() rejected")
	}
	if got := r.param.UIText(); got != "1000" {
		t.Errorf("UIText() = %q, want 1000", got)
	}
}

func TestCutoffTextSuffix(t *testing.T) {
	def := cutoffDefinition()
	def.UI.Suffix = " Hz"
	r := newRig(t, def, false)

	r.param.SetHostValue(0.5)
	if got := r.param.UIText(); got != "1000 Hz" {
		t.Errorf("UIText() = %q, want %q", got, "1000 Hz")
	}
	if got := r.param.TextForHostValue(1); got != "20000 Hz" {
		t.Errorf("TextForHostValue(1) = %q, want %q", got, "20000 Hz")
	}
}

func TestSkewUIOnly(t *testing.T) {
	def := cutoffDefinition()
	def.UI.SkewUIOnly = true
	r := newRig(t, def, false)

	r.param.SetUIValue(1000)
	want := (1000.0 - 20) / (20000 - 20)
	if got := r.param.HostValue(); math.Abs(got-want) > 1e-12 {
		t.Errorf("HostValue() = %v, want unskewed %v", got, want)
	}
}

func TestInputClamping(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)

	r.param.SetUIValue(-5)
	if got := r.param.UIValue(); got != 20 {
		t.Errorf("UIValue() = %v, want 20", got)
	}

	r.clock.Advance(time.Second)
	r.param.SetHostValue(7)
	if got := r.param.UIValue(); got != 20000 {
		t.Errorf("UIValue() = %v, want 20000", got)
	}
	if got := r.param.LinearNormalised(); got != 1 {
		t.Errorf("LinearNormalised() = %v, want 1", got)
	}
}

func TestDefaultHostValue(t *testing.T) {
	def := cutoffDefinition()
	def.UI.Reset = 1000
	r := newRig(t, def, false)

	if got := r.param.DefaultHostValue(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("DefaultHostValue() = %v, want 0.5", got)
	}
}

func TestSetMIDIValue(t *testing.T) {
	r := newRig(t, Definition{Name: "Level", UI: UIRange{Min: 0, Max: 10}}, false)

	r.param.SetMIDIValue(64.0 / 127)
	if got := r.param.UIValue(); math.Abs(got-640.0/127) > 1e-9 {
		t.Errorf("UIValue() = %v, want %v", got, 640.0/127)
	}
	if last, _ := r.observer.Last(); last.Source != SourceMIDI {
		t.Errorf("Source = %v, want midi", last.Source)
	}
}

// ─── Source arbitration ─────────────────────────────────────────────

func TestSourceBlock(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)

	if !r.param.SetUIValue(500) {
		t.Fatal("SetUIValue() rejected")
	}
	if r.param.SetHostValue(0.9) {
		t.Error("host write inside the block window should be dropped")
	}
	if got := r.param.UIValue(); got != 500 {
		t.Errorf("UIValue() = %v, want 500", got)
	}

	r.clock.Advance(100 * time.Millisecond)
	if !r.param.SetUIValue(600) {
		t.Error("same-source write should be accepted and restart the window")
	}

	r.clock.Advance(150 * time.Millisecond)
	if r.param.SetHostValue(0.9) {
		t.Error("window should have restarted on the second GUI write")
	}

	r.clock.Advance(60 * time.Millisecond)
	if !r.param.SetHostValue(0.9) {
		t.Error("host write after the window should be accepted")
	}
}

func TestForceHostValueBypassesBlock(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)

	r.param.SetUIValue(500)
	if !r.param.ForceHostValue(1) {
		t.Fatal("ForceHostValue() rejected")
	}
	if got := r.param.UIValue(); got != 20000 {
		t.Errorf("UIValue() = %v, want 20000", got)
	}
	if r.param.SetUIValue(700) {
		t.Error("forced host write should hold the block")
	}
}

func TestReadOnly(t *testing.T) {
	def := cutoffDefinition()
	def.ReadOnly = true
	r := newRig(t, def, false)

	if r.param.SetUIValue(500) || r.param.SetHostValue(0.5) || r.param.SetDeviceValue(400) {
		t.Error("external writes to a read-only parameter should be ignored")
	}
	if got := r.param.UIValue(); got != 20 {
		t.Errorf("UIValue() = %v, want 20", got)
	}

	r.param.PutValuesInRange()
	if len(r.observer.Changes()) != 1 {
		t.Error("internal updates should still apply")
	}
}

// ─── Propagation ────────────────────────────────────────────────────

func TestPropagationFromGUI(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)
	if err := r.param.SetHostIdx(4); err != nil {
		t.Fatalf("SetHostIdx() error = %v", err)
	}

	r.param.SetUIValue(10010)

	updates := r.host.Updates()
	if len(updates) != 1 || updates[0].HostIdx != 4 {
		t.Fatalf("host updates = %+v, want one for slot 4", updates)
	}
	if math.Abs(updates[0].Value-r.param.HostValue()) > 1e-12 {
		t.Errorf("host value = %v, want %v", updates[0].Value, r.param.HostValue())
	}

	device := r.channel.SentTo("/0/0/1/1")
	if len(device) != 1 || device[0].Args[0] != int32(500) {
		t.Errorf("device messages = %+v, want one int32(500)", device)
	}

	legacy := r.channel.SentTo("/0/4")
	if len(legacy) != 1 || legacy[0].Args[0] != float32(10010) {
		t.Errorf("legacy messages = %+v, want one float32(10010)", legacy)
	}
}

func TestPropagationFromHost(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)
	r.param.SetHostIdx(4)

	r.param.SetHostValue(1)

	if len(r.host.Updates()) != 0 {
		t.Error("host writes should not be reported back to the host")
	}
	if len(r.channel.SentTo("/0/0/1/1")) != 1 {
		t.Error("host writes should reach the device")
	}
}

func TestPropagationFromDevice(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)
	r.param.SetHostIdx(4)

	r.param.SetDeviceValue(1000)

	if len(r.channel.SentTo("/0/0/1/1")) != 0 {
		t.Error("device writes should not be sent back to the device")
	}
	if len(r.host.Updates()) != 1 {
		t.Error("device writes should reach the host")
	}
	if got := r.param.Device().Value(); got != 1000 {
		t.Errorf("Device().Value() = %d, want 1000", got)
	}
}

func TestObserverChange(t *testing.T) {
	r := newRig(t, modeDefinition(), false)
	r.param.SetHostIdx(2)

	r.param.SetUIValue(2)

	c, ok := r.observer.Last()
	if !ok {
		t.Fatal("observer not notified")
	}
	if c.Name != "Mode" || c.HostIdx != 2 || c.UIValue != 2 || c.Text != "Noise" {
		t.Errorf("change = %+v", c)
	}
	if c.DeviceValue != 20 || c.SourceName != "gui" || c.LinearNormalised != 1 {
		t.Errorf("change = %+v", c)
	}
	if !c.Time.Equal(r.clock.Now()) {
		t.Errorf("Time = %v, want %v", c.Time, r.clock.Now())
	}
}

// ─── Legacy control path ────────────────────────────────────────────

func TestLegacyControl(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)
	r.param.SetHostIdx(4)

	if !r.channel.Deliver("/0/4", float32(500)) {
		t.Fatal("legacy listener not registered")
	}
	if got := r.param.UIValue(); got != 500 {
		t.Errorf("UIValue() = %v, want 500", got)
	}
	if len(r.channel.SentTo("/0/4")) != 0 {
		t.Error("legacy writes must not be echoed")
	}

	// Inside the dead time internal updates are not echoed either.
	r.param.PutValuesInRange()
	if len(r.channel.SentTo("/0/4")) != 0 {
		t.Error("update inside the dead time was echoed")
	}

	r.clock.Advance(DefaultSourceBlock + time.Millisecond)
	r.param.SetUIValue(700)
	if len(r.channel.SentTo("/0/4")) != 1 {
		t.Error("update after the dead time should be echoed")
	}
}

func TestLegacyControlIgnoresMalformed(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)
	r.param.SetHostIdx(4)

	r.channel.Deliver("/0/4", int32(500))
	r.channel.Deliver("/0/4", float32(500), float32(600))
	r.channel.Deliver("/0/4")

	if len(r.observer.Changes()) != 0 {
		t.Error("malformed legacy messages should be ignored")
	}
}

// ─── Gestures ───────────────────────────────────────────────────────

func TestGesturesWithoutHandler(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)

	r.param.BeginChangeGesture()
	if !r.param.AffectedByUI() {
		t.Fatal("AffectedByUI() = false after BeginChangeGesture()")
	}
	if r.param.SetDeviceValue(700) {
		t.Error("device writes should be dropped while edited")
	}

	r.param.EndChangeGesture()
	if !r.param.SetDeviceValue(700) {
		t.Error("device writes should apply after the gesture ends")
	}
}

func TestGesturesWithHandler(t *testing.T) {
	r := newRig(t, cutoffDefinition(), true)
	r.param.SetHostIdx(9)

	r.param.BeginChangeGesture()
	r.param.EndChangeGesture()

	if len(r.host.begins) != 1 || r.host.begins[0] != 9 {
		t.Errorf("begins = %v, want [9]", r.host.begins)
	}
	if len(r.host.ends) != 1 || r.host.ends[0] != 9 {
		t.Errorf("ends = %v, want [9]", r.host.ends)
	}
	if r.param.AffectedByUI() {
		t.Error("AffectedByUI() should stay false when a handler is set")
	}
}

// ─── Buttons and reset ──────────────────────────────────────────────

func TestApplyButton(t *testing.T) {
	r := newRig(t, modeDefinition(), false)

	r.param.ApplyButton(ButtonMapping{Type: MappingIncWrap})
	r.param.ApplyButton(ButtonMapping{Type: MappingIncWrap})
	if got := r.param.UIText(); got != "Noise" {
		t.Errorf("UIText() = %q, want Noise", got)
	}

	r.param.ApplyButton(ButtonMapping{Type: MappingIncWrap})
	if got := r.param.UIText(); got != "Saw" {
		t.Errorf("UIText() = %q, want Saw after wrap", got)
	}

	c := newRig(t, cutoffDefinition(), false)
	if c.param.ApplyButton(ButtonMapping{Type: MappingInc}) {
		t.Error("ApplyButton() on a continuous parameter should fail")
	}
}

func TestResetToDefault(t *testing.T) {
	def := cutoffDefinition()
	def.UI.Reset = 440
	r := newRig(t, def, false)

	r.param.SetUIValue(9000)
	r.param.ResetToDefault()
	if got := r.param.UIValue(); got != 440 {
		t.Errorf("UIValue() = %v, want 440", got)
	}
}

// ─── Addressing and lifecycle ───────────────────────────────────────

func TestSetSession(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)
	r.param.SetHostIdx(4)

	if err := r.param.SetSession(3); err != nil {
		t.Fatalf("SetSession() error = %v", err)
	}

	if r.channel.Listening("/0/0/1/1") || r.channel.Listening("/0/4") {
		t.Error("old addresses still registered")
	}
	if !r.channel.Listening("/3/0/1/1") || !r.channel.Listening("/3/4") {
		t.Error("new addresses not registered")
	}
	if got := r.param.Device().Address(); got != "/3/0/1/1" {
		t.Errorf("Address() = %q, want /3/0/1/1", got)
	}
}

func TestSetHostIdxUnbind(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)
	r.param.SetHostIdx(4)
	r.param.SetHostIdx(-1)

	if r.channel.Listening("/0/4") {
		t.Error("legacy listener should be removed when unbound")
	}
	r.param.SetUIValue(300)
	if len(r.host.Updates()) != 0 {
		t.Error("unbound parameter should not notify the host")
	}
}

func TestClose(t *testing.T) {
	r := newRig(t, cutoffDefinition(), false)
	r.param.SetHostIdx(4)

	r.param.Close()

	if r.channel.Listening("/0/0/1/1") || r.channel.Listening("/0/4") {
		t.Error("listeners should be removed on Close()")
	}
	if r.param.SetUIValue(300) {
		t.Error("writes after Close() should be ignored")
	}
}
