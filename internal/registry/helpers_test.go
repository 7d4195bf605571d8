package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/bcmodular/scopesync-core/internal/async"
	"github.com/bcmodular/scopesync-core/internal/parameter"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentMessage struct {
	Address string
	Args    []any
}

// mockChannel implements parameter.Channel for testing.
type mockChannel struct {
	mu        sync.Mutex
	listeners map[string]parameter.Listener
	sent      []sentMessage
}

func newMockChannel() *mockChannel {
	return &mockChannel{listeners: make(map[string]parameter.Listener)}
}

func (m *mockChannel) Register(address string, l parameter.Listener) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listeners[address]; ok {
		return parameter.ErrAddressInUse
	}
	m.listeners[address] = l
	return nil
}

func (m *mockChannel) Unregister(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, address)
}

func (m *mockChannel) Send(address string, args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{Address: address, Args: args})
	return nil
}

func (m *mockChannel) SentTo(address string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, msg := range m.sent {
		if msg.Address == address {
			out = append(out, msg.Args[0])
		}
	}
	return out
}

func (m *mockChannel) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockChannel) Reset() {
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
}

func (m *mockChannel) Listening(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.listeners[address]
	return ok
}

// mockHost implements parameter.HostAdapter for testing.
type mockHost struct {
	mu      sync.Mutex
	updates map[int]float64
	begins  []int
	ends    []int
}

func newMockHost() *mockHost {
	return &mockHost{updates: make(map[int]float64)}
}

func (h *mockHost) UpdateListeners(idx int, v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates[idx] = v
}

func (h *mockHost) BeginGesture(idx int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.begins = append(h.begins, idx)
}

func (h *mockHost) EndGesture(idx int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ends = append(h.ends, idx)
}

func (h *mockHost) Gestures() (begins, ends []int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.begins...), append([]int(nil), h.ends...)
}

type testRig struct {
	reg     *Registry
	channel *mockChannel
	host    *mockHost
	bridge  *async.Bridge
	link    *async.Link
	clock   *fakeClock
}

func newRig(t *testing.T, mode Mode, mutate func(*Options)) *testRig {
	t.Helper()

	rig := &testRig{
		channel: newMockChannel(),
		host:    newMockHost(),
		bridge:  async.NewBridge(),
		link:    async.NewLink(0),
		clock:   &fakeClock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)},
	}

	opts := Options{
		Mode:         mode,
		SnapshotStep: time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Channel:      rig.channel,
		Host:         rig.host,
		Bridge:       rig.bridge,
		Link:         rig.link,
		Clock:        rig.clock.Now,
	}
	if mutate != nil {
		mutate(&opts)
	}

	reg, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(reg.Close)
	t.Cleanup(rig.link.Close)
	rig.reg = reg
	return rig
}

func testDefinitions() []parameter.Definition {
	return []parameter.Definition{
		{
			Name:   "Cutoff",
			UI:     parameter.UIRange{Min: 0, Max: 100, Interval: 1},
			Device: &parameter.DeviceMapping{Group: 1, ID: 1, Min: 0, Max: 100},
		},
		{
			Name:      "Wave",
			ScopeCode: "LA1",
			ValueType: parameter.ValueTypeDiscrete,
			Device:    &parameter.DeviceMapping{Group: 9, ID: 1},
			Settings:  parameter.Settings{{Name: "Sine", Value: 0}, {Name: "Saw", Value: 5}, {Name: "Pulse", Value: 9}},
		},
		{
			Name: "Gain",
			UI:   parameter.UIRange{Min: -60, Max: 0, Interval: 0.1, Reset: -6},
		},
	}
}
