package parameter

import (
	"sync"
	"time"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
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

// mockChannel implements Channel for testing.
type mockChannel struct {
	mu        sync.Mutex
	listeners map[string]Listener
	sent      []sentMessage
}

func newMockChannel() *mockChannel {
	return &mockChannel{listeners: make(map[string]Listener)}
}

func (m *mockChannel) Register(address string, l Listener) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listeners[address]; ok {
		return ErrAddressInUse
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

// Deliver dispatches an inbound message by exact address.
func (m *mockChannel) Deliver(address string, args ...any) bool {
	m.mu.Lock()
	l, ok := m.listeners[address]
	m.mu.Unlock()
	if !ok {
		return false
	}
	l(address, args)
	return true
}

func (m *mockChannel) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *mockChannel) SentTo(address string) []sentMessage {
	var out []sentMessage
	for _, msg := range m.Sent() {
		if msg.Address == address {
			out = append(out, msg)
		}
	}
	return out
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

type hostUpdate struct {
	HostIdx int
	Value   float64
}

// mockHost implements HostAdapter and GestureHandler for testing.
type mockHost struct {
	mu      sync.Mutex
	updates []hostUpdate
	begins  []int
	ends    []int
}

func (h *mockHost) UpdateListeners(hostIdx int, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, hostUpdate{HostIdx: hostIdx, Value: value})
}

func (h *mockHost) BeginGesture(hostIdx int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.begins = append(h.begins, hostIdx)
}

func (h *mockHost) EndGesture(hostIdx int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ends = append(h.ends, hostIdx)
}

func (h *mockHost) BeginParameterChangeGesture(hostIdx int) { h.BeginGesture(hostIdx) }
func (h *mockHost) EndParameterChangeGesture(hostIdx int)   { h.EndGesture(hostIdx) }

func (h *mockHost) Updates() []hostUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]hostUpdate, len(h.updates))
	copy(out, h.updates)
	return out
}

// recordingObserver collects changes.
type recordingObserver struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recordingObserver) OnParameterChanged(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recordingObserver) Changes() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Change, len(r.changes))
	copy(out, r.changes)
	return out
}

func (r *recordingObserver) Last() (Change, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return Change{}, false
	}
	return r.changes[len(r.changes)-1], true
}
