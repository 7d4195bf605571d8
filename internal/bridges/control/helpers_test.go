package control

import (
	"sync"
	"testing"
	"time"

	"github.com/bcmodular/scopesync-core/internal/infrastructure/mqtt"
	"github.com/bcmodular/scopesync-core/internal/parameter"
	"github.com/bcmodular/scopesync-core/internal/registry"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu           sync.Mutex
	published    []mockPublish
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	connected    bool
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	m.unsubscribed = append(m.unsubscribed, topic)
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(connected bool) {
	m.mu.Lock()
	m.connected = connected
	m.mu.Unlock()
}

func (m *MockMQTTClient) Subscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	topics := make([]string, 0, len(m.handlers))
	for t := range m.handlers {
		topics = append(topics, t)
	}
	return topics
}

// PublishedTo returns the messages published on topic, in order.
func (m *MockMQTTClient) PublishedTo(topic string) []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockPublish
	for _, p := range m.published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	m.published = nil
	m.mu.Unlock()
}

// Deliver simulates a message arriving on topic through the subscription
// registered for pattern.
func (m *MockMQTTClient) Deliver(t *testing.T, pattern, topic string, payload []byte) error {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.handlers[pattern]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for %s", pattern)
	}
	return handler(topic, payload)
}

type testRig struct {
	client *MockMQTTClient
	reg    *registry.Registry
	bridge *Bridge
	topics mqtt.Topics
	now    time.Time
}

// newRig builds a registry with three dynamic parameters whose host adapter
// publishes through the same mock client as the bridge.
func newRig(t *testing.T) *testRig {
	t.Helper()

	rig := &testRig{
		client: NewMockMQTTClient(),
		now:    time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}

	reg, err := registry.New(registry.Options{
		Host:         NewHostPublisher(rig.client, rig.topics),
		SnapshotStep: time.Millisecond,
		Clock:        func() time.Time { return rig.now },
	})
	if err != nil {
		t.Fatalf("registry.New() error = %v", err)
	}
	t.Cleanup(reg.Close)

	defs := []parameter.Definition{
		{Name: "Cutoff", UI: parameter.UIRange{Min: 0, Max: 100, Interval: 1}},
		{
			Name:      "Wave",
			ValueType: parameter.ValueTypeDiscrete,
			Settings:  parameter.Settings{{Name: "Sine", Value: 0}, {Name: "Saw", Value: 5}, {Name: "Pulse", Value: 9}},
		},
		{Name: "Env 1/Attack", UI: parameter.UIRange{Min: -60, Max: 0, Interval: 0.1}},
	}
	if err := reg.LoadDefinitions(defs); err != nil {
		t.Fatalf("LoadDefinitions() error = %v", err)
	}
	rig.reg = reg

	bridge, err := NewBridge(BridgeOptions{
		MQTTClient: rig.client,
		Registry:   reg,
		InstanceID: "scopesync-test",
		Version:    "test",
		Mode:       "plugin",
	})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	rig.bridge = bridge
	return rig
}
