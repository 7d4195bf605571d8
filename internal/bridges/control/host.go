package control

import (
	"strconv"
	"sync"

	"github.com/bcmodular/scopesync-core/internal/infrastructure/mqtt"
)

// Gesture payloads published on {prefix}/host/{slot}/gesture.
const (
	GestureBegin = "begin"
	GestureEnd   = "end"
)

// Publisher is the publishing half of the MQTT client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// HostPublisher implements parameter.HostAdapter over MQTT. Host values
// and gestures are published at QoS 0 and not retained; a host that joins
// late reads current values from the state topics.
type HostPublisher struct {
	publisher Publisher
	topics    mqtt.Topics

	logger   Logger
	loggerMu sync.RWMutex
}

// NewHostPublisher creates a host adapter publishing through p.
func NewHostPublisher(p Publisher, topics mqtt.Topics) *HostPublisher {
	return &HostPublisher{publisher: p, topics: topics}
}

// UpdateListeners publishes a slot's new host value.
func (h *HostPublisher) UpdateListeners(hostIdx int, value float64) {
	payload := strconv.FormatFloat(value, 'f', -1, 64)
	h.publish(h.topics.HostValue(hostIdx), payload)
}

// BeginGesture publishes the start of an interactive edit.
func (h *HostPublisher) BeginGesture(hostIdx int) {
	h.publish(h.topics.HostGesture(hostIdx), GestureBegin)
}

// EndGesture publishes the end of an interactive edit.
func (h *HostPublisher) EndGesture(hostIdx int) {
	h.publish(h.topics.HostGesture(hostIdx), GestureEnd)
}

// SetLogger sets the logger for publish failures.
func (h *HostPublisher) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

func (h *HostPublisher) publish(topic, payload string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return
	}
	if err := h.publisher.Publish(topic, []byte(payload), 0, false); err != nil {
		h.loggerMu.RLock()
		logger := h.logger
		h.loggerMu.RUnlock()
		if logger != nil {
			logger.Debug("host publish failed", "topic", topic, "error", err)
		}
	}
}
