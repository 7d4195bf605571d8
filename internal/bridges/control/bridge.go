package control

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bcmodular/scopesync-core/internal/infrastructure/mqtt"
	"github.com/bcmodular/scopesync-core/internal/parameter"
)

// Bridge QoS levels.
const (
	// stateQoS is used for retained state and health messages.
	stateQoS = 1

	// commandQoS is used for command and host set subscriptions.
	commandQoS = 1
)

// Bridge publishes parameter state to MQTT and applies MQTT commands to the
// registry.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt     MQTTClient
	registry Registry
	topics   mqtt.Topics
	health   *HealthReporter

	removeObserver func()
	subscribed     []string

	// Shutdown coordination
	started  bool
	startMu  sync.Mutex
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// MQTTClient is the subset of the MQTT client the bridge uses.
// *mqtt.Client satisfies it.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Registry is the parameter registry as seen by the bridge.
// *registry.Registry satisfies it.
type Registry interface {
	Parameters() []*parameter.Parameter
	Parameter(name string) (*parameter.Parameter, error)
	SetHostValue(idx int, v float64) bool
	HostSlots() int
	Session() int
	AddObserver(o parameter.Observer) (remove func())
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Registry is the parameter registry to expose.
	Registry Registry

	// Topics builds the topic hierarchy. The zero value uses the default prefix.
	Topics mqtt.Topics

	// InstanceID and Version identify the service in health messages.
	InstanceID string
	Version    string

	// Mode is the host personality reported in health messages.
	Mode string

	// HealthInterval is how often health is published. Default: 30 seconds.
	HealthInterval time.Duration

	// Checks report the state of other transports in health messages.
	Checks []HealthCheck

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	b := &Bridge{
		mqtt:     opts.MQTTClient,
		registry: opts.Registry,
		topics:   opts.Topics,
		logger:   opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		InstanceID: opts.InstanceID,
		Version:    opts.Version,
		Mode:       opts.Mode,
		Interval:   opts.HealthInterval,
		Publisher:  opts.MQTTClient,
		Topics:     opts.Topics,
		Registry:   opts.Registry,
		Checks:     opts.Checks,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start subscribes to command topics, publishes the state of every
// parameter, begins publishing changes and starts health reporting. Start
// may be called once.
func (b *Bridge) Start(ctx context.Context) error {
	b.startMu.Lock()
	defer b.startMu.Unlock()
	if b.started {
		return fmt.Errorf("bridge already started")
	}

	if err := b.health.PublishStarting(); err != nil {
		b.logWarn("failed to publish starting health", "error", err)
	}

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{b.topics.AllCommands(), b.handleCommand},
		{b.topics.AllHostSets(), b.handleHostSet},
	}
	for _, s := range subs {
		if err := b.mqtt.Subscribe(s.topic, commandQoS, s.handler); err != nil {
			b.unsubscribeAll()
			return fmt.Errorf("subscribing to %s: %w", s.topic, err)
		}
		b.subscribed = append(b.subscribed, s.topic)
	}

	b.removeObserver = b.registry.AddObserver(parameter.ObserverFunc(b.publishState))
	b.PublishAll()
	b.health.Start(ctx)
	b.started = true

	b.logInfo("control bridge started", "commands", b.topics.AllCommands(), "host_sets", b.topics.AllHostSets())
	return nil
}

// Stop removes the state observer, unsubscribes and stops health
// reporting. Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.startMu.Lock()
		defer b.startMu.Unlock()

		if b.removeObserver != nil {
			b.removeObserver()
			b.removeObserver = nil
		}
		b.unsubscribeAll()
		if b.started {
			b.health.Stop()
		}
		b.logInfo("control bridge stopped")
	})
}

func (b *Bridge) unsubscribeAll() {
	for _, topic := range b.subscribed {
		if err := b.mqtt.Unsubscribe(topic); err != nil {
			b.logDebug("unsubscribe failed", "topic", topic, "error", err)
		}
	}
	b.subscribed = nil
}

// PublishAll publishes the retained state of every parameter. Start calls it
// once; call it again after a broker reconnect so retained state that was
// missed while disconnected is brought up to date.
func (b *Bridge) PublishAll() {
	for _, p := range b.registry.Parameters() {
		b.publishState(parameter.Change{
			Name:        p.Name(),
			HostIdx:     p.HostIdx(),
			UIValue:     p.UIValue(),
			HostValue:   p.HostValue(),
			DeviceValue: p.Device().Value(),
			Text:        p.UIText(),
			SourceName:  parameter.SourceInternal.String(),
			Time:        time.Now(),
		})
	}
}

// publishState is the registry observer.
func (b *Bridge) publishState(c parameter.Change) {
	if !b.mqtt.IsConnected() {
		return
	}

	payload, err := json.Marshal(NewStateMessage(c))
	if err != nil {
		b.logError("failed to marshal state", "name", c.Name, "error", err)
		return
	}

	if err := b.mqtt.Publish(b.topics.State(c.Name), payload, stateQoS, true); err != nil {
		b.logDebug("failed to publish state", "name", c.Name, "error", err)
	}
}

// handleCommand processes {prefix}/command/{name}.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	segment, ok := strings.CutPrefix(topic, b.topics.Command(""))
	if !ok || segment == "" {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	p := b.lookup(segment)
	if p == nil {
		b.logDebug("command for unknown parameter", "topic", topic)
		return fmt.Errorf("%w: %s", ErrUnknownParameter, segment)
	}

	cmd, err := ParseCommand(payload)
	if err != nil {
		b.logDebug("invalid command", "topic", topic, "error", err)
		return err
	}

	if !cmd.Apply(p) {
		b.logDebug("command not applied", "id", cmd.ID, "name", p.Name())
		return fmt.Errorf("%w: %s", ErrRejected, p.Name())
	}

	b.logDebug("command applied", "id", cmd.ID, "name", p.Name(), "source", cmd.Source)
	return nil
}

// lookup finds a parameter by its topic segment.
func (b *Bridge) lookup(segment string) *parameter.Parameter {
	if p, err := b.registry.Parameter(segment); err == nil {
		return p
	}
	for _, p := range b.registry.Parameters() {
		if mqtt.Segment(p.Name()) == segment {
			return p
		}
	}
	return nil
}

// handleHostSet processes {prefix}/host/{slot}/set.
func (b *Bridge) handleHostSet(topic string, payload []byte) error {
	idx, err := b.parseHostSlot(topic)
	if err != nil {
		return err
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		return fmt.Errorf("%w: host value %q", ErrInvalidCommand, payload)
	}

	if !b.registry.SetHostValue(idx, v) {
		return fmt.Errorf("%w: host slot %d", ErrRejected, idx)
	}
	return nil
}

func (b *Bridge) parseHostSlot(topic string) (int, error) {
	rest, ok := strings.CutPrefix(topic, strings.TrimSuffix(b.topics.AllTopics(), "#"))
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] != "host" || parts[2] != "set" {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	idx, err := strconv.Atoi(parts[1])
	if err != nil || idx < 0 || idx >= b.registry.HostSlots() {
		return 0, fmt.Errorf("%w: host slot %q", ErrInvalidTopic, parts[1])
	}
	return idx, nil
}

// Health returns the bridge's health reporter.
func (b *Bridge) Health() *HealthReporter {
	return b.health
}

// SetLogger sets the logger for this bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
	b.health.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logDebug(msg string, kv ...any) {
	if l := b.getLogger(); l != nil {
		l.Debug(msg, kv...)
	}
}

func (b *Bridge) logInfo(msg string, kv ...any) {
	if l := b.getLogger(); l != nil {
		l.Info(msg, kv...)
	}
}

func (b *Bridge) logWarn(msg string, kv ...any) {
	if l := b.getLogger(); l != nil {
		l.Warn(msg, kv...)
	}
}

func (b *Bridge) logError(msg string, kv ...any) {
	if l := b.getLogger(); l != nil {
		l.Error(msg, kv...)
	}
}
