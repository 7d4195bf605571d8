package control

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bcmodular/scopesync-core/internal/infrastructure/mqtt"
)

// defaultHealthInterval is used when no interval is configured.
const defaultHealthInterval = 30 * time.Second

// HealthCheck reports whether one transport is up.
type HealthCheck struct {
	Name      string
	Connected func() bool
}

// StatusSource supplies the registry figures reported in health messages.
type StatusSource interface {
	Session() int
}

// HealthReporter manages periodic health status reporting.
// It publishes retained health messages to MQTT at regular intervals.
type HealthReporter struct {
	instanceID string
	version    string
	mode       string
	startTime  time.Time
	interval   time.Duration
	publisher  Publisher
	topics     mqtt.Topics
	registry   StatusSource
	checks     []HealthCheck

	// Parameter count (updated externally)
	paramCount   int
	paramCountMu sync.RWMutex

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	InstanceID string
	Version    string
	Mode       string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	Publisher Publisher
	Topics    mqtt.Topics

	// Registry is optional; without it the session is reported as 0.
	Registry StatusSource

	// Checks degrade the reported status when any is disconnected.
	Checks []HealthCheck
}

// NewHealthReporter creates a new health reporter.
// Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	return &HealthReporter{
		instanceID: cfg.InstanceID,
		version:    cfg.Version,
		mode:       cfg.Mode,
		startTime:  time.Now(),
		interval:   interval,
		publisher:  cfg.Publisher,
		topics:     cfg.Topics,
		registry:   cfg.Registry,
		checks:     cfg.Checks,
		done:       make(chan struct{}),
	}
}

// Start begins periodic health reporting until ctx is cancelled or Stop
// is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop gracefully stops health reporting and publishes a final
// "stopping" status. Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown
		h.publishStatus(HealthStopping, "")
	})
}

// SetParameterCount updates the reported parameter count.
func (h *HealthReporter) SetParameterCount(n int) {
	h.paramCountMu.Lock()
	h.paramCount = n
	h.paramCountMu.Unlock()
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "service starting")
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

// determineStatus evaluates the current service status.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	for _, c := range h.checks {
		if c.Connected != nil && !c.Connected() {
			return HealthDegraded, c.Name + " disconnected"
		}
	}
	return HealthHealthy, ""
}

// Message builds the health message for status.
func (h *HealthReporter) Message(status HealthStatus, reason string) HealthMessage {
	h.paramCountMu.RLock()
	count := h.paramCount
	h.paramCountMu.RUnlock()

	msg := HealthMessage{
		InstanceID:    h.instanceID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Reason:        reason,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Mode:          h.mode,
		Parameters:    count,
	}
	if h.registry != nil {
		msg.Session = h.registry.Session()
	}
	return msg
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	payload, err := json.Marshal(h.Message(status, reason))
	if err != nil {
		return err
	}

	return h.publisher.Publish(h.topics.Health(), payload, stateQoS, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
