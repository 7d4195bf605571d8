package control

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bcmodular/scopesync-core/internal/parameter"
)

// CommandMessage is a parameter write received on {prefix}/command/{name}.
// Exactly one of UIValue, HostValue or Button should be set; when several
// are present UIValue wins, then HostValue.
type CommandMessage struct {
	// ID correlates the command in logs. Generated when absent.
	ID string `json:"id,omitempty"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp,omitempty"`

	// UIValue sets the parameter in UI units.
	UIValue *float64 `json:"ui_value,omitempty"`

	// HostValue sets the parameter in host units [0, 1].
	HostValue *float64 `json:"host_value,omitempty"`

	// Button applies a discrete button mapping.
	Button *parameter.ButtonMapping `json:"button,omitempty"`

	// Source names the sender, e.g. "panel" or "automation".
	Source string `json:"source,omitempty"`
}

// ParseCommand decodes and validates a command payload.
func ParseCommand(payload []byte) (CommandMessage, error) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return CommandMessage{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if cmd.UIValue == nil && cmd.HostValue == nil && cmd.Button == nil {
		return CommandMessage{}, fmt.Errorf("%w: one of ui_value, host_value or button is required", ErrInvalidCommand)
	}
	if cmd.Button != nil {
		t, err := parameter.ParseMappingType(string(cmd.Button.Type))
		if err != nil {
			return CommandMessage{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		cmd.Button.Type = t
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = time.Now().UTC()
	}
	return cmd, nil
}

// Apply writes the command to p. It reports whether the write was accepted.
func (c CommandMessage) Apply(p *parameter.Parameter) bool {
	switch {
	case c.UIValue != nil:
		return p.SetUIValue(*c.UIValue)
	case c.HostValue != nil:
		return p.SetHostValue(*c.HostValue)
	case c.Button != nil:
		return p.ApplyButton(*c.Button)
	}
	return false
}

// StateMessage is published retained on {prefix}/state/{name} after every
// accepted write.
type StateMessage struct {
	Name        string    `json:"name"`
	Timestamp   time.Time `json:"timestamp"`
	HostIdx     int       `json:"host_idx"`
	UIValue     float64   `json:"ui_value"`
	HostValue   float64   `json:"host_value"`
	DeviceValue int       `json:"device_value"`
	Text        string    `json:"text"`
	Source      string    `json:"source"`
}

// NewStateMessage builds a state message from a parameter change.
func NewStateMessage(c parameter.Change) StateMessage {
	ts := c.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return StateMessage{
		Name:        c.Name,
		Timestamp:   ts.UTC(),
		HostIdx:     c.HostIdx,
		UIValue:     c.UIValue,
		HostValue:   c.HostValue,
		DeviceValue: c.DeviceValue,
		Text:        c.Text,
		Source:      c.SourceName,
	}
}

// HealthStatus represents the service health state.
type HealthStatus string

const (
	// HealthStarting is published while the service is initialising.
	HealthStarting HealthStatus = "starting"

	// HealthHealthy means every transport is up.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded means a transport is down but the service still runs.
	HealthDegraded HealthStatus = "degraded"

	// HealthStopping is published during graceful shutdown.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published retained on {prefix}/health.
type HealthMessage struct {
	InstanceID    string       `json:"instance_id"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Reason        string       `json:"reason,omitempty"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Mode          string       `json:"mode,omitempty"`
	Session       int          `json:"session"`
	Parameters    int          `json:"parameters"`
}
