package control

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bcmodular/scopesync-core/internal/parameter"
)

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"ui_value": 12.5, "source": "panel"}`))
	if err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if cmd.UIValue == nil || *cmd.UIValue != 12.5 {
		t.Errorf("UIValue = %v, want 12.5", cmd.UIValue)
	}
	if _, err := uuid.Parse(cmd.ID); err != nil {
		t.Errorf("generated ID %q is not a UUID: %v", cmd.ID, err)
	}
	if cmd.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}

	cmd, err = ParseCommand([]byte(`{"id": "abc", "timestamp": "2026-10-17T09:00:00Z", "button": {"type": "Toggle", "setting_down": "On"}}`))
	if err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if cmd.ID != "abc" || !cmd.Timestamp.Equal(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("ID/Timestamp not preserved: %+v", cmd)
	}
	if cmd.Button.Type != parameter.MappingToggle {
		t.Errorf("Button.Type = %q, want toggle", cmd.Button.Type)
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, payload := range []string{``, `[]`, `{}`, `{"button": {"type": ""}}`} {
		if _, err := ParseCommand([]byte(payload)); !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("ParseCommand(%q) error = %v, want ErrInvalidCommand", payload, err)
		}
	}
}

func TestNewStateMessage(t *testing.T) {
	at := time.Date(2026, 10, 17, 11, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	msg := NewStateMessage(parameter.Change{
		Name:        "Cutoff",
		HostIdx:     4,
		UIValue:     25,
		HostValue:   0.25,
		DeviceValue: 25,
		Text:        "25",
		SourceName:  "midi",
		Time:        at,
	})

	if msg.Timestamp.Location() != time.UTC || !msg.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v in UTC", msg.Timestamp, at)
	}
	if msg.Name != "Cutoff" || msg.HostIdx != 4 || msg.DeviceValue != 25 || msg.Source != "midi" {
		t.Errorf("message = %+v", msg)
	}
}
