package parameter

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDefinitions = `
parameters:
  - name: Cutoff
    scope_code: A1
    ui:
      min: 20
      max: 20000
      interval: 1
      reset: 1000
      skew_midpoint: 1000
      suffix: " Hz"
    device:
      group: 1
      id: 1
      min: 0
      max: 2147483647
  - name: Mode
    value_type: discrete
    ui:
      reset: 1
    settings:
      - name: Saw
        value: 0
      - name: Square
        value: 10
      - name: Noise
        value: 20
    midi:
      channel: 0
      controller: 74
`

func TestParseDefinitions(t *testing.T) {
	defs, err := ParseDefinitions([]byte(sampleDefinitions))
	if err != nil {
		t.Fatalf("ParseDefinitions() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}

	cutoff := defs[0]
	if cutoff.IsDiscrete() {
		t.Error("Cutoff should be continuous")
	}
	if g, id := cutoff.DeviceAddress(); g != 1 || id != 1 {
		t.Errorf("DeviceAddress() = %d, %d, want 1, 1", g, id)
	}
	if cutoff.UI.Suffix != " Hz" {
		t.Errorf("Suffix = %q, want %q", cutoff.UI.Suffix, " Hz")
	}

	mode := defs[1]
	if !mode.IsDiscrete() {
		t.Error("Mode should be discrete")
	}
	if mode.MIDI == nil || mode.MIDI.Controller != 74 {
		t.Errorf("MIDI = %+v, want controller 74", mode.MIDI)
	}
	if g, id := mode.DeviceAddress(); g != Unmapped || id != Unmapped {
		t.Errorf("DeviceAddress() = %d, %d, want unmapped", g, id)
	}
}

func TestValidateDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		defs    []Definition
		wantErr string
	}{
		{"valid", []Definition{{Name: "A", UI: UIRange{Max: 1}}}, ""},
		{"missing name", []Definition{{UI: UIRange{Max: 1}}}, "name is required"},
		{"bad value type", []Definition{{Name: "A", ValueType: "stepped"}}, "unknown value_type"},
		{"inverted range", []Definition{{Name: "A", UI: UIRange{Min: 2, Max: 1}}}, "ui.min must not exceed ui.max"},
		{"negative skew", []Definition{{Name: "A", UI: UIRange{Max: 1, Skew: -2}}}, "ui.skew"},
		{"bad device id", []Definition{{Name: "A", Device: &DeviceMapping{Group: 1, ID: -4}}}, "device group/id"},
		{"bad midi", []Definition{{Name: "A", MIDI: &MIDIMapping{Channel: 16}}}, "midi.channel"},
		{"device max beyond int32", []Definition{{Name: "A", Device: &DeviceMapping{Group: 1, ID: 1, Max: math.MaxInt32 + 1}}}, "32 bits"},
		{"device min beyond int32", []Definition{{Name: "A", Device: &DeviceMapping{Group: 1, ID: 1, Min: math.MinInt32 - 1}}}, "32 bits"},
		{"device range at int32 max", []Definition{{Name: "A", Device: &DeviceMapping{Group: 1, ID: 1, Min: math.MaxInt32, Max: math.MaxInt32}}}, "32 bits"},
		{"device full int32 range", []Definition{{Name: "A", Device: &DeviceMapping{Group: 1, ID: 1, Min: math.MinInt32, Max: math.MaxInt32}}}, ""},
		{"setting beyond int32", []Definition{{Name: "A", ValueType: ValueTypeDiscrete, Settings: Settings{{Name: "Huge", Value: math.MaxInt32 + 1}}}}, "32 bits"},
		{"duplicate", []Definition{{Name: "A"}, {Name: "A"}}, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDefinitions(tt.defs)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateDefinitions() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateDefinitions() expected error")
			}
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("error should wrap ErrInvalidDefinition, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefinitionSkewFactor(t *testing.T) {
	if got := (Definition{}).SkewFactor(); got != 1 {
		t.Errorf("SkewFactor() of zero skew = %v, want 1", got)
	}
	if got := (Definition{UI: UIRange{Skew: 0.3}}).SkewFactor(); got != 0.3 {
		t.Errorf("SkewFactor() = %v, want 0.3", got)
	}

	d := Definition{UI: UIRange{Min: 0, Max: 100, SkewMidpoint: 25}}
	want := math.Log(0.5) / math.Log(0.25)
	if got := d.SkewFactor(); math.Abs(got-want) > 1e-12 {
		t.Errorf("SkewFactor() from midpoint = %v, want %v", got, want)
	}
}

func TestLoadDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte(sampleDefinitions), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	defs, err := LoadDefinitions(path)
	if err != nil {
		t.Fatalf("LoadDefinitions() error = %v", err)
	}
	if len(defs) != 2 {
		t.Errorf("len(defs) = %d, want 2", len(defs))
	}

	if _, err := LoadDefinitions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadDefinitions() of missing file should fail")
	}
}
