package parameter

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bcmodular/scopesync-core/internal/scaling"
)

// Value types for a definition.
const (
	ValueTypeContinuous = "continuous"
	ValueTypeDiscrete   = "discrete"
)

// Unmapped is the device group/id sentinel for parameters with no device address.
const Unmapped = -1

// DefaultDeviceMax is the device range maximum used when a definition gives none.
const DefaultDeviceMax = 2147483647

// maxMIDIChannel and maxMIDIController bound the MIDI mapping fields.
const (
	maxMIDIChannel    = 15
	maxMIDIController = 127
)

// Definition is the declarative record a Parameter is built from.
// It is immutable once a Parameter has been constructed from it.
type Definition struct {
	Name             string         `yaml:"name" json:"name"`
	ShortDescription string         `yaml:"short_description,omitempty" json:"short_description,omitempty"`
	FullDescription  string         `yaml:"full_description,omitempty" json:"full_description,omitempty"`
	ScopeCode        string         `yaml:"scope_code,omitempty" json:"scope_code,omitempty"`
	ValueType        string         `yaml:"value_type,omitempty" json:"value_type"`
	ReadOnly         bool           `yaml:"read_only,omitempty" json:"read_only"`
	UI               UIRange        `yaml:"ui" json:"ui"`
	Device           *DeviceMapping `yaml:"device,omitempty" json:"device,omitempty"`
	Settings         Settings       `yaml:"settings,omitempty" json:"settings,omitempty"`
	MIDI             *MIDIMapping   `yaml:"midi,omitempty" json:"midi,omitempty"`
}

// UIRange holds the user-facing range and presentation of a parameter.
type UIRange struct {
	Min      float64 `yaml:"min" json:"min"`
	Max      float64 `yaml:"max" json:"max"`
	Interval float64 `yaml:"interval" json:"interval"`
	Reset    float64 `yaml:"reset" json:"reset"`

	// Skew is the power-law factor; 0 or 1 means linear.
	Skew float64 `yaml:"skew,omitempty" json:"skew,omitempty"`

	// SkewMidpoint, when set, derives Skew so this UI value sits at host 0.5.
	SkewMidpoint float64 `yaml:"skew_midpoint,omitempty" json:"skew_midpoint,omitempty"`

	// SkewUIOnly keeps the skew cosmetic: host values stay unskewed.
	SkewUIOnly bool   `yaml:"skew_ui_only,omitempty" json:"skew_ui_only,omitempty"`
	Suffix     string `yaml:"suffix,omitempty" json:"suffix,omitempty"`
}

// DeviceMapping places a parameter in the device address space.
type DeviceMapping struct {
	Group int `yaml:"group" json:"group"`
	ID    int `yaml:"id" json:"id"`
	Min   int `yaml:"min" json:"min"`
	Max   int `yaml:"max" json:"max"`

	// DBRef selects the dB fader law when non-zero.
	DBRef float64 `yaml:"db_ref,omitempty" json:"db_ref,omitempty"`
}

// MIDIMapping binds a parameter to a MIDI control change.
type MIDIMapping struct {
	Channel    int `yaml:"channel" json:"channel"`
	Controller int `yaml:"controller" json:"controller"`
}

// DefinitionFile is the on-disk layout of a parameter definition file.
type DefinitionFile struct {
	Parameters []Definition `yaml:"parameters"`
}

// IsDiscrete reports whether the definition describes an enumeration. A
// discrete value type without settings is treated as continuous.
func (d Definition) IsDiscrete() bool {
	return d.ValueType == ValueTypeDiscrete && len(d.Settings) > 0
}

// DeviceAddress returns the device group and id, or Unmapped for both.
func (d Definition) DeviceAddress() (group, id int) {
	if d.Device == nil {
		return Unmapped, Unmapped
	}
	return d.Device.Group, d.Device.ID
}

// SkewFactor returns the effective skew factor.
func (d Definition) SkewFactor() float64 {
	if d.UI.SkewMidpoint != 0 {
		return scaling.SkewFactorFromMidpoint(d.UI.Min, d.UI.Max, d.UI.SkewMidpoint)
	}
	if d.UI.Skew == 0 {
		return 1
	}
	return d.UI.Skew
}

// Validate checks a single definition.
func (d Definition) Validate() error {
	errs := d.validate()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(errs, "; "))
	}
	return nil
}

func (d Definition) validate() []string {
	var errs []string

	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, "name is required")
	}

	switch d.ValueType {
	case "", ValueTypeContinuous, ValueTypeDiscrete:
	default:
		errs = append(errs, fmt.Sprintf("%s: unknown value_type %q", d.Name, d.ValueType))
	}

	if d.UI.Min > d.UI.Max {
		errs = append(errs, fmt.Sprintf("%s: ui.min must not exceed ui.max", d.Name))
	}

	if d.UI.Skew < 0 {
		errs = append(errs, fmt.Sprintf("%s: ui.skew must be positive", d.Name))
	}

	if d.Device != nil {
		if (d.Device.Group < 0 && d.Device.Group != Unmapped) || (d.Device.ID < 0 && d.Device.ID != Unmapped) {
			errs = append(errs, fmt.Sprintf("%s: device group/id must be >= 0 or -1", d.Name))
		}
		if d.Device.Min > d.Device.Max {
			errs = append(errs, fmt.Sprintf("%s: device.min must not exceed device.max", d.Name))
		}
		if !fitsInt32(d.Device.Min) || !fitsInt32(d.Device.Max) ||
			(d.Device.Min == d.Device.Max && d.Device.Max == math.MaxInt32) {
			errs = append(errs, fmt.Sprintf("%s: device.min and device.max must fit in 32 bits", d.Name))
		}
	}

	for _, setting := range d.Settings {
		if !fitsInt32(setting.Value) {
			errs = append(errs, fmt.Sprintf("%s: setting %q value must fit in 32 bits", d.Name, setting.Name))
		}
	}

	if d.MIDI != nil {
		if d.MIDI.Channel < 0 || d.MIDI.Channel > maxMIDIChannel {
			errs = append(errs, fmt.Sprintf("%s: midi.channel must be 0-15", d.Name))
		}
		if d.MIDI.Controller < 0 || d.MIDI.Controller > maxMIDIController {
			errs = append(errs, fmt.Sprintf("%s: midi.controller must be 0-127", d.Name))
		}
	}

	return errs
}

// Device values travel as int32.
func fitsInt32(v int) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

// ValidateDefinitions checks every definition and rejects duplicate names.
func ValidateDefinitions(defs []Definition) error {
	var errs []string
	seen := make(map[string]bool, len(defs))

	for i, d := range defs {
		for _, e := range d.validate() {
			errs = append(errs, fmt.Sprintf("parameters[%d]: %s", i, e))
		}
		if d.Name != "" {
			if seen[d.Name] {
				errs = append(errs, fmt.Sprintf("parameters[%d]: %s: %v", i, d.Name, ErrDuplicateName))
			}
			seen[d.Name] = true
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(errs, "; "))
	}
	return nil
}

// LoadDefinitions reads and validates a YAML parameter definition file.
//
// Parameters:
//   - path: Path to the YAML file
//
// Returns:
//   - []Definition: Definitions in declaration order
//   - error: If the file cannot be read, parsed or validated
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition file: %w", err)
	}

	return ParseDefinitions(data)
}

// ParseDefinitions parses and validates YAML definition data.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var file DefinitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing definition file: %w", err)
	}

	if err := ValidateDefinitions(file.Parameters); err != nil {
		return nil, err
	}

	return file.Parameters, nil
}
