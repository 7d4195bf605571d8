package parameter

import (
	"fmt"
	"strings"
)

// MappingType selects how a button press moves a discrete parameter.
type MappingType string

// Button mapping types.
const (
	MappingNoToggle MappingType = "notoggle"
	MappingToggle   MappingType = "toggle"
	MappingSet      MappingType = "set"
	MappingInc      MappingType = "inc"
	MappingIncWrap  MappingType = "incwrap"
	MappingDec      MappingType = "dec"
	MappingDecWrap  MappingType = "decwrap"
)

// ButtonMapping binds a button to a discrete parameter.
type ButtonMapping struct {
	Type MappingType `json:"type" yaml:"type"`

	// SettingDown is the setting name selected on press (toggle, set, notoggle).
	SettingDown string `json:"setting_down,omitempty" yaml:"setting_down,omitempty"`

	// SettingUp is the setting name toggled back to.
	SettingUp string `json:"setting_up,omitempty" yaml:"setting_up,omitempty"`
}

// ParseMappingType parses a mapping type name, ignoring case.
func ParseMappingType(s string) (MappingType, error) {
	t := MappingType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case MappingNoToggle, MappingToggle, MappingSet, MappingInc, MappingIncWrap, MappingDec, MappingDecWrap:
		return t, nil
	}
	return "", fmt.Errorf("unknown button mapping type %q", s)
}

// Next returns the setting index a press moves to from current. ok is false
// when the mapping names a setting that does not exist or the table is empty.
func (m ButtonMapping) Next(settings Settings, current int) (next int, ok bool) {
	maxIdx := settings.MaxIndex()
	if maxIdx < 0 {
		return 0, false
	}

	switch m.Type {
	case MappingInc:
		if current >= maxIdx {
			return maxIdx, true
		}
		return current + 1, true

	case MappingIncWrap:
		if current >= maxIdx {
			return 0, true
		}
		return current + 1, true

	case MappingDec:
		if current <= 0 {
			return 0, true
		}
		return current - 1, true

	case MappingDecWrap:
		if current <= 0 {
			return maxIdx, true
		}
		return current - 1, true

	case MappingToggle:
		down := settings.IndexOf(m.SettingDown)
		up := settings.IndexOf(m.SettingUp)
		if down < 0 || up < 0 {
			return 0, false
		}
		if current == down {
			return up, true
		}
		return down, true

	case MappingNoToggle, MappingSet:
		down := settings.IndexOf(m.SettingDown)
		if down < 0 {
			return 0, false
		}
		return down, true
	}

	return 0, false
}
