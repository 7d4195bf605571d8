package registry

import (
	"strconv"

	"github.com/bcmodular/scopesync-core/internal/parameter"
)

// fixedRange is the UI and device range of a fixed Scope parameter.
const fixedRange = 2147483647

// midiChannels is the number of numbered MIDI channel settings before Omni.
const midiChannels = 16

// fixedParameters lists the built-in Scope parameters in device id order,
// with the async scope code each one is exchanged under.
var fixedParameters = []struct {
	name string
	code string
}{
	{"X", "X"},
	{"Y", "Y"},
	{"Show", "show"},
	{"Show Preset Window", "spr"},
	{"Show Patch Window", "spa"},
	{"Mono Effect", "mono"},
	{"BypassEffect", "byp"},
	{"Show Shell Preset Window", "sspr"},
	{"Voice Count", "vc"},
	{"MIDI Channel", "midc"},
	{"Device Type", "type"},
	{"MIDI Activity", "mida"},
}

// fixedDefinitions builds the definitions of the fixed parameters. They live
// in device group 0 with ids starting at 1.
func fixedDefinitions() []parameter.Definition {
	defs := make([]parameter.Definition, 0, len(fixedParameters))

	for i, fp := range fixedParameters {
		def := parameter.Definition{
			Name:             fp.name,
			ShortDescription: fp.name,
			FullDescription:  fp.name,
			ScopeCode:        fp.code,
			ValueType:        parameter.ValueTypeContinuous,
			UI: parameter.UIRange{
				Min:      -fixedRange,
				Max:      fixedRange,
				Interval: 1,
			},
			Device: &parameter.DeviceMapping{
				Group: 0,
				ID:    i + 1,
				Min:   -fixedRange,
				Max:   fixedRange,
			},
		}

		if fp.name == "MIDI Channel" {
			def.ValueType = parameter.ValueTypeDiscrete
			def.UI = parameter.UIRange{Interval: 1}
			def.Device.Min, def.Device.Max = 0, midiChannels
			for ch := 0; ch <= midiChannels; ch++ {
				name := "Omni"
				if ch < midiChannels {
					name = strconv.Itoa(ch + 1)
				}
				def.Settings = append(def.Settings, parameter.Setting{Name: name, Value: ch})
			}
		}

		defs = append(defs, def)
	}

	return defs
}
