package parameter

// Source identifies where a value update originated.
type Source int

// Update sources. SourceNone is only used as the idle state of the
// update-source block.
const (
	SourceInternal Source = iota
	SourceHost
	SourceGUI
	SourceOSC
	SourceMIDI
	SourceDevice
	SourceNone
)

var sourceNames = map[Source]string{
	SourceInternal: "internal",
	SourceHost:     "host",
	SourceGUI:      "gui",
	SourceOSC:      "osc",
	SourceMIDI:     "midi",
	SourceDevice:   "device",
	SourceNone:     "none",
}

// String returns the lower-case source name.
func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSource returns the Source with the given name.
func ParseSource(name string) (Source, bool) {
	for s, n := range sourceNames {
		if n == name {
			return s, true
		}
	}
	return SourceNone, false
}
