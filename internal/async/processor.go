package async

// Frame is one invocation of the device's async callback.
type Frame struct {
	// Values holds one value per slot, in slot order.
	Values []int32

	// EnableScopeInputs is the device's scope input switch (> 0 is on).
	EnableScopeInputs int32

	DeviceInstance int32
	ConfigUID      int32
}

// Output is the reply to a Frame.
type Output struct {
	// Values holds the output slots, see Outputs.
	Values []int32

	// Loaded reports that the service is initialised.
	Loaded bool

	Link LinkState
}

// Processor drives a Bridge and Link from the device callback. It keeps the
// previous-frame snapshot and is not safe for concurrent use.
type Processor struct {
	bridge      *Bridge
	link        *Link
	prev        []int32
	scopeInputs int32
	loaded      func() bool
}

// NewProcessor creates a Processor. loaded reports whether the service is
// ready; nil means always.
func NewProcessor(bridge *Bridge, link *Link, loaded func() bool) *Processor {
	if loaded == nil {
		loaded = func() bool { return true }
	}
	return &Processor{
		bridge: bridge,
		link:   link,
		prev:   make([]int32, NumSlots),
		loaded: loaded,
	}
}

// Process handles one frame. Missing slot values are treated as 0.
//
// The device's scope input switch only overrides the bridge's policy when it
// differs from the previous frame's; the switch starts at 0.
func (p *Processor) Process(f Frame) Output {
	values := make([]int32, NumSlots)
	copy(values, f.Values)

	if f.EnableScopeInputs != p.scopeInputs {
		p.scopeInputs = f.EnableScopeInputs
		p.bridge.SetScopeInputsEnabled(f.EnableScopeInputs > 0)
	}
	p.bridge.HandleUpdate(values, p.prev)

	out := Output{
		Values: Outputs(values),
		Loaded: p.loaded(),
	}
	if p.link != nil {
		out.Link = p.link.Exchange(f.DeviceInstance, f.ConfigUID)
	}
	return out
}
