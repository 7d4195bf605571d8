package async

import (
	"fmt"
	"strconv"
)

// Slot layout of a device frame.
const (
	// slotsPerBank is the number of codes in each lettered bank (A..P x 1..8).
	slotsPerBank = 128

	// codesPerLetter is the number of numbered codes per letter.
	codesPerLetter = 8

	// paramsPerGroup is the number of device ids in one device group.
	paramsPerGroup = 16

	ScopeBase          = 0
	LocalBase          = ScopeBase + slotsPerBank
	FeedbackBase       = LocalBase + slotsPerBank
	FixedBiDirBase     = FeedbackBase + slotsPerBank
	FixedInputOnlyBase = FixedBiDirBase + len(fixedBiDirCodes)
	NumSlots           = FixedInputOnlyBase + len(fixedInputOnlyCodes)
)

// Fixed slots.
const (
	SlotX = FixedBiDirBase + iota
	SlotY
	SlotShow
	SlotConfig
	SlotOSC
	SlotShowPresetWindow
	SlotShowPatchWindow
	SlotMono
	SlotBypass
	SlotShowShellPresetWindow
	SlotVoiceCount
	SlotMIDIChannel
	SlotDeviceType
	SlotMIDIActivity
)

var (
	fixedBiDirCodes     = [...]string{"X", "Y", "show", "cfg", "osc", "spr", "spa", "mono", "byp", "sspr", "vc", "midc"}
	fixedInputOnlyCodes = [...]string{"type", "mida"}
)

// SlotType classifies a frame slot.
type SlotType int

// Slot types.
const (
	SlotTypeScope SlotType = iota
	SlotTypeLocal
	SlotTypeFeedback
	SlotTypeFixedBiDir
	SlotTypeFixedInputOnly
)

// String returns the slot type name.
func (t SlotType) String() string {
	switch t {
	case SlotTypeScope:
		return "scope"
	case SlotTypeLocal:
		return "local"
	case SlotTypeFeedback:
		return "feedback"
	case SlotTypeFixedBiDir:
		return "fixedBiDir"
	case SlotTypeFixedInputOnly:
		return "fixedInputOnly"
	}
	return "unknown"
}

var (
	codes       [NumSlots]string
	codeToIndex = make(map[string]int, NumSlots)
)

func init() {
	i := 0
	for _, prefix := range []string{"", "L", "F"} {
		for letter := 'A'; letter <= 'P'; letter++ {
			for n := 1; n <= codesPerLetter; n++ {
				codes[i] = prefix + string(letter) + strconv.Itoa(n)
				i++
			}
		}
	}
	for _, c := range fixedBiDirCodes {
		codes[i] = c
		i++
	}
	for _, c := range fixedInputOnlyCodes {
		codes[i] = c
		i++
	}

	for idx, c := range codes {
		codeToIndex[c] = idx
	}
}

// Code returns the scope code of a slot, or "" for an invalid slot.
func Code(slot int) string {
	if !validSlot(slot) {
		return ""
	}
	return codes[slot]
}

// CodeIndex returns the slot for a scope code.
func CodeIndex(code string) (int, error) {
	idx, ok := codeToIndex[code]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownCode, code)
	}
	return idx, nil
}

// TypeOf returns the slot type of a valid slot.
func TypeOf(slot int) SlotType {
	switch {
	case slot < LocalBase:
		return SlotTypeScope
	case slot < FeedbackBase:
		return SlotTypeLocal
	case slot < FixedBiDirBase:
		return SlotTypeFeedback
	case slot < FixedInputOnlyBase:
		return SlotTypeFixedBiDir
	default:
		return SlotTypeFixedInputOnly
	}
}

// IsOutput reports whether a slot is written back to the device.
func IsOutput(slot int) bool {
	t := TypeOf(slot)
	return t != SlotTypeFeedback && t != SlotTypeFixedInputOnly
}

// DeviceAddress returns the device group and id a scope slot (A1..P8) maps
// to. Groups start at 1 and hold 16 ids each.
func DeviceAddress(slot int) (group, id int, ok bool) {
	if slot < ScopeBase || slot >= LocalBase {
		return 0, 0, false
	}
	n := slot - ScopeBase
	return 1 + n/paramsPerGroup, n%paramsPerGroup + 1, true
}

// SlotForDeviceAddress is the inverse of DeviceAddress.
func SlotForDeviceAddress(group, id int) (int, bool) {
	if group < 1 || id < 1 || id > paramsPerGroup {
		return -1, false
	}
	slot := ScopeBase + (group-1)*paramsPerGroup + (id - 1)
	if slot >= LocalBase {
		return -1, false
	}
	return slot, true
}

func validSlot(slot int) bool {
	return slot >= 0 && slot < NumSlots
}
