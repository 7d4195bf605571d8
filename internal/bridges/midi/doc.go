// Package midi feeds MIDI control change messages into parameters.
//
// A parameter opts in with a midi mapping in its definition:
//
//	- name: Cutoff
//	  midi: {channel: 0, controller: 74}
//
// A CC value v on that channel and controller is applied as the
// linear-normalised value v/127 from the midi update source. Several
// parameters may share one controller.
//
// The input port is opened through gomidi; the binary must import a driver
// (rtmididrv) for ports to be found.
package midi
