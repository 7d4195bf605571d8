// Package scaling provides the numeric transforms shared by every parameter
// coordinate system: linear range scaling, power-law skew and the dB-referenced
// fader law used by DSP devices.
//
// All functions are pure and safe for concurrent use.
//
// Usage:
//
//	ln := scaling.LinearScale(20, 20000, 0, 1, 1000)
//	host := scaling.Skew(ln, 0.2297, 0, 1, false)
package scaling
