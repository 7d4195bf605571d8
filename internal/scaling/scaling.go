package scaling

import "math"

// dbPerDecade converts a base-10 amplitude ratio to decibels.
const dbPerDecade = 20.0

// LinearScale maps value from [srcMin, srcMax] onto [dstMin, dstMax].
//
// Values at or beyond the source bounds return the matching destination
// bound exactly, so callers never see an extrapolated result. srcMin must
// differ from srcMax.
//
// Parameters:
//   - srcMin, srcMax: Source range (srcMin < srcMax)
//   - dstMin, dstMax: Destination range (may be inverted)
//   - value: Value in source units
//
// Returns:
//   - float64: Value in destination units
func LinearScale(srcMin, srcMax, dstMin, dstMax, value float64) float64 {
	if value <= srcMin {
		return dstMin
	}
	if value >= srcMax {
		return dstMax
	}
	return dstMin + (dstMax-dstMin)*(value-srcMin)/(srcMax-srcMin)
}

// Skew applies a power-law warp to value within [min, max].
//
// The forward direction raises the normalised value to skewFactor. The
// inverse direction (invert=true) applies exp(log(n)/skewFactor), which undoes
// the forward warp. A skewFactor of exactly 1 is a no-op. Normalised values at
// or below zero cannot be inverted and are returned as min.
func Skew(value, skewFactor, min, max float64, invert bool) float64 {
	if skewFactor == 1 || max == min {
		return value
	}

	n := (value - min) / (max - min)
	if n <= 0 {
		return min
	}
	if n >= 1 {
		return max
	}

	if invert {
		n = math.Exp(math.Log(n) / skewFactor)
	} else {
		n = math.Pow(n, skewFactor)
	}

	return min + n*(max-min)
}

// DBSkew converts a linear-normalised value to or from a dB-referenced curve.
//
// Forward (invert=false): value is a linear gain relative to ref. Gains above
// the floor ref*10^(uiMin/20) are converted to dB and scaled into [0, 1] using
// [uiMin, uiMax]; anything at or below the floor returns the floor itself.
//
// Inverse (invert=true): value in [0, 1] is mapped onto [uiMin, uiMax] dB.
// Interior dB values return ref*10^(dB/20); values at or outside the range
// clamp to 1 when non-negative and 0 otherwise.
func DBSkew(value, ref, uiMin, uiMax float64, invert bool) float64 {
	if !invert {
		floor := ref * math.Pow(10, uiMin/dbPerDecade)
		if value > floor {
			return LinearScale(uiMin, uiMax, 0, 1, dbPerDecade*math.Log10(value/ref))
		}
		return floor
	}

	db := LinearScale(0, 1, uiMin, uiMax, value)
	if db > uiMin && db < uiMax {
		return ref * math.Pow(10, db/dbPerDecade)
	}
	if db >= 0 {
		return 1
	}
	return 0
}

// SkewFactorFromMidpoint returns the skew factor that places mid at the
// normalised position 0.5 of [min, max]. It returns 1 when mid lies outside
// the open range.
func SkewFactorFromMidpoint(min, max, mid float64) float64 {
	if max <= min || mid <= min || mid >= max {
		return 1
	}
	return math.Log(0.5) / math.Log((mid-min)/(max-min))
}
