package scaling

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// ─── LinearScale ────────────────────────────────────────────────────

func TestLinearScale(t *testing.T) {
	tests := []struct {
		name                           string
		srcMin, srcMax, dstMin, dstMax float64
		value                          float64
		want                           float64
	}{
		{"midpoint", 0, 1, 0, 100, 0.5, 50},
		{"below min clamps", 0, 1, 20, 20000, -0.5, 20},
		{"at min", 0, 1, 20, 20000, 0, 20},
		{"above max clamps", 0, 1, 20, 20000, 1.5, 20000},
		{"at max", 0, 1, 20, 20000, 1, 20000},
		{"inverted destination", 0, 10, 1, 0, 2.5, 0.75},
		{"device range", 0, 1, 0, 127, 0.25, 31.75},
		{"negative source", -60, 12, 0, 1, -24, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LinearScale(tt.srcMin, tt.srcMax, tt.dstMin, tt.dstMax, tt.value)
			if !almostEqual(got, tt.want, tolerance) {
				t.Errorf("LinearScale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLinearScaleRoundTrip(t *testing.T) {
	srcMin, srcMax := 20.0, 20000.0
	dstMin, dstMax := 0.0, 1.0

	for v := srcMin + 1; v < srcMax; v += 997 {
		there := LinearScale(srcMin, srcMax, dstMin, dstMax, v)
		back := LinearScale(dstMin, dstMax, srcMin, srcMax, there)
		if !almostEqual(back, v, 1e-6) {
			t.Errorf("round trip of %v = %v", v, back)
		}
	}
}

// ─── Skew ───────────────────────────────────────────────────────────

func TestSkewIdentity(t *testing.T) {
	for _, v := range []float64{0, 0.1, 0.5, 0.99, 1} {
		if got := Skew(v, 1, 0, 1, false); got != v {
			t.Errorf("Skew(%v, 1) = %v, want unchanged", v, got)
		}
		if got := Skew(v, 1, 0, 1, true); got != v {
			t.Errorf("Skew(%v, 1, invert) = %v, want unchanged", v, got)
		}
	}
}

func TestSkewForward(t *testing.T) {
	got := Skew(0.25, 0.5, 0, 1, false)
	if !almostEqual(got, 0.5, tolerance) {
		t.Errorf("Skew(0.25, 0.5) = %v, want 0.5", got)
	}

	got = Skew(5, 2, 0, 10, false)
	if !almostEqual(got, 2.5, tolerance) {
		t.Errorf("Skew(5, 2, 0, 10) = %v, want 2.5", got)
	}
}

func TestSkewInvertibility(t *testing.T) {
	factors := []float64{0.2297, 0.5, 2, 3.7}
	ranges := []struct{ min, max float64 }{
		{0, 1},
		{20, 20000},
		{-12, 12},
	}

	for _, f := range factors {
		for _, r := range ranges {
			for i := 1; i < 10; i++ {
				v := r.min + (r.max-r.min)*float64(i)/10
				warped := Skew(v, f, r.min, r.max, false)
				back := Skew(warped, f, r.min, r.max, true)
				if !almostEqual(back, v, 1e-6*(r.max-r.min)) {
					t.Errorf("Skew round trip f=%v range=%v v=%v: got %v", f, r, v, back)
				}
			}
		}
	}
}

func TestSkewEdges(t *testing.T) {
	if got := Skew(0, 0.5, 0, 1, true); got != 0 {
		t.Errorf("Skew(0, invert) = %v, want 0", got)
	}
	if got := Skew(1, 0.5, 0, 1, true); got != 1 {
		t.Errorf("Skew(1, invert) = %v, want 1", got)
	}
	if got := Skew(-3, 0.5, 0, 1, false); got != 0 {
		t.Errorf("Skew(-3) = %v, want 0", got)
	}
}

func TestSkewFactorFromMidpoint(t *testing.T) {
	f := SkewFactorFromMidpoint(20, 20000, 1000)
	ln := LinearScale(20, 20000, 0, 1, 1000)
	if got := Skew(ln, f, 0, 1, false); !almostEqual(got, 0.5, 1e-9) {
		t.Errorf("midpoint warp = %v, want 0.5", got)
	}

	if got := SkewFactorFromMidpoint(0, 1, 2); got != 1 {
		t.Errorf("SkewFactorFromMidpoint(out of range) = %v, want 1", got)
	}
}

// ─── DBSkew ─────────────────────────────────────────────────────────

func TestDBSkewForward(t *testing.T) {
	ref := 1.0
	uiMin, uiMax := -60.0, 0.0

	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"unity gain is top of range", 1, 1},
		{"-30 dB is middle", math.Pow(10, -30.0/20), 0.5},
		{"-6 dB", math.Pow(10, -6.0/20), 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DBSkew(tt.value, ref, uiMin, uiMax, false)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("DBSkew() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDBSkewForwardFloor(t *testing.T) {
	ref := 0.5
	floor := ref * math.Pow(10, -60.0/20)

	for _, v := range []float64{0, floor / 2, floor} {
		if got := DBSkew(v, ref, -60, 0, false); got != floor {
			t.Errorf("DBSkew(%v) = %v, want floor %v", v, got, floor)
		}
	}
}

func TestDBSkewInverse(t *testing.T) {
	ref := 1.0

	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"bottom clamps to zero", 0, 0},
		{"top of negative range clamps to one", 1, 1},
		{"middle", 0.5, math.Pow(10, -30.0/20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DBSkew(tt.value, ref, -60, 0, true)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("DBSkew(invert) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDBSkewInverseRoundTrip(t *testing.T) {
	ref := 1.0
	for _, n := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
		gain := DBSkew(n, ref, -60, 0, true)
		back := DBSkew(gain, ref, -60, 0, false)
		if !almostEqual(back, n, 1e-9) {
			t.Errorf("DBSkew round trip %v = %v", n, back)
		}
	}
}
