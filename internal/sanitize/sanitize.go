// Package sanitize clamps implausible meter values to a safe default.
//
// Two policies exist and must not be mixed up: Counter is applied to raw
// register values and to computed counter differences; ForAverage is applied
// to averaged figures and additionally flushes numeric dust to zero.
package sanitize

import "math"

// MaxMagnitude is the largest absolute value accepted from a meter register.
// Anything beyond it is a transient gateway fault, not a reading.
const MaxMagnitude = 1e12

// epsilon below which an averaged value is considered zero.
const epsilon = 1e-6

// Counter returns x unchanged unless it is non-finite or beyond
// MaxMagnitude, in which case it returns 0. It never fails.
func Counter(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	if math.Abs(x) > MaxMagnitude {
		return 0
	}
	return x
}

// CounterPtr applies Counter to a possibly missing value. A nil pointer is
// the "no data" sentinel and contributes 0.
func CounterPtr(x *float64) float64 {
	if x == nil {
		return 0
	}
	return Counter(*x)
}

// ForAverage is the averaging-path policy: like Counter, but magnitudes
// below 1e-6 also collapse to 0 so rounding residue does not surface as
// consumption.
func ForAverage(x float64) float64 {
	x = Counter(x)
	if math.Abs(x) < epsilon {
		return 0
	}
	return x
}

// ClampDelta sanitizes a counter difference and clamps it to >= 0. A
// negative difference means the register reset; it contributes nothing.
func ClampDelta(d float64) float64 {
	d = Counter(d)
	if d < 0 {
		return 0
	}
	return d
}
