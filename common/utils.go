package common

import "math"

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Clamp restricts v to the closed range [lo, hi].
func Clamp[T ~int | ~int64 | ~float32 | ~float64](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Percent converts a loaded/total pair into a percentage in [0, 100].
// A non-positive total reports 0 so an unknown length never looks finished.
//
// Parameters:
//   - loaded: units processed so far
//   - total: total units expected
//
// Returns:
//   - float64: the clamped percentage
func Percent(loaded, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(loaded) / float64(total) * 100
	if math.IsNaN(p) {
		return 0
	}
	return Clamp(p, 0, 100)
}
