// SPDX-License-Identifier: GPL-3.0-only

// Package brightness maps ambient light to backlight levels and converts between
// the units used by the supported displays.
package brightness

import "math"

const (
	// DefaultMinBrightness is the floor applied to computed targets so the
	// display never goes fully dark.
	DefaultMinBrightness = 7

	// curveGain stretches the low end of the ambient range before the logarithm.
	curveGain = 100
)

// DesiredBrightness maps a normalized ambient reading (0..1) to a brightness value
// in the range 0..maxBrightness using a logarithmic curve:
//
//	round(maxBrightness * ln(1 + 100*ambient) / ln(101))
//
// An ambient value of 0 yields 0 and a value of 1 yields maxBrightness.
// The result is not clamped; see ClampMin.
func DesiredBrightness(maxBrightness int, ambient float64) int {
	scale := math.Log1p(curveGain*ambient) / math.Log1p(curveGain)
	return int(math.Round(float64(maxBrightness) * scale))
}

// ClampMin raises value to floor if it is below it.
func ClampMin(value, floor int) int {
	if value < floor {
		return floor
	}
	return value
}
