// SPDX-License-Identifier: GPL-3.0-only

package brightness

import "math"

// Apple Studio Display brightness limits in nits.
const (
	MinNits uint32 = 400
	MaxNits uint32 = 60000

	nitsRange = MaxNits - MinNits
)

// MaxPercent is the top of the percentage scale exposed for nit-based displays.
const MaxPercent = 100

// NitsToPercent converts a nit value reported by the display into 0..100.
// Out-of-range values are clamped first.
func NitsToPercent(nits uint32) int {
	nits = ClampNits(nits)
	return int(math.Round(float64(nits-MinNits) / float64(nitsRange) * MaxPercent))
}

// PercentToNits converts 0..100 into the nit value sent to the display.
// Negative percentages map to MinNits and values above 100 map to MaxNits.
func PercentToNits(percent int) uint32 {
	percent = max(0, min(percent, MaxPercent))
	return MinNits + uint32(float64(percent)*float64(nitsRange)/MaxPercent)
}

// ClampNits keeps nits within the display's supported range.
func ClampNits(nits uint32) uint32 {
	return max(MinNits, min(nits, MaxNits))
}
