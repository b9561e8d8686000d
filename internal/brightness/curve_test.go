package brightness_test

import (
	"testing"

	"github.com/shini4i/ambient-brightness-daemon/internal/brightness"
	"github.com/stretchr/testify/assert"
)

func TestDesiredBrightness(t *testing.T) {
	tests := []struct {
		name          string
		maxBrightness int
		ambient       float64
		expected      int
	}{
		{
			name:          "darkness yields zero",
			maxBrightness: 255,
			ambient:       0,
			expected:      0,
		},
		{
			name:          "full ambient yields max",
			maxBrightness: 255,
			ambient:       1,
			expected:      255,
		},
		{
			name:          "half ambient on 255 scale",
			maxBrightness: 255,
			ambient:       0.5,
			expected:      217,
		},
		{
			name:          "tenth ambient on 255 scale",
			maxBrightness: 255,
			ambient:       0.1,
			expected:      132,
		},
		{
			name:          "single sensor unit on 255 scale",
			maxBrightness: 255,
			ambient:       1.0 / 255,
			expected:      18,
		},
		{
			name:          "percent scale",
			maxBrightness: 100,
			ambient:       0.2,
			expected:      66,
		},
		{
			name:          "rounds to nearest",
			maxBrightness: 1000,
			ambient:       0.25,
			expected:      706,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, brightness.DesiredBrightness(tt.maxBrightness, tt.ambient))
		})
	}
}

func TestDesiredBrightness_Endpoints(t *testing.T) {
	for _, maxBrightness := range []int{1, 7, 100, 255, 937, 4882, 120000} {
		assert.Equal(t, 0, brightness.DesiredBrightness(maxBrightness, 0), "max %d", maxBrightness)
		assert.Equal(t, maxBrightness, brightness.DesiredBrightness(maxBrightness, 1), "max %d", maxBrightness)
	}
}

func TestDesiredBrightness_Monotonic(t *testing.T) {
	for _, maxBrightness := range []int{100, 255, 4882} {
		prev := brightness.DesiredBrightness(maxBrightness, 0)
		for i := 1; i <= 1000; i++ {
			ambient := float64(i) / 1000
			got := brightness.DesiredBrightness(maxBrightness, ambient)
			assert.GreaterOrEqual(t, got, prev, "max %d ambient %.3f", maxBrightness, ambient)
			prev = got
		}
	}
}

func TestClampMin(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		floor    int
		expected int
	}{
		{name: "below floor is raised", value: 0, floor: 7, expected: 7},
		{name: "at floor is unchanged", value: 7, floor: 7, expected: 7},
		{name: "above floor is unchanged", value: 200, floor: 7, expected: 200},
		{name: "zero floor", value: 0, floor: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, brightness.ClampMin(tt.value, tt.floor))
		})
	}
}
