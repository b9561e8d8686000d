// SPDX-License-Identifier: GPL-3.0-only

// Package display abstracts the backlight the daemon controls.
package display

//go:generate mockgen -source=display.go -destination=mocks/display_mock.go -package=mocks

import "errors"

// ErrDisplay is wrapped by every error caused by a failed display query or
// update, or by a missing brightness capability at startup.
var ErrDisplay = errors.New("display error")

// Display is a backlight with an integer brightness range of 0..MaxBrightness.
type Display interface {
	// MaxBrightness returns the highest accepted brightness value.
	MaxBrightness() int

	// CurrentBrightness queries the brightness currently applied.
	CurrentBrightness() (int, error)

	// SetBrightness applies a new brightness value.
	SetBrightness(value int) error

	// Close releases the underlying connection or device handle.
	Close() error
}
