package display

import (
	"fmt"

	"github.com/shini4i/ambient-brightness-daemon/internal/brightness"
	"github.com/shini4i/ambient-brightness-daemon/internal/hid"
)

// HIDDisplay exposes an Apple Studio Display as a 0..100 backlight. Writes are
// clamped to that range before conversion to nits.
type HIDDisplay struct {
	display *hid.Display
}

var _ Display = (*HIDDisplay)(nil)

// NewHIDDisplay wraps an opened Studio Display.
func NewHIDDisplay(d *hid.Display) *HIDDisplay {
	return &HIDDisplay{display: d}
}

// OpenHID locates and opens the Studio Display with the given serial, or the
// only connected one when serial is empty.
func OpenHID(locator *hid.Locator, serial string) (*HIDDisplay, error) {
	d, err := locator.Open(serial)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDisplay, err)
	}
	return NewHIDDisplay(d), nil
}

// Serial returns the serial number of the controlled display.
func (h *HIDDisplay) Serial() string {
	return h.display.Serial()
}

func (h *HIDDisplay) MaxBrightness() int {
	return brightness.MaxPercent
}

func (h *HIDDisplay) CurrentBrightness() (int, error) {
	nits, err := h.display.ReadNits()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to query current brightness: %w", ErrDisplay, err)
	}
	return brightness.NitsToPercent(nits), nil
}

func (h *HIDDisplay) SetBrightness(value int) error {
	value = max(0, min(value, brightness.MaxPercent))
	if err := h.display.WriteNits(brightness.PercentToNits(value)); err != nil {
		return fmt.Errorf("%w: failed to set brightness: %w", ErrDisplay, err)
	}
	return nil
}

func (h *HIDDisplay) Close() error {
	return h.display.Close()
}
