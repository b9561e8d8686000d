package hid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/shini4i/ambient-brightness-daemon/internal/brightness"
)

const (
	// ReportID is the HID report ID for brightness control.
	ReportID byte = 0x01

	// ReportSize is the size of the brightness feature report in bytes.
	ReportSize = 7

	// AppleVendorID is the USB vendor ID for Apple.
	AppleVendorID uint16 = 0x05ac

	// StudioDisplayProductID is the USB product ID for Apple Studio Display.
	StudioDisplayProductID uint16 = 0x1114

	// BrightnessInterface is the USB interface number carrying brightness reports.
	BrightnessInterface = 0x07
)

// ErrDisplayClosed is returned when an operation is attempted on a closed display.
var ErrDisplayClosed = errors.New("display is closed")

// Display exchanges brightness feature reports with one Studio Display.
// Brightness is expressed in nits; conversion to a backlight scale is left
// to the caller. Methods are safe for concurrent use.
type Display struct {
	device Device
	mu     sync.Mutex
	closed bool
}

// NewDisplay wraps an opened HID device.
func NewDisplay(device Device) *Display {
	return &Display{device: device}
}

// report is a brightness feature report: the report ID followed by a
// little-endian uint32 nit value and two reserved bytes.
type report [ReportSize]byte

func newReport(nits uint32) *report {
	var r report
	r[0] = ReportID
	binary.LittleEndian.PutUint32(r[1:5], nits)
	return &r
}

func (r *report) nits() uint32 {
	return binary.LittleEndian.Uint32(r[1:5])
}

// ReadNits queries the brightness currently applied by the display.
func (d *Display) ReadNits() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrDisplayClosed
	}

	r := newReport(0)
	if _, err := d.device.GetFeatureReport(r[:]); err != nil {
		return 0, fmt.Errorf("failed to get feature report: %w", err)
	}
	return r.nits(), nil
}

// WriteNits applies nits, clamped to the range the panel supports.
func (d *Display) WriteNits(nits uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDisplayClosed
	}

	r := newReport(brightness.ClampNits(nits))
	if _, err := d.device.SendFeatureReport(r[:]); err != nil {
		return fmt.Errorf("failed to send feature report: %w", err)
	}
	return nil
}

// Serial returns the serial number of the display.
func (d *Display) Serial() string {
	return d.device.Info().Serial
}

// Close closes the underlying HID device. Closing twice is a no-op.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.device.Close()
}
