// Package hid drives the brightness of an Apple Studio Display over USB HID.
package hid

//go:generate mockgen -source=device.go -destination=mocks/device_mock.go -package=mocks

// DeviceInfo describes an enumerated HID interface.
type DeviceInfo struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Serial       string
	Manufacturer string
	Product      string
	Interface    int
}

// Device is the subset of a HID handle used for brightness reports.
type Device interface {
	// GetFeatureReport reads a feature report; data[0] holds the report ID.
	GetFeatureReport(data []byte) (int, error)

	// SendFeatureReport writes a feature report; data[0] holds the report ID.
	SendFeatureReport(data []byte) (int, error)

	// Close closes the device handle.
	Close() error

	// Info returns the enumeration data of the device.
	Info() DeviceInfo
}
