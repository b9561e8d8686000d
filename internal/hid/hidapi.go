package hid

import (
	"fmt"

	karalabehid "github.com/karalabe/hid"
)

// hidapiDevice adapts a karalabe/hid handle to Device.
type hidapiDevice struct {
	device karalabehid.Device
	info   DeviceInfo
}

var _ Device = (*hidapiDevice)(nil)

func (d *hidapiDevice) GetFeatureReport(data []byte) (int, error) {
	return d.device.GetFeatureReport(data)
}

func (d *hidapiDevice) SendFeatureReport(data []byte) (int, error) {
	return d.device.SendFeatureReport(data)
}

func (d *hidapiDevice) Close() error {
	return d.device.Close()
}

func (d *hidapiDevice) Info() DeviceInfo {
	return d.info
}

func toDeviceInfo(info karalabehid.DeviceInfo) DeviceInfo {
	return DeviceInfo{
		Path:         info.Path,
		VendorID:     info.VendorID,
		ProductID:    info.ProductID,
		Serial:       info.Serial,
		Manufacturer: info.Manufacturer,
		Product:      info.Product,
		Interface:    info.Interface,
	}
}

// EnumerateDisplays lists the brightness interfaces of all connected Studio Displays.
func EnumerateDisplays() ([]DeviceInfo, error) {
	devices, err := karalabehid.Enumerate(AppleVendorID, StudioDisplayProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate HID devices: %w", err)
	}

	var displays []DeviceInfo
	for _, device := range devices {
		if device.Interface == BrightnessInterface {
			displays = append(displays, toDeviceInfo(device))
		}
	}
	return displays, nil
}

// OpenDevice opens the brightness interface of the display with the given serial.
func OpenDevice(serial string) (Device, error) {
	devices, err := karalabehid.Enumerate(AppleVendorID, StudioDisplayProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate HID devices: %w", err)
	}

	for _, info := range devices {
		if info.Interface != BrightnessInterface || info.Serial != serial {
			continue
		}
		device, err := info.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open display %s: %w", serial, err)
		}
		return &hidapiDevice{device: device, info: toDeviceInfo(info)}, nil
	}
	return nil, fmt.Errorf("display with serial %s not found", serial)
}
