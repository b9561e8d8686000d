// SPDX-License-Identifier: GPL-3.0-only

package hid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNoDisplay is returned when no Studio Display (or none with the requested serial) is connected.
	ErrNoDisplay = errors.New("no Apple Studio Display found")

	// ErrAmbiguousDisplay is returned when several displays are connected and none was selected.
	ErrAmbiguousDisplay = errors.New("multiple Apple Studio Displays found")
)

// Locator finds and opens the single display the daemon controls.
type Locator struct {
	enumerator func() ([]DeviceInfo, error)
	opener     func(serial string) (Device, error)
}

// LocatorOption is a functional option for configuring a Locator.
type LocatorOption func(*Locator)

// WithEnumerator sets a custom device enumerator for testing.
func WithEnumerator(fn func() ([]DeviceInfo, error)) LocatorOption {
	return func(l *Locator) {
		l.enumerator = fn
	}
}

// WithOpener sets a custom device opener for testing.
func WithOpener(fn func(serial string) (Device, error)) LocatorOption {
	return func(l *Locator) {
		l.opener = fn
	}
}

// NewLocator creates a locator backed by hidapi unless overridden by options.
func NewLocator(opts ...LocatorOption) *Locator {
	l := &Locator{
		enumerator: EnumerateDisplays,
		opener:     OpenDevice,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open returns the display with the given serial. With an empty serial it
// requires exactly one connected display.
func (l *Locator) Open(serial string) (*Display, error) {
	devices, err := l.enumerator()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate displays: %w", err)
	}

	var candidates []DeviceInfo
	for _, info := range devices {
		if serial == "" || info.Serial == serial {
			candidates = append(candidates, info)
		}
	}

	switch len(candidates) {
	case 0:
		if serial != "" {
			return nil, fmt.Errorf("%w with serial %s", ErrNoDisplay, serial)
		}
		return nil, ErrNoDisplay
	case 1:
	default:
		serials := make([]string, len(candidates))
		for i, c := range candidates {
			serials[i] = c.Serial
		}
		return nil, fmt.Errorf("%w (%s), select one by serial", ErrAmbiguousDisplay, strings.Join(serials, ", "))
	}

	info := candidates[0]
	device, err := l.opener(info.Serial)
	if err != nil {
		return nil, err
	}

	log.Info().Str("serial", info.Serial).Str("product", info.Product).Msg("Display connected")
	return NewDisplay(device), nil
}
