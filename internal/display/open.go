package display

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/ambient-brightness-daemon/internal/config"
	"github.com/shini4i/ambient-brightness-daemon/internal/hid"
)

// Open discovers the display selected by cfg.Display. Discovery failures wrap
// ErrDisplay and are meant to be fatal.
func Open(cfg *config.Config) (Display, error) {
	var (
		d   Display
		err error
	)
	switch cfg.Display {
	case config.BackendXRandR:
		d, err = OpenXRandR()
	case config.BackendSysfs:
		d, err = OpenSysfs(DefaultBacklightRoot, cfg.BacklightDevice)
	case config.BackendHID:
		d, err = OpenHID(hid.NewLocator(), cfg.DisplaySerial)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrDisplay, cfg.Display)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("backend", cfg.Display).
		Int("max", d.MaxBrightness()).
		Msg("Display opened")
	return d, nil
}
