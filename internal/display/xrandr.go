// SPDX-License-Identifier: GPL-3.0-only

package display

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
	"github.com/rs/zerolog/log"
)

// backlightAtom is the RandR output property drivers use for panel brightness.
const backlightAtom = "Backlight"

// XRandR drives the RandR "Backlight" property of an X11 output.
type XRandR struct {
	conn     *xgb.Conn
	output   randr.Output
	property xproto.Atom
	min      int32
	max      int32
}

var _ Display = (*XRandR)(nil)

// OpenXRandR connects to the X server named by $DISPLAY and finds the output
// carrying a ranged Backlight property. Exactly one such output must exist.
func OpenXRandR() (*XRandR, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to X server: %w", ErrDisplay, err)
	}

	x, err := newXRandR(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return x, nil
}

func newXRandR(conn *xgb.Conn) (*XRandR, error) {
	if err := randr.Init(conn); err != nil {
		return nil, fmt.Errorf("%w: RandR extension unavailable: %w", ErrDisplay, err)
	}

	atom, err := xproto.InternAtom(conn, true, uint16(len(backlightAtom)), backlightAtom).Reply()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to obtain minimum and maximum brightness values: %w", ErrDisplay, err)
	}
	if atom.Atom == xproto.AtomNone {
		return nil, fmt.Errorf("%w: couldn't find an output with backlight property", ErrDisplay)
	}

	root := xproto.Setup(conn).DefaultScreen(conn).Root
	resources, err := randr.GetScreenResources(conn, root).Reply()
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't get screen resources: %w", ErrDisplay, err)
	}

	var found []*XRandR
	for _, output := range resources.Outputs {
		prop, err := randr.QueryOutputProperty(conn, output, atom.Atom).Reply()
		if err != nil || prop == nil {
			// outputs without a backlight answer with BadName
			continue
		}
		if !prop.Range || len(prop.ValidValues) != 2 {
			continue
		}
		found = append(found, &XRandR{
			conn:     conn,
			output:   output,
			property: atom.Atom,
			min:      prop.ValidValues[0],
			max:      prop.ValidValues[1],
		})
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: couldn't query min/max brightness values", ErrDisplay)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %d outputs expose a backlight property", ErrDisplay, len(found))
	}

	x := found[0]
	log.Debug().
		Uint32("output", uint32(x.output)).
		Int32("min", x.min).
		Int32("max", x.max).
		Msg("Found RandR backlight output")
	return x, nil
}

// MaxBrightness returns the upper bound of the property's valid range.
func (x *XRandR) MaxBrightness() int {
	return int(x.max)
}

// CurrentBrightness reads the Backlight property.
func (x *XRandR) CurrentBrightness() (int, error) {
	reply, err := randr.GetOutputProperty(x.conn, x.output, x.property, xproto.AtomNone, 0, 4, false, false).Reply()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to query current brightness: %w", ErrDisplay, err)
	}
	if reply.Type != xproto.AtomInteger || reply.NumItems != 1 || reply.Format != 32 || len(reply.Data) < 4 {
		return 0, fmt.Errorf("%w: failed to query current brightness: unexpected property format", ErrDisplay)
	}
	return int(int32(xgb.Get32(reply.Data))), nil
}

// SetBrightness writes value, clamped to the valid range, and flushes it.
func (x *XRandR) SetBrightness(value int) error {
	v := max(x.min, min(int32(value), x.max))
	data := make([]byte, 4)
	xgb.Put32(data, uint32(v))

	err := randr.ChangeOutputPropertyChecked(
		x.conn, x.output, x.property, xproto.AtomInteger, 32, xproto.PropModeReplace, 1, data,
	).Check()
	if err != nil {
		return fmt.Errorf("%w: failed to set brightness: %w", ErrDisplay, err)
	}
	return nil
}

// Close disconnects from the X server.
func (x *XRandR) Close() error {
	x.conn.Close()
	return nil
}
