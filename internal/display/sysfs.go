package display

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultBacklightRoot is where the kernel exposes backlight class devices.
const DefaultBacklightRoot = "/sys/class/backlight"

// Sysfs drives a kernel backlight class device.
type Sysfs struct {
	dir  string
	name string
	max  int
}

var _ Display = (*Sysfs)(nil)

// OpenSysfs opens the backlight device called name under root. With an empty
// name the root must contain exactly one device.
func OpenSysfs(root, name string) (*Sysfs, error) {
	if name == "" {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list %s: %w", ErrDisplay, root, err)
		}
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)

		switch len(names) {
		case 0:
			return nil, fmt.Errorf("%w: no backlight device in %s", ErrDisplay, root)
		case 1:
			name = names[0]
		default:
			return nil, fmt.Errorf("%w: multiple backlight devices found (%s), select one", ErrDisplay, strings.Join(names, ", "))
		}
	}

	s := &Sysfs{dir: filepath.Join(root, name), name: name}
	maxBrightness, err := s.readInt("max_brightness")
	if err != nil {
		return nil, err
	}
	if maxBrightness <= 0 {
		return nil, fmt.Errorf("%w: %s reports max brightness %d", ErrDisplay, name, maxBrightness)
	}
	s.max = maxBrightness
	return s, nil
}

// Name returns the backlight class device name, e.g. "intel_backlight".
func (s *Sysfs) Name() string {
	return s.name
}

// MaxBrightness returns the device's max_brightness.
func (s *Sysfs) MaxBrightness() int {
	return s.max
}

// CurrentBrightness reads the brightness attribute.
func (s *Sysfs) CurrentBrightness() (int, error) {
	return s.readInt("brightness")
}

// SetBrightness writes value, clamped to 0..max, to the brightness attribute.
func (s *Sysfs) SetBrightness(value int) error {
	value = max(0, min(value, s.max))
	path := filepath.Join(s.dir, "brightness")
	if err := os.WriteFile(path, []byte(strconv.Itoa(value)), 0o644); err != nil {
		return fmt.Errorf("%w: failed to set brightness: %w", ErrDisplay, err)
	}
	return nil
}

// Close is a no-op; attributes are opened per access.
func (s *Sysfs) Close() error {
	return nil
}

func (s *Sysfs) readInt(attr string) (int, error) {
	path := filepath.Join(s.dir, attr)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read %s: %w", ErrDisplay, path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: malformed %s: %w", ErrDisplay, path, err)
	}
	return v, nil
}
