// SPDX-License-Identifier: GPL-3.0-only

// Package config holds the daemon configuration. Values are layered as
// defaults, then an optional YAML file, then the environment (including a .env
// file), then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/shini4i/ambient-brightness-daemon/internal/brightness"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "ABD_"

// Display backends.
const (
	BackendXRandR = "xrandr"
	BackendSysfs  = "sysfs"
	BackendHID    = "hid"
)

// DefaultSensorPath is the applesmc ambient light file.
const DefaultSensorPath = "/sys/devices/platform/applesmc.768/light"

var (
	// ErrInvalidConfig is wrapped by every Validate failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is constructed once at startup and passed to every component.
type Config struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	FadeDuration   time.Duration `yaml:"fade_duration"`
	FadeSteps      int           `yaml:"fade_steps"`
	MinBrightness  int           `yaml:"min_brightness"`
	MaxSensorValue int           `yaml:"max_sensor_value"`
	WindowSize     int           `yaml:"window_size"`

	SensorPath      string `yaml:"sensor_path"`
	Display         string `yaml:"display"`
	BacklightDevice string `yaml:"backlight_device"`
	DisplaySerial   string `yaml:"display_serial"`

	DBus        bool   `yaml:"dbus"`
	WatchUdev   bool   `yaml:"watch_udev"`
	MetricsAddr string `yaml:"metrics_addr"`
	MQTTBroker  string `yaml:"mqtt_broker"`
	MQTTTopic   string `yaml:"mqtt_topic"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PollInterval:   500 * time.Millisecond,
		FadeDuration:   200 * time.Millisecond,
		FadeSteps:      10,
		MinBrightness:  brightness.DefaultMinBrightness,
		MaxSensorValue: 255,
		WindowSize:     10,
		SensorPath:     DefaultSensorPath,
		Display:        BackendXRandR,
		WatchUdev:      true,
		MQTTTopic:      "ambient-brightness",
	}
}

// Load applies the YAML file at path on top of the current values.
// Keys missing from the file keep their previous values.
func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads an optional .env file and then applies ABD_* variables.
// Variables that fail to parse are reported rather than ignored.
func (c *Config) LoadFromEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	durations := map[string]*time.Duration{
		"POLL_INTERVAL": &c.PollInterval,
		"FADE_DURATION": &c.FadeDuration,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		"FADE_STEPS":       &c.FadeSteps,
		"MIN_BRIGHTNESS":   &c.MinBrightness,
		"MAX_SENSOR_VALUE": &c.MaxSensorValue,
		"WINDOW_SIZE":      &c.WindowSize,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"DBUS":       &c.DBus,
		"WATCH_UDEV": &c.WatchUdev,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}

	strs := map[string]*string{
		"SENSOR_PATH":      &c.SensorPath,
		"DISPLAY_BACKEND":  &c.Display,
		"BACKLIGHT_DEVICE": &c.BacklightDevice,
		"DISPLAY_SERIAL":   &c.DisplaySerial,
		"METRICS_ADDR":     &c.MetricsAddr,
		"MQTT_BROKER":      &c.MQTTBroker,
		"MQTT_TOPIC":       &c.MQTTTopic,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// BindFlags registers a flag for every option, defaulting to the current values.
// Call it after Load and LoadFromEnv so flags win.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "Interval between ambient light polls")
	fs.DurationVar(&c.FadeDuration, "fade-duration", c.FadeDuration, "Duration of a brightness fade")
	fs.IntVar(&c.FadeSteps, "fade-steps", c.FadeSteps, "Number of steps in a fade")
	fs.IntVar(&c.MinBrightness, "min-brightness", c.MinBrightness, "Lowest brightness the daemon will set")
	fs.IntVar(&c.MaxSensorValue, "max-sensor-value", c.MaxSensorValue, "Raw sensor value that maps to full ambient light")
	fs.IntVar(&c.WindowSize, "window-size", c.WindowSize, "Number of readings in the moving average")
	fs.StringVar(&c.SensorPath, "sensor", c.SensorPath, "Ambient light sensor file")
	fs.StringVar(&c.Display, "display", c.Display, "Display backend (xrandr, sysfs, hid)")
	fs.StringVar(&c.BacklightDevice, "backlight-device", c.BacklightDevice, "sysfs backlight device name")
	fs.StringVar(&c.DisplaySerial, "display-serial", c.DisplaySerial, "Apple Studio Display serial number")
	fs.BoolVar(&c.DBus, "dbus", c.DBus, "Export status on the D-Bus session bus")
	fs.BoolVar(&c.WatchUdev, "watch-udev", c.WatchUdev, "Stop when the display is unplugged")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Address for the Prometheus metrics endpoint")
	fs.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker URL for state publishing")
	fs.StringVar(&c.MQTTTopic, "mqtt-topic", c.MQTTTopic, "MQTT topic prefix")
}

// Validate reports the first option that would break the control loop.
func (c *Config) Validate() error {
	switch {
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	case c.FadeDuration < 0:
		return fmt.Errorf("%w: fade duration cannot be negative", ErrInvalidConfig)
	case c.FadeSteps < 1:
		return fmt.Errorf("%w: fade steps must be at least 1", ErrInvalidConfig)
	case c.MinBrightness < 0:
		return fmt.Errorf("%w: min brightness cannot be negative", ErrInvalidConfig)
	case c.MaxSensorValue < 1:
		return fmt.Errorf("%w: max sensor value must be positive", ErrInvalidConfig)
	case c.WindowSize < 1:
		return fmt.Errorf("%w: window size must be at least 1", ErrInvalidConfig)
	case c.SensorPath == "":
		return fmt.Errorf("%w: sensor path is required", ErrInvalidConfig)
	}

	switch c.Display {
	case BackendXRandR, BackendSysfs, BackendHID:
	default:
		return fmt.Errorf("%w: unknown display backend %q", ErrInvalidConfig, c.Display)
	}
	return nil
}
