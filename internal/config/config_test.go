package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shini4i/ambient-brightness-daemon/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 200*time.Millisecond, cfg.FadeDuration)
	assert.Equal(t, 10, cfg.FadeSteps)
	assert.Equal(t, 7, cfg.MinBrightness)
	assert.Equal(t, 255, cfg.MaxSensorValue)
	assert.Equal(t, 10, cfg.WindowSize)
	assert.Equal(t, config.BackendXRandR, cfg.Display)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `poll_interval: 1s
fade_steps: 20
min_brightness: 12
display: sysfs
backlight_device: intel_backlight
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := config.Default()
	require.NoError(t, cfg.Load(path))

	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 20, cfg.FadeSteps)
	assert.Equal(t, 12, cfg.MinBrightness)
	assert.Equal(t, config.BackendSysfs, cfg.Display)
	assert.Equal(t, "intel_backlight", cfg.BacklightDevice)
	// untouched keys keep defaults
	assert.Equal(t, 200*time.Millisecond, cfg.FadeDuration)
	assert.Equal(t, 255, cfg.MaxSensorValue)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg := config.Default()
	err := cfg.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fade_steps: [1, 2"), 0o600))

	cfg := config.Default()
	assert.Error(t, cfg.Load(path))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ABD_POLL_INTERVAL", "750ms")
	t.Setenv("ABD_FADE_STEPS", "5")
	t.Setenv("ABD_SENSOR_PATH", "/tmp/light")
	t.Setenv("ABD_DBUS", "true")

	cfg := config.Default()
	require.NoError(t, cfg.LoadFromEnv(filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, 750*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5, cfg.FadeSteps)
	assert.Equal(t, "/tmp/light", cfg.SensorPath)
	assert.True(t, cfg.DBus)
}

func TestLoadFromEnv_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ABD_MIN_BRIGHTNESS=3\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("ABD_MIN_BRIGHTNESS") })

	cfg := config.Default()
	require.NoError(t, cfg.LoadFromEnv(path))

	assert.Equal(t, 3, cfg.MinBrightness)
}

func TestLoadFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("ABD_FADE_STEPS", "many")

	cfg := config.Default()
	err := cfg.LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ABD_FADE_STEPS")
}

func TestBindFlags(t *testing.T) {
	cfg := config.Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)

	require.NoError(t, fs.Parse([]string{"--fade-duration=400ms", "--display=hid", "--display-serial=C02ABC"}))

	assert.Equal(t, 400*time.Millisecond, cfg.FadeDuration)
	assert.Equal(t, config.BackendHID, cfg.Display)
	assert.Equal(t, "C02ABC", cfg.DisplaySerial)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "zero poll interval", mutate: func(c *config.Config) { c.PollInterval = 0 }},
		{name: "negative fade duration", mutate: func(c *config.Config) { c.FadeDuration = -time.Millisecond }},
		{name: "zero fade steps", mutate: func(c *config.Config) { c.FadeSteps = 0 }},
		{name: "negative min brightness", mutate: func(c *config.Config) { c.MinBrightness = -1 }},
		{name: "zero max sensor value", mutate: func(c *config.Config) { c.MaxSensorValue = 0 }},
		{name: "zero window size", mutate: func(c *config.Config) { c.WindowSize = 0 }},
		{name: "empty sensor path", mutate: func(c *config.Config) { c.SensorPath = "" }},
		{name: "unknown backend", mutate: func(c *config.Config) { c.Display = "wayland" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}
}
