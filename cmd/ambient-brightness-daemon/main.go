// Package main provides the entry point for the ambient light brightness daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/shini4i/ambient-brightness-daemon/internal/config"
	"github.com/shini4i/ambient-brightness-daemon/internal/dbus"
	"github.com/shini4i/ambient-brightness-daemon/internal/display"
	"github.com/shini4i/ambient-brightness-daemon/internal/metrics"
	"github.com/shini4i/ambient-brightness-daemon/internal/mqtt"
	"github.com/shini4i/ambient-brightness-daemon/internal/scheduler"
	"github.com/shini4i/ambient-brightness-daemon/internal/sensor"
	"github.com/shini4i/ambient-brightness-daemon/internal/udev"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.0.1"

var (
	verbose    bool
	configPath string
	envFile    string
	rootCmd    = &cobra.Command{
		Use:   "ambient-brightness-daemon",
		Short: "Adjust display brightness to the ambient light level",
		Long: `ambient-brightness-daemon polls an ambient light sensor, smooths the
readings with a moving average and fades the display backlight towards a
brightness derived from a logarithmic curve.

Options are read from built-in defaults, an optional YAML file, ABD_*
environment variables (including a .env file) and finally command-line flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Flags())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file with ABD_* variables")
	config.Default().BindFlags(rootCmd.Flags())
}

func setupLogging(verbose bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// loadConfig layers the YAML file, the environment and the flags set on the
// command line over the defaults, then validates the result.
func loadConfig(path, envFile string, flags *pflag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		if err := cfg.Load(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(envFile); err != nil {
		return nil, err
	}

	// flags registered at init carry the built-in defaults, so only the
	// explicitly set ones are replayed onto cfg
	bound := pflag.NewFlagSet("config", pflag.ContinueOnError)
	cfg.BindFlags(bound)
	var setErr error
	flags.Visit(func(f *pflag.Flag) {
		if setErr != nil || bound.Lookup(f.Name) == nil {
			return
		}
		setErr = bound.Set(f.Name, f.Value.String())
	})
	if setErr != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, setErr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(flags *pflag.FlagSet) error {
	setupLogging(verbose)

	log.Info().Str("version", version).Msg("Starting ambient-brightness-daemon")

	cfg, err := loadConfig(configPath, envFile, flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runDaemon(ctx, cfg); err != nil {
		return err
	}

	log.Info().Msg("Daemon stopped")
	return nil
}

// runDaemon opens the sensor and the display, then runs the control loop and
// the enabled outer surfaces until ctx is done or one of them fails.
func runDaemon(ctx context.Context, cfg *config.Config) error {
	reader, err := sensor.OpenFile(cfg.SensorPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close light sensor")
		}
	}()

	sampler := sensor.NewSampler(reader, cfg.WindowSize, cfg.MaxSensorValue)
	if err := sampler.Initialize(); err != nil {
		return err
	}
	log.Info().Str("sensor", cfg.SensorPath).Float64("ambient", sampler.Average()).Msg("Light sensor ready")

	disp, err := display.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := disp.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close display")
		}
	}()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	g, gCtx := errgroup.WithContext(ctx)
	var observers scheduler.Observers

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		observers = append(observers, metrics.NewRecorder(reg))
		g.Go(func() error {
			return metrics.Serve(gCtx, cfg.MetricsAddr, reg)
		})
	}

	if cfg.DBus {
		server := dbus.NewServer()
		observers = append(observers, server)
		g.Go(func() error {
			return server.Run(gCtx)
		})
	}

	if cfg.MQTTBroker != "" {
		publisher := mqtt.NewPublisher(mqtt.NewClient(cfg.MQTTBroker, ""), cfg.MQTTTopic)
		observers = append(observers, publisher)
		g.Go(func() error {
			return publisher.Run(gCtx)
		})
	}

	if cfg.WatchUdev {
		if target, ok := udevTarget(disp); ok {
			monitor := udev.NewMonitor(target, removalHandler(cancel))
			g.Go(func() error {
				if err := monitor.Run(gCtx); err != nil {
					log.Error().Err(err).Msg("Failed to start udev monitor (unplug detection disabled)")
				}
				return nil
			})
		} else {
			log.Debug().Str("backend", cfg.Display).Msg("Unplug detection not available for backend")
		}
	}

	sched := scheduler.New(cfg, sampler, disp, scheduler.WithObserver(observers))
	g.Go(func() error {
		return sched.Run(gCtx)
	})

	return g.Wait()
}

// udevTarget returns the device whose removal should stop the daemon.
func udevTarget(d display.Display) (udev.Target, bool) {
	switch d := d.(type) {
	case *display.HIDDisplay:
		return udev.StudioDisplay(d.Serial()), true
	case *display.Sysfs:
		return udev.Backlight(d.Name()), true
	default:
		return udev.Target{}, false
	}
}

// removalHandler stops the daemon with a display error once the device is gone.
func removalHandler(cancel context.CancelCauseFunc) udev.RemoveHandler {
	return func(devpath string) {
		cancel(fmt.Errorf("%w: %s was removed", display.ErrDisplay, devpath))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}
