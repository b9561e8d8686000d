// SPDX-License-Identifier: GPL-3.0-only

// Package dbus publishes the automatic brightness state on the session bus.
package dbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// signalsPerSecond is the maximum rate of intermediate BrightnessChanged signals.
	signalsPerSecond = 20

	// signalBurst is the maximum burst size for BrightnessChanged signals.
	signalBurst = 5
)

const (
	// ServiceName is the D-Bus service name.
	ServiceName = "io.github.shini4i.AmbientBrightness"

	// ObjectPath is the D-Bus object path.
	ObjectPath = "/io/github/shini4i/AmbientBrightness"

	// InterfaceName is the D-Bus interface name.
	InterfaceName = "io.github.shini4i.AmbientBrightness"
)

// IntrospectXML is the D-Bus introspection XML for the service.
const IntrospectXML = `
<node name="` + ObjectPath + `">
  <interface name="` + InterfaceName + `">
    <method name="GetStatus">
      <arg name="ambient" type="d" direction="out"/>
      <arg name="current" type="u" direction="out"/>
      <arg name="target" type="u" direction="out"/>
    </method>
    <method name="GetBrightness">
      <arg name="brightness" type="u" direction="out"/>
    </method>
    <signal name="BrightnessChanged">
      <arg name="brightness" type="u"/>
    </signal>
  </interface>
  ` + introspect.IntrospectDataString + `
</node>
`

// emitter is the part of *dbus.Conn used to send signals.
type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// Status is a snapshot of the control loop.
type Status struct {
	Ambient float64
	Current int
	Target  int
}

// Server implements the D-Bus status service. It receives updates from the
// control loop and answers method calls from bus goroutines.
//
// Thread safety:
//   - statusMu protects the status snapshot.
//   - connMu protects the connection used for signal emission.
type Server struct {
	conn     emitter
	closer   func() error
	connMu   sync.RWMutex
	status   Status
	statusMu sync.RWMutex
	limiter  *rate.Limiter

	// signalled is the last value sent in BrightnessChanged, -1 before the first.
	signalled int
}

// NewServer creates a new, not yet connected, D-Bus server.
func NewServer() *Server {
	return &Server{
		limiter:   rate.NewLimiter(signalsPerSecond, signalBurst),
		signalled: -1,
	}
}

// Start connects to the session bus and exports the service.
func (s *Server) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	success := false
	defer func() {
		if !success {
			if closeErr := conn.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("Failed to close D-Bus connection during cleanup")
			}
		}
	}()

	if err := conn.Export(s, ObjectPath, InterfaceName); err != nil {
		return fmt.Errorf("failed to export server: %w", err)
	}

	err = conn.Export(introspect.Introspectable(IntrospectXML), ObjectPath, "org.freedesktop.DBus.Introspectable")
	if err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already taken", ServiceName)
	}

	s.connMu.Lock()
	s.conn = conn
	s.closer = conn.Close
	s.connMu.Unlock()

	success = true
	log.Info().Str("service", ServiceName).Msg("D-Bus service started")
	return nil
}

// Stop disconnects from the session bus.
func (s *Server) Stop() error {
	s.connMu.Lock()
	closer := s.closer
	s.conn = nil
	s.closer = nil
	s.connMu.Unlock()

	if closer != nil {
		return closer()
	}
	return nil
}

// Run starts the service and stops it once ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// Snapshot returns the last state reported by the control loop.
func (s *Server) Snapshot() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// GetStatus returns the smoothed ambient level, the current brightness and the target.
func (s *Server) GetStatus() (float64, uint32, uint32, *dbus.Error) {
	st := s.Snapshot()
	log.Debug().Float64("ambient", st.Ambient).Int("current", st.Current).Int("target", st.Target).Msg("Got status")
	return st.Ambient, toUint32(st.Current), toUint32(st.Target), nil
}

// GetBrightness returns the current brightness in display units.
func (s *Server) GetBrightness() (uint32, *dbus.Error) {
	return toUint32(s.Snapshot().Current), nil
}

// Sampled records a poll of the control loop.
func (s *Server) Sampled(ambient float64, current, target int) {
	s.statusMu.Lock()
	s.status = Status{Ambient: ambient, Current: current, Target: target}
	s.statusMu.Unlock()
}

// Applied records a fade step and signals it. Intermediate steps are rate
// limited; the step reaching the target is always signalled once.
func (s *Server) Applied(value, target int) {
	s.statusMu.Lock()
	s.status.Current = value
	s.status.Target = target
	emit := value != s.signalled && (value == target || s.limiter.Allow())
	if emit {
		s.signalled = value
	}
	s.statusMu.Unlock()

	if emit {
		s.emitBrightnessChanged(toUint32(value))
	}
}

// emitBrightnessChanged emits the BrightnessChanged signal.
func (s *Server) emitBrightnessChanged(brightness uint32) {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()

	if conn == nil {
		return
	}

	if err := conn.Emit(ObjectPath, InterfaceName+".BrightnessChanged", brightness); err != nil {
		log.Error().Err(err).Msg("Failed to emit BrightnessChanged signal")
	}
}

func toUint32(v int) uint32 {
	if v < 0 {
		return 0
	}
	// #nosec G115 -- brightness values are small and non-negative here
	return uint32(v)
}
