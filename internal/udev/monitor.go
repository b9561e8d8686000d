// Package udev detects removal of the controlled display via netlink/udev events.
package udev

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pilebones/go-udev/netlink"
	"github.com/rs/zerolog/log"
)

const (
	// netlinkBufferSize is the receive buffer size for the netlink socket.
	// USB hot-plug generates many netlink messages rapidly; 2MB avoids ENOBUFS.
	netlinkBufferSize = 2 * 1024 * 1024 // 2 MB

	// removeDebounceWindow suppresses the repeated REMOVE events a single
	// unplug produces, one per USB interface.
	removeDebounceWindow = 2 * time.Second

	// removeHistoryTTL is how long remove timestamps are kept.
	removeHistoryTTL = time.Minute
)

const (
	// AppleVendorIDPattern matches the Apple USB vendor ID in any case, with or
	// without a leading zero (udev reports "5ac").
	AppleVendorIDPattern = "0?5[aA][cC]"

	// StudioDisplayProductID is the USB product ID for Apple Studio Display.
	StudioDisplayProductID = "1114"
)

// Target describes the device whose removal is reported.
type Target struct {
	// Description is used in log messages.
	Description string

	// Subsystem is the kernel subsystem, e.g. "usb" or "backlight".
	Subsystem string

	// Env holds additional uevent properties as regular expressions.
	Env map[string]string

	// Key is the uevent property identifying one physical device, used to
	// debounce repeated removes. KObj is used when it is empty or missing.
	Key string
}

// StudioDisplay targets the USB Apple Studio Display with the given serial
// number, or any Studio Display when serial is empty.
func StudioDisplay(serial string) Target {
	t := Target{
		Description: "Apple Studio Display",
		Subsystem:   "usb",
		// PRODUCT is "vendorId/productId/bcdDevice", e.g. "5ac/1114/157"
		Env: map[string]string{
			"PRODUCT": fmt.Sprintf("^%s/%s/[^/]+$", AppleVendorIDPattern, StudioDisplayProductID),
		},
		Key: "PRODUCT",
	}
	if serial != "" {
		t.Description += " " + serial
		t.Env["ID_SERIAL_SHORT"] = "^" + regexp.QuoteMeta(serial) + "$"
	}
	return t
}

// Backlight targets the backlight class device called name.
func Backlight(name string) Target {
	return Target{
		Description: "backlight " + name,
		Subsystem:   "backlight",
		Env: map[string]string{
			"DEVPATH": "/backlight/" + regexp.QuoteMeta(name) + "$",
		},
		Key: "DEVPATH",
	}
}

// RemoveHandler is called once per removed device.
type RemoveHandler func(devpath string)

// Monitor watches for removal of a Target.
type Monitor struct {
	target         Target
	conn           *netlink.UEventConn
	handler        RemoveHandler
	quit           chan struct{}
	stopped        bool
	lastRemoveTime map[string]time.Time
	mu             sync.Mutex
}

// NewMonitor creates a monitor calling handler when target is removed.
func NewMonitor(target Target, handler RemoveHandler) *Monitor {
	return &Monitor{
		target:         target,
		handler:        handler,
		lastRemoveTime: make(map[string]time.Time),
	}
}

// Start begins monitoring for device events.
// This method is non-blocking; events are processed in a background goroutine.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return fmt.Errorf("monitor already started")
	}

	matcher := m.createMatcher()
	if err := matcher.Compile(); err != nil {
		return fmt.Errorf("invalid udev match rules: %w", err)
	}

	m.conn = &netlink.UEventConn{}
	if err := m.conn.Connect(netlink.UdevEvent); err != nil {
		m.conn = nil
		return fmt.Errorf("failed to connect to netlink: %w", err)
	}

	if err := setSocketBufferSize(m.conn.Fd, netlinkBufferSize); err != nil {
		log.Warn().Err(err).Int("size", netlinkBufferSize).Msg("Failed to set netlink buffer size")
	} else {
		log.Debug().Int("size", netlinkBufferSize).Msg("Netlink socket buffer size configured")
	}

	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.quit = m.conn.Monitor(queue, errs, matcher)
	m.stopped = false

	go m.processEvents(queue, errs)

	log.Info().Str("device", m.target.Description).Msg("udev monitor started")
	return nil
}

// Stop stops the monitor and releases resources.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil || m.stopped {
		return nil
	}

	m.stopped = true

	select {
	case m.quit <- struct{}{}:
	default:
	}

	if err := m.conn.Close(); err != nil {
		return fmt.Errorf("failed to close netlink connection: %w", err)
	}

	m.conn = nil
	log.Info().Msg("udev monitor stopped")
	return nil
}

// Run starts the monitor and stops it once ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return m.Stop()
}

// createMatcher matches remove events of the target.
func (m *Monitor) createMatcher() *netlink.RuleDefinitions {
	rules := &netlink.RuleDefinitions{}

	env := map[string]string{
		"SUBSYSTEM": "^" + regexp.QuoteMeta(m.target.Subsystem) + "$",
	}
	for k, v := range m.target.Env {
		env[k] = v
	}

	removeAction := "remove"
	rules.AddRule(netlink.RuleDefinition{
		Action: &removeAction,
		Env:    env,
	})

	return rules
}

// processEvents handles incoming udev events.
func (m *Monitor) processEvents(queue chan netlink.UEvent, errs chan error) {
	for {
		select {
		case event, ok := <-queue:
			if !ok {
				return
			}
			m.handleEvent(event)
		case err, ok := <-errs:
			if !ok {
				return
			}
			m.mu.Lock()
			stopped := m.stopped
			m.mu.Unlock()
			if stopped {
				return
			}

			// Dropped events may include the remove we are waiting for. The
			// control loop still fails on its next display access.
			if isBufferOverflowError(err) {
				log.Warn().Msg("Netlink buffer overflow detected, events may have been lost")
				continue
			}

			log.Error().Err(err).Msg("udev monitor error")
		}
	}
}

// setSocketBufferSize sets the receive buffer size for a socket.
// It first tries SO_RCVBUFFORCE (requires CAP_NET_ADMIN), then falls back to SO_RCVBUF.
func setSocketBufferSize(fd int, size int) error {
	err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUFFORCE, size)
	if err == nil {
		return nil
	}

	// capped by net.core.rmem_max
	return syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUF, size)
}

// isBufferOverflowError checks if the error is a netlink buffer overflow (ENOBUFS).
func isBufferOverflowError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ENOBUFS) {
		return true
	}
	// the udev library does not always wrap the errno
	return strings.Contains(strings.ToLower(err.Error()), "no buffer space available")
}

// removeKey identifies the physical device behind a uevent.
func (m *Monitor) removeKey(uevent netlink.UEvent) string {
	if key := uevent.Env[m.target.Key]; m.target.Key != "" && key != "" {
		return key
	}
	return uevent.KObj
}

// shouldDebounceRemove reports whether a remove for key was already handled
// within the debounce window, and records the current one otherwise.
func (m *Monitor) shouldDebounceRemove(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for k, at := range m.lastRemoveTime {
		if now.Sub(at) > removeHistoryTTL {
			delete(m.lastRemoveTime, k)
		}
	}

	if at, ok := m.lastRemoveTime[key]; ok && now.Sub(at) < removeDebounceWindow {
		return true
	}
	m.lastRemoveTime[key] = now
	return false
}

// handleEvent processes a single udev event.
func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	if uevent.Action != netlink.REMOVE {
		return
	}

	key := m.removeKey(uevent)
	if m.shouldDebounceRemove(key) {
		log.Debug().Str("devpath", uevent.KObj).Msg("Ignoring repeated remove event")
		return
	}

	log.Warn().
		Str("device", m.target.Description).
		Str("devpath", uevent.KObj).
		Msg("Display removed")

	if m.handler != nil {
		m.handler(uevent.KObj)
	}
}
