// SPDX-License-Identifier: GPL-3.0-only

// Package metrics exposes the control loop state to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "ambient_brightness"

// shutdownTimeout bounds how long Serve waits for in-flight scrapes.
const shutdownTimeout = 5 * time.Second

// Recorder updates counters and gauges from control loop notifications.
type Recorder struct {
	polls      prometheus.Counter
	fadeSteps  prometheus.Counter
	ambient    prometheus.Gauge
	brightness prometheus.Gauge
	target     prometheus.Gauge
}

// NewRecorder registers the daemon metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		polls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "polls_total",
			Help:      "Total ambient light polls",
		}),
		fadeSteps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fade",
			Name:      "steps_total",
			Help:      "Total fade steps written to the display",
		}),
		ambient: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "ambient_level",
			Help:      "Smoothed ambient light level in 0..1",
		}),
		brightness: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "display",
			Name:      "brightness",
			Help:      "Last brightness read from or written to the display",
		}),
		target: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "display",
			Name:      "target_brightness",
			Help:      "Brightness the daemon is converging to",
		}),
	}
}

// Sampled records a poll.
func (r *Recorder) Sampled(ambient float64, current, target int) {
	r.polls.Inc()
	r.ambient.Set(ambient)
	r.brightness.Set(float64(current))
	r.target.Set(float64(target))
}

// Applied records a fade step.
func (r *Recorder) Applied(value, target int) {
	r.fadeSteps.Inc()
	r.brightness.Set(float64(value))
	r.target.Set(float64(target))
}

// Handler serves /metrics from gatherer and a trivial /healthz.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Warn().Err(err).Msg("Failed to write health response")
		}
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Serve listens on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           Handler(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("Metrics server shutdown error")
		}
	}()

	log.Info().Str("addr", addr).Msg("Metrics server started")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
