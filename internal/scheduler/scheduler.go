// SPDX-License-Identifier: GPL-3.0-only

// Package scheduler runs the single-threaded control loop that interleaves
// ambient light polls with brightness fade steps.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/ambient-brightness-daemon/internal/brightness"
	"github.com/shini4i/ambient-brightness-daemon/internal/config"
	"github.com/shini4i/ambient-brightness-daemon/internal/display"
	"github.com/shini4i/ambient-brightness-daemon/internal/fade"
)

// ErrEmptyQueue is returned by Step when nothing is scheduled.
var ErrEmptyQueue = errors.New("event queue is empty")

// Sampler returns the smoothed ambient light level in 0..1.
type Sampler interface {
	Poll() (float64, error)
}

// Scheduler owns the event queue and the fade state. It is not safe for
// concurrent use; Run drives it from a single goroutine.
type Scheduler struct {
	cfg      *config.Config
	sampler  Sampler
	display  display.Display
	clock    Clock
	observer Observer
	queue    Queue
	fade     fade.Fade
}

// Option is a functional option for configuring a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the system clock, e.g. with a fake in tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithObserver registers an observer of polls and applied fade steps.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// New creates a scheduler. Nothing is queued until Start or Run.
func New(cfg *config.Config, sampler Sampler, d display.Display, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		sampler:  sampler,
		display:  d,
		clock:    SystemClock{},
		observer: Observers(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start queues the first poll for immediate execution.
func (s *Scheduler) Start() {
	s.queue.Push(s.clock.Now(), Poll)
}

// Run executes events until a collaborator fails or ctx is done. A context
// cancelled without a cause is a clean shutdown and yields nil; otherwise the
// cause or the collaborator error is returned.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.queue.Len() == 0 {
		s.Start()
	}

	log.Info().
		Dur("poll_interval", s.cfg.PollInterval).
		Dur("fade_duration", s.cfg.FadeDuration).
		Int("fade_steps", s.cfg.FadeSteps).
		Int("min_brightness", s.cfg.MinBrightness).
		Msg("Control loop started")

	for {
		if err := s.Step(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				if cause := context.Cause(ctx); !errors.Is(cause, context.Canceled) {
					return cause
				}
				log.Info().
					Int("brightness", s.Brightness()).
					Int("target", s.Target()).
					Int("pending", s.Pending()).
					Msg("Control loop stopped")
				return nil
			}
			return err
		}
	}
}

// Step sleeps until the earliest event is due, removes it and executes it.
func (s *Scheduler) Step(ctx context.Context) error {
	next, ok := s.queue.Peek()
	if !ok {
		return ErrEmptyQueue
	}
	if err := s.clock.SleepUntil(ctx, next.At); err != nil {
		return err
	}

	event, _ := s.queue.Pop()
	switch event.Kind {
	case Poll:
		return s.poll()
	case FadeStep:
		return s.fadeStep()
	default:
		return fmt.Errorf("unknown event kind %d", event.Kind)
	}
}

// Pending returns the number of queued events.
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// Brightness returns the last brightness read from or written to the display.
func (s *Scheduler) Brightness() int {
	return s.fade.Current()
}

// Target returns the brightness the scheduler is converging to.
func (s *Scheduler) Target() int {
	return s.fade.Target()
}

func (s *Scheduler) poll() error {
	ambient, err := s.sampler.Poll()
	if err != nil {
		return fmt.Errorf("failed to poll ambient light: %w", err)
	}

	current, err := s.display.CurrentBrightness()
	if err != nil {
		return fmt.Errorf("failed to read brightness: %w", err)
	}

	desired := brightness.DesiredBrightness(s.display.MaxBrightness(), ambient)
	target := brightness.ClampMin(desired, s.cfg.MinBrightness)

	log.Debug().
		Float64("ambient", ambient).
		Int("current", current).
		Int("target", target).
		Msg("Polled ambient light")

	now := s.clock.Now()
	if s.fade.Start(current, target, s.cfg.FadeSteps) {
		log.Info().
			Float64("ambient", ambient).
			Int("from", current).
			Int("to", target).
			Int("step", s.fade.Step()).
			Int("queued_steps", s.queue.Count(FadeStep)).
			Msg("Adjusting brightness")
		for _, offset := range fade.Offsets(s.cfg.FadeDuration, s.cfg.FadeSteps) {
			s.queue.Push(now.Add(offset), FadeStep)
		}
	}
	s.queue.Push(now.Add(s.cfg.PollInterval), Poll)

	s.observer.Sampled(ambient, current, target)
	return nil
}

func (s *Scheduler) fadeStep() error {
	value, done := s.fade.Advance()
	if err := s.display.SetBrightness(value); err != nil {
		return fmt.Errorf("failed to apply fade step: %w", err)
	}

	log.Debug().Int("brightness", value).Int("target", s.fade.Target()).Msg("Applied fade step")
	s.observer.Applied(value, s.fade.Target())

	if !done {
		s.queue.Push(s.clock.Now().Add(fade.Interval(s.cfg.FadeDuration, s.cfg.FadeSteps)), FadeStep)
	}
	return nil
}
