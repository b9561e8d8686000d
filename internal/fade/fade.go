// SPDX-License-Identifier: GPL-3.0-only

// Package fade splits a brightness change into evenly spaced steps.
package fade

import "time"

// Fade tracks a transition from the current brightness towards a target.
// The zero value is an idle fade at brightness 0.
type Fade struct {
	current int
	target  int
	step    int
}

// Start begins a transition from current to target over steps steps.
// The step size uses truncating division, so it can be zero for small changes
// and may leave a remainder; Advance snaps to the target in both cases.
// It reports false when current already equals target and no steps are needed.
func (f *Fade) Start(current, target, steps int) bool {
	f.current = current
	f.target = target
	if steps < 1 {
		steps = 1
	}
	f.step = (target - current) / steps
	return current != target
}

// Advance applies one step and returns the new brightness and whether the
// target has been reached. A zero step, or a step that would pass the target,
// lands exactly on the target.
func (f *Fade) Advance() (value int, done bool) {
	next := f.current + f.step
	if f.step == 0 || (f.step > 0 && next > f.target) || (f.step < 0 && next < f.target) {
		next = f.target
	}
	f.current = next
	return f.current, f.current == f.target
}

// Current returns the last brightness produced by Start or Advance.
func (f *Fade) Current() int {
	return f.current
}

// Target returns the brightness the fade converges to.
func (f *Fade) Target() int {
	return f.target
}

// Step returns the per-step brightness delta.
func (f *Fade) Step() int {
	return f.step
}

// Interval is the delay between two consecutive steps of a fade.
func Interval(duration time.Duration, steps int) time.Duration {
	if steps < 1 {
		return duration
	}
	return duration / time.Duration(steps)
}

// Offsets returns the delays, relative to the start of a fade, at which each
// of the steps is scheduled: i * duration/steps for i in [0, steps).
func Offsets(duration time.Duration, steps int) []time.Duration {
	offsets := make([]time.Duration, 0, max(steps, 0))
	for i := 0; i < steps; i++ {
		offsets = append(offsets, time.Duration(i)*duration/time.Duration(steps))
	}
	return offsets
}
