package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shini4i/ambient-brightness-daemon/internal/config"
	"github.com/shini4i/ambient-brightness-daemon/internal/display"
	"github.com/shini4i/ambient-brightness-daemon/internal/display/mocks"
	"github.com/shini4i/ambient-brightness-daemon/internal/sensor"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeClock jumps straight to every deadline.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) SleepUntil(ctx context.Context, deadline time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline.After(c.now) {
		c.now = deadline
	}
	return nil
}

// fakeSampler returns queued ambient levels, repeating the last one.
type fakeSampler struct {
	levels []float64
	err    error
	calls  int

	// onPoll runs before every reading.
	onPoll func()
}

func (s *fakeSampler) Poll() (float64, error) {
	s.calls++
	if s.onPoll != nil {
		s.onPoll()
	}
	if s.err != nil {
		return 0, s.err
	}
	level := s.levels[0]
	if len(s.levels) > 1 {
		s.levels = s.levels[1:]
	}
	return level, nil
}

// fakeDisplay keeps the brightness in memory and records every write.
type fakeDisplay struct {
	max     int
	current int
	writes  []int
}

func (d *fakeDisplay) MaxBrightness() int { return d.max }

func (d *fakeDisplay) CurrentBrightness() (int, error) { return d.current, nil }

func (d *fakeDisplay) SetBrightness(value int) error {
	d.current = value
	d.writes = append(d.writes, value)
	return nil
}

func (d *fakeDisplay) Close() error { return nil }

type sample struct {
	current int
	target  int
}

type recordingObserver struct {
	sampled []sample
	applied []int
}

func (r *recordingObserver) Sampled(_ float64, current, target int) {
	r.sampled = append(r.sampled, sample{current: current, target: target})
}

func (r *recordingObserver) Applied(value, _ int) {
	r.applied = append(r.applied, value)
}

func testConfig() *config.Config {
	return config.Default()
}

func newTestScheduler(cfg *config.Config, sampler Sampler, d display.Display, opts ...Option) (*Scheduler, *fakeClock) {
	clock := &fakeClock{now: epoch}
	s := New(cfg, sampler, d, append([]Option{WithClock(clock)}, opts...)...)
	s.Start()
	return s, clock
}

// runUntil executes events until the next one is due after the horizon.
func runUntil(t *testing.T, s *Scheduler, horizon time.Time) {
	t.Helper()
	for {
		next, ok := s.queue.Peek()
		require.True(t, ok, "queue must never drain")
		if next.At.After(horizon) {
			return
		}
		require.NoError(t, s.Step(context.Background()))
	}
}

func TestScheduler_FadesToTargetAndSettles(t *testing.T) {
	d := &fakeDisplay{max: 255, current: 7}
	observer := &recordingObserver{}
	s, _ := newTestScheduler(testConfig(), &fakeSampler{levels: []float64{0.5}}, d, WithObserver(observer))

	runUntil(t, s, epoch.Add(2*time.Second))

	assert.Equal(t, 217, d.current)
	assert.Equal(t, 217, s.Brightness())
	assert.Equal(t, 217, s.Target())
	require.GreaterOrEqual(t, len(d.writes), 10)
	assert.Equal(t, []int{28, 49, 70, 91, 112, 133, 154, 175, 196, 217}, d.writes[:10])
	for _, v := range d.writes[10:] {
		assert.Equal(t, 217, v)
	}

	// once settled only the next poll is pending
	assert.Equal(t, 0, s.queue.Count(FadeStep))
	assert.Equal(t, 1, s.queue.Count(Poll))
	assert.Equal(t, len(d.writes), len(observer.applied))
}

func TestScheduler_FadeFinishesWithinDuration(t *testing.T) {
	d := &fakeDisplay{max: 255, current: 7}
	s, clock := newTestScheduler(testConfig(), &fakeSampler{levels: []float64{0.5}}, d)

	for d.current != 217 {
		require.NoError(t, s.Step(context.Background()))
	}

	assert.LessOrEqual(t, clock.now.Sub(epoch), 200*time.Millisecond)
}

func TestScheduler_PollSchedulesNextPoll(t *testing.T) {
	tests := []struct {
		name          string
		current       int
		ambient       float64
		expectedFades int
	}{
		{name: "already at target", current: 217, ambient: 0.5, expectedFades: 0},
		{name: "below minimum stays at minimum", current: 7, ambient: 0, expectedFades: 0},
		{name: "fade needed", current: 7, ambient: 0.5, expectedFades: 10},
		{name: "fade down to minimum", current: 100, ambient: 0, expectedFades: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDisplay{max: 255, current: tt.current}
			s, clock := newTestScheduler(testConfig(), &fakeSampler{levels: []float64{tt.ambient}}, d)

			require.NoError(t, s.Step(context.Background()))

			assert.Equal(t, tt.expectedFades, s.queue.Count(FadeStep))
			assert.Equal(t, 1, s.queue.Count(Poll))
			assert.Empty(t, d.writes)

			var poll Event
			for s.queue.Len() > 0 {
				e, _ := s.queue.Pop()
				if e.Kind == Poll {
					poll = e
				}
			}
			assert.Equal(t, clock.now.Add(500*time.Millisecond), poll.At)
		})
	}
}

func TestScheduler_FadeDownReachesMinimum(t *testing.T) {
	d := &fakeDisplay{max: 255, current: 100}
	s, _ := newTestScheduler(testConfig(), &fakeSampler{levels: []float64{0}}, d)

	runUntil(t, s, epoch.Add(time.Second))

	assert.Equal(t, 7, d.current)
	for _, v := range d.writes {
		assert.GreaterOrEqual(t, v, 7)
	}
}

func TestScheduler_SmallChangeSnapsInOneStep(t *testing.T) {
	d := &fakeDisplay{max: 255, current: 213}
	s, _ := newTestScheduler(testConfig(), &fakeSampler{levels: []float64{0.5}}, d)

	require.NoError(t, s.Step(context.Background())) // poll
	require.NoError(t, s.Step(context.Background())) // first fade step

	assert.Equal(t, []int{217}, d.writes)
	// only the preset steps remain, no reschedule after reaching the target
	assert.Equal(t, 9, s.queue.Count(FadeStep))
}

func TestScheduler_RetargetDoesNotCancelQueuedSteps(t *testing.T) {
	cfg := testConfig()
	cfg.FadeDuration = 2 * time.Second

	d := &fakeDisplay{max: 255, current: 7}
	sampler := &fakeSampler{levels: []float64{1, 0}}
	s, _ := newTestScheduler(cfg, sampler, d)

	runUntil(t, s, epoch.Add(499*time.Millisecond))
	before := s.queue.Count(FadeStep)
	require.Positive(t, before)

	runUntil(t, s, epoch.Add(500*time.Millisecond))
	assert.Equal(t, 2, sampler.calls)
	assert.Equal(t, 7, s.Target())
	assert.Greater(t, s.queue.Count(FadeStep), before)

	runUntil(t, s, epoch.Add(10*time.Second))
	assert.Equal(t, 7, d.current)
}

func TestScheduler_ObserverSeesEveryPoll(t *testing.T) {
	d := &fakeDisplay{max: 255, current: 7}
	observer := &recordingObserver{}
	s, _ := newTestScheduler(testConfig(), &fakeSampler{levels: []float64{0.5}}, d, WithObserver(observer))

	runUntil(t, s, epoch.Add(1200*time.Millisecond))

	require.Len(t, observer.sampled, 3)
	assert.Equal(t, sample{current: 7, target: 217}, observer.sampled[0])
	assert.Equal(t, sample{current: 217, target: 217}, observer.sampled[1])
	assert.Equal(t, sample{current: 217, target: 217}, observer.sampled[2])
}

func TestScheduler_SensorErrorStopsLoop(t *testing.T) {
	sensorErr := fmt.Errorf("%w: device unplugged", sensor.ErrSensor)
	d := &fakeDisplay{max: 255, current: 7}
	s, _ := newTestScheduler(testConfig(), &fakeSampler{err: sensorErr}, d)

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, sensor.ErrSensor)
	assert.Empty(t, d.writes)
}

func TestScheduler_DisplayErrors(t *testing.T) {
	displayErr := fmt.Errorf("%w: output gone", display.ErrDisplay)

	tests := []struct {
		name  string
		setup func(m *mocks.MockDisplay)
	}{
		{
			name: "read fails",
			setup: func(m *mocks.MockDisplay) {
				m.EXPECT().CurrentBrightness().Return(0, displayErr)
			},
		},
		{
			name: "write fails",
			setup: func(m *mocks.MockDisplay) {
				m.EXPECT().CurrentBrightness().Return(7, nil)
				m.EXPECT().MaxBrightness().Return(255)
				m.EXPECT().SetBrightness(28).Return(displayErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockDisplay(ctrl)
			tt.setup(m)

			s, _ := newTestScheduler(testConfig(), &fakeSampler{levels: []float64{0.5}}, m)

			err := s.Run(context.Background())
			assert.ErrorIs(t, err, display.ErrDisplay)
		})
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	d := &fakeDisplay{max: 255, current: 7}
	s := New(testConfig(), &fakeSampler{levels: []float64{0.5}}, d, WithClock(&fakeClock{now: epoch}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, s.Run(ctx))
	assert.Equal(t, 1, s.Pending())
}

func TestScheduler_RunReturnsCancelCause(t *testing.T) {
	d := &fakeDisplay{max: 255, current: 7}
	s := New(testConfig(), &fakeSampler{levels: []float64{0.5}}, d, WithClock(&fakeClock{now: epoch}))

	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(display.ErrDisplay)

	assert.ErrorIs(t, s.Run(ctx), display.ErrDisplay)
}

func TestScheduler_ErrorDuringShutdownIsReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sampler := &fakeSampler{
		err:    fmt.Errorf("%w: read failed", sensor.ErrSensor),
		onPoll: cancel,
	}
	s, _ := newTestScheduler(testConfig(), sampler, &fakeDisplay{max: 255, current: 7})

	err := s.Run(ctx)
	assert.ErrorIs(t, err, sensor.ErrSensor)
}

func TestScheduler_StepOnEmptyQueue(t *testing.T) {
	s := New(testConfig(), &fakeSampler{levels: []float64{0.5}}, &fakeDisplay{max: 255})

	assert.ErrorIs(t, s.Step(context.Background()), ErrEmptyQueue)
}

func TestSystemClock_SleepUntil(t *testing.T) {
	clock := SystemClock{}

	t.Run("past deadline returns immediately", func(t *testing.T) {
		assert.NoError(t, clock.SleepUntil(context.Background(), clock.Now().Add(-time.Second)))
	})

	t.Run("short wait", func(t *testing.T) {
		start := clock.Now()
		require.NoError(t, clock.SleepUntil(context.Background(), start.Add(10*time.Millisecond)))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := clock.SleepUntil(ctx, clock.Now().Add(time.Hour))
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
