package sensor

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrNotInitialized is returned by Poll before Initialize succeeded.
var ErrNotInitialized = errors.New("sampler not initialized")

// Sampler keeps a moving average over the last N ambient readings so a single
// outlier does not make the backlight flicker.
//
// Readings are stored in raw sensor units and normalized only when averaged,
// which keeps the mean of identical readings exact.
type Sampler struct {
	reader   Reader
	maxValue int
	window   []int
	next     int // index of the oldest sample, overwritten by the next Poll
}

// NewSampler creates a sampler averaging windowSize readings from reader,
// normalized against maxValue.
func NewSampler(reader Reader, windowSize, maxValue int) *Sampler {
	return &Sampler{
		reader:   reader,
		maxValue: maxValue,
		window:   make([]int, 0, windowSize),
	}
}

// Initialize takes one reading and fills the whole window with it, so the first
// averages are not pulled towards zero. A failure here means the sensor is unusable.
func (s *Sampler) Initialize() error {
	if s.maxValue <= 0 {
		return fmt.Errorf("%w: invalid max sensor value %d", ErrSensor, s.maxValue)
	}

	value, err := s.read()
	if err != nil {
		return fmt.Errorf("failed to initialize sampler: %w", err)
	}

	s.window = s.window[:cap(s.window)]
	for i := range s.window {
		s.window[i] = value
	}
	s.next = 0

	log.Debug().Int("raw", value).Int("window", len(s.window)).Msg("Sampler initialized")
	return nil
}

// Poll takes a new reading, evicts the oldest one and returns the window mean
// as a normalized ambient value in 0..1.
func (s *Sampler) Poll() (float64, error) {
	if len(s.window) == 0 {
		return 0, ErrNotInitialized
	}

	value, err := s.read()
	if err != nil {
		return 0, err
	}

	s.window[s.next] = value
	s.next = (s.next + 1) % len(s.window)

	return s.Average(), nil
}

// Average returns the normalized mean of the window without taking a reading.
func (s *Sampler) Average() float64 {
	if len(s.window) == 0 {
		return 0
	}
	sum := 0
	for _, v := range s.window {
		sum += v
	}
	return float64(sum) / float64(len(s.window)) / float64(s.maxValue)
}

func (s *Sampler) read() (int, error) {
	raw, err := s.reader.ReadRaw()
	if err != nil {
		if errors.Is(err, ErrSensor) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrSensor, err)
	}
	value, err := ParseRaw(raw)
	if err != nil {
		return 0, err
	}
	return clampRaw(value, s.maxValue), nil
}
