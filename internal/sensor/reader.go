// Package sensor reads the ambient light sensor and smooths its readings.
package sensor

//go:generate mockgen -source=reader.go -destination=mocks/reader_mock.go -package=mocks

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// ErrSensor is wrapped by every error caused by an unreadable or malformed sensor.
var ErrSensor = errors.New("sensor error")

// Reader returns one raw sensor sample per call.
type Reader interface {
	// ReadRaw returns the current raw line reported by the sensor.
	ReadRaw() (string, error)
}

// FileReader reads the first line of a sysfs attribute, re-reading it from the
// start on every call.
type FileReader struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// Verify FileReader implements Reader interface.
var _ Reader = (*FileReader)(nil)

// OpenFile opens the sensor attribute at path.
func OpenFile(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", ErrSensor, path, err)
	}
	return &FileReader{path: path, file: f}, nil
}

// ReadRaw seeks to the beginning of the attribute and returns its first line.
func (r *FileReader) ReadRaw() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return "", fmt.Errorf("%w: %s is closed", ErrSensor, r.path)
	}
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("%w: failed to rewind %s: %w", ErrSensor, r.path, err)
	}

	line, err := bufio.NewReader(r.file).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: failed to read %s: %w", ErrSensor, r.path, err)
	}
	if line == "" {
		return "", fmt.Errorf("%w: failed to read light sensor value from %s", ErrSensor, r.path)
	}
	return line, nil
}

// Close releases the file handle.
func (r *FileReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// ParseRaw extracts the integer sensor value from a raw line. It accepts plain
// integers ("12") and the applesmc "(left,right)" format, in which case only the
// first value is used.
func ParseRaw(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "(")
	s, _, _ = strings.Cut(s, ",")
	s = strings.TrimSuffix(strings.TrimSpace(s), ")")
	if s == "" {
		return 0, fmt.Errorf("%w: empty reading %q", ErrSensor, raw)
	}

	value, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed reading %q: %w", ErrSensor, raw, err)
	}
	return value, nil
}

func clampRaw(value, maxValue int) int {
	return max(0, min(value, maxValue))
}
