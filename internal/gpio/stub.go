//go:build !linux

package gpio

import (
	"errors"
	"time"

	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(chipName string, pins Pins, pulses *sensor.PulseCounter) (*RealBoard, error) {
	return nil, errUnsupported
}

// SetLED is not implemented on non-Linux platforms.
func (b *RealBoard) SetLED(LED) error { return errUnsupported }

// SetGrowLight is not implemented on non-Linux platforms.
func (b *RealBoard) SetGrowLight(bool) error { return errUnsupported }

// ReadSwitch is not implemented on non-Linux platforms.
func (b *RealBoard) ReadSwitch() (bool, error) { return false, errUnsupported }

// SetToggle is not implemented on non-Linux platforms.
func (b *RealBoard) SetToggle(bool) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}

// Chip is always nil on non-Linux platforms.
func (b *RealBoard) Chip() any { return nil }

// DHTLine is not available on non-Linux platforms.
type DHTLine struct{}

// NewDHTLine returns a capturer that always fails.
func NewDHTLine(chip any, offset int) *DHTLine {
	return &DHTLine{}
}

// Capture is not implemented on non-Linux platforms.
func (d *DHTLine) Capture(time.Duration) ([]sensor.Edge, error) {
	return nil, errUnsupported
}
