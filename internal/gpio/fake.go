package gpio

import (
	"errors"
	"time"

	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// FakeBoard is a test double that records outputs and returns scripted
// switch values.
type FakeBoard struct {
	// Switch contains scripted switch states to return.
	// Each call to ReadSwitch() consumes the next sample.
	Switch []bool

	// index tracks current position in Switch
	index int

	LED       LED
	GrowLight bool
	Toggle    bool

	// LEDHistory records every SetLED call.
	LEDHistory []LED

	// GrowLightWrites counts SetGrowLight calls.
	GrowLightWrites int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadSwitch()
	ReadError error

	// WriteError, if set, will be returned by every setter.
	WriteError error
}

// NewFakeBoard creates a FakeBoard with the given switch samples.
func NewFakeBoard(samples ...bool) *FakeBoard {
	return &FakeBoard{Switch: samples}
}

// SetLED records the LED state.
func (f *FakeBoard) SetLED(l LED) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.LED = l
	f.LEDHistory = append(f.LEDHistory, l)
	return nil
}

// SetGrowLight records the relay state.
func (f *FakeBoard) SetGrowLight(on bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.GrowLight = on
	f.GrowLightWrites++
	return nil
}

// ReadSwitch returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeBoard) ReadSwitch() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Switch) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Switch[f.index]
	if f.index < len(f.Switch)-1 {
		f.index++
	}

	return sample, nil
}

// SetToggle records the toggle output.
func (f *FakeBoard) SetToggle(on bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Toggle = on
	return nil
}

// Close marks the board as closed.
func (f *FakeBoard) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the board to the beginning of samples.
func (f *FakeBoard) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeDHT replays a fixed edge capture.
type FakeDHT struct {
	Edges []sensor.Edge
	Err   error
	Calls int
}

// Capture implements sensor.EdgeCapturer.
func (f *FakeDHT) Capture(time.Duration) ([]sensor.Edge, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Edges, nil
}
