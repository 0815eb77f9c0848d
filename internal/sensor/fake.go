package sensor

import (
	"errors"
	"time"
)

// FakeSource is a test double that returns scripted values.
type FakeSource struct {
	// Chans are the channels this source reports.
	Chans []Channel

	// Values contains scripted readings, one map per Acquire call.
	// Once exhausted the last entry repeats.
	Values []map[Channel]float64

	// Err, if set, is returned by Acquire with invalid readings.
	Err error

	// Calls counts Acquire invocations.
	Calls int

	index int
}

// NewFakeSource creates a FakeSource that always reports the given values.
func NewFakeSource(values map[Channel]float64) *FakeSource {
	chans := make([]Channel, 0, len(values))
	for _, ch := range Channels {
		if _, ok := values[ch]; ok {
			chans = append(chans, ch)
		}
	}
	return &FakeSource{Chans: chans, Values: []map[Channel]float64{values}}
}

// Channels implements Source.
func (f *FakeSource) Channels() []Channel {
	return f.Chans
}

// Acquire implements Source.
func (f *FakeSource) Acquire(now time.Time) ([]Reading, error) {
	f.Calls++
	if f.Err != nil {
		var ae *AcquireError
		if errors.As(f.Err, &ae) {
			return invalid(f.Chans, now), f.Err
		}
		return invalid(f.Chans, now), &AcquireError{Channel: f.Chans[0], Code: CodeUnknown, Err: f.Err}
	}
	if len(f.Values) == 0 {
		return invalid(f.Chans, now), &AcquireError{Channel: f.Chans[0], Code: CodeNotStarted}
	}
	vals := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}
	out := make([]Reading, 0, len(f.Chans))
	for _, ch := range f.Chans {
		out = append(out, Reading{Channel: ch, Value: vals[ch], Valid: true, Time: now})
	}
	return out, nil
}

// FakeAnalog returns scripted raw samples in order, cycling.
type FakeAnalog struct {
	Samples []int
	Err     error
	index   int
}

// ReadRaw implements AnalogReader.
func (f *FakeAnalog) ReadRaw() (int, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}
	v := f.Samples[f.index%len(f.Samples)]
	f.index++
	return v, nil
}

// FakeOneWire is an in-memory 1-Wire bus holding scripted scratchpads.
type FakeOneWire struct {
	ROMs []ROM
	// Scratchpads is consumed one per ReadScratchpad; the last repeats.
	Scratchpads [][9]byte

	DevicesErr error
	ConvertErr error
	ReadErr    error

	Conversions int
	index       int
}

// Devices implements OneWireBus.
func (f *FakeOneWire) Devices() ([]ROM, error) {
	return f.ROMs, f.DevicesErr
}

// Convert implements OneWireBus.
func (f *FakeOneWire) Convert(ROM) error {
	if f.ConvertErr != nil {
		return f.ConvertErr
	}
	f.Conversions++
	return nil
}

// ReadScratchpad implements OneWireBus.
func (f *FakeOneWire) ReadScratchpad(ROM) ([9]byte, error) {
	if f.ReadErr != nil {
		return [9]byte{}, f.ReadErr
	}
	if len(f.Scratchpads) == 0 {
		return [9]byte{}, errors.New("no scratchpad configured")
	}
	sp := f.Scratchpads[f.index]
	if f.index < len(f.Scratchpads)-1 {
		f.index++
	}
	return sp, nil
}

// NewROM builds a DS18B20 address with a valid CRC from a 6-byte serial.
func NewROM(serial [6]byte) ROM {
	var r ROM
	r[0] = familyDS18B20
	copy(r[1:7], serial[:])
	r[7] = CRC8(r[:7])
	return r
}

// NewScratchpad builds a scratchpad with a valid CRC holding raw 1/16 C counts.
func NewScratchpad(raw int16) [9]byte {
	var sp [9]byte
	sp[0] = byte(uint16(raw))
	sp[1] = byte(uint16(raw) >> 8)
	sp[2], sp[3], sp[4] = 0x4B, 0x46, 0x7F
	sp[5], sp[6], sp[7] = 0xFF, 0x0C, 0x10
	sp[8] = CRC8(sp[:8])
	return sp
}
