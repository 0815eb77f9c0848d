package sensor

import (
	"errors"
	"sync/atomic"
	"time"
)

// Edge is one level transition observed on a single-wire data line,
// timestamped relative to the end of the host start signal.
type Edge struct {
	At     time.Duration
	Rising bool
}

// EdgeCapturer sends the DHT start signal and records the line's edges for
// the given window.
type EdgeCapturer interface {
	Capture(window time.Duration) ([]Edge, error)
}

// ErrLineBusy is returned by an EdgeCapturer when a capture is already running.
var ErrLineBusy = errors.New("line busy")

const (
	dhtWindow = 8 * time.Millisecond

	// High pulse widths: response ~80us, bit 0 ~27us, bit 1 ~70us.
	dhtResponseMin = 60 * time.Microsecond
	dhtBitOneMin   = 48 * time.Microsecond
	dhtGlitchMax   = 10 * time.Microsecond
	dhtBits        = 40
)

// HumidityProbe reads a DHT22 (AM2302): one acquisition yields ambient
// temperature and relative humidity.
type HumidityProbe struct {
	line EdgeCapturer
	busy atomic.Bool
}

// NewHumidityProbe creates a probe on the given capture line.
func NewHumidityProbe(line EdgeCapturer) *HumidityProbe {
	return &HumidityProbe{line: line}
}

// Channels implements Source.
func (p *HumidityProbe) Channels() []Channel {
	return []Channel{Ambient, Humidity}
}

// Acquire implements Source.
func (p *HumidityProbe) Acquire(now time.Time) ([]Reading, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return invalid(p.Channels(), now), &AcquireError{Channel: Humidity, Code: CodeAcquiring}
	}
	defer p.busy.Store(false)

	if p.line == nil {
		return invalid(p.Channels(), now), &AcquireError{Channel: Humidity, Code: CodeNotStarted}
	}

	edges, err := p.line.Capture(dhtWindow)
	if err != nil {
		code := CodeNotStarted
		if errors.Is(err, ErrLineBusy) {
			code = CodeAcquiring
		}
		return invalid(p.Channels(), now), &AcquireError{Channel: Humidity, Code: code, Err: err}
	}

	tempC, rh, code := DecodeDHT(edges)
	if code != "" {
		return invalid(p.Channels(), now), &AcquireError{Channel: Humidity, Code: code}
	}

	return []Reading{
		{Channel: Ambient, Value: tempC, Valid: true, Time: now},
		{Channel: Humidity, Value: rh, Valid: true, Time: now},
	}, nil
}

// DecodeDHT converts captured edges into temperature (C) and relative
// humidity (%). A non-empty Code reports why the frame was rejected.
func DecodeDHT(edges []Edge) (tempC, rh float64, code Code) {
	highs := highWidths(edges)
	if len(highs) == 0 {
		return 0, 0, CodeResponse
	}

	// Skip anything before the sensor's ~80us response pulse.
	start := -1
	for i, w := range highs {
		if w >= dhtResponseMin {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return 0, 0, CodeResponse
	}
	bits := highs[start:]
	if len(bits) < dhtBits {
		return 0, 0, CodeDataTimeout
	}

	var data [5]byte
	for i := 0; i < dhtBits; i++ {
		w := bits[i]
		if w < dhtGlitchMax {
			return 0, 0, CodeDeltaSmall
		}
		data[i/8] <<= 1
		if w >= dhtBitOneMin {
			data[i/8] |= 1
		}
	}

	if data[0]+data[1]+data[2]+data[3] != data[4] {
		return 0, 0, CodeChecksum
	}

	rh = float64(uint16(data[0])<<8|uint16(data[1])) / 10
	tempC = float64(uint16(data[2]&0x7F)<<8|uint16(data[3])) / 10
	if data[2]&0x80 != 0 {
		tempC = -tempC
	}
	return tempC, rh, ""
}

// highWidths returns the duration of every complete high pulse.
func highWidths(edges []Edge) []time.Duration {
	var out []time.Duration
	var rise time.Duration
	risen := false
	for _, e := range edges {
		if e.Rising {
			rise = e.At
			risen = true
			continue
		}
		if risen {
			out = append(out, e.At-rise)
			risen = false
		}
	}
	return out
}
