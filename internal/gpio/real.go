//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// RealBoard drives the enclosure from actual hardware using the Linux GPIO
// character device.
type RealBoard struct {
	chip      *gpiocdev.Chip
	red       *gpiocdev.Line
	green     *gpiocdev.Line
	growLight *gpiocdev.Line
	sw        *gpiocdev.Line
	toggle    *gpiocdev.Line
	flow      *gpiocdev.Line
}

// NewRealBoard requests every line of pins. Rising edges on the flow line
// increment pulses from the kernel's event goroutine.
func NewRealBoard(chipName string, pins Pins, pulses *sensor.PulseCounter) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	b := &RealBoard{chip: chip}

	outputs := []struct {
		name string
		pin  int
		dst  **gpiocdev.Line
	}{
		{"red LED", pins.Red, &b.red},
		{"green LED", pins.Green, &b.green},
		{"grow light", pins.GrowLight, &b.growLight},
		{"toggle", pins.Toggle, &b.toggle},
	}
	for _, o := range outputs {
		l, err := chip.RequestLine(o.pin, gpiocdev.AsOutput(0))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", o.name, o.pin, err)
		}
		*o.dst = l
	}

	// Switch closes to ground.
	b.sw, err = chip.RequestLine(pins.Switch, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request switch pin %d: %w", pins.Switch, err)
	}

	b.flow, err = chip.RequestLine(pins.Flow,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { pulses.Inc() }))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request flow pin %d: %w", pins.Flow, err)
	}

	return b, nil
}

// SetLED implements Board.
func (b *RealBoard) SetLED(l LED) error {
	red, green := l.Levels()
	if err := b.red.SetValue(red); err != nil {
		return fmt.Errorf("set red LED: %w", err)
	}
	if err := b.green.SetValue(green); err != nil {
		return fmt.Errorf("set green LED: %w", err)
	}
	return nil
}

// SetGrowLight implements Board.
func (b *RealBoard) SetGrowLight(on bool) error {
	if err := b.growLight.SetValue(level(on)); err != nil {
		return fmt.Errorf("set grow light: %w", err)
	}
	return nil
}

// ReadSwitch implements Board.
// Inverts raw GPIO: the pulled-up line reads 0 while the switch is pressed.
func (b *RealBoard) ReadSwitch() (bool, error) {
	raw, err := b.sw.Value()
	if err != nil {
		return false, fmt.Errorf("read switch pin: %w", err)
	}
	return raw == 0, nil
}

// SetToggle implements Board.
func (b *RealBoard) SetToggle(on bool) error {
	if err := b.toggle.SetValue(level(on)); err != nil {
		return fmt.Errorf("set toggle: %w", err)
	}
	return nil
}

// Chip exposes the opened chip so other line users (the DHT capture) share it.
func (b *RealBoard) Chip() *gpiocdev.Chip {
	return b.chip
}

// Close releases GPIO resources.
// Outputs are driven low and every line is returned to an input with
// pull-down (matching Pi boot defaults) before closing.
func (b *RealBoard) Close() error {
	var errs []error

	for _, l := range []*gpiocdev.Line{b.red, b.green, b.growLight, b.toggle, b.sw, b.flow} {
		if l == nil {
			continue
		}
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin: %w", err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// DHTLine captures the DHT22 single-wire response on one line.
type DHTLine struct {
	chip   *gpiocdev.Chip
	offset int
	busy   atomic.Bool
}

// NewDHTLine creates a capturer on the given chip line.
func NewDHTLine(chip *gpiocdev.Chip, offset int) *DHTLine {
	return &DHTLine{chip: chip, offset: offset}
}

// dhtStartLow is the host start signal; the DHT22 needs at least 1ms.
const dhtStartLow = 2 * time.Millisecond

// Capture implements sensor.EdgeCapturer. The line is driven low for the
// start signal, released, then watched for edges until window elapses.
func (d *DHTLine) Capture(window time.Duration) ([]sensor.Edge, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return nil, sensor.ErrLineBusy
	}
	defer d.busy.Store(false)

	out, err := d.chip.RequestLine(d.offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request dht pin %d: %w", d.offset, err)
	}
	time.Sleep(dhtStartLow)
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("release dht pin: %w", err)
	}

	var (
		mu    sync.Mutex
		edges []sensor.Edge
		base  time.Duration
	)
	in, err := d.chip.RequestLine(d.offset,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			mu.Lock()
			defer mu.Unlock()
			if len(edges) == 0 {
				base = evt.Timestamp
			}
			edges = append(edges, sensor.Edge{
				At:     evt.Timestamp - base,
				Rising: evt.Type == gpiocdev.LineEventRisingEdge,
			})
		}))
	if err != nil {
		return nil, fmt.Errorf("watch dht pin %d: %w", d.offset, err)
	}
	time.Sleep(window)
	in.Close()

	mu.Lock()
	defer mu.Unlock()
	return append([]sensor.Edge(nil), edges...), nil
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
