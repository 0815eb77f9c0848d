package display

import (
	"fmt"
	"time"

	"github.com/reef-pi/rpi/i2c"
)

// DefaultAddress is the usual PCF8574 backpack address.
const DefaultAddress = 0x27

// PCF8574 pin mapping on the common backpack.
const (
	bitRS        = 0x01
	bitEN        = 0x04
	bitBacklight = 0x08
)

// HD44780 commands.
const (
	cmdClear        = 0x01
	cmdEntryMode    = 0x06 // increment, no shift
	cmdDisplayOn    = 0x0C // display on, cursor off, blink off
	cmdFunction4Bit = 0x28 // 4-bit, 2 lines, 5x8 font
	cmdSetDDRAM     = 0x80

	charDegree  = 0xDF
	charUnknown = '?'
)

var rowOffsets = [Rows]byte{0x00, 0x40}

// LCD is an HD44780 character display on an I2C backpack.
type LCD struct {
	bus   i2c.Bus
	addr  byte
	sleep func(time.Duration)
}

// NewLCD initialises the controller in 4-bit mode and clears it.
func NewLCD(bus i2c.Bus, addr byte) (*LCD, error) {
	l := &LCD{bus: bus, addr: addr, sleep: time.Sleep}
	if err := l.init(); err != nil {
		return nil, fmt.Errorf("init lcd at 0x%02X: %w", addr, err)
	}
	return l, nil
}

func (l *LCD) init() error {
	l.sleep(50 * time.Millisecond)
	// Reset sequence: three 8-bit function sets, then switch to 4-bit.
	for _, d := range []time.Duration{4500 * time.Microsecond, 150 * time.Microsecond, 150 * time.Microsecond} {
		if err := l.writeNibble(0x30, 0); err != nil {
			return err
		}
		l.sleep(d)
	}
	if err := l.writeNibble(0x20, 0); err != nil {
		return err
	}
	for _, cmd := range []byte{cmdFunction4Bit, cmdDisplayOn, cmdEntryMode} {
		if err := l.command(cmd); err != nil {
			return err
		}
	}
	return l.Clear()
}

// Clear implements Display.
func (l *LCD) Clear() error {
	if err := l.command(cmdClear); err != nil {
		return fmt.Errorf("lcd clear: %w", err)
	}
	l.sleep(2 * time.Millisecond)
	return nil
}

// Print implements Display.
func (l *LCD) Print(text string, row, col int) error {
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return fmt.Errorf("lcd: position %d,%d outside %dx%d", row, col, Cols, Rows)
	}
	if err := l.command(cmdSetDDRAM | (rowOffsets[row] + byte(col))); err != nil {
		return fmt.Errorf("lcd cursor: %w", err)
	}
	n := 0
	for _, r := range text {
		if col+n >= Cols {
			break
		}
		if err := l.send(charCode(r), bitRS); err != nil {
			return fmt.Errorf("lcd write: %w", err)
		}
		n++
	}
	return nil
}

// Close turns the backlight off.
func (l *LCD) Close() error {
	return l.bus.WriteBytes(l.addr, []byte{0})
}

func (l *LCD) command(cmd byte) error {
	return l.send(cmd, 0)
}

func (l *LCD) send(b byte, mode byte) error {
	if err := l.writeNibble(b&0xF0, mode); err != nil {
		return err
	}
	return l.writeNibble((b<<4)&0xF0, mode)
}

func (l *LCD) writeNibble(nibble byte, mode byte) error {
	v := nibble | mode | bitBacklight
	if err := l.bus.WriteBytes(l.addr, []byte{v | bitEN}); err != nil {
		return err
	}
	return l.bus.WriteBytes(l.addr, []byte{v &^ bitEN})
}

// charCode maps a rune to the HD44780 A00 character ROM.
func charCode(r rune) byte {
	switch {
	case r == '°':
		return charDegree
	case r >= 0x20 && r < 0x7F:
		return byte(r)
	}
	return charUnknown
}
