// Package display drives the enclosure's 16x2 character display.
// The real implementation is an HD44780 behind a PCF8574 I2C backpack.
// The fake implementation keeps the character grid in memory for tests.
package display

import "strings"

// Grid size of the character display.
const (
	Cols = 16
	Rows = 2
)

// Display accepts clear and positioned print operations. There is no
// feedback channel beyond the returned error.
type Display interface {
	Clear() error
	Print(text string, row, col int) error
}

// Render clears the display and writes two lines, each clipped to Cols.
func Render(d Display, line1, line2 string) error {
	if err := d.Clear(); err != nil {
		return err
	}
	if err := d.Print(clip(line1), 0, 0); err != nil {
		return err
	}
	return d.Print(clip(line2), 1, 0)
}

func clip(s string) string {
	r := []rune(s)
	if len(r) > Cols {
		r = r[:Cols]
	}
	return strings.TrimRight(string(r), " ")
}
