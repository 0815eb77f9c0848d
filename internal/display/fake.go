package display

import "strings"

// Fake is an in-memory 16x2 display.
type Fake struct {
	grid [Rows][Cols]rune

	// Clears counts Clear calls.
	Clears int

	// Err, if set, is returned by every operation.
	Err error
}

// NewFake creates a blank Fake display.
func NewFake() *Fake {
	f := &Fake{}
	f.blank()
	return f
}

// Clear implements Display.
func (f *Fake) Clear() error {
	if f.Err != nil {
		return f.Err
	}
	f.Clears++
	f.blank()
	return nil
}

// Print implements Display. Text past the last column is dropped.
func (f *Fake) Print(text string, row, col int) error {
	if f.Err != nil {
		return f.Err
	}
	if row < 0 || row >= Rows {
		return nil
	}
	for _, r := range text {
		if col >= Cols {
			break
		}
		if col >= 0 {
			f.grid[row][col] = r
		}
		col++
	}
	return nil
}

// Line returns a row with trailing blanks trimmed.
func (f *Fake) Line(row int) string {
	return strings.TrimRight(string(f.grid[row][:]), " ")
}

func (f *Fake) blank() {
	for r := range f.grid {
		for c := range f.grid[r] {
			f.grid[r][c] = ' '
		}
	}
}
