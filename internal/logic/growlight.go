package logic

import (
	"errors"
	"time"
)

// Daytime window, inclusive on both ends.
const (
	DayStartHour = 6
	DayEndHour   = 18
)

// ErrClockInconsistent is returned when the wall clock cannot be trusted to
// classify day and night.
var ErrClockInconsistent = errors.New("timestamp inconsistency")

// earliestTrusted is the oldest wall-clock time accepted as real. A Pi that
// has not synced its clock boots at the epoch or the image build date.
var earliestTrusted = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// LightState is the last state written to the grow light.
type LightState string

const (
	LightUnknown LightState = ""
	LightOn      LightState = "ON"
	LightOff     LightState = "OFF"
)

// IsDaytime reports whether hour falls inside the daytime window.
func IsDaytime(hour int) bool {
	return hour >= DayStartHour && hour <= DayEndHour
}

// GrowLight decides the grow light output: off during daytime, on otherwise.
// It only asks for a write when the target differs from the last known state.
type GrowLight struct {
	state LightState
}

// NewGrowLight creates a controller whose output state is unknown, so the
// first evaluation always writes.
func NewGrowLight() *GrowLight {
	return &GrowLight{}
}

// State returns the last state handed out for writing.
func (g *GrowLight) State() LightState {
	return g.state
}

// Evaluate returns the target output and whether it must be written.
// The caller must write the output when write is true, and call Reset if
// that write fails.
func (g *GrowLight) Evaluate(now time.Time) (on bool, write bool, err error) {
	hour := now.Hour()
	if now.Before(earliestTrusted) || hour < 0 || hour > 23 {
		return false, false, ErrClockInconsistent
	}

	target := LightOn
	if IsDaytime(hour) {
		target = LightOff
	}
	if g.state == target {
		return target == LightOn, false, nil
	}
	g.state = target
	return target == LightOn, true, nil
}

// Reset forgets the known output state so the next Evaluate re-asserts it.
func (g *GrowLight) Reset() {
	g.state = LightUnknown
}
