package logic

import (
	"fmt"

	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// Alarm thresholds.
const (
	OverTempC = 32.0
	LowPH     = 5.0
)

// Readings is the read-only view of the latest channel values.
type Readings interface {
	Get(ch sensor.Channel) sensor.Entry
}

// AlarmState is recomputed on every display cycle; no history is kept.
type AlarmState struct {
	Active  bool
	Message string
}

// EvaluateAlarm applies the alarm rules in priority order; the first match
// wins. Channels that have never produced a valid reading are ignored.
func EvaluateAlarm(r Readings) AlarmState {
	ambient := r.Get(sensor.Ambient)
	water := r.Get(sensor.Water)
	if (ambient.HasValue() && ambient.Reading.Value > OverTempC) ||
		(water.HasValue() && water.Reading.Value > OverTempC) {
		// The banner shows ambient; water stands in until ambient has a value.
		shown := ambient.Reading.Value
		if !ambient.HasValue() {
			shown = water.Reading.Value
		}
		return AlarmState{
			Active:  true,
			Message: fmt.Sprintf("OVERTEMP: %.1f°C", shown),
		}
	}

	ph := r.Get(sensor.PH)
	if ph.HasValue() && ph.Reading.Value < LowPH {
		return AlarmState{
			Active:  true,
			Message: fmt.Sprintf("LOW pH LEVEL: %.2f", ph.Reading.Value),
		}
	}

	return AlarmState{}
}
