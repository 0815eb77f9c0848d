package logic

import (
	"fmt"
	"strings"

	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// Frame is two lines of display text.
type Frame struct {
	Line1 string
	Line2 string
}

type channelLabel struct {
	title string
	unit  string
}

var labels = map[sensor.Channel]channelLabel{
	sensor.Ambient:  {"Ambient Temp", "°C"},
	sensor.Water:    {"Water Temp", "°C"},
	sensor.Humidity: {"Humidity", "%"},
	sensor.FlowRate: {"Flow Rate", " L"},
	sensor.PH:       {"pH Level", ""},
	sensor.DO:       {"Dissolved O2", " mg/L"},
}

// Label returns the display title and unit suffix of a channel.
func Label(ch sensor.Channel) (title, unit string) {
	l, ok := labels[ch]
	if !ok {
		return string(ch), ""
	}
	return l.title, strings.TrimSpace(l.unit)
}

// SplashFrame is the static header shown at startup and every splash cycle.
var SplashFrame = Frame{Line1: "Aquaponics", Line2: "Monitor"}

// Rotator cycles the display through the channels, one per call to Next.
// An active alarm preempts the rotation without advancing it; rotation
// resumes from the same position once the alarm clears.
type Rotator struct {
	pos    int
	notice *Frame
}

// NewRotator creates a Rotator positioned at the first channel (AMBIENT).
func NewRotator() *Rotator {
	return &Rotator{}
}

// Current returns the channel the next rotation step will render.
func (r *Rotator) Current() sensor.Channel {
	return sensor.Channels[r.pos]
}

// Notify queues a one-shot frame shown on the next non-alarm step.
func (r *Rotator) Notify(f Frame) {
	r.notice = &f
}

// Next returns the frame for this display cycle.
func (r *Rotator) Next(readings Readings, alarm AlarmState) Frame {
	if alarm.Active {
		return AlarmFrame(alarm)
	}
	if r.notice != nil {
		f := *r.notice
		r.notice = nil
		return f
	}
	ch := sensor.Channels[r.pos]
	r.pos = (r.pos + 1) % len(sensor.Channels)
	return ChannelFrame(ch, readings.Get(ch))
}

// Splash returns the header frame. It does not move the rotation.
func (r *Rotator) Splash() Frame {
	return SplashFrame
}

// ChannelFrame renders a channel label and its integer-truncated value. A
// channel that has never produced a value shows its last failure instead.
func ChannelFrame(ch sensor.Channel, e sensor.Entry) Frame {
	l, ok := labels[ch]
	if !ok {
		l = channelLabel{title: string(ch)}
	}
	if !e.HasValue() {
		if e.LastError != "" {
			return Frame{Line1: l.title, Line2: e.LastError}
		}
		return Frame{Line1: l.title, Line2: "--"}
	}
	return Frame{Line1: l.title, Line2: fmt.Sprintf("%d%s", int(e.Reading.Value), l.unit)}
}

// AlarmFrame renders the two-line alarm banner.
func AlarmFrame(a AlarmState) Frame {
	return Frame{Line1: "!! ALARM !!", Line2: a.Message}
}
