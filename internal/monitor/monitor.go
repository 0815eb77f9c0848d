// Package monitor owns the cooperative monitoring loop: it binds sensor
// acquisitions, display rotation, alarm evaluation and reporting to the
// scheduler and drives the LED, grow light and toggle outputs.
//
// Everything here runs on the caller's goroutine. The only inputs arriving
// from elsewhere are flow pulses (via sensor.PulseCounter) and report
// results, which the caller hands to HandleReport.
package monitor

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sweeney/aquaponics-monitor/internal/display"
	"github.com/sweeney/aquaponics-monitor/internal/eventlog"
	"github.com/sweeney/aquaponics-monitor/internal/gpio"
	"github.com/sweeney/aquaponics-monitor/internal/logic"
	"github.com/sweeney/aquaponics-monitor/internal/metrics"
	"github.com/sweeney/aquaponics-monitor/internal/report"
	"github.com/sweeney/aquaponics-monitor/internal/sensor"
	"github.com/sweeney/aquaponics-monitor/internal/status"
)

// Task cadences.
const (
	HumidityInterval = 2 * time.Second
	WaterInterval    = 4 * time.Second
	FlowInterval     = 6 * time.Second
	OxygenInterval   = 8 * time.Second
	PHInterval       = 10 * time.Second
	DisplayInterval  = 2 * time.Second
	SplashInterval   = 60 * time.Second
	ReportInterval   = 60 * time.Second
)

// Task names.
const (
	TaskHumidity = "humidity"
	TaskWater    = "water"
	TaskFlow     = "flow"
	TaskOxygen   = "oxygen"
	TaskPH       = "ph"
	TaskDisplay  = "display"
	TaskSplash   = "splash"
	TaskReport   = "report"
)

// Reporter starts a report without blocking. It returns false when a
// previous report is still in flight.
type Reporter interface {
	Dispatch(now time.Time, readings sensor.Snapshot) bool
}

// Sources are the probes bound to the scheduler. A nil source is skipped.
type Sources struct {
	Humidity sensor.Source
	Water    sensor.Source
	Flow     sensor.Source
	Oxygen   sensor.Source
	PH       sensor.Source
}

// Deps are the monitor's collaborators. Tracker and Metrics may be nil.
type Deps struct {
	Board    gpio.Board
	Display  display.Display
	Log      eventlog.Logger
	Reporter Reporter
	Sources  Sources
	Tracker  *status.Tracker
	Metrics  *metrics.Metrics
}

// Monitor is the single owned context for all loop state.
type Monitor struct {
	d Deps

	sched     *logic.Scheduler
	readings  *sensor.Set
	rotator   *logic.Rotator
	growLight *logic.GrowLight
	toggle    *logic.Toggle

	alarm        logic.AlarmState
	loggedAlarm  string
	reportFailed bool
	clockAlert   bool
	led          gpio.LED
	ledSet       bool
}

// New creates a Monitor whose tasks are first due one interval after start.
func New(d Deps, start time.Time) (*Monitor, error) {
	if d.Board == nil || d.Display == nil || d.Log == nil || d.Reporter == nil {
		return nil, errors.New("monitor: board, display, log and reporter are required")
	}
	m := &Monitor{
		d:         d,
		sched:     logic.NewScheduler(),
		readings:  sensor.NewSet(),
		rotator:   logic.NewRotator(),
		growLight: logic.NewGrowLight(),
		toggle:    logic.NewToggle(),
	}

	tasks := []struct {
		name     string
		interval time.Duration
		src      sensor.Source
	}{
		{TaskHumidity, HumidityInterval, d.Sources.Humidity},
		{TaskWater, WaterInterval, d.Sources.Water},
		{TaskFlow, FlowInterval, d.Sources.Flow},
		{TaskOxygen, OxygenInterval, d.Sources.Oxygen},
		{TaskPH, PHInterval, d.Sources.PH},
	}
	for _, t := range tasks {
		if t.src == nil {
			continue
		}
		if err := m.sched.Add(logic.Task{Name: t.name, Interval: t.interval, Run: m.acquire(t.src)}, start); err != nil {
			return nil, err
		}
	}

	// Splash is registered after display so it wins when both are due. The
	// display task holds the rotation on those ticks.
	for _, t := range []logic.Task{
		{Name: TaskDisplay, Interval: DisplayInterval, Run: m.rotate},
		{Name: TaskSplash, Interval: SplashInterval, Run: m.splash},
		{Name: TaskReport, Interval: ReportInterval, Run: m.report},
	} {
		if err := m.sched.Add(t, start); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Start shows the splash screen and sets the initial LED state.
func (m *Monitor) Start(now time.Time) {
	if err := m.splash(now); err != nil {
		log.Printf("display error: %v", err)
	}
	m.updateLED()
	m.event(now, "Monitor started")
	m.publishState()
}

// Stop records the shutdown in the event log.
func (m *Monitor) Stop(now time.Time, reason string) {
	m.event(now, "Monitor stopped ("+reason+")")
	m.publishState()
}

// Tick runs one pass of the loop: poll the switch, evaluate the grow light,
// then run every due task.
func (m *Monitor) Tick(now time.Time) {
	if m.d.Metrics != nil {
		m.d.Metrics.Tick()
	}

	m.pollSwitch()
	m.evaluateGrowLight(now)

	for _, r := range m.sched.Tick(now) {
		if r.Err != nil {
			log.Printf("task %s: %v", r.Name, r.Err)
		}
	}

	m.publishState()
}

// HandleReport applies the outcome of a dispatched report.
func (m *Monitor) HandleReport(res report.Result) {
	if m.d.Metrics != nil {
		m.d.Metrics.Report(res.Err)
	}
	if m.d.Tracker != nil {
		m.d.Tracker.SetReport(res.Finished, res.Err)
	}

	if res.Err == nil {
		log.Printf("report: ok (%v)", res.Finished.Sub(res.Started).Round(time.Millisecond))
		m.reportFailed = false
		m.updateLED()
		return
	}

	log.Printf("report: %v", res.Err)
	m.reportFailed = true
	frame := logic.Frame{Line1: "NET ERROR", Line2: "publish failed"}
	if errors.Is(res.Err, report.ErrConnect) {
		frame.Line2 = "connect failed"
	}
	m.rotator.Notify(frame)
	m.event(res.Finished, "REPORT FAILED: "+frame.Line2)
	m.updateLED()
}

// Readings returns a copy of the current readings.
func (m *Monitor) Readings() sensor.Snapshot {
	return m.readings.Snapshot()
}

// Alarm returns the most recently evaluated alarm state.
func (m *Monitor) Alarm() logic.AlarmState {
	return m.alarm
}

// LED returns the last LED state written.
func (m *Monitor) LED() gpio.LED {
	return m.led
}

// LastRun exposes the scheduler's bookkeeping for a task.
func (m *Monitor) LastRun(task string) (time.Time, bool) {
	return m.sched.LastRun(task)
}

func (m *Monitor) acquire(src sensor.Source) func(time.Time) error {
	return func(now time.Time) error {
		rs, err := src.Acquire(now)
		m.readings.Update(rs)
		if m.d.Metrics != nil {
			m.d.Metrics.ObserveReadings(rs)
		}
		if err == nil {
			return nil
		}

		m.readings.Fail(src.Channels(), err)
		if m.d.Metrics != nil {
			ch, code := src.Channels()[0], sensor.CodeUnknown
			var ae *sensor.AcquireError
			if errors.As(err, &ae) {
				ch, code = ae.Channel, ae.Code
			}
			m.d.Metrics.AcquisitionError(ch, code)
		}
		return err
	}
}

func (m *Monitor) rotate(now time.Time) error {
	m.setAlarm(now, logic.EvaluateAlarm(m.readings))
	if !m.alarm.Active && m.sched.Due(TaskSplash, now) {
		return nil
	}
	return m.show(m.rotator.Next(m.readings, m.alarm))
}

func (m *Monitor) splash(now time.Time) error {
	if m.alarm.Active {
		return nil
	}
	return m.show(m.rotator.Splash())
}

func (m *Monitor) report(now time.Time) error {
	if !m.d.Reporter.Dispatch(now, m.readings.Snapshot()) {
		log.Printf("report: previous attempt still in flight, skipping")
	}
	return nil
}

func (m *Monitor) show(f logic.Frame) error {
	if m.d.Tracker != nil {
		m.d.Tracker.SetFrame(f)
	}
	if err := display.Render(m.d.Display, f.Line1, f.Line2); err != nil {
		return fmt.Errorf("render display: %w", err)
	}
	return nil
}

// setAlarm records a new alarm evaluation. Activation and message changes are
// written to the event log; repeated identical evaluations are not.
func (m *Monitor) setAlarm(now time.Time, a logic.AlarmState) {
	prev := m.alarm
	m.alarm = a

	switch {
	case a.Active && a.Message != m.loggedAlarm:
		m.event(now, a.Message)
		m.loggedAlarm = a.Message
	case !a.Active && prev.Active:
		m.event(now, "ALARM CLEARED")
		m.loggedAlarm = ""
	}

	if m.d.Metrics != nil {
		m.d.Metrics.SetAlarm(a.Active)
	}
	if m.d.Tracker != nil {
		m.d.Tracker.SetAlarm(a)
	}
	m.updateLED()
}

// updateLED applies the indicator priority: red for an alarm, amber after a
// failed report, green otherwise. The line is only written on change.
func (m *Monitor) updateLED() {
	want := gpio.LEDGreen
	switch {
	case m.alarm.Active:
		want = gpio.LEDRed
	case m.reportFailed:
		want = gpio.LEDAmber
	}
	if m.ledSet && want == m.led {
		return
	}
	if err := m.d.Board.SetLED(want); err != nil {
		log.Printf("led error: %v", err)
		return
	}
	m.led = want
	m.ledSet = true
}

func (m *Monitor) pollSwitch() {
	pressed, err := m.d.Board.ReadSwitch()
	if err != nil {
		log.Printf("switch read error: %v", err)
		return
	}
	out, changed := m.toggle.Process(pressed)
	if !changed {
		return
	}
	if err := m.d.Board.SetToggle(out); err != nil {
		log.Printf("toggle error: %v", err)
		return
	}
	log.Printf("toggle: output %s", onOff(out))
}

func (m *Monitor) evaluateGrowLight(now time.Time) {
	on, write, err := m.growLight.Evaluate(now)
	if err != nil {
		if !m.clockAlert {
			m.event(now, fmt.Sprintf("ALERT: %v (%s)", err, now.Format(time.RFC3339)))
			m.clockAlert = true
		}
		return
	}
	m.clockAlert = false
	if !write {
		return
	}
	if err := m.d.Board.SetGrowLight(on); err != nil {
		log.Printf("grow light error: %v", err)
		m.growLight.Reset()
		return
	}
	log.Printf("grow light: %s", onOff(on))
}

// event writes an operator-facing line to the event log.
func (m *Monitor) event(at time.Time, msg string) {
	log.Printf("event: %s", msg)
	if err := m.d.Log.Log(at, msg); err != nil {
		log.Printf("event log error: %v", err)
	}
	if m.d.Tracker != nil {
		m.d.Tracker.AddEvent(strings.TrimSuffix(eventlog.FormatLine(at, msg), "\n"))
	}
}

func (m *Monitor) publishState() {
	if m.d.Tracker == nil {
		return
	}
	m.d.Tracker.SetReadings(m.readings.Snapshot())
	m.d.Tracker.SetOutputs(m.growLight.State(), m.toggle.Output(), m.led.String())
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
