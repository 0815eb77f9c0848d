// Package status provides a thread-safe status tracker for the aquaponics
// monitor. The main loop writes; HTTP handlers read snapshots.
package status

import (
	"os"
	"sync"
	"time"

	"github.com/sweeney/aquaponics-monitor/internal/logic"
	"github.com/sweeney/aquaponics-monitor/internal/report"
	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// MaxEvents is how many recent event-log lines are kept for display.
const MaxEvents = 20

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	ReportURL  string
	Broker     string
	HTTPAddr   string
	LogPath    string
	FlowSensor string
}

// ReportStatus is the outcome of the most recent report attempt.
type ReportStatus struct {
	Time    time.Time
	Outcome string // "ok", "connect_error", "publish_error"; empty before the first attempt
	Error   string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Instance      string
	Readings      sensor.Snapshot
	Alarm         logic.AlarmState
	Frame         logic.Frame
	GrowLight     logic.LightState
	Toggle        bool
	LED           string
	Report        ReportStatus
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Events        []string
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, instance id and config.
func NewTracker(startTime time.Time, instance string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Instance:  instance,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetReadings replaces the reading snapshot. The caller must not mutate
// readings afterwards.
func (t *Tracker) SetReadings(readings sensor.Snapshot) {
	t.mu.Lock()
	t.snap.Readings = readings
	t.mu.Unlock()
}

// SetAlarm sets the current alarm state.
func (t *Tracker) SetAlarm(a logic.AlarmState) {
	t.mu.Lock()
	t.snap.Alarm = a
	t.mu.Unlock()
}

// SetFrame records what the display is showing.
func (t *Tracker) SetFrame(f logic.Frame) {
	t.mu.Lock()
	t.snap.Frame = f
	t.mu.Unlock()
}

// SetOutputs records the grow light, toggle and LED outputs.
func (t *Tracker) SetOutputs(growLight logic.LightState, toggle bool, led string) {
	t.mu.Lock()
	t.snap.GrowLight = growLight
	t.snap.Toggle = toggle
	t.snap.LED = led
	t.mu.Unlock()
}

// SetReport records a report outcome.
func (t *Tracker) SetReport(at time.Time, err error) {
	rs := ReportStatus{Time: at, Outcome: report.Outcome(err)}
	if err != nil {
		rs.Error = err.Error()
	}
	t.mu.Lock()
	t.snap.Report = rs
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// AddEvent appends an event-log line, keeping the newest MaxEvents.
func (t *Tracker) AddEvent(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.snap.Events) == MaxEvents {
		// Copy rather than reslice so snapshots already handed out stay intact.
		events := make([]string, MaxEvents-1, MaxEvents)
		copy(events, t.snap.Events[1:])
		t.snap.Events = events
	}
	t.snap.Events = append(t.snap.Events, line)
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Events = append([]string(nil), t.snap.Events...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// ReadNetworkInfo returns the network state exported by pi-helper, or nil
// when it is not running.
func ReadNetworkInfo() *NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
