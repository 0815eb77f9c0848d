package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/aquaponics-monitor/internal/logic"
	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Instance      string        `json:"instance"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	Readings      []ReadingJSON `json:"readings"`
	Alarm         AlarmJSON     `json:"alarm"`
	Display       DisplayJSON   `json:"display"`
	Outputs       OutputsJSON   `json:"outputs"`
	Report        ReportJSON    `json:"report"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Events        []string      `json:"events"`
	Config        ConfigJSON    `json:"config"`
}

// ReadingJSON is one channel's state. Value is null until the channel has
// produced a reading.
type ReadingJSON struct {
	Channel  string   `json:"channel"`
	Label    string   `json:"label"`
	Unit     string   `json:"unit,omitempty"`
	Value    *float64 `json:"value"`
	Updated  string   `json:"updated,omitempty"`
	Stale    bool     `json:"stale"`
	Error    string   `json:"error,omitempty"`
	Failures int      `json:"failures"`
}

// AlarmJSON reports the alarm state.
type AlarmJSON struct {
	Active  bool   `json:"active"`
	Message string `json:"message,omitempty"`
}

// DisplayJSON is what the LCD currently shows.
type DisplayJSON struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// OutputsJSON reports the digital outputs.
type OutputsJSON struct {
	GrowLight string `json:"grow_light"`
	Toggle    bool   `json:"toggle"`
	LED       string `json:"led"`
}

// ReportJSON is the last report outcome.
type ReportJSON struct {
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
	Time    string `json:"time,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ReportURL  string `json:"report_url"`
	Broker     string `json:"broker"`
	HTTPAddr   string `json:"http_addr"`
	LogPath    string `json:"log_path"`
	FlowSensor string `json:"flow_sensor"`
}

// Readings returns every channel in display order.
func Readings(snap Snapshot) []ReadingJSON {
	out := make([]ReadingJSON, 0, len(sensor.Channels))
	for _, ch := range sensor.Channels {
		e := snap.Readings.Get(ch)
		title, unit := logic.Label(ch)
		r := ReadingJSON{
			Channel:  string(ch),
			Label:    title,
			Unit:     unit,
			Stale:    e.Stale,
			Error:    e.LastError,
			Failures: e.Failures,
		}
		if e.HasValue() {
			v := e.Reading.Value
			r.Value = &v
			r.Updated = e.Reading.Time.UTC().Format(time.RFC3339)
		}
		out = append(out, r)
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	growLight := string(snap.GrowLight)
	if growLight == "" {
		growLight = "UNKNOWN"
	}
	led := snap.LED
	if led == "" {
		led = "OFF"
	}

	inner := StatusInner{
		Instance:      snap.Instance,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Readings:      Readings(snap),
		Alarm:         AlarmJSON{Active: snap.Alarm.Active, Message: snap.Alarm.Message},
		Display:       DisplayJSON{Line1: snap.Frame.Line1, Line2: snap.Frame.Line2},
		Outputs:       OutputsJSON{GrowLight: growLight, Toggle: snap.Toggle, LED: led},
		Report:        ReportJSON{Outcome: snap.Report.Outcome, Error: snap.Report.Error},
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Events:        snap.Events,
		Config: ConfigJSON{
			ReportURL:  snap.Config.ReportURL,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
			LogPath:    snap.Config.LogPath,
			FlowSensor: snap.Config.FlowSensor,
		},
	}
	if inner.Events == nil {
		inner.Events = []string{}
	}
	if !snap.Report.Time.IsZero() {
		inner.Report.Time = snap.Report.Time.UTC().Format(time.RFC3339)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
