// Package mqtt mirrors telemetry and lifecycle events to an MQTT broker.
// The mirror is best-effort: failures are logged and never affect reporting.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/aquaponics-monitor/internal/report"
	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// TopicTelemetry is the MQTT topic for reading snapshots.
const TopicTelemetry = "aquaponics/monitor/telemetry"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "aquaponics/monitor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishTelemetry sends a reading snapshot to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishTelemetry(t Telemetry) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Telemetry is one report cycle's snapshot and its HTTP outcome.
type Telemetry struct {
	Timestamp time.Time
	Instance  string
	Readings  sensor.Snapshot
	ReportErr error
}

// SystemEvent represents a system lifecycle event (STARTUP, SHUTDOWN, OFFLINE).
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g., "STARTUP", "SHUTDOWN"
	Reason    string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Instance  string
	Retained  bool // Whether the message should be retained by the broker
}

// TelemetryPayload represents the MQTT message payload for telemetry.
type TelemetryPayload struct {
	Telemetry TelemetryInner `json:"telemetry"`
}

// TelemetryInner contains the snapshot details.
type TelemetryInner struct {
	Timestamp string                  `json:"timestamp"`
	Instance  string                  `json:"instance,omitempty"`
	Report    string                  `json:"report"`
	Readings  map[string]ChannelValue `json:"readings"`
}

// ChannelValue is one channel's last good value. Value is null until the
// channel has produced a reading.
type ChannelValue struct {
	Value *float64 `json:"value"`
	Stale bool     `json:"stale"`
	Error string   `json:"error,omitempty"`
}

// FormatTelemetry creates the JSON payload for a telemetry snapshot.
func FormatTelemetry(t Telemetry) ([]byte, error) {
	readings := make(map[string]ChannelValue, len(sensor.Channels))
	for _, ch := range sensor.Channels {
		e := t.Readings.Get(ch)
		cv := ChannelValue{Stale: e.Stale, Error: e.LastError}
		if e.HasValue() {
			v := e.Reading.Value
			cv.Value = &v
		}
		readings[string(ch)] = cv
	}
	payload := TelemetryPayload{
		Telemetry: TelemetryInner{
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
			Instance:  t.Instance,
			Report:    report.Outcome(t.ReportErr),
			Readings:  readings,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Instance  string `json:"instance,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Instance:  event.Instance,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
