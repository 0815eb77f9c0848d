package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/aquaponics-monitor/internal/logic"
	"github.com/sweeney/aquaponics-monitor/internal/metrics"
	"github.com/sweeney/aquaponics-monitor/internal/sensor"
	"github.com/sweeney/aquaponics-monitor/internal/status"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	cfg := status.Config{
		ReportURL:  "http://collector.lan/aq",
		Broker:     "tcp://192.168.1.200:1883",
		HTTPAddr:   ":80",
		LogPath:    "/var/log/aquaponics.log",
		FlowSensor: "brass",
	}
	tr := status.NewTracker(start, "0b1c5e", cfg)
	m := metrics.New()
	srv := New(":0", tr, m.Handler())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, m
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	set := sensor.NewSet()
	set.Update([]sensor.Reading{{Channel: sensor.Water, Value: 21.5, Valid: true, Time: start}})
	tr.SetReadings(set.Snapshot())
	tr.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	assert.Equal(t, "0b1c5e", sj.Status.Instance)
	assert.True(t, sj.Status.MQTT.Connected)
	assert.Equal(t, "tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	assert.Equal(t, "http://collector.lan/aq", sj.Status.Config.ReportURL)
	require.Len(t, sj.Status.Readings, len(sensor.Channels))
	require.NotNil(t, sj.Status.Readings[1].Value)
	assert.Equal(t, 21.5, *sj.Status.Readings[1].Value)
}

func TestJSONReflectsStateChanges(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	var sj status.StatusJSON
	_, body := get(t, ts.URL+"/index.json")
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	assert.False(t, sj.Status.Alarm.Active)

	tr.SetAlarm(logic.AlarmState{Active: true, Message: "LOW pH LEVEL: 4.20"})
	tr.SetOutputs(logic.LightOff, true, "RED")

	_, body = get(t, ts.URL+"/index.json")
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	assert.True(t, sj.Status.Alarm.Active)
	assert.Equal(t, "LOW pH LEVEL: 4.20", sj.Status.Alarm.Message)
	assert.Equal(t, "OFF", sj.Status.Outputs.GrowLight)
	assert.Equal(t, "RED", sj.Status.Outputs.LED)
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetAlarm(logic.AlarmState{Active: true, Message: "OVERTEMP: 33.0°C"})
	tr.SetFrame(logic.Frame{Line1: "!! ALARM !!", Line2: "OVERTEMP: 33.0°C"})
	tr.AddEvent("2026-01-01 00:00:02  OVERTEMP: 33.0°C")

	resp, body := get(t, ts.URL+"/")
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
	assert.Contains(t, body, "Aquaponics Monitor")
	assert.Contains(t, body, `id="alarm"`)
	assert.Contains(t, body, "Water Temp")
	assert.Contains(t, body, "2026-01-01 00:00:02  OVERTEMP")
	assert.Contains(t, body, "none yet", "no report attempted")
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, body := get(t, ts.URL+"/index.html")
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotContains(t, body, `id="alarm"`)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, m := newTestServer(t)
	m.Tick()

	resp, body := get(t, ts.URL+"/metrics")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, body, "aquaponics_ticks_total 1")
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/nonexistent")
	assert.Equal(t, 404, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsOptional(t *testing.T) {
	tr := status.NewTracker(start, "", status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil).Handler())
	defer ts.Close()

	resp, _ := get(t, ts.URL+"/metrics")
	assert.Equal(t, 404, resp.StatusCode)
}
