package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/aquaponics-monitor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"value": func(v *float64) string {
		if v == nil {
			return "--"
		}
		return fmt.Sprintf("%.2f", *v)
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Aquaponics Monitor</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.stale { color: orange; }
.alarm { color: white; background: #c00; padding: 0.5em; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.lcd { background: #2b5; color: #031; padding: 0.5em; width: 16ch; white-space: pre; }
</style>
</head>
<body>
<h1>Aquaponics Monitor</h1>
{{if .Alarm.Active}}<p id="alarm" class="alarm">{{.Alarm.Message}}</p>{{end}}

<h2>Readings</h2>
<table>
<tr><th>Channel</th><td>Value</td><td>Status</td></tr>
{{range .Readings}}<tr><th>{{.Label}}</th><td>{{value .Value}} {{.Unit}}</td><td{{if .Stale}} class="stale"{{end}}>{{if .Error}}{{.Error}}{{else if .Stale}}stale{{else}}ok{{end}}</td></tr>
{{end}}</table>

<h2>Display</h2>
<div class="lcd">{{.Frame.Line1}}
{{.Frame.Line2}}</div>

<h2>Outputs</h2>
<table>
<tr><th>Grow light</th><td class="{{if eq (stateOrUnknown (printf "%s" .GrowLight)) "ON"}}on{{else}}off{{end}}">{{stateOrUnknown (printf "%s" .GrowLight)}}</td></tr>
<tr><th>Toggle</th><td class="{{if .Toggle}}on{{else}}off{{end}}">{{if .Toggle}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Status LED</th><td>{{stateOrUnknown .LED}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Last report</th><td>{{if .Report.Outcome}}{{.Report.Outcome}} at {{.Report.Time.UTC.Format "2006-01-02T15:04:05Z"}}{{else}}none yet{{end}}</td></tr>
{{if .Report.Error}}<tr><th>Report error</th><td>{{.Report.Error}}</td></tr>{{end}}
<tr><th>Collector</th><td>{{.Config.ReportURL}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Recent Events</h2>
{{if .Events}}<pre>{{range .Events}}{{.}}
{{end}}</pre>{{else}}<p>none</p>{{end}}

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Instance</th><td>{{.Instance}}</td></tr>
<tr><th>Flow sensor</th><td>{{.Config.FlowSensor}}</td></tr>
<tr><th>Event log</th><td>{{.Config.LogPath}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Template needs Duration and per-channel rows as fields.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		Readings []status.ReadingJSON
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Readings: status.Readings(snap),
	}
	return indexTmpl.Execute(w, data)
}
