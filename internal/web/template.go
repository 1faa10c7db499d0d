package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/ctmon/cooling-tower/internal/status"
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
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"flowLine": func(snap status.Snapshot) string {
		age, ok := snap.FlowAge()
		if !ok {
			return "no reading"
		}
		return fmt.Sprintf("%.2f lpm (%s ago)", snap.LastFlow.LPM, age.Truncate(time.Second))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Cooling Tower Actuator</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.err { color: red; }
</style>
</head>
<body>
<h1>Cooling Tower Actuator</h1>

<h2>Heater</h2>
<table>
<tr><th>Relay</th><td class="{{if .RelayOn}}on{{else}}off{{end}}">{{onOff .RelayOn}}</td></tr>
<tr><th>Enabled</th><td>{{if .Intent.HeaterEnabled}}yes{{else}}no{{end}}</td></tr>
<tr><th>Duty</th><td>{{.Intent.DutyPercent}}%</td></tr>
<tr><th>Interlock</th><td class="{{if .InterlockEnabled}}on{{else}}err{{end}}">{{if .InterlockEnabled}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Flow threshold</th><td>{{printf "%.2f" .Intent.ThresholdLPM}} lpm</td></tr>
<tr><th>Last flow</th><td>{{flowLine .Snapshot}}</td></tr>
<tr><th>Indicator</th><td>{{onOff .Indicator}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Network</th><td>{{.Assoc}}</td></tr>
<tr><th>Broker session</th><td>{{.Session}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.Topic}}</td></tr>
<tr><th>Peer</th><td>{{.Config.PeerID}}</td></tr>
</table>

<h2>Error Counts</h2>
<table>
<tr><th>Connectivity timeouts</th><td>{{.Errors.ConnectivityTimeout}}</td></tr>
<tr><th>Malformed telemetry</th><td>{{.Errors.MalformedTelemetry}}</td></tr>
<tr><th>Device mismatches</th><td>{{.Errors.DeviceMismatch}}</td></tr>
<tr><th>Stale telemetry</th><td>{{.Errors.StaleTelemetry}}</td></tr>
<tr><th>Invalid commands</th><td>{{.Errors.InvalidCommand}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Device</th><td>{{.Config.DeviceID}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Loop</th><td>{{.Config.LoopMs}}ms</td></tr>
<tr><th>Burst window</th><td>{{.Config.WindowMs}}ms</td></tr>
<tr><th>Flow timeout</th><td>{{.Config.FlowTimeoutMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has an Uptime() method but the template needs a value.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
