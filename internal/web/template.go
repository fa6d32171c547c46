package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/adaptive-tx/internal/status"
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
	"volts": func(v float64) string {
		return fmt.Sprintf("%.3f V", v)
	},
	"levelClass": func(level string) string {
		switch level {
		case "HIGH":
			return "high"
		case "MEDIUM":
			return "medium"
		case "LOW":
			return "low"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Adaptive TX - {{.Config.NodeID}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.high { color: green; font-weight: bold; }
.medium { color: #b80; font-weight: bold; }
.low { color: #c40; font-weight: bold; }
.unknown { color: orange; }
.cutoff { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Adaptive TX <small>{{.Config.NodeID}}</small></h1>

<h2>Battery</h2>
<table>
<tr><th>Level</th><td id="level" class="{{levelClass .LevelName}}">{{.LevelName}}</td></tr>
<tr><th>Voltage</th><td>{{volts .Controller.Volts}}{{if .Controller.Injected}} (injected){{end}}</td></tr>
<tr><th>Cutoff</th><td class="{{if .Controller.Cutoff}}cutoff{{end}}">{{if .Controller.Cutoff}}ACTIVE{{else}}no{{end}}</td></tr>
<tr><th>Period</th><td>{{.Controller.PeriodMs}}ms</td></tr>
<tr><th>Next send</th><td>{{.Controller.NextSend}}ms</td></tr>
<tr><th>Last transmit</th><td>{{if .LastTransmit.IsZero}}never{{else}}{{.LastTransmit.UTC.Format "2006-01-02T15:04:05Z"}}{{end}}</td></tr>
</table>

<h2>Thresholds</h2>
<table>
<tr><th>High</th><td>{{volts .Controller.Thresholds.High}}</td></tr>
<tr><th>Mid</th><td>{{volts .Controller.Thresholds.Mid}}</td></tr>
<tr><th>Hysteresis</th><td>{{printf "%.3f" .Controller.Thresholds.Hysteresis}}</td></tr>
<tr><th>Cutoff</th><td>{{volts .Controller.CutoffVolts}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counters</h2>
<table>
<tr><th>Transmits</th><td>{{.Controller.Counts.Transmits}}</td></tr>
<tr><th>Cutoff cycles</th><td>{{.Controller.Counts.CutoffCycles}}</td></tr>
<tr><th>Level changes</th><td>{{.Controller.Counts.LevelChanges}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Source</th><td>{{.Config.Source}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		fmt.Fprintf(w, "template error: %v", err)
	}
}
