package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/thermo-loop/internal/status"
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
	"orDash": func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>thermo-loop {{.Config.Role}} {{.Config.Addr}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.heat { color: #c00; font-weight: bold; }
.cool { color: #06c; font-weight: bold; }
.halted { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; background: orange; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
</style>
</head>
<body>
<h1>thermo-loop {{.Config.Role}} {{.Config.Addr}}<span id="live-dot" class="live-dot" title="connecting"></span></h1>

<h2>Loop</h2>
<table>
<tr><th>Zone</th><td>{{.Config.Setpoint}} &plusmn; {{.Config.Tolerance}} &deg;C</td></tr>
<tr><th>Last reading</th><td id="last-reading">{{if .HasReading}}{{.LastReading}} &deg;C{{else}}-{{end}}</td></tr>
<tr><th>Last command</th><td id="last-command" class="{{if eq (printf "%s" .LastCommand) "HEAT"}}heat{{else if eq (printf "%s" .LastCommand) "COOL"}}cool{{end}}">{{orDash (printf "%s" .LastCommand)}}</td></tr>
<tr><th>Peer</th><td id="last-peer">{{orDash .LastPeer}}</td></tr>
{{if .SessionState}}<tr><th>Session</th><td id="session">{{.SessionTemp}} &deg;C, {{.SessionState}}, cycle {{.Cycles}}</td></tr>{{end}}
{{if .Halted}}<tr><th>Halted</th><td class="halted">{{.HaltedReason}}</td></tr>{{end}}
</table>

<h2>Traffic</h2>
<table>
<tr><th></th><th>sent</th><th>received</th></tr>
<tr><th>Readings</th><td>{{.Sent.Readings}}</td><td>{{.Received.Readings}}</td></tr>
<tr><th>HEAT</th><td>{{.Sent.Commands.Heat}}</td><td>{{.Received.Commands.Heat}}</td></tr>
<tr><th>COOL</th><td>{{.Sent.Commands.Cool}}</td><td>{{.Received.Commands.Cool}}</td></tr>
<tr><th>STABLE</th><td>{{.Sent.Commands.Stable}}</td><td>{{.Received.Commands.Stable}}</td></tr>
<tr><th>FINISHED</th><td>{{.Sent.Commands.Finished}}</td><td>{{.Received.Commands.Finished}}</td></tr>
<tr><th>RESTART</th><td>{{.Sent.Commands.Restart}}</td><td>{{.Received.Commands.Restart}}</td></tr>
<tr><th>Parse errors</th><td colspan="2">{{.ParseErrors}}</td></tr>
<tr><th>Unexpected</th><td colspan="2">{{.Unexpected}}</td></tr>
<tr><th>Send errors</th><td colspan="2">{{.SendErrors}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Sink</th><td>{{.Config.Sink}}</td></tr>
<tr><th>Wire</th><td>{{.Config.Wire}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
{{if .Config.Actuation}}<tr><th>Actuation</th><td>{{.Config.Actuation}}</td></tr>{{end}}
{{if .Config.PeriodMs}}<tr><th>Sampling period</th><td>{{.Config.PeriodMs}}ms</td></tr>{{end}}
{{if .Config.SettleMs}}<tr><th>Settle delay</th><td>{{.Config.SettleMs}}ms</td></tr>{{end}}
<tr><th>Reply pacing</th><td>{{if eq .Config.PacingMs 0}}none{{else}}{{.Config.PacingMs}}ms{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var reading = document.getElementById("last-reading");
  var command = document.getElementById("last-command");
  var peer = document.getElementById("last-peer");
  var session = document.getElementById("session");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        reading.textContent = s.last_reading === null ? "-" : s.last_reading + " °C";
        command.textContent = s.last_command || "-";
        command.className = s.last_command === "HEAT" ? "heat" : s.last_command === "COOL" ? "cool" : "";
        peer.textContent = s.last_peer || "-";
        if (session && s.session) {
          session.textContent = s.session.temp + " °C, " + s.session.state + ", cycle " + s.session.cycles;
        }
      } catch (e) {}
    };
  }
  connect();
})();
</script>
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
	indexTmpl.Execute(w, data)
}
