package web

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/sweeney/vitals-dashboard/internal/status"
	"github.com/sweeney/vitals-dashboard/internal/timeline"
	"github.com/sweeney/vitals-dashboard/internal/vitals"
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
	"isLive": func(m timeline.Mode) bool {
		return m == timeline.ModeLive
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Patient Vitals</title>
<style>
body { font-family: sans-serif; max-width: 760px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
.summary { display: flex; gap: 2em; margin: 1em 0; font-size: 1.3em; }
.cards { display: grid; grid-template-columns: repeat(auto-fill, minmax(160px, 1fr)); gap: 8px; }
.card { border: 1px solid #ddd; border-radius: 6px; padding: 8px; }
.card .value { font-size: 1.4em; }
.normal { border-left: 4px solid green; }
.warning { border-left: 4px solid orange; }
.alert { border-left: 4px solid red; }
.offline { border-left: 4px solid #888; color: #888; }
.nodata { color: #888; }
.nav button:disabled { opacity: 0.4; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
</style>
</head>
<body>
<h1>{{.Config.Patient}}<span id="live-dot" class="live-dot {{if .Connected}}ok{{else}}err{{end}}" title="{{if .Connected}}connected{{else}}disconnected{{end}}"></span></h1>

<div class="nav">
<button id="prev" {{if not .Nav.CanPrev}}disabled{{end}}>&larr; Prev</button>
<span id="position">{{.Nav.Date}} {{if .View.Label}}{{.View.Label}}{{else}}--:--:--{{end}}</span>
<button id="next" {{if not .Nav.CanNext}}disabled{{end}}>Next &rarr;</button>
<label><input type="checkbox" id="live" {{if isLive .Nav.Mode}}checked{{end}}> Live</label>
<input type="date" id="date" value="{{.Nav.Date}}">
</div>

<div class="summary">
<div>Heart Rate <b id="sum-hr">{{.HeartRate}}</b> bpm</div>
<div>Temperature <b id="sum-temp">{{.Temperature}}</b> °C</div>
<div>SpO₂ <b id="sum-spo2">{{.SpO2}}</b></div>
<div>Alerts <b id="alerts">{{.View.AlertCount}}</b></div>
</div>

{{if .NoData}}<p class="nodata" id="cards">No data</p>{{else}}
<div class="cards" id="cards">
{{range .Cards}}<div class="card {{.Status}}"><div>{{.Name}}</div><div class="value">{{.Display}} {{.Unit}}</div><div>{{.Status}}</div></div>
{{end}}</div>{{end}}

<h2>Chart</h2>
<table id="chart">
{{range .Chart}}<tr><td>{{.Label}}</td><td>{{printf "%.2f" .Value}}</td></tr>
{{end}}</table>

<h2>System</h2>
<table>
<tr><th>Mode</th><td id="mode">{{.Nav.Mode}}</td></tr>
<tr><th>Feed</th><td>{{.Config.Feed}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Refresh</th><td>{{.Config.RefreshInterval}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  function post(path, body) {
    return fetch(path, {
      method: "POST",
      headers: { "Content-Type": "application/x-www-form-urlencoded" },
      body: body || ""
    }).then(function() { setTimeout(function() { location.reload(); }, 300); });
  }
  document.getElementById("prev").onclick = function() { post("/api/prev"); };
  document.getElementById("next").onclick = function() { post("/api/next"); };
  document.getElementById("live").onchange = function(e) { post("/api/live", "on=" + e.target.checked); };
  document.getElementById("date").onchange = function(e) { post("/api/date", "date=" + encodeURIComponent(e.target.value)); };
  if ({{isLive .Nav.Mode}}) {
    setTimeout(function() { location.reload(); }, 5000);
  }
})();
</script>
</body>
</html>
`

func formatSummary(f *float64, suffix string) string {
	if f == nil {
		return "--"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64) + suffix
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	sum := vitals.Summarize(snap.View)
	data := struct {
		status.Snapshot
		Uptime      time.Duration
		Cards       []status.ReadingJSON
		HeartRate   string
		Temperature string
		SpO2        string
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		Cards:       status.Readings(snap.View),
		HeartRate:   formatSummary(sum.HeartRate, ""),
		Temperature: formatSummary(sum.Temperature, ""),
		SpO2:        formatSummary(sum.SpO2, "%"),
	}
	return indexTmpl.Execute(w, data)
}
