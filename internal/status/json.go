package status

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

// DashboardJSON is the top-level JSON envelope for the dashboard state.
type DashboardJSON struct {
	Dashboard DashboardInner `json:"dashboard"`
}

// DashboardInner contains the dashboard details.
type DashboardInner struct {
	Patient       string        `json:"patient"`
	Mode          string        `json:"mode"`
	Date          string        `json:"date"`
	Label         string        `json:"label,omitempty"`
	NoData        bool          `json:"no_data"`
	AlertCount    int           `json:"alert_count"`
	Readings      []ReadingJSON `json:"readings"`
	Summary       SummaryJSON   `json:"summary"`
	Chart         []PointJSON   `json:"chart"`
	Navigation    NavJSON       `json:"navigation"`
	Connected     bool          `json:"connected"`
	LastUpdated   string        `json:"last_updated,omitempty"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	Config        ConfigJSON    `json:"config"`
}

// ReadingJSON is one sensor card.
type ReadingJSON struct {
	Key     string       `json:"key"`
	Name    string       `json:"name"`
	Value   vitals.Value `json:"value"`
	Display string       `json:"display"`
	Unit    string       `json:"unit"`
	Status  string       `json:"status"`
}

// SummaryJSON holds the headline vitals; null when unavailable.
type SummaryJSON struct {
	HeartRate   *float64 `json:"heart_rate"`
	Temperature *float64 `json:"temperature"`
	SpO2        *float64 `json:"spo2"`
}

// PointJSON is one chart point.
type PointJSON struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// NavJSON is the navigation state.
type NavJSON struct {
	Index   int  `json:"index"`
	Length  int  `json:"length"`
	CanPrev bool `json:"can_prev"`
	CanNext bool `json:"can_next"`
}

// ConfigJSON is the JSON representation of dashboard config.
type ConfigJSON struct {
	Feed              string `json:"feed"`
	HTTPAddr          string `json:"http_addr"`
	Window            int    `json:"window"`
	ChartMetric       string `json:"chart_metric"`
	RefreshIntervalMs int64  `json:"refresh_interval_ms"`
}

// Readings converts a view into display cards.
func Readings(v vitals.SampleView) []ReadingJSON {
	out := make([]ReadingJSON, 0, len(v.Readings))
	for _, r := range v.Readings {
		out = append(out, ReadingJSON{
			Key:     string(r.Key),
			Name:    vitals.DisplayName(r.Key),
			Value:   r.Value,
			Display: r.Value.String(),
			Unit:    r.Unit,
			Status:  string(r.Status),
		})
	}
	return out
}

func buildInner(snap Snapshot) DashboardInner {
	sum := vitals.Summarize(snap.View)
	chart := make([]PointJSON, len(snap.Chart))
	for i, p := range snap.Chart {
		chart[i] = PointJSON{Label: p.Label, Value: math.Round(p.Value*100) / 100}
	}

	inner := DashboardInner{
		Patient:    snap.Config.Patient,
		Mode:       string(snap.Nav.Mode),
		Date:       snap.Nav.Date,
		Label:      snap.View.Label,
		NoData:     snap.NoData,
		AlertCount: snap.View.AlertCount,
		Readings:   Readings(snap.View),
		Summary: SummaryJSON{
			HeartRate:   sum.HeartRate,
			Temperature: sum.Temperature,
			SpO2:        sum.SpO2,
		},
		Chart: chart,
		Navigation: NavJSON{
			Index:   snap.Nav.Index,
			Length:  snap.Nav.Length,
			CanPrev: snap.Nav.CanPrev,
			CanNext: snap.Nav.CanNext,
		},
		Connected:     snap.Connected,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Config: ConfigJSON{
			Feed:              snap.Config.Feed,
			HTTPAddr:          snap.Config.HTTPAddr,
			Window:            snap.Config.Window,
			ChartMetric:       snap.Config.ChartMetric,
			RefreshIntervalMs: snap.Config.RefreshInterval.Milliseconds(),
		},
	}
	if !snap.LastUpdated.IsZero() {
		inner.LastUpdated = snap.LastUpdated.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON dashboard state for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(DashboardJSON{Dashboard: buildInner(snap)}, "", "  ")
	return data
}
