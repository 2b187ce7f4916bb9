// Package status provides a thread-safe display state for the vitals dashboard.
// The Tracker is the dashboard's display sink; HTTP handlers and the CLI read
// point-in-time snapshots of it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/vitals-dashboard/internal/dashboard"
	"github.com/sweeney/vitals-dashboard/internal/timeline"
	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

// Config contains dashboard configuration for display.
type Config struct {
	Patient         string
	Feed            string // snapshot/live backends, e.g. "redis+mqtt"
	HTTPAddr        string
	Window          int
	ChartMetric     string
	RefreshInterval time.Duration
}

// Snapshot is a point-in-time view of the display state.
// It is a value type; safe to use after the lock is released.
type Snapshot struct {
	View        vitals.SampleView
	NoData      bool
	Chart       []dashboard.ChartPoint
	Nav         timeline.Position
	Connected   bool
	LastUpdated time.Time // zero until the first real render
	StartTime   time.Time
	Now         time.Time
	Config      Config
}

// Uptime returns the duration since the dashboard started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable display state behind an RWMutex.
// It implements dashboard.Sink.
type Tracker struct {
	mu     sync.RWMutex
	snap   Snapshot
	window *dashboard.RollingWindow
	now    func() time.Time
}

var _ dashboard.Sink = (*Tracker)(nil)

// NewTracker creates a Tracker with the given start time and config.
// It starts with no data and an unknown (assumed up) connection.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			NoData:    true,
			Connected: true,
			StartTime: startTime,
			Config:    cfg,
		},
		window: dashboard.NewRollingWindow(cfg.Window),
		now:    time.Now,
	}
}

// Render shows view under label.
func (t *Tracker) Render(view vitals.SampleView, label string) {
	t.mu.Lock()
	t.snap.View = view.WithLabel(label)
	t.snap.NoData = false
	t.snap.LastUpdated = t.now()
	t.mu.Unlock()
}

// RenderEmpty shows the "no data" placeholder.
func (t *Tracker) RenderEmpty() {
	t.mu.Lock()
	t.snap.View = vitals.SampleView{}
	t.snap.NoData = true
	t.mu.Unlock()
}

// AppendChartPoint adds a chart point, dropping the oldest beyond the window.
func (t *Tracker) AppendChartPoint(label string, value float64) {
	t.mu.Lock()
	t.window.Push(dashboard.ChartPoint{Label: label, Value: value})
	t.mu.Unlock()
}

// ResetChart clears the chart.
func (t *Tracker) ResetChart() {
	t.mu.Lock()
	t.window.Reset()
	t.mu.Unlock()
}

// SetNavigation sets the mode and position shown by the navigation controls.
func (t *Tracker) SetNavigation(pos timeline.Position) {
	t.mu.Lock()
	t.snap.Nav = pos
	t.mu.Unlock()
}

// SetConnected sets the feed connection status.
func (t *Tracker) SetConnected(connected bool) {
	t.mu.Lock()
	t.snap.Connected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the display state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Chart = t.window.Points()
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
