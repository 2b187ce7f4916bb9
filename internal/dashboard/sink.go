package dashboard

import (
	"fmt"
	"sync"

	"github.com/sweeney/vitals-dashboard/internal/timeline"
	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

// Sink is the display the controller projects its state onto.
// All methods are called from the controller goroutine.
type Sink interface {
	// Render shows a sample recorded under label.
	Render(view vitals.SampleView, label string)
	// RenderEmpty shows the "no data" placeholder.
	RenderEmpty()
	// AppendChartPoint adds a point to the chart.
	AppendChartPoint(label string, value float64)
	// ResetChart clears the chart.
	ResetChart()
	// SetNavigation updates the mode indicator and prev/next controls.
	SetNavigation(pos timeline.Position)
	// SetConnected updates the connectivity indicator.
	SetConnected(connected bool)
}

// FakeSink records every call for test assertions. It is safe to read from
// the test goroutine while the controller writes to it.
type FakeSink struct {
	mu sync.Mutex

	// Calls contains one entry per call, e.g. "render 08:00:00",
	// "empty", "point 08:00:00=72", "reset", "nav LIVE", "connected false".
	Calls []string

	// Views contains every rendered view in order.
	Views []vitals.SampleView

	// Points contains the chart points since the last ResetChart.
	Points []ChartPoint

	// Nav is the last navigation update.
	Nav timeline.Position

	// Connected is the last connectivity update.
	Connected bool

	// Empty is true when the last render was RenderEmpty.
	Empty bool
}

// NewFakeSink creates a FakeSink for testing.
func NewFakeSink() *FakeSink {
	return &FakeSink{Connected: true}
}

// Render records the view.
func (f *FakeSink) Render(view vitals.SampleView, label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Views = append(f.Views, view)
	f.Empty = false
	f.Calls = append(f.Calls, "render "+label)
}

// RenderEmpty records the placeholder.
func (f *FakeSink) RenderEmpty() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Empty = true
	f.Calls = append(f.Calls, "empty")
}

// AppendChartPoint records the point.
func (f *FakeSink) AppendChartPoint(label string, value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Points = append(f.Points, ChartPoint{Label: label, Value: value})
	f.Calls = append(f.Calls, fmt.Sprintf("point %s=%g", label, value))
}

// ResetChart clears the recorded points.
func (f *FakeSink) ResetChart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Points = nil
	f.Calls = append(f.Calls, "reset")
}

// SetNavigation records the position.
func (f *FakeSink) SetNavigation(pos timeline.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Nav = pos
	f.Calls = append(f.Calls, "nav "+string(pos.Mode))
}

// SetConnected records connectivity.
func (f *FakeSink) SetConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connected = connected
	f.Calls = append(f.Calls, fmt.Sprintf("connected %t", connected))
}

// Rendered returns the labels of every rendered view in order.
func (f *FakeSink) Rendered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Views))
	for i, v := range f.Views {
		out[i] = v.Label
	}
	return out
}

// Last returns the last rendered view and whether the last render was a
// real view rather than the placeholder.
func (f *FakeSink) Last() (vitals.SampleView, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Empty || len(f.Views) == 0 {
		return vitals.SampleView{}, false
	}
	return f.Views[len(f.Views)-1], true
}

// ChartPoints returns a copy of the current chart points.
func (f *FakeSink) ChartPoints() []ChartPoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ChartPoint, len(f.Points))
	copy(out, f.Points)
	return out
}

// IsConnected returns the last connectivity update.
func (f *FakeSink) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Navigation returns the last navigation update.
func (f *FakeSink) Navigation() timeline.Position {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Nav
}

// Reset clears all recorded calls.
func (f *FakeSink) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
	f.Views = nil
	f.Points = nil
	f.Empty = false
}
