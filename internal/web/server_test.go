package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/vitals-dashboard/internal/dashboard"
	"github.com/sweeney/vitals-dashboard/internal/status"
	"github.com/sweeney/vitals-dashboard/internal/timeline"
	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

// fakeNavigator records commands.
type fakeNavigator struct {
	mu      sync.Mutex
	calls   []string
	result  timeline.NavResult
	dateErr error
	stepErr error
}

func (f *fakeNavigator) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeNavigator) Prev(context.Context) (timeline.NavResult, error) {
	f.record("prev")
	return f.result, f.stepErr
}

func (f *fakeNavigator) Next(context.Context) (timeline.NavResult, error) {
	f.record("next")
	return f.result, f.stepErr
}

func (f *fakeNavigator) SelectDate(_ context.Context, date string) error {
	f.record("date " + date)
	return f.dateErr
}

func (f *fakeNavigator) SetLive(_ context.Context, on bool) error {
	f.record(fmt.Sprintf("live %t", on))
	return nil
}

func (f *fakeNavigator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *fakeNavigator) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Patient:         "patient_001",
		Feed:            "redis",
		HTTPAddr:        ":8080",
		Window:          15,
		ChartMetric:     "heart_rate",
		RefreshInterval: 30 * time.Second,
	}
	tr := status.NewTracker(start, cfg)
	nav := &fakeNavigator{result: timeline.NavMoved}
	srv := New(":0", tr, nav, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, nav
}

func testView() vitals.SampleView {
	return vitals.SampleView{
		Readings: []vitals.Reading{
			{Key: vitals.KeyHeartRate, Value: vitals.Numeric(72), Status: vitals.StatusNormal, Unit: "bpm"},
			{Key: vitals.KeySpO2, Value: vitals.Numeric(98), Status: vitals.StatusNormal, Unit: "%"},
			{Key: vitals.KeyAirQuality, Value: vitals.Categorical("Good"), Status: vitals.StatusNormal},
			{Key: vitals.KeyAccelerationX, Value: vitals.Numeric(-999999), Status: vitals.StatusWarning, Unit: "m/s²"},
		},
		AlertCount: 1,
	}
}

func getJSON(t *testing.T, ts *httptest.Server) status.DashboardJSON {
	t.Helper()
	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()
	var dj status.DashboardJSON
	if err := json.NewDecoder(resp.Body).Decode(&dj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return dj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Render(testView(), "08:00:30")
	tr.AppendChartPoint("08:00:30", 72)
	tr.SetNavigation(timeline.Position{Mode: timeline.ModeLive, Date: "2026-01-01", Label: "08:00:30", Length: 1})

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var dj status.DashboardJSON
	if err := json.NewDecoder(resp.Body).Decode(&dj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	d := dj.Dashboard
	if d.Patient != "patient_001" {
		t.Errorf("Patient: got %q, want patient_001", d.Patient)
	}
	if d.Mode != "LIVE" {
		t.Errorf("Mode: got %q, want LIVE", d.Mode)
	}
	if d.Label != "08:00:30" {
		t.Errorf("Label: got %q, want 08:00:30", d.Label)
	}
	if d.AlertCount != 1 {
		t.Errorf("AlertCount: got %d, want 1", d.AlertCount)
	}
	if len(d.Readings) != 4 {
		t.Fatalf("Readings: got %d, want 4", len(d.Readings))
	}
	if d.Readings[2].Value != vitals.Categorical("Good") {
		t.Errorf("air quality: got %v, want Good", d.Readings[2].Value)
	}
	if d.Readings[3].Status != "warning" {
		t.Errorf("acceleration_x status: got %q, want warning", d.Readings[3].Status)
	}
	if len(d.Chart) != 1 || d.Chart[0].Value != 72 {
		t.Errorf("Chart: got %+v", d.Chart)
	}
	if d.Config.Feed != "redis" {
		t.Errorf("Config.Feed: got %q, want redis", d.Config.Feed)
	}
}

func TestJSONNoDataBeforeFirstRender(t *testing.T) {
	ts, _, _ := newTestServer(t)

	d := getJSON(t, ts).Dashboard
	if !d.NoData {
		t.Error("expected NoData=true before the first render")
	}
	if len(d.Readings) != 0 {
		t.Errorf("Readings: got %d, want 0", len(d.Readings))
	}
	if d.Summary.HeartRate != nil {
		t.Errorf("Summary.HeartRate: got %v, want nil", *d.Summary.HeartRate)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Render(testView(), "08:00:30")
	tr.SetNavigation(timeline.Position{Mode: timeline.ModeHistorical, Date: "2026-01-01", CanPrev: true})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	html := string(body)
	for _, want := range []string{"patient_001", "Heart Rate", "SpO₂", "Good", "98%", "HISTORICAL"} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, `id="prev" disabled`) {
		t.Error("prev button should be enabled")
	}
	if !strings.Contains(html, `id="next" disabled`) {
		t.Error("next button should be disabled")
	}
}

func TestHTMLNoData(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestNavigationEndpoints(t *testing.T) {
	ts, _, nav := newTestServer(t)

	for _, path := range []string{"/api/prev", "/api/next"} {
		resp, err := http.Post(ts.URL+path, "", nil)
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		var res commandResult
		json.NewDecoder(resp.Body).Decode(&res)
		resp.Body.Close()
		if resp.StatusCode != 200 {
			t.Errorf("%s status: got %d, want 200", path, resp.StatusCode)
		}
		if res.Result != "MOVED" {
			t.Errorf("%s result: got %q, want MOVED", path, res.Result)
		}
	}

	resp, err := http.PostForm(ts.URL+"/api/live", url.Values{"on": {"false"}})
	if err != nil {
		t.Fatalf("POST /api/live: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("/api/live status: got %d, want 200", resp.StatusCode)
	}

	resp, err = http.PostForm(ts.URL+"/api/date", url.Values{"date": {"2025-01-14"}})
	if err != nil {
		t.Fatalf("POST /api/date: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 202 {
		t.Errorf("/api/date status: got %d, want 202", resp.StatusCode)
	}

	want := []string{"prev", "next", "live false", "date 2025-01-14"}
	got := nav.Calls()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("calls: got %v, want %v", got, want)
	}
}

func TestNavigationRequiresPost(t *testing.T) {
	ts, _, nav := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/prev")
	if err != nil {
		t.Fatalf("GET /api/prev: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
	if len(nav.Calls()) != 0 {
		t.Errorf("expected no commands, got %v", nav.Calls())
	}
}

func TestBadRequests(t *testing.T) {
	ts, _, nav := newTestServer(t)
	nav.dateErr = fmt.Errorf("select date %q: %w", "bogus", dashboard.ErrInvalidDate)

	resp, err := http.PostForm(ts.URL+"/api/date", url.Values{"date": {"bogus"}})
	if err != nil {
		t.Fatalf("POST /api/date: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("/api/date status: got %d, want 400", resp.StatusCode)
	}

	resp, err = http.PostForm(ts.URL+"/api/live", url.Values{"on": {"maybe"}})
	if err != nil {
		t.Fatalf("POST /api/live: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("/api/live status: got %d, want 400", resp.StatusCode)
	}
}

func TestStoppedControllerIsUnavailable(t *testing.T) {
	ts, _, nav := newTestServer(t)
	nav.stepErr = dashboard.ErrStopped

	resp, err := http.Post(ts.URL+"/api/next", "", nil)
	if err != nil {
		t.Fatalf("POST /api/next: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	if d := getJSON(t, ts).Dashboard; !d.Connected {
		t.Error("expected Connected=true initially")
	}

	tr.SetConnected(false)
	tr.Render(testView(), "09:15:00")

	d := getJSON(t, ts).Dashboard
	if d.Connected {
		t.Error("expected Connected=false after update")
	}
	if d.Label != "09:15:00" {
		t.Errorf("Label: got %q, want 09:15:00", d.Label)
	}
	if d.LastUpdated == "" {
		t.Error("expected LastUpdated after a render")
	}
}
