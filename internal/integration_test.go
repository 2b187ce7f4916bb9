package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/vitals-dashboard/internal/buttons"
	"github.com/sweeney/vitals-dashboard/internal/dashboard"
	"github.com/sweeney/vitals-dashboard/internal/feed"
	"github.com/sweeney/vitals-dashboard/internal/gpio"
	"github.com/sweeney/vitals-dashboard/internal/status"
	"github.com/sweeney/vitals-dashboard/internal/vitals"
	"github.com/sweeney/vitals-dashboard/internal/web"
)

const (
	today     = "2025-01-15"
	yesterday = "2025-01-14"
)

type stack struct {
	src     *feed.Fake
	ctrl    *dashboard.Controller
	tracker *status.Tracker
	server  *httptest.Server
}

// startStack wires a fake feed through the controller into the tracker and
// serves it over HTTP, the same way serve does.
func startStack(t *testing.T, opts vitals.Options) *stack {
	t.Helper()
	policy, err := vitals.NewPolicy(vitals.DefaultRules(), opts)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	norm := vitals.NewNormalizer(vitals.DefaultAliases(), policy, vitals.NewUnitCatalog(vitals.DefaultUnits(), ""))

	src := feed.NewFake()
	src.Set(today, "09:00:00", vitals.RawSample{"heartRate": 80, "temperature": 36.8})
	src.Set(yesterday, "18:35:19", vitals.RawSample{"heartRate": 66})
	src.Set(yesterday, "09:00:00", vitals.RawSample{"heartRate": 61})
	src.Set(yesterday, "07:12:00", vitals.RawSample{"heartRate": 58})

	tracker := status.NewTracker(time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC), status.Config{
		Patient:     "patient_001",
		Feed:        "fake",
		Window:      15,
		ChartMetric: "heart_rate",
	})
	ctrl := dashboard.NewController(src, tracker, norm, dashboard.Config{
		Window:       15,
		ChartMetric:  vitals.KeyHeartRate,
		FetchTimeout: time.Second,
		Location:     time.UTC,
		Now:          func() time.Time { return time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC) },
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	srv := httptest.NewServer(web.New("", tracker, ctrl, zap.NewNop()).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &stack{src: src, ctrl: ctrl, tracker: tracker, server: srv}
}

func (s *stack) state(t *testing.T) status.DashboardInner {
	t.Helper()
	resp, err := http.Get(s.server.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /index.json: status %d", resp.StatusCode)
	}
	var out status.DashboardJSON
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out.Dashboard
}

// waitFor polls the JSON endpoint until cond holds.
func (s *stack) waitFor(t *testing.T, what string, cond func(status.DashboardInner) bool) status.DashboardInner {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := s.state(t)
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last state: %+v", what, st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (s *stack) post(t *testing.T, path string, form url.Values) int {
	t.Helper()
	resp, err := http.Post(s.server.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func reading(st status.DashboardInner, key string) (status.ReadingJSON, bool) {
	for _, r := range st.Readings {
		if r.Key == key {
			return r, true
		}
	}
	return status.ReadingJSON{}, false
}

// TestIntegrationLiveFlow seeds from the snapshot, then follows pushes.
func TestIntegrationLiveFlow(t *testing.T) {
	s := startStack(t, vitals.DefaultOptions())

	st := s.waitFor(t, "seed", func(st status.DashboardInner) bool { return st.Label == "09:00:00" })
	if st.Mode != "LIVE" || st.Date != today {
		t.Errorf("expected LIVE on %s, got %s on %s", today, st.Mode, st.Date)
	}
	if st.Summary.Temperature == nil || *st.Summary.Temperature != 36.8 {
		t.Errorf("expected temperature 36.8, got %v", st.Summary.Temperature)
	}

	s.waitFor(t, "subscription", func(status.DashboardInner) bool { return s.src.Active() == 1 })
	s.src.Push(today, "10:00:05", vitals.RawSample{"heartRate": 72, "spo2": "98%", "airQuality": "Good", "ax": -999999})

	st = s.waitFor(t, "push", func(st status.DashboardInner) bool { return st.Label == "10:00:05" })
	if st.AlertCount != 1 {
		t.Errorf("expected 1 alert, got %d", st.AlertCount)
	}
	ax, ok := reading(st, "acceleration_x")
	if !ok || ax.Status != "warning" {
		t.Errorf("expected acceleration_x warning, got %+v", ax)
	}
	spo2, ok := reading(st, "spo2")
	if !ok || spo2.Display != "98" || spo2.Unit != "%" {
		t.Errorf("expected spo2 98 %%, got %+v", spo2)
	}
	if n := len(st.Chart); n != 2 {
		t.Fatalf("expected 2 chart points, got %d", n)
	}
	if st.Chart[1].Label != "10:00:05" || st.Chart[1].Value != 72 {
		t.Errorf("unexpected last chart point %+v", st.Chart[1])
	}

	// Navigation is inert while live.
	if code := s.post(t, "/api/prev", nil); code != http.StatusOK {
		t.Errorf("prev: status %d", code)
	}
	if st := s.state(t); st.Label != "10:00:05" {
		t.Errorf("prev moved the live view to %s", st.Label)
	}
}

// TestIntegrationHistoricalBrowse picks a past date and steps through it.
func TestIntegrationHistoricalBrowse(t *testing.T) {
	s := startStack(t, vitals.DefaultOptions())
	s.waitFor(t, "seed", func(st status.DashboardInner) bool { return st.Label == "09:00:00" })

	if code := s.post(t, "/api/date", url.Values{"date": {yesterday}}); code != http.StatusAccepted {
		t.Fatalf("select date: status %d", code)
	}
	st := s.waitFor(t, "historical load", func(st status.DashboardInner) bool {
		return st.Date == yesterday && st.Label == "18:35:19"
	})
	if st.Mode != "HISTORICAL" {
		t.Errorf("expected HISTORICAL, got %s", st.Mode)
	}
	if st.Navigation.Index != 2 || st.Navigation.Length != 3 {
		t.Errorf("expected index 2 of 3, got %+v", st.Navigation)
	}
	if s.src.Active() != 0 {
		t.Errorf("live subscription should be released, got %d active", s.src.Active())
	}

	s.post(t, "/api/prev", nil)
	s.post(t, "/api/prev", nil)
	st = s.waitFor(t, "first sample", func(st status.DashboardInner) bool { return st.Label == "07:12:00" })
	if st.Navigation.CanPrev {
		t.Error("CanPrev should be false at the first sample")
	}
	s.post(t, "/api/prev", nil)
	if st := s.state(t); st.Label != "07:12:00" {
		t.Errorf("prev past the start moved to %s", st.Label)
	}

	// Pushes for today no longer reach the display.
	s.src.Push(today, "10:00:10", vitals.RawSample{"heartRate": 99})
	if st := s.state(t); st.Label != "07:12:00" {
		t.Errorf("push leaked into historical view: %s", st.Label)
	}

	if code := s.post(t, "/api/live", url.Values{"on": {"true"}}); code != http.StatusOK {
		t.Fatalf("live: status %d", code)
	}
	s.waitFor(t, "back to live", func(st status.DashboardInner) bool {
		return st.Mode == "LIVE" && st.Label == "10:00:10"
	})
}

// TestIntegrationMissingDate shows the placeholder for a date without data.
func TestIntegrationMissingDate(t *testing.T) {
	s := startStack(t, vitals.DefaultOptions())
	s.waitFor(t, "seed", func(st status.DashboardInner) bool { return st.Label == "09:00:00" })

	s.post(t, "/api/date", url.Values{"date": {"2025-01-01"}})
	st := s.waitFor(t, "no data", func(st status.DashboardInner) bool {
		return st.Date == "2025-01-01" && st.NoData
	})
	if len(st.Readings) != 0 || len(st.Chart) != 0 {
		t.Errorf("expected empty view, got %d readings %d points", len(st.Readings), len(st.Chart))
	}
	if !st.Connected {
		t.Error("a missing date is not a connection problem")
	}

	if code := s.post(t, "/api/date", url.Values{"date": {"01/01/2025"}}); code != http.StatusBadRequest {
		t.Errorf("malformed date: expected 400, got %d", code)
	}
}

// TestIntegrationStrictness runs the reference sample under each policy.
func TestIntegrationStrictness(t *testing.T) {
	tests := []struct {
		name   string
		opts   vitals.Options
		status string
		alerts int
	}{
		{"default", vitals.DefaultOptions(), "warning", 1},
		{"out of range alert", vitals.Options{OutOfRange: vitals.StatusAlert, UnknownCategory: vitals.StatusWarning, Sentinels: vitals.SentinelDrop, CountWarnings: true}, "alert", 1},
		{"warnings not counted", vitals.Options{OutOfRange: vitals.StatusWarning, UnknownCategory: vitals.StatusWarning, Sentinels: vitals.SentinelDrop, CountWarnings: false}, "warning", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startStack(t, tt.opts)
			s.waitFor(t, "subscription", func(status.DashboardInner) bool { return s.src.Active() == 1 })
			s.src.Push(today, "10:00:05", vitals.RawSample{"heartRate": 72, "spo2": "98%", "airQuality": "Good", "ax": -999999})

			st := s.waitFor(t, "push", func(st status.DashboardInner) bool { return st.Label == "10:00:05" })
			ax, _ := reading(st, "acceleration_x")
			if ax.Status != tt.status {
				t.Errorf("acceleration_x: got %s, want %s", ax.Status, tt.status)
			}
			if st.AlertCount != tt.alerts {
				t.Errorf("alert count: got %d, want %d", st.AlertCount, tt.alerts)
			}
		})
	}
}

// TestIntegrationButtons drives the controller from debounced GPIO presses,
// as the serve loop does.
func TestIntegrationButtons(t *testing.T) {
	s := startStack(t, vitals.DefaultOptions())
	s.waitFor(t, "seed", func(st status.DashboardInner) bool { return st.Label == "09:00:00" })
	ctx := context.Background()

	if err := s.ctrl.SelectDate(ctx, yesterday); err != nil {
		t.Fatalf("SelectDate: %v", err)
	}
	s.waitFor(t, "historical load", func(st status.DashboardInner) bool { return st.Label == "18:35:19" })

	idle := gpio.Buttons{}
	prev := gpio.Buttons{Prev: true}
	live := gpio.Buttons{Live: true}
	var samples []gpio.Buttons
	for _, b := range []gpio.Buttons{idle, prev, idle, live} {
		for i := 0; i < 4; i++ {
			samples = append(samples, b)
		}
	}
	reader := gpio.NewFakeReader(samples)
	detector := buttons.NewDetector(250 * time.Millisecond)
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	for i := range samples {
		b, err := reader.Read()
		if err != nil {
			t.Fatalf("sample %d: gpio read error: %v", i, err)
		}
		presses := detector.Process(buttons.Input{Prev: b.Prev, Next: b.Next, Live: b.Live, Time: start.Add(time.Duration(i) * 100 * time.Millisecond)})
		for _, p := range presses {
			switch p.Button {
			case buttons.ButtonPrev:
				if _, err := s.ctrl.Prev(ctx); err != nil {
					t.Fatalf("Prev: %v", err)
				}
				s.waitFor(t, "prev", func(st status.DashboardInner) bool { return st.Label == "09:00:00" && st.Date == yesterday })
			case buttons.ButtonLive:
				if _, err := s.ctrl.ToggleLive(ctx); err != nil {
					t.Fatalf("ToggleLive: %v", err)
				}
			}
		}
	}

	counts := detector.Counts()
	if counts.Prev != 1 || counts.Live != 1 || counts.Next != 0 {
		t.Errorf("unexpected press counts %+v", counts)
	}
	s.waitFor(t, "live", func(st status.DashboardInner) bool { return st.Mode == "LIVE" && st.Date == today })
}
