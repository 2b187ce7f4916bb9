// Package dashboard owns the dashboard state: which date and sample are
// selected, whether live pushes are accepted, and the chart window. All state
// changes run on a single goroutine (Run); feed callbacks, fetch completions
// and user commands are posted to it as events.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/vitals-dashboard/internal/feed"
	"github.com/sweeney/vitals-dashboard/internal/timeline"
	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

var (
	// ErrNoData means the selected sample is absent or has no usable readings.
	ErrNoData = errors.New("dashboard: no data")
	// ErrInvalidDate means a date key is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("dashboard: invalid date")
	// ErrStopped means the controller loop has exited.
	ErrStopped = errors.New("dashboard: controller stopped")
)

// Config holds controller settings.
type Config struct {
	Window          int                 // chart points kept
	ChartMetric     vitals.CanonicalKey // plotted key; first numeric reading when absent
	RefreshInterval time.Duration       // 0 disables periodic refresh
	FetchTimeout    time.Duration
	Location        *time.Location // decides what "today" is
	Now             func() time.Time
}

// DefaultConfig returns the settings the dashboard ships with.
func DefaultConfig() Config {
	return Config{
		Window:          15,
		ChartMetric:     vitals.KeyHeartRate,
		RefreshInterval: 30 * time.Second,
		FetchTimeout:    15 * time.Second,
		Location:        time.Local,
		Now:             time.Now,
	}
}

// DashboardState is a point-in-time copy of the controller state.
type DashboardState struct {
	Position   timeline.Position
	View       vitals.SampleView
	Chart      []ChartPoint
	Connected  bool
	Loading    bool
	Subscribed bool
}

// Sample returns the selected view, or ErrNoData when nothing is shown.
func (s DashboardState) Sample() (vitals.SampleView, error) {
	if s.View.Empty() {
		return vitals.SampleView{}, ErrNoData
	}
	return s.View, nil
}

// Controller is the live-tail controller. Create it with NewController and
// start it with Run; the command methods are safe to call from any goroutine.
type Controller struct {
	source feed.Source
	sink   Sink
	norm   *vitals.Normalizer
	cfg    Config
	logger *zap.Logger

	events  chan func()
	stopped chan struct{}

	// Owned by the Run goroutine.
	runCtx    context.Context
	nav       *timeline.Navigator
	window    *RollingWindow
	gen       uint64 // bumped on every mode/date switch
	sub       *feed.Subscription
	snapshot  feed.Snapshot
	current   vitals.SampleView
	pushed    bool // a live push arrived in this generation
	seedErr   bool // the last seed fetch failed
	loading   bool
	connected bool
	connKnown bool
}

// NewController creates a controller. Zero Config fields take their defaults.
func NewController(source feed.Source, sink Sink, norm *vitals.Normalizer, cfg Config, logger *zap.Logger) *Controller {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		source:   source,
		sink:     sink,
		norm:     norm,
		cfg:      cfg,
		logger:   logger,
		events:   make(chan func(), 256),
		stopped:  make(chan struct{}),
		window:   NewRollingWindow(cfg.Window),
		snapshot: make(feed.Snapshot),
	}
	c.nav = timeline.NewNavigator(c.today())
	return c
}

// Run enters Live mode for today and processes events until ctx is done.
// The live subscription is released before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)
	c.runCtx = ctx

	var tick <-chan time.Time
	if c.cfg.RefreshInterval > 0 {
		ticker := time.NewTicker(c.cfg.RefreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	c.enterLive()

	for {
		select {
		case <-ctx.Done():
			c.unsubscribe()
			c.logger.Info("dashboard controller stopped")
			return nil
		case ev := <-c.events:
			ev()
		case <-tick:
			c.refresh()
		}
	}
}

// Prev selects the previous sample. It is suppressed in Live mode.
func (c *Controller) Prev(ctx context.Context) (timeline.NavResult, error) {
	return c.navigate(ctx, (*timeline.Navigator).Prev)
}

// Next selects the next sample. It is suppressed in Live mode.
func (c *Controller) Next(ctx context.Context) (timeline.NavResult, error) {
	return c.navigate(ctx, (*timeline.Navigator).Next)
}

// SelectDate shows date: today enters Live mode, any other date loads its
// snapshot in Historical mode.
func (c *Controller) SelectDate(ctx context.Context, date string) error {
	if !feed.ValidDate(date) {
		return fmt.Errorf("select date %q: %w", date, ErrInvalidDate)
	}
	return c.do(ctx, func() {
		if date == c.today() {
			if c.nav.Mode() != timeline.ModeLive || c.nav.Date() != date {
				c.enterLive()
			}
			return
		}
		c.enterHistorical(date)
	})
}

// SetLive switches Live mode on or off. Switching off freezes the current
// date in Historical mode.
func (c *Controller) SetLive(ctx context.Context, on bool) error {
	return c.do(ctx, func() { c.setLive(on) })
}

// ToggleLive flips the mode and returns the new one.
func (c *Controller) ToggleLive(ctx context.Context) (timeline.Mode, error) {
	var mode timeline.Mode
	err := c.do(ctx, func() {
		c.setLive(c.nav.Mode() != timeline.ModeLive)
		mode = c.nav.Mode()
	})
	return mode, err
}

// State returns a copy of the current state.
func (c *Controller) State(ctx context.Context) (DashboardState, error) {
	var st DashboardState
	err := c.do(ctx, func() {
		st = DashboardState{
			Position:   c.nav.Position(),
			View:       c.current,
			Chart:      c.window.Points(),
			Connected:  c.connected || !c.connKnown,
			Loading:    c.loading,
			Subscribed: c.sub != nil,
		}
	})
	return st, err
}

func (c *Controller) navigate(ctx context.Context, step func(*timeline.Navigator) timeline.NavResult) (timeline.NavResult, error) {
	var res timeline.NavResult
	err := c.do(ctx, func() {
		res = step(c.nav)
		if res == timeline.NavMoved {
			c.showCurrent(true)
			return
		}
		c.logger.Debug("navigation ignored", zap.String("result", string(res)))
	})
	return res, err
}

// do runs fn on the loop and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case c.events <- func() { fn(); close(done) }:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues ev without waiting for it. Events posted after Run returns are dropped.
func (c *Controller) post(ev func()) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

func (c *Controller) today() string {
	return c.cfg.Now().In(c.cfg.Location).Format(feed.DateLayout)
}

func (c *Controller) setLive(on bool) {
	switch {
	case on && c.nav.Mode() != timeline.ModeLive:
		c.enterLive()
	case !on && c.nav.Mode() == timeline.ModeLive:
		c.enterHistorical(c.nav.Date())
	}
}

// enterLive re-subscribes to today's appends and discards historical state.
func (c *Controller) enterLive() {
	c.unsubscribe()
	c.gen++
	c.nav.Enter(timeline.ModeLive, c.today())
	c.clear()
	c.logger.Info("entering live mode", zap.String("date", c.nav.Date()))

	c.subscribe()
	c.fetchSeed()
}

// enterHistorical unsubscribes before the snapshot read is issued so no live
// callback can overwrite the historical view.
func (c *Controller) enterHistorical(date string) {
	c.unsubscribe()
	c.gen++
	c.nav.Enter(timeline.ModeHistorical, date)
	c.clear()
	c.logger.Info("entering historical mode", zap.String("date", date))

	c.fetchHistorical(date, false)
}

func (c *Controller) clear() {
	c.snapshot = make(feed.Snapshot)
	c.current = vitals.SampleView{}
	c.pushed = false
	c.seedErr = false
	c.loading = false
	c.window.Reset()
	c.sink.ResetChart()
	c.sink.RenderEmpty()
	c.publishNav()
}

func (c *Controller) subscribe() {
	gen, date := c.gen, c.nav.Date()
	ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.FetchTimeout)
	defer cancel()

	sub, err := c.source.SubscribeAppend(ctx, date, func(s feed.Sample) {
		c.post(func() { c.applyPush(gen, s) })
	})
	if err != nil {
		c.logger.Warn("live subscription failed", zap.String("date", date), zap.Error(err))
		c.setConnected(false)
		return
	}
	c.sub = &sub
	c.setConnected(true)
	c.logger.Debug("subscribed", zap.String("date", date), zap.String("subscription", sub.ID))
}

func (c *Controller) unsubscribe() {
	if c.sub == nil {
		return
	}
	if err := c.source.Unsubscribe(*c.sub); err != nil {
		c.logger.Warn("unsubscribe failed", zap.String("subscription", c.sub.ID), zap.Error(err))
	}
	c.sub = nil
}

func (c *Controller) fetchSeed() {
	gen, date := c.gen, c.nav.Date()
	c.loading = true
	go func() {
		snap, err := c.fetch(date)
		c.post(func() { c.applySeed(gen, date, snap, err) })
	}()
}

func (c *Controller) fetchHistorical(date string, refresh bool) {
	gen := c.gen
	c.loading = true
	go func() {
		snap, err := c.fetch(date)
		c.post(func() { c.applyHistorical(gen, date, refresh, snap, err) })
	}()
}

func (c *Controller) fetch(date string) (feed.Snapshot, error) {
	ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.FetchTimeout)
	defer cancel()
	return c.source.FetchSnapshot(ctx, date)
}

func (c *Controller) stale(what string, gen uint64, date string) bool {
	if gen == c.gen {
		return false
	}
	c.logger.Debug("dropping stale result",
		zap.String("kind", what),
		zap.String("date", date),
		zap.Uint64("generation", gen),
		zap.Uint64("current", c.gen),
	)
	return true
}

func (c *Controller) applyPush(gen uint64, s feed.Sample) {
	if c.stale("push", gen, s.Date) || c.nav.Mode() != timeline.ModeLive {
		return
	}
	if !feed.ValidTimestamp(s.Timestamp) {
		c.logger.Warn("dropping push with malformed timestamp", zap.String("timestamp", s.Timestamp))
		return
	}

	c.setConnected(true)
	cur := c.nav.Cursor()
	if latest := cur.Tail(1); len(latest) == 1 && s.Timestamp <= latest[0] {
		// Redelivered or late: record it without moving the view or chart.
		if _, seen := c.snapshot[s.Timestamp]; !seen {
			c.snapshot[s.Timestamp] = s.Raw
			cur.Append(s.Timestamp)
			c.publishNav()
		}
		c.logger.Debug("push not after latest sample",
			zap.String("timestamp", s.Timestamp), zap.String("latest", latest[0]))
		return
	}

	c.snapshot[s.Timestamp] = s.Raw
	cur.Append(s.Timestamp)
	c.pushed = true

	view := c.norm.Normalize(s.Raw).WithLabel(s.Timestamp)
	c.show(view, true)
	c.publishNav()
}

// applySeed merges today's snapshot into the live timeline. The latest
// sample is rendered and the chart seeded only if no push got there first.
func (c *Controller) applySeed(gen uint64, date string, snap feed.Snapshot, err error) {
	if c.stale("seed", gen, date) {
		return
	}
	c.loading = false
	c.seedErr = err != nil
	if err != nil {
		c.fetchFailed(date, err)
		return
	}
	c.setConnected(true)

	for label, raw := range snap {
		if _, ok := c.snapshot[label]; !ok {
			c.snapshot[label] = raw
		}
	}
	cur := c.nav.Cursor()
	cur.Load(c.snapshot.Labels())
	if c.pushed {
		c.publishNav()
		return
	}

	c.window.Reset()
	c.sink.ResetChart()
	for _, label := range cur.Tail(c.window.Cap()) {
		if v, ok := vitals.ChartValue(c.viewAt(label), c.cfg.ChartMetric); ok {
			c.pushPoint(label, v)
		}
	}
	c.showCurrent(false)
}

// applyHistorical loads a historical snapshot. On refresh the selected label
// stays selected when it is still present.
func (c *Controller) applyHistorical(gen uint64, date string, refresh bool, snap feed.Snapshot, err error) {
	if c.stale("snapshot", gen, date) || c.nav.Mode() != timeline.ModeHistorical || c.nav.Date() != date {
		return
	}
	c.loading = false
	if err != nil {
		c.fetchFailed(date, err)
		if refresh {
			return
		}
		c.snapshot = make(feed.Snapshot)
		c.nav.Cursor().Reset()
		c.current = vitals.SampleView{}
		c.sink.RenderEmpty()
		c.publishNav()
		return
	}
	c.setConnected(true)

	cur := c.nav.Cursor()
	keep, selected := cur.Current()
	c.snapshot = snap
	cur.Load(snap.Labels())
	if refresh && selected && cur.Seek(keep) {
		c.showCurrent(false)
		return
	}
	c.window.Reset()
	c.sink.ResetChart()
	c.showCurrent(true)
}

func (c *Controller) fetchFailed(date string, err error) {
	switch {
	case errors.Is(err, feed.ErrNotFound):
		c.logger.Info("no samples for date", zap.String("date", date))
	case errors.Is(err, context.Canceled):
		c.logger.Debug("fetch cancelled", zap.String("date", date))
	default:
		c.logger.Warn("snapshot fetch failed", zap.String("date", date), zap.Error(err))
		c.setConnected(false)
	}
}

func (c *Controller) viewAt(label string) vitals.SampleView {
	return c.norm.Normalize(c.snapshot[label]).WithLabel(label)
}

// showCurrent renders the sample under the cursor.
func (c *Controller) showCurrent(chart bool) {
	label, ok := c.nav.Cursor().Current()
	if !ok {
		c.current = vitals.SampleView{}
		c.sink.RenderEmpty()
		c.publishNav()
		return
	}
	c.show(c.viewAt(label), chart)
	c.publishNav()
}

func (c *Controller) show(view vitals.SampleView, chart bool) {
	c.current = view
	if view.Empty() {
		c.sink.RenderEmpty()
	} else {
		c.sink.Render(view, view.Label)
	}
	if !chart {
		return
	}
	if v, ok := vitals.ChartValue(view, c.cfg.ChartMetric); ok {
		c.pushPoint(view.Label, v)
	}
}

func (c *Controller) pushPoint(label string, v float64) {
	c.window.Push(ChartPoint{Label: label, Value: v})
	c.sink.AppendChartPoint(label, v)
}

func (c *Controller) publishNav() {
	c.sink.SetNavigation(c.nav.Position())
}

func (c *Controller) setConnected(ok bool) {
	if c.connKnown && c.connected == ok {
		return
	}
	c.connKnown = true
	c.connected = ok
	c.sink.SetConnected(ok)
}

// refresh re-reads the selected historical date. In Live mode it handles a
// date rollover, retries a failed subscription or seed, and polls
// connectivity.
func (c *Controller) refresh() {
	switch c.nav.Mode() {
	case timeline.ModeHistorical:
		if c.loading {
			return
		}
		c.fetchHistorical(c.nav.Date(), true)
	case timeline.ModeLive:
		if today := c.today(); today != c.nav.Date() {
			c.logger.Info("date rolled over", zap.String("from", c.nav.Date()), zap.String("to", today))
			c.enterLive()
			return
		}
		if c.sub == nil {
			c.subscribe()
			if c.sub != nil && !c.loading {
				c.fetchSeed()
			}
		} else if c.seedErr && !c.pushed && !c.loading {
			c.fetchSeed()
		}
		c.pollConnection()
	}
}

func (c *Controller) pollConnection() {
	cs, ok := c.source.(feed.ConnectionStatus)
	if !ok {
		return
	}
	go func() {
		up := cs.IsConnected()
		c.post(func() { c.setConnected(up) })
	}()
}
