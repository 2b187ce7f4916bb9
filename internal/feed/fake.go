package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

// Fake is an in-memory Source for tests. Snapshots are scripted per date and
// Push delivers appends synchronously to the active subscribers of a date.
type Fake struct {
	mu sync.Mutex

	// Snapshots holds the scripted snapshot per date.
	Snapshots map[string]Snapshot

	// FetchError, if set, is returned by FetchSnapshot.
	FetchError error

	// SubscribeError, if set, is returned by SubscribeAppend.
	SubscribeError error

	// Gates, if set for a date, block FetchSnapshot until the channel is closed.
	Gates map[string]chan struct{}

	// Fetches records the dates passed to FetchSnapshot, in call order.
	Fetches []string

	// Calls records subscription lifecycle calls ("subscribe:<date>",
	// "unsubscribe:<date>", "fetch:<date>") in order.
	Calls []string

	// Connected controls the return value of IsConnected.
	Connected bool

	subs map[string]fakeSub
}

type fakeSub struct {
	date string
	fn   OnSample
}

// NewFake creates an empty, connected Fake.
func NewFake() *Fake {
	return &Fake{
		Snapshots: make(map[string]Snapshot),
		Gates:     make(map[string]chan struct{}),
		Connected: true,
		subs:      make(map[string]fakeSub),
	}
}

// Set scripts one sample into a date's snapshot.
func (f *Fake) Set(date, timestamp string, raw vitals.RawSample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Snapshots[date] == nil {
		f.Snapshots[date] = make(Snapshot)
	}
	f.Snapshots[date][timestamp] = raw
}

// Gate makes the next fetches of date block until the returned func is called.
func (f *Fake) Gate(date string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.Gates[date] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// FetchSnapshot returns a copy of the scripted snapshot for date.
func (f *Fake) FetchSnapshot(ctx context.Context, date string) (Snapshot, error) {
	f.mu.Lock()
	f.Fetches = append(f.Fetches, date)
	f.Calls = append(f.Calls, "fetch:"+date)
	gate := f.Gates[date]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchError != nil {
		return nil, f.FetchError
	}
	src := f.Snapshots[date]
	if len(src) == 0 {
		return nil, fmt.Errorf("date %s: %w", date, ErrNotFound)
	}
	snap := make(Snapshot, len(src))
	for k, v := range src {
		snap[k] = v
	}
	return snap, nil
}

// SubscribeAppend registers fn for date.
func (f *Fake) SubscribeAppend(_ context.Context, date string, fn OnSample) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeError != nil {
		return Subscription{}, f.SubscribeError
	}
	sub := NewSubscription(date)
	f.subs[sub.ID] = fakeSub{date: date, fn: fn}
	f.Calls = append(f.Calls, "subscribe:"+date)
	return sub, nil
}

// Unsubscribe removes sub.
func (f *Fake) Unsubscribe(sub Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub.ID]; ok {
		delete(f.subs, sub.ID)
		f.Calls = append(f.Calls, "unsubscribe:"+sub.Date)
	}
	return nil
}

// Push records the sample into the snapshot and delivers it to every active
// subscriber of date before returning.
func (f *Fake) Push(date, timestamp string, raw vitals.RawSample) {
	f.mu.Lock()
	if f.Snapshots[date] == nil {
		f.Snapshots[date] = make(Snapshot)
	}
	f.Snapshots[date][timestamp] = raw
	var fns []OnSample
	for _, s := range f.subs {
		if s.date == date {
			fns = append(fns, s.fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(Sample{Date: date, Timestamp: timestamp, Raw: raw})
	}
}

// Active returns the number of live subscriptions.
func (f *Fake) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// CallLog returns a copy of Calls.
func (f *Fake) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	copy(out, f.Calls)
	return out
}

// IsConnected reports the scripted connectivity.
func (f *Fake) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SetFetchError changes FetchError while the fake is in use.
func (f *Fake) SetFetchError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchError = err
}

// SetSubscribeError changes SubscribeError while the fake is in use.
func (f *Fake) SetSubscribeError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SubscribeError = err
}

// SetConnected changes Connected while the fake is in use.
func (f *Fake) SetConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connected = connected
}
