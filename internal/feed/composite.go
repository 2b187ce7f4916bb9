package feed

import "context"

// Composite takes snapshots from one backend and appends from another, e.g.
// a realtime-database REST snapshot with MQTT live pushes.
type Composite struct {
	Snapshots SnapshotFetcher
	Appends   AppendSubscriber
}

// FetchSnapshot delegates to Snapshots.
func (c Composite) FetchSnapshot(ctx context.Context, date string) (Snapshot, error) {
	return c.Snapshots.FetchSnapshot(ctx, date)
}

// SubscribeAppend delegates to Appends.
func (c Composite) SubscribeAppend(ctx context.Context, date string, fn OnSample) (Subscription, error) {
	return c.Appends.SubscribeAppend(ctx, date, fn)
}

// Unsubscribe delegates to Appends.
func (c Composite) Unsubscribe(sub Subscription) error {
	return c.Appends.Unsubscribe(sub)
}

// IsConnected reports the live side's connectivity when it is known.
func (c Composite) IsConnected() bool {
	if cs, ok := c.Appends.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return true
}
