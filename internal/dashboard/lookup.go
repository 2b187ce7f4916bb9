package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/sweeney/vitals-dashboard/internal/feed"
	"github.com/sweeney/vitals-dashboard/internal/timeline"
	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

// Lookup fetches date once and normalizes the sample recorded at label, or
// the most recent one when label is empty. Missing dates, labels and empty
// samples return ErrNoData.
func Lookup(ctx context.Context, src feed.SnapshotFetcher, norm *vitals.Normalizer, date, label string) (vitals.SampleView, error) {
	if !feed.ValidDate(date) {
		return vitals.SampleView{}, fmt.Errorf("lookup %q: %w", date, ErrInvalidDate)
	}
	snap, err := src.FetchSnapshot(ctx, date)
	if errors.Is(err, feed.ErrNotFound) {
		return vitals.SampleView{}, fmt.Errorf("lookup %s: %w", date, ErrNoData)
	}
	if err != nil {
		return vitals.SampleView{}, fmt.Errorf("lookup %s: %w", date, err)
	}

	var cur timeline.Cursor
	cur.Load(snap.Labels())
	if label != "" && !cur.Seek(label) {
		return vitals.SampleView{}, fmt.Errorf("lookup %s %s: %w", date, label, ErrNoData)
	}
	at, _ := cur.Current()
	view := norm.Normalize(snap[at]).WithLabel(at)
	if view.Empty() {
		return view, fmt.Errorf("lookup %s %s: %w", date, at, ErrNoData)
	}
	return view, nil
}
