// Package feed provides the sources of raw patient samples: a one-shot
// snapshot of a date and a subscription to samples appended to it.
// Real implementations talk to Redis, a realtime-database REST API, or MQTT;
// the fake implementation allows testing without any of them.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

// DateLayout is the layout of date keys (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// TimeLayout is the layout of timestamp labels (HH:MM:SS).
const TimeLayout = "15:04:05"

var (
	// ErrNotFound means the date has no samples.
	ErrNotFound = errors.New("feed: no samples for date")
	// ErrConnection means the feed could not be reached.
	ErrConnection = errors.New("feed: connection error")
)

// Snapshot maps timestamp labels to raw samples for one date.
type Snapshot map[string]vitals.RawSample

// Labels returns the snapshot's timestamp labels in no particular order.
func (s Snapshot) Labels() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// Sample is one appended sample.
type Sample struct {
	Date      string
	Timestamp string
	Raw       vitals.RawSample
}

// OnSample receives appended samples in append order.
// It is called from the feed's delivery goroutine.
type OnSample func(Sample)

// Subscription is a handle returned by SubscribeAppend.
type Subscription struct {
	ID   string
	Date string
}

// NewSubscription creates a handle with a fresh ID.
func NewSubscription(date string) Subscription {
	return Subscription{ID: uuid.NewString(), Date: date}
}

// SnapshotFetcher reads every sample recorded for a date.
type SnapshotFetcher interface {
	// FetchSnapshot returns ErrNotFound (wrapped) for a date without samples
	// and ErrConnection (wrapped) when the backend is unreachable.
	FetchSnapshot(ctx context.Context, date string) (Snapshot, error)
}

// AppendSubscriber delivers samples appended to a date.
type AppendSubscriber interface {
	SubscribeAppend(ctx context.Context, date string, fn OnSample) (Subscription, error)
	Unsubscribe(sub Subscription) error
}

// Source is a complete feed adapter.
type Source interface {
	SnapshotFetcher
	AppendSubscriber
}

// ConnectionStatus reports whether a live connection is currently up.
// Sources implement it optionally.
type ConnectionStatus interface {
	IsConnected() bool
}

var timestampRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)

// ValidDate reports whether s is a YYYY-MM-DD date key.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidTimestamp reports whether s is a zero-padded HH:MM:SS label.
func ValidTimestamp(s string) bool {
	if !timestampRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}

// DecodeSample parses a JSON object into a RawSample. Numbers are kept as
// float64 so that they coerce the same way regardless of the backend.
func DecodeSample(data []byte) (vitals.RawSample, error) {
	var raw vitals.RawSample
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}
	return raw, nil
}

// DecodeSnapshot parses a JSON object of {timestamp: sample}. A JSON null
// decodes to an empty snapshot. Entries with malformed labels or non-object
// samples are skipped.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snap := make(Snapshot, len(entries))
	for label, body := range entries {
		if !ValidTimestamp(label) {
			continue
		}
		raw, err := DecodeSample(body)
		if err != nil || raw == nil {
			continue
		}
		snap[label] = raw
	}
	return snap, nil
}
