package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Firebase fetches date snapshots from a realtime-database REST endpoint:
//
//	GET <baseURL>/patients/<patient>/<date>.json[?auth=<secret>]
//
// The body is an object of {HH:MM:SS: sample}, or null for an unknown date.
// It does not support live appends; pair it with an AppendSubscriber in a Composite.
type Firebase struct {
	client  *resty.Client
	patient string
	secret  string
	logger  *zap.Logger
}

// NewFirebase creates a snapshot fetcher for one patient.
func NewFirebase(baseURL, patient, secret string, timeout time.Duration, logger *zap.Logger) *Firebase {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json")

	return &Firebase{
		client:  client,
		patient: patient,
		secret:  secret,
		logger:  logger,
	}
}

// FetchSnapshot reads every sample recorded for date.
func (f *Firebase) FetchSnapshot(ctx context.Context, date string) (Snapshot, error) {
	req := f.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"patient": f.patient,
			"date":    date,
		})
	if f.secret != "" {
		req.SetQueryParam("auth", f.secret)
	}

	resp, err := req.Get("/patients/{patient}/{date}.json")
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %v: %w", date, err, ErrConnection)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("date %s: %w", date, ErrNotFound)
	case resp.IsError():
		return nil, fmt.Errorf("get snapshot %s: status %d: %w", date, resp.StatusCode(), ErrConnection)
	}

	snap, err := DecodeSnapshot(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %v: %w", date, err, ErrConnection)
	}
	if len(snap) == 0 {
		return nil, fmt.Errorf("date %s: %w", date, ErrNotFound)
	}

	f.logger.Debug("fetched snapshot",
		zap.String("date", date),
		zap.Int("samples", len(snap)),
	)
	return snap, nil
}
