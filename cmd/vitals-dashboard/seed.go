package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sweeney/vitals-dashboard/internal/feed"
	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load a realtime-database JSON export ({date: {time: sample}}) into Redis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read export: %w", err)
			}
			store, closeFn := openRedis(cmd.Context(), a.cfg.Feed.Redis, a.cfg.Patient, a.logger)
			defer closeFn()

			n, err := seed(cmd.Context(), store, data, a.logger)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), n, a.cfg.Patient)
		},
	}
}

// recorder stores one sample.
type recorder interface {
	Record(ctx context.Context, date, timestamp string, raw vitals.RawSample) error
}

// seed records every sample of an export in date then time order and
// returns how many were written. Malformed dates and labels are skipped.
func seed(ctx context.Context, store recorder, data []byte, logger *zap.Logger) (int, error) {
	var export map[string]json.RawMessage
	if err := json.Unmarshal(data, &export); err != nil {
		return 0, fmt.Errorf("decode export: %w", err)
	}

	dates := make([]string, 0, len(export))
	for date := range export {
		if !feed.ValidDate(date) {
			logger.Warn("skipping malformed date", zap.String("date", date))
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)

	n := 0
	for _, date := range dates {
		snap, err := feed.DecodeSnapshot(export[date])
		if err != nil {
			logger.Warn("skipping date", zap.String("date", date), zap.Error(err))
			continue
		}
		labels := snap.Labels()
		sort.Strings(labels)
		for _, label := range labels {
			if err := store.Record(ctx, date, label, snap[label]); err != nil {
				return n, fmt.Errorf("seed %s %s: %w", date, label, err)
			}
			n++
		}
		logger.Debug("seeded date", zap.String("date", date), zap.Int("samples", len(snap)))
	}
	return n, nil
}

func report(w io.Writer, n int, patient string) error {
	_, err := fmt.Fprintf(w, "Seeded %d samples for %s\n", n, patient)
	return err
}
