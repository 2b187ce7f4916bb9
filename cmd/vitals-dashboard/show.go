package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/sweeney/vitals-dashboard/internal/dashboard"
	"github.com/sweeney/vitals-dashboard/internal/feed"
	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

func newShowCmd(a *app) *cobra.Command {
	var date, at string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print one sample as a table (the latest of the day unless --at is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.show(cmd.Context(), cmd.OutOrStdout(), date, at)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date to read (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&at, "at", "", "Sample time (HH:MM:SS, default latest)")
	return cmd
}

func (a *app) show(ctx context.Context, w io.Writer, date, at string) error {
	norm, err := a.cfg.NewNormalizer()
	if err != nil {
		return err
	}
	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	if date == "" {
		date = time.Now().In(loc).Format(feed.DateLayout)
	}
	if at != "" && !feed.ValidTimestamp(at) {
		return fmt.Errorf("invalid --at %q: want HH:MM:SS", at)
	}

	fetcher, cs, err := openFetcher(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("open feed: %w", err)
	}
	defer cs.close()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	defer cancel()

	view, err := dashboard.Lookup(ctx, fetcher, norm, date, at)
	switch {
	case errors.Is(err, dashboard.ErrNoData):
		_, err = fmt.Fprintf(w, "No data for %s on %s %s\n", a.cfg.Patient, date, orLatest(at))
		return err
	case err != nil:
		return err
	}
	return printView(w, a.cfg.Patient, date, view)
}

func orLatest(at string) string {
	if at == "" {
		return "(latest)"
	}
	return at
}

// printView renders a sample as a table of readings. Status is colored
// when w is a terminal.
func printView(w io.Writer, patient, date string, view vitals.SampleView) error {
	if _, err := fmt.Fprintf(w, "%s  %s %s\n", patient, date, view.Label); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Sensor", "Value", "Unit", "Status"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range view.Readings {
		data = append(data, []string{
			vitals.DisplayName(r.Key),
			r.Value.String(),
			r.Unit,
			statusColor(r.Status)(string(r.Status)),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	alerts := fmt.Sprintf("%d", view.AlertCount)
	if view.AlertCount > 0 {
		alerts = color.New(color.FgRed, color.Bold).Sprint(alerts)
	}
	_, err := fmt.Fprintf(w, "Alerts: %s\n", alerts)
	return err
}

func statusColor(s vitals.Status) func(a ...interface{}) string {
	switch s {
	case vitals.StatusAlert:
		return color.New(color.FgRed).SprintFunc()
	case vitals.StatusWarning:
		return color.New(color.FgYellow).SprintFunc()
	case vitals.StatusOffline:
		return color.New(color.FgHiBlack).SprintFunc()
	default:
		return color.New(color.FgGreen).SprintFunc()
	}
}
