package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/vitals-dashboard/internal/buttons"
	"github.com/sweeney/vitals-dashboard/internal/dashboard"
	"github.com/sweeney/vitals-dashboard/internal/gpio"
	"github.com/sweeney/vitals-dashboard/internal/status"
	"github.com/sweeney/vitals-dashboard/internal/timeline"
	"github.com/sweeney/vitals-dashboard/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard: follow the live feed and serve the status page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("http", "", `HTTP status address ("" disables)`)
	cmd.Flags().Bool("buttons", false, "Read the bedside GPIO buttons")
	mustBind(a.v, "http.addr", cmd.Flags().Lookup("http"))
	mustBind(a.v, "buttons.enabled", cmd.Flags().Lookup("buttons"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	norm, err := cfg.NewNormalizer()
	if err != nil {
		return err
	}
	dc, err := cfg.DashboardConfig()
	if err != nil {
		return err
	}

	source, cs, err := openSource(ctx, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("open feed: %w", err)
	}
	defer cs.close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Patient:         cfg.Patient,
		Feed:            cfg.Feed.Name(),
		HTTPAddr:        cfg.HTTP.Addr,
		Window:          cfg.Dashboard.Window,
		ChartMetric:     cfg.Dashboard.ChartMetric,
		RefreshInterval: cfg.RefreshInterval,
	})
	ctrl := dashboard.NewController(source, tracker, norm, dc, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(ctx)
	})

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, ctrl, a.logger)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		a.logger.Info("http status server listening", zap.String("addr", cfg.HTTP.Addr))
	}

	if cfg.Buttons.Enabled {
		reader, err := gpio.NewRealReader(cfg.Buttons.Chip, gpio.Pins{
			Prev: cfg.Buttons.Pins.Prev,
			Next: cfg.Buttons.Pins.Next,
			Live: cfg.Buttons.Pins.Live,
		})
		if err != nil {
			a.logger.Error("bedside buttons disabled", zap.Error(err))
		} else {
			defer reader.Close()
			g.Go(func() error {
				ticker := time.NewTicker(cfg.Buttons.Poll)
				defer ticker.Stop()
				return runLoop(ctx, reader, ctrl, cfg.Buttons.Debounce, time.Now, ticker.C, a.logger)
			})
		}
	}

	a.logger.Info("started",
		zap.String("feed", cfg.Feed.Name()),
		zap.Int("window", cfg.Dashboard.Window),
		zap.Duration("refresh", cfg.RefreshInterval),
		zap.Bool("buttons", cfg.Buttons.Enabled))

	err = g.Wait()
	a.logger.Info("shutting down")
	return err
}

// buttonTarget is what the bedside buttons drive.
type buttonTarget interface {
	Prev(ctx context.Context) (timeline.NavResult, error)
	Next(ctx context.Context) (timeline.NavResult, error)
	ToggleLive(ctx context.Context) (timeline.Mode, error)
}

// runLoop polls the buttons on every tick and forwards debounced presses
// until ctx is done. Read and command failures are logged and never fatal.
func runLoop(ctx context.Context, reader gpio.Reader, target buttonTarget, debounce time.Duration, now func() time.Time, tick <-chan time.Time, logger *zap.Logger) error {
	detector := buttons.NewDetector(debounce)

	for {
		select {
		case <-ctx.Done():
			counts := detector.Counts()
			logger.Info("button loop stopped",
				zap.Int("prev", counts.Prev), zap.Int("next", counts.Next), zap.Int("live", counts.Live))
			return nil

		case <-tick:
			t := now()
			b, err := reader.Read()
			if err != nil {
				logger.Warn("gpio read error", zap.Error(err))
				continue
			}

			presses := detector.Process(buttons.Input{Prev: b.Prev, Next: b.Next, Live: b.Live, Time: t})
			for _, p := range presses {
				if err := press(ctx, target, p.Button, logger); err != nil {
					if errors.Is(err, dashboard.ErrStopped) {
						return nil
					}
					logger.Warn("button command failed", zap.String("button", string(p.Button)), zap.Error(err))
				}
			}
		}
	}
}

func press(ctx context.Context, target buttonTarget, b buttons.Button, logger *zap.Logger) error {
	switch b {
	case buttons.ButtonPrev:
		res, err := target.Prev(ctx)
		if err == nil {
			logger.Debug("button", zap.String("button", string(b)), zap.String("result", string(res)))
		}
		return err
	case buttons.ButtonNext:
		res, err := target.Next(ctx)
		if err == nil {
			logger.Debug("button", zap.String("button", string(b)), zap.String("result", string(res)))
		}
		return err
	case buttons.ButtonLive:
		mode, err := target.ToggleLive(ctx)
		if err == nil {
			logger.Info("live toggled", zap.String("mode", string(mode)))
		}
		return err
	default:
		return fmt.Errorf("unknown button %q", b)
	}
}

var _ buttonTarget = (*dashboard.Controller)(nil)
