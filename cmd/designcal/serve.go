package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"designcal/internal/capture"
	"designcal/internal/config"
	"designcal/internal/ics"
	appLog "designcal/internal/log"
	"designcal/internal/scheduler"
	"designcal/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the feed refresh scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if once {
				return runOnce(ctx, cfg)
			}
			return runServe(ctx, a, cfg)
		},
	}

	cmd.Flags().String("listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().BoolVar(&once, "once", false, "refresh feeds, capture the preview and exit")
	_ = a.v.BindPFlag("listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func newRefresher(cfg *config.Config) *scheduler.Refresher {
	fetcher := ics.NewFetcher(cfg.FeedsDir(), &http.Client{Timeout: 30 * time.Second})
	return scheduler.New(cfg, fetcher)
}

func runServe(ctx context.Context, a *app, cfg *config.Config) error {
	repo, release, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	refresher := newRefresher(cfg)
	if len(cfg.Feeds) > 0 {
		if err := refresher.RunOnce(ctx); err != nil {
			appLog.Error("initial feed refresh failed", err)
		}
	}
	if err := refresher.Start(ctx, cfg.RefreshCron); err != nil {
		return err
	}

	cfgPath := a.v.GetString("config")
	err = config.Watch(ctx, cfgPath, a.onConfigChange(ctx, refresher))
	if err != nil {
		appLog.Error("config hot reload disabled", err, "path", cfgPath)
	}

	srv := web.NewServer(cfg, repo, refresher)
	if err := web.ListenAndServe(ctx, cfg, srv.Handler()); err != nil {
		return err
	}
	appLog.Info("designcal exiting")
	return nil
}

// onConfigChange applies a reloaded config file: flag and env overrides are
// re-applied, then the feed list is swapped and refreshed. Everything else
// needs a restart.
func (a *app) onConfigChange(ctx context.Context, refresher *scheduler.Refresher) func(*config.Config) {
	return func(next *config.Config) {
		a.applyOverrides(next)
		refresher.SetFeeds(next.Feeds)
		if err := refresher.RunOnce(ctx); err != nil {
			appLog.Error("feed refresh after config change failed", err)
		}
	}
}

// runOnce refreshes the feeds, serves the calendar just long enough to
// capture the week view into the preview file, then returns.
func runOnce(ctx context.Context, cfg *config.Config) error {
	repo, release, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	refresher := newRefresher(cfg)
	if len(cfg.Feeds) > 0 {
		if err := refresher.RunOnce(ctx); err != nil {
			appLog.Error("feed refresh failed", err)
		}
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}

	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- web.Serve(srvCtx, ln, web.NewServer(cfg, repo, refresher).Handler())
	}()

	captureErr := capture.CalendarPNG(ctx, capture.Options{
		URL:        calendarURL(cfg, ln.Addr().String(), "", "week"),
		OutputPath: cfg.PreviewPath(),
	})

	cancel()
	serveErr := <-done
	if captureErr == nil {
		appLog.Info("preview captured", "path", cfg.PreviewPath())
	}
	return errors.Join(captureErr, serveErr)
}
