package main

import (
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"designcal/internal/capture"
	"designcal/internal/config"
	appLog "designcal/internal/log"
)

func newCaptureCmd(a *app) *cobra.Command {
	var (
		rawURL  string
		out     string
		date    string
		view    string
		width   int
		height  int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Save a PNG screenshot of a calendar page",
		Long: `capture renders a calendar page of a running designcal server in headless
Chromium. Without --url it targets the configured listen address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if rawURL == "" {
				rawURL = calendarURL(cfg, cfg.Listen, date, view)
			}
			if out == "" {
				out = cfg.PreviewPath()
			}

			err = capture.CalendarPNG(cmd.Context(), capture.Options{
				URL:        rawURL,
				OutputPath: out,
				Width:      width,
				Height:     height,
				Timeout:    timeout,
			})
			if err != nil {
				return err
			}
			appLog.Info("screenshot written", "path", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&rawURL, "url", "", "page to capture (default: local /calendar)")
	cmd.Flags().StringVar(&out, "out", "", "output PNG path (default: <cache_dir>/preview.png)")
	cmd.Flags().StringVar(&date, "date", "", "day to show, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&view, "view", "week", "day or week")
	cmd.Flags().IntVar(&width, "width", capture.DefaultWidth, "viewport width in px")
	cmd.Flags().IntVar(&height, "height", capture.DefaultHeight, "viewport height in px")
	cmd.Flags().DurationVar(&timeout, "timeout", capture.DefaultTimeout, "capture timeout")

	return cmd
}

// calendarURL points at the /calendar page served on host, carrying the
// Basic Auth credentials when the API is protected.
func calendarURL(cfg *config.Config, host, date, view string) string {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if view != "" {
		q.Set("view", view)
	}

	u := url.URL{Scheme: "http", Host: host, Path: "/calendar", RawQuery: q.Encode()}
	if ba := cfg.BasicAuth; ba != nil && ba.Username != "" && ba.Password != "" {
		u.User = url.UserPassword(ba.Username, ba.Password)
	}
	return u.String()
}
