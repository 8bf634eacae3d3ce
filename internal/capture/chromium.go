package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Default viewport for a week view with the default 60px hour height.
const (
	DefaultWidth   = 1400
	DefaultHeight  = 1000
	DefaultTimeout = 30 * time.Second
)

// Options defines one screenshot of a calendar page.
type Options struct {
	// URL of the page, e.g. "http://127.0.0.1:8080/calendar?view=week".
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height of the viewport. Zero means the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero means DefaultTimeout.
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// CalendarPNG loads opts.URL in headless Chromium, waits for the page root
// to carry data-ready="true" and writes a full-page PNG screenshot.
func CalendarPNG(parent context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	err := chromedp.Run(ctx,
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)
	if err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	return writeAtomic(opts.OutputPath, png)
}

// writeAtomic replaces path so /preview.png never serves a half-written file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".preview-*.png")
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
