// Package scheduler keeps an in-memory snapshot of the external calendar
// feeds, refreshed on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"designcal/internal/config"
	"designcal/internal/ics"
	appLog "designcal/internal/log"
	"designcal/internal/model"
)

// Snapshot is the result of one refresh.
type Snapshot struct {
	RefreshedAt time.Time
	byDate      map[string][]model.Appointment
	allDay      map[string][]model.Occurrence
}

// Refresher fetches, parses and expands every configured feed and swaps the
// result in atomically; readers never see a half-built snapshot.
type Refresher struct {
	fetcher     *ics.Fetcher
	sources     atomic.Pointer[[]ics.Source]
	loc         *time.Location
	horizonDays int
	now         func() time.Time

	// runMu serializes refreshes so a run started before SetFeeds cannot
	// overwrite the snapshot of a later one.
	runMu sync.Mutex
	snap  atomic.Pointer[Snapshot]
}

// New builds a Refresher for the feeds in cfg.
func New(cfg *config.Config, fetcher *ics.Fetcher) *Refresher {
	r := &Refresher{
		fetcher:     fetcher,
		loc:         cfg.Location(),
		horizonDays: cfg.HorizonDays,
		now:         time.Now,
	}
	r.SetFeeds(cfg.Feeds)
	r.snap.Store(&Snapshot{})
	return r
}

// SetFeeds replaces the feed list used by the next refresh.
func (r *Refresher) SetFeeds(feeds []config.FeedConfig) {
	sources := Sources(feeds)
	r.sources.Store(&sources)
}

func (r *Refresher) currentSources() []ics.Source {
	return *r.sources.Load()
}

// Sources converts configured feeds, skipping entries without URL. A feed
// without ID is identified by its name, then by its URL.
func Sources(feeds []config.FeedConfig) []ics.Source {
	out := make([]ics.Source, 0, len(feeds))
	for _, f := range feeds {
		if f.URL == "" {
			continue
		}
		id := f.ID
		if id == "" {
			id = f.Name
		}
		if id == "" {
			id = f.URL
		}
		name := f.Name
		if name == "" {
			name = id
		}
		out = append(out, ics.Source{ID: id, Name: name, URL: f.URL})
	}
	return out
}

// RunOnce refreshes the snapshot. Feeds that fail are left out and reported
// in the returned error; the snapshot is replaced as long as one feed worked
// or none is configured.
func (r *Refresher) RunOnce(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	started := r.now()
	today := time.Date(started.In(r.loc).Year(), started.In(r.loc).Month(), started.In(r.loc).Day(), 0, 0, 0, 0, r.loc)
	window := ics.Window{
		Location: r.loc,
		From:     today.AddDate(0, 0, -1),
		To:       today.AddDate(0, 0, r.horizonDays+1),
	}

	sources := r.currentSources()
	results, fetchErrs := r.fetcher.FetchAll(ctx, sources)
	if len(results) == 0 && len(sources) > 0 {
		return fmt.Errorf("refresh: no feed available: %w", errors.Join(fetchErrs...))
	}

	var events []ics.FeedEvent
	errs := fetchErrs
	for _, res := range results {
		parsed, err := ics.Parse(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", res.Source.ID, err))
			appLog.Error("feed parse failed", err, "id", res.Source.ID)
			continue
		}
		events = append(events, parsed...)
	}

	expanded, err := ics.Expand(events, window)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	timed, allDay := ics.ToAppointments(expanded.Occurrences)

	snap := &Snapshot{
		RefreshedAt: r.now(),
		byDate:      make(map[string][]model.Appointment),
		allDay:      make(map[string][]model.Occurrence),
	}
	for _, a := range timed {
		snap.byDate[a.Date] = append(snap.byDate[a.Date], a)
	}
	for _, occ := range allDay {
		for d := occ.Start; d.Before(occ.End); d = d.AddDate(0, 0, 1) {
			key := d.Format(model.DateLayout)
			snap.allDay[key] = append(snap.allDay[key], occ)
		}
	}
	r.snap.Store(snap)

	appLog.Info("feeds refreshed",
		"feeds", len(results),
		"appointments", len(timed),
		"all_day", len(allDay),
		"truncated", len(expanded.Truncated),
		"took", r.now().Sub(started).String(),
	)

	return errors.Join(errs...)
}

// Appointments returns the feed appointments of date ("2006-01-02").
func (r *Refresher) Appointments(date string) []model.Appointment {
	src := r.snap.Load().byDate[date]
	out := make([]model.Appointment, len(src))
	copy(out, src)
	return out
}

// AllDay returns the all-day feed events covering date.
func (r *Refresher) AllDay(date string) []model.Occurrence {
	src := r.snap.Load().allDay[date]
	out := make([]model.Occurrence, len(src))
	copy(out, src)
	return out
}

// RefreshedAt is the completion time of the last successful refresh.
func (r *Refresher) RefreshedAt() time.Time {
	return r.snap.Load().RefreshedAt
}

// Start runs RunOnce on spec (standard 5-field cron) until ctx is done.
// Overlapping runs are skipped.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(r.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(spec, func() {
		if err := r.RunOnce(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("refresh scheduler started", "schedule", spec, "feeds", len(r.currentSources()))

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()

	return nil
}

// cronLogger routes cron's own messages to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
