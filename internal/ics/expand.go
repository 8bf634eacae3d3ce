package ics

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "designcal/internal/log"
	"designcal/internal/model"
)

const defaultMaxPerEvent = 5000

// Window bounds an expansion.
type Window struct {
	// Location is the display timezone of the resulting occurrences.
	// Nil means time.Local.
	Location *time.Location

	// From / To select occurrences intersecting [From, To).
	From time.Time
	To   time.Time

	// MaxPerEvent caps the instances generated by one RRULE. Zero means
	// defaultMaxPerEvent.
	MaxPerEvent int
}

// ExpandResult holds the occurrences of an expansion, ordered by start time.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// Truncated lists UIDs whose recurrence hit MaxPerEvent.
	Truncated []string
}

// Expand turns feed events into concrete occurrences inside w. It handles
// single events, RRULE recurrences with EXDATE exclusions and RECURRENCE-ID
// overrides.
func Expand(events []FeedEvent, w Window) (ExpandResult, error) {
	var result ExpandResult

	if w.To.Before(w.From) {
		return result, errors.New("expand: window ends before it starts")
	}
	if w.Location == nil {
		w.Location = time.Local
	}
	if w.MaxPerEvent <= 0 {
		w.MaxPerEvent = defaultMaxPerEvent
	}

	type group struct {
		bases     []FeedEvent
		overrides []FeedEvent
	}
	groups := make(map[string]*group)
	var order []string
	for _, ev := range events {
		key := ev.Source.ID + "\x00" + ev.UID
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		if ev.IsOverride {
			g.overrides = append(g.overrides, ev)
		} else {
			g.bases = append(g.bases, ev)
		}
	}

	for _, key := range order {
		g := groups[key]

		truncated := false
		for _, base := range g.bases {
			occs, hitCap := expandOne(base, g.overrides, w)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occs...)
		}
		if truncated {
			uid := g.bases[0].UID
			result.Truncated = append(result.Truncated, uid)
			appLog.Warn("recurrence truncated", "uid", uid, "cap", w.MaxPerEvent)
		}

		// Overrides stand on their own: a moved instance may land in the
		// window even when its original slot does not.
		for _, ov := range g.overrides {
			if overlaps(ov.Start, ov.End, w.From, w.To) {
				result.Occurrences = append(result.Occurrences, occurrence(ov, ov.Start, ov.End, w.Location))
			}
		}
	}

	slices.SortStableFunc(result.Occurrences, func(a, b model.Occurrence) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.UID, b.UID)
	})

	return result, nil
}

// expandOne returns the instances of ev inside w, leaving out the slots that
// an override replaces.
func expandOne(ev FeedEvent, overrides []FeedEvent, w Window) ([]model.Occurrence, bool) {
	if ev.RawRRule == "" {
		if isOverridden(overrides, ev.Start) || !overlaps(ev.Start, ev.End, w.From, w.To) {
			return nil, false
		}
		return []model.Occurrence{occurrence(ev, ev.Start, ev.End, w.Location)}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	from := w.From.In(ev.Start.Location()).Add(-dur)
	to := w.To.In(ev.Start.Location())

	starts := set.Between(from, to, true)
	hitCap := false
	if len(starts) > w.MaxPerEvent {
		starts = starts[:w.MaxPerEvent]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(starts))
	for _, start := range starts {
		if isOverridden(overrides, start) {
			continue
		}
		end := start.Add(dur)
		if !overlaps(start, end, w.From, w.To) {
			continue
		}
		out = append(out, occurrence(ev, start, end, w.Location))
	}

	return out, hitCap
}

func isOverridden(overrides []FeedEvent, start time.Time) bool {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return true
		}
	}
	return false
}

// occurrence converts an instance to the display timezone. All-day dates
// are floating and keep their calendar day in loc.
func occurrence(ev FeedEvent, start, end time.Time, loc *time.Location) model.Occurrence {
	if ev.AllDay {
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	} else {
		start, end = start.In(loc), end.In(loc)
	}
	return model.Occurrence{
		SourceID:    ev.Source.ID,
		SourceName:  ev.Source.Name,
		UID:         ev.UID,
		InstanceKey: start.Format(time.RFC3339),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}

// overlaps is the half-open [start, end) intersection test. A zero-length
// event counts as the instant at its start.
func overlaps(start, end, from, to time.Time) bool {
	if !end.After(start) {
		return !start.Before(from) && start.Before(to)
	}
	return start.Before(to) && end.After(from)
}
