package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "designcal/internal/log"
)

// FeedEvent is a VEVENT as read from a feed, before recurrence expansion.
type FeedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, set on overrides
	IsOverride bool
}

// Parse reads one ICS payload. VEVENTs that cannot be read (no UID, no
// DTSTART) are logged and skipped; only an unreadable calendar is an error.
func Parse(src Source, body []byte) ([]FeedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]FeedEvent, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(src, ve)
		if err != nil {
			appLog.Warn("skipping vevent", "id", src.ID, "reason", err.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("feed parsed", "id", src.ID, "events", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (FeedEvent, error) {
	out := FeedEvent{Source: src}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}
	out.Summary = propValue(ve, ical.ComponentPropertySummary)
	out.Description = propValue(ve, ical.ComponentPropertyDescription)
	out.Location = propValue(ve, ical.ComponentPropertyLocation)

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	var err error
	if out.AllDay {
		out.Start, err = parseICSTime(dtStart.Value, time.UTC)
	} else {
		out.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return out, err
	}

	dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd)
	switch {
	case dtEnd != nil && out.AllDay:
		out.End, err = parseICSTime(dtEnd.Value, time.UTC)
	case dtEnd != nil:
		out.End, err = ve.GetEndAt()
	case out.AllDay:
		out.End = out.Start.AddDate(0, 0, 1)
	default:
		// No DTEND: a timed event without DURATION is an instant.
		out.End = out.Start
		if d, ok := parseDuration(propValue(ve, ical.ComponentPropertyDuration)); ok {
			out.End = out.Start.Add(d)
		}
	}
	if err != nil {
		return out, err
	}

	out.RawRRule = propValue(ve, ical.ComponentPropertyRrule)

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := propLocation(p, out.Start.Location())
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parseICSTime(p.Value, propLocation(p, out.Start.Location())); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// propLocation resolves a TZID parameter, falling back to def.
func propLocation(p *ical.IANAProperty, def *time.Location) *time.Location {
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if loc, err := time.LoadLocation(tzs[0]); err == nil {
			return loc
		}
	}
	if def == nil {
		return time.Local
	}
	return def
}

// parseICSTime parses DATE, local DATE-TIME and UTC DATE-TIME values.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

// parseDuration handles the RFC 5545 dur-value forms used by calendar
// clients: [+]P[nW][nD][T[nH][nM][nS]].
func parseDuration(v string) (time.Duration, bool) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "+")
	if !strings.HasPrefix(v, "P") {
		return 0, false
	}
	v = v[1:]

	var (
		total  time.Duration
		num    int
		digits bool
		inTime bool
	)
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int(r-'0')
			digits = true
			continue
		case r == 'T':
			inTime = true
			continue
		}
		if !digits {
			return 0, false
		}
		switch {
		case r == 'W' && !inTime:
			total += time.Duration(num) * 7 * 24 * time.Hour
		case r == 'D' && !inTime:
			total += time.Duration(num) * 24 * time.Hour
		case r == 'H' && inTime:
			total += time.Duration(num) * time.Hour
		case r == 'M' && inTime:
			total += time.Duration(num) * time.Minute
		case r == 'S' && inTime:
			total += time.Duration(num) * time.Second
		default:
			return 0, false
		}
		num, digits = 0, false
	}
	if digits {
		return 0, false
	}
	return total, true
}
