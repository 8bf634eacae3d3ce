// Package render turns a day's appointments into positioned calendar blocks
// and draws them as HTML or as a terminal agenda.
package render

import (
	"time"

	"designcal/internal/config"
	"designcal/internal/layout"
	appLog "designcal/internal/log"
	"designcal/internal/model"
)

// Options is the vertical scale of a day column.
type Options struct {
	DayStart     string // first visible "HH:MM"
	DayEnd       string // last visible "HH:MM"
	HourHeightPx int
	MinBlockPx   int
}

// OptionsFromConfig copies the view section of the configuration.
func OptionsFromConfig(v config.ViewConfig) Options {
	return Options{
		DayStart:     v.DayStart,
		DayEnd:       v.DayEnd,
		HourHeightPx: v.HourHeightPx,
		MinBlockPx:   v.MinBlockPx,
	}
}

func (o Options) bounds() (start, end int) {
	start, errStart := layout.ParseClock(o.DayStart)
	end, errEnd := layout.ParseClock(o.DayEnd)
	if errStart != nil || errEnd != nil || start >= end {
		return 8 * 60, 20 * 60
	}
	return start, end
}

func (o Options) hourHeight() int {
	if o.HourHeightPx <= 0 {
		return 60
	}
	return o.HourHeightPx
}

// pixels maps a duration in minutes to a height.
func (o Options) pixels(minutes int) int {
	return minutes * o.hourHeight() / 60
}

// Block is one appointment placed on a day column.
type Block struct {
	Appointment model.Appointment
	layout.Position

	TopPx    int
	HeightPx int
	// ClippedTop / ClippedBottom mark blocks cut by the visible hours.
	ClippedTop    bool
	ClippedBottom bool
}

// HourMark is a labelled horizontal rule on the day grid.
type HourMark struct {
	Label string
	TopPx int
}

// Day is a rendered day column.
type Day struct {
	Date     string
	Weekday  string
	Blocks   []Block
	Hours    []HourMark
	HeightPx int
	// Hidden counts appointments entirely outside the visible hours.
	Hidden int
}

// DayView positions the appointments of date. Horizontal placement comes
// from layout.Compute over the visible appointments; vertical placement is a
// linear mapping of the time of day onto the visible hours.
func DayView(date string, appts []model.Appointment, opts Options) Day {
	dayStart, dayEnd := opts.bounds()

	d := Day{
		Date:     date,
		HeightPx: opts.pixels(dayEnd - dayStart),
	}
	if t, err := time.Parse(model.DateLayout, date); err == nil {
		d.Weekday = t.Weekday().String()
	}
	for m := dayStart - dayStart%60; m <= dayEnd; m += 60 {
		if m < dayStart {
			continue
		}
		d.Hours = append(d.Hours, HourMark{Label: layout.FormatClock(m), TopPx: opts.pixels(m - dayStart)})
	}

	type span struct {
		appt       model.Appointment
		start, end int
	}
	visible := make([]span, 0, len(appts))
	for _, a := range appts {
		start, err := layout.ParseClock(a.StartTime)
		if err != nil {
			appLog.Warn("skipping appointment with invalid start", "id", a.ID, "start_time", a.StartTime)
			continue
		}
		end, err := layout.ParseClock(a.EndTime)
		if err != nil || end <= start {
			appLog.Warn("skipping appointment with invalid end", "id", a.ID, "end_time", a.EndTime)
			continue
		}
		if end <= dayStart || start >= dayEnd {
			d.Hidden++
			continue
		}
		visible = append(visible, span{appt: a, start: start, end: end})
	}

	events := make([]layout.Event, 0, len(visible))
	for _, v := range visible {
		events = append(events, v.appt.LayoutEvent())
	}
	positions := layout.Compute(events)

	minHeight := max(opts.MinBlockPx, 1)
	for _, v := range visible {
		top := max(v.start, dayStart)
		bottom := min(v.end, dayEnd)
		d.Blocks = append(d.Blocks, Block{
			Appointment:   v.appt,
			Position:      positions[v.appt.ID],
			TopPx:         opts.pixels(top - dayStart),
			HeightPx:      max(minHeight, opts.pixels(bottom-top)),
			ClippedTop:    v.start < dayStart,
			ClippedBottom: v.end > dayEnd,
		})
	}

	return d
}

// Week is seven consecutive day columns.
type Week struct {
	From string
	To   string
	Days []Day
}

// WeekStart returns the first day of the week containing date. start is
// "sunday" or anything else for Monday.
func WeekStart(date time.Time, start string) time.Time {
	first := time.Monday
	if start == "sunday" {
		first = time.Sunday
	}
	offset := (int(date.Weekday()) - int(first) + 7) % 7
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return d.AddDate(0, 0, -offset)
}

// WeekView renders the week beginning at first. byDate holds appointments
// keyed by "2006-01-02".
func WeekView(first time.Time, byDate map[string][]model.Appointment, opts Options) Week {
	w := Week{Days: make([]Day, 0, 7)}
	for i := range 7 {
		date := first.AddDate(0, 0, i).Format(model.DateLayout)
		w.Days = append(w.Days, DayView(date, byDate[date], opts))
	}
	w.From = w.Days[0].Date
	w.To = w.Days[6].Date
	return w
}

// GroupByDate splits a date-ordered appointment list by day.
func GroupByDate(appts []model.Appointment) map[string][]model.Appointment {
	out := make(map[string][]model.Appointment)
	for _, a := range appts {
		out[a.Date] = append(out[a.Date], a)
	}
	return out
}
