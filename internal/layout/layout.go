// Package layout arranges the appointments of a single calendar day into
// side-by-side lanes so that blocks drawn on the same day column never cover
// each other.
//
// The computation is a pure function of the input slice: it performs no I/O,
// keeps no state between calls and never mutates its argument, so it can be
// recomputed on every render.
package layout

import (
	"slices"
	"strings"
)

// Width and offset (in percent of the day column) given to an event that does
// not share its time range with any other event.
const (
	SingletonWidthPercent = 97.0
	SingletonLeftPercent  = 1.5
)

// gutterPercent is the horizontal space left between two neighbouring lanes.
const gutterPercent = 1.0

// Event is the part of an appointment the lane layout looks at. StartTime and
// EndTime are zero-padded 24h "HH:MM" strings with StartTime < EndTime.
type Event struct {
	ID        string `json:"id" yaml:"id"`
	StartTime string `json:"start_time" yaml:"start_time"`
	EndTime   string `json:"end_time" yaml:"end_time"`
}

// Position is the horizontal placement of one event inside its day column.
type Position struct {
	WidthPercent float64 `json:"width_percent"`
	LeftPercent  float64 `json:"left_percent"`

	// Lane is the zero-based column the event was placed in and Lanes the
	// number of columns its cluster needed.
	Lane  int `json:"lane"`
	Lanes int `json:"lanes"`
}

// Overlaps reports whether a and b intersect as half-open ranges
// [start, end). Touching endpoints do not overlap.
func Overlaps(a, b Event) bool {
	return a.StartTime < b.EndTime && a.EndTime > b.StartTime
}

// Compute returns the placement of every event keyed by event ID.
//
// Events are ordered by start time (stable, so equal starts keep their input
// order), split into clusters of transitively overlapping events, and each
// cluster is packed first-fit into as many lanes as it needs. An event alone
// in its cluster gets the full-width default. IDs are expected to be unique;
// a repeated ID keeps the placement of its last occurrence in start order.
func Compute(events []Event) map[string]Position {
	out := make(map[string]Position, len(events))

	for _, cluster := range Clusters(events) {
		if len(cluster) == 1 {
			out[cluster[0].ID] = Position{
				WidthPercent: SingletonWidthPercent,
				LeftPercent:  SingletonLeftPercent,
				Lane:         0,
				Lanes:        1,
			}
			continue
		}

		columns := Columns(cluster)
		n := float64(len(columns))
		for lane, col := range columns {
			for _, ev := range col {
				out[ev.ID] = Position{
					WidthPercent: 100/n - gutterPercent,
					LeftPercent:  100/n*float64(lane) + gutterPercent/2,
					Lane:         lane,
					Lanes:        len(columns),
				}
			}
		}
	}

	return out
}

// Clusters sorts a copy of events by start time and splits it into maximal
// groups of transitively overlapping events. A new cluster begins when an
// event starts at or after the latest end time seen in the current one.
func Clusters(events []Event) [][]Event {
	if len(events) == 0 {
		return nil
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int {
		return strings.Compare(a.StartTime, b.StartTime)
	})

	var (
		clusters [][]Event
		current  []Event
		maxEnd   string
	)
	for _, ev := range sorted {
		if len(current) > 0 && ev.StartTime >= maxEnd {
			clusters = append(clusters, current)
			current = nil
		}
		if len(current) == 0 || ev.EndTime > maxEnd {
			maxEnd = ev.EndTime
		}
		current = append(current, ev)
	}
	clusters = append(clusters, current)

	return clusters
}

// Columns packs the events of one cluster, in order, into the first column
// where they overlap nothing already placed, opening a new column when none
// fits.
func Columns(cluster []Event) [][]Event {
	var columns [][]Event

	for _, ev := range cluster {
		placed := false
		for i, col := range columns {
			if fits(col, ev) {
				columns[i] = append(col, ev)
				placed = true
				break
			}
		}
		if !placed {
			columns = append(columns, []Event{ev})
		}
	}

	return columns
}

func fits(col []Event, ev Event) bool {
	for _, other := range col {
		if Overlaps(other, ev) {
			return false
		}
	}
	return true
}
