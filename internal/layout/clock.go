package layout

import (
	"fmt"
	"strconv"
)

// MinutesPerDay is the length of a calendar day in minutes.
const MinutesPerDay = 24 * 60

// ParseClock converts a zero-padded 24h "HH:MM" string to minutes after
// midnight. It is the validation counterpart of the lexical comparisons used
// by Compute: any string it accepts orders correctly as text.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("layout: invalid clock %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || s[0] == '+' || s[0] == '-' {
		return 0, fmt.Errorf("layout: invalid hour in %q", s)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || s[3] == '+' || s[3] == '-' {
		return 0, fmt.Errorf("layout: invalid minute in %q", s)
	}
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("layout: clock %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock is the inverse of ParseClock. Values are clamped to the day.
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes >= MinutesPerDay {
		minutes = MinutesPerDay - 1
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ValidateEvent checks that ev satisfies the input contract of Compute.
func ValidateEvent(ev Event) error {
	start, err := ParseClock(ev.StartTime)
	if err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	end, err := ParseClock(ev.EndTime)
	if err != nil {
		return fmt.Errorf("end_time: %w", err)
	}
	if start >= end {
		return fmt.Errorf("layout: event %q ends at or before it starts (%s-%s)", ev.ID, ev.StartTime, ev.EndTime)
	}
	return nil
}
