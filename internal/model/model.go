package model

import (
	"slices"
	"strings"
	"time"

	"designcal/internal/layout"
)

// DateLayout is the format of Appointment.Date.
const DateLayout = "2006-01-02"

// Kind classifies an appointment in the showroom's agenda.
type Kind string

const (
	KindShowroomVisit Kind = "showroom_visit"
	KindMeasurement   Kind = "measurement"
	KindInstallation  Kind = "installation"
	KindFollowUp      Kind = "follow_up"
	// KindExternal marks read-only appointments imported from an ICS feed.
	KindExternal Kind = "external"
)

// Known reports whether k is one of the defined kinds.
func (k Kind) Known() bool {
	switch k {
	case KindShowroomVisit, KindMeasurement, KindInstallation, KindFollowUp, KindExternal:
		return true
	}
	return false
}

// Appointment is one entry of the appointment book, bound to a single
// calendar day.
type Appointment struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"kind"`
	Title      string `json:"title"`
	ClientName string `json:"client_name,omitempty"`
	Designer   string `json:"designer,omitempty"`
	Location   string `json:"location,omitempty"`
	Notes      string `json:"notes,omitempty"`

	// Date is the local calendar day ("2006-01-02"); StartTime and EndTime
	// are zero-padded 24h "HH:MM" on that day.
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`

	// Source is empty for appointments created in the CRM and holds the feed
	// ID for imported ones.
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// ReadOnly reports whether the appointment comes from an external feed.
func (a Appointment) ReadOnly() bool {
	return a.Source != ""
}

// LayoutEvent returns the fields the lane layout needs.
func (a Appointment) LayoutEvent() layout.Event {
	return layout.Event{ID: a.ID, StartTime: a.StartTime, EndTime: a.EndTime}
}

// LayoutEvents adapts a day's appointments for layout.Compute, keeping order.
func LayoutEvents(appts []Appointment) []layout.Event {
	out := make([]layout.Event, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.LayoutEvent())
	}
	return out
}

// Occurrence represents a single concrete instance of a feed event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID   string // feed ID
	SourceName string // feed display name
	UID        string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}

// SortAppointments orders appointments by date, start time and ID.
func SortAppointments(appts []Appointment) {
	slices.SortStableFunc(appts, func(a, b Appointment) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		if c := strings.Compare(a.StartTime, b.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
