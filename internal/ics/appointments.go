package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"designcal/internal/layout"
	"designcal/internal/model"
)

// minExternalMinutes is the drawn length of a feed event that has no
// duration, so that it still gets a block on the calendar.
const minExternalMinutes = 15

// ToAppointments turns timed occurrences into read-only appointments, one per
// calendar day they touch. Parts crossing midnight end at 23:59 and resume at
// 00:00 on the next day. All-day occurrences cannot be laid out on the hour
// grid and are returned separately.
func ToAppointments(occs []model.Occurrence) (timed []model.Appointment, allDay []model.Occurrence) {
	timed = make([]model.Appointment, 0, len(occs))

	for _, occ := range occs {
		if occ.AllDay {
			allDay = append(allDay, occ)
			continue
		}

		end := occ.End
		if !end.After(occ.Start) {
			end = occ.Start.Add(minExternalMinutes * time.Minute)
		}

		day := midnight(occ.Start)
		for day.Before(end) {
			next := day.AddDate(0, 0, 1)

			startMin := 0
			if occ.Start.After(day) {
				startMin = occ.Start.Hour()*60 + occ.Start.Minute()
			}
			endMin := layout.MinutesPerDay - 1
			if end.Before(next) {
				endMin = end.Hour()*60 + end.Minute()
			}
			// Sub-minute events collapse once truncated to the minute.
			if endMin <= startMin && !occ.Start.Before(day) {
				endMin = startMin + minExternalMinutes
				if endMin > layout.MinutesPerDay-1 {
					endMin = layout.MinutesPerDay - 1
					startMin = endMin - minExternalMinutes
				}
			}

			if endMin > startMin {
				date := day.Format(model.DateLayout)
				timed = append(timed, model.Appointment{
					ID:        externalID(occ, date),
					Kind:      model.KindExternal,
					Title:     titleOf(occ),
					Designer:  occ.SourceName,
					Location:  occ.Location,
					Notes:     occ.Description,
					Date:      date,
					StartTime: layout.FormatClock(startMin),
					EndTime:   layout.FormatClock(endMin),
					Source:    occ.SourceID,
				})
			}
			day = next
		}
	}

	model.SortAppointments(timed)
	return timed, allDay
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func titleOf(occ model.Occurrence) string {
	if s := strings.TrimSpace(occ.Summary); s != "" {
		return s
	}
	return "Busy"
}

// externalID is stable across refreshes so layout positions and links keep
// pointing at the same block.
func externalID(occ model.Occurrence, date string) string {
	sum := sha256.Sum256([]byte(occ.SourceID + "\x00" + occ.UID + "\x00" + occ.InstanceKey + "\x00" + date))
	return "ext-" + hex.EncodeToString(sum[:8])
}
