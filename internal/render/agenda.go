package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"designcal/internal/model"
)

var (
	dateStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	timeStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Agenda renders a day as terminal text: one line per appointment with a
// lane gauge showing which column it occupies, e.g. "▮▯" for lane 1 of 2.
func Agenda(d Day) string {
	var b strings.Builder

	header := d.Date
	if d.Weekday != "" {
		header = d.Weekday + " " + d.Date
	}
	b.WriteString(dateStyle.Render(header))
	b.WriteString("\n")

	if len(d.Blocks) == 0 {
		b.WriteString(mutedStyle.Render("  no appointments"))
		b.WriteString("\n")
	}

	for _, blk := range d.Blocks {
		a := blk.Appointment
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(kindColor(a.Kind)))

		line := fmt.Sprintf("  %s %s %s",
			timeStyle.Render(a.StartTime+"-"+a.EndTime),
			mutedStyle.Render(laneGauge(blk.Lane, blk.Lanes)),
			style.Render(a.Title),
		)
		if a.ClientName != "" {
			line += " · " + a.ClientName
		}
		if a.Designer != "" {
			line += mutedStyle.Render(" (" + a.Designer + ")")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if d.Hidden > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  +%d outside visible hours", d.Hidden)))
		b.WriteString("\n")
	}

	return b.String()
}

func laneGauge(lane, lanes int) string {
	if lanes < 1 {
		lanes = 1
	}
	var b strings.Builder
	for i := range lanes {
		if i == lane {
			b.WriteString("▮")
		} else {
			b.WriteString("▯")
		}
	}
	return b.String()
}

func kindColor(k model.Kind) string {
	if c, ok := kindColors[k]; ok {
		return c
	}
	return "#555555"
}
