package render

import (
	"fmt"
	"html/template"
	"io"

	"designcal/internal/model"
)

// Page is the data of the calendar HTML page.
type Page struct {
	Title string
	View  string // "day" or "week"
	Days  []Day
	Prev  string
	Next  string
	// AllDay lists all-day feed events shown above the grid.
	AllDay []model.Occurrence
}

var kindColors = map[model.Kind]string{
	model.KindShowroomVisit: "#2f6fdf",
	model.KindMeasurement:   "#e08a1e",
	model.KindInstallation:  "#2e9b5f",
	model.KindFollowUp:      "#8a55c9",
	model.KindExternal:      "#8c8c8c",
}

var funcs = template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.3f%%", f) },
	"kindColor": kindColor,
}

var pageTmpl = template.Must(template.New("calendar").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 16px; color: #222; }
nav a { margin-right: 12px; }
.grid { display: flex; gap: 4px; }
.hours { position: relative; width: 48px; }
.hours span { position: absolute; font-size: 11px; color: #777; }
.day { flex: 1; }
.day h2 { font-size: 14px; margin: 0 0 4px; }
.col { position: relative; border: 1px solid #ddd; background: #fafafa; }
.rule { position: absolute; left: 0; right: 0; border-top: 1px solid #eee; }
.block { position: absolute; box-sizing: border-box; padding: 2px 4px; border-radius: 3px;
         color: #fff; font-size: 11px; overflow: hidden; }
.block.clipped-top { border-top: 2px dashed #fff; }
.block.clipped-bottom { border-bottom: 2px dashed #fff; }
.hidden { font-size: 11px; color: #999; }
.allday { margin-bottom: 8px; font-size: 12px; }
</style>
</head>
<body>
<div data-ready="true">
<nav>
{{if .Prev}}<a href="?view={{.View}}&date={{.Prev}}">&larr; previous</a>{{end}}
{{if .Next}}<a href="?view={{.View}}&date={{.Next}}">next &rarr;</a>{{end}}
</nav>
{{if .AllDay}}<div class="allday">{{range .AllDay}}<span>{{.Summary}} ({{.SourceName}})</span> {{end}}</div>{{end}}
<div class="grid">
{{with index .Days 0}}<div class="hours" style="height: {{.HeightPx}}px; margin-top: 20px;">{{range .Hours}}<span style="top: {{.TopPx}}px">{{.Label}}</span>{{end}}</div>{{end}}
{{range .Days}}
<div class="day">
<h2>{{.Weekday}} {{.Date}}</h2>
<div class="col" style="height: {{.HeightPx}}px">
{{range .Hours}}<div class="rule" style="top: {{.TopPx}}px"></div>{{end}}
{{range .Blocks}}<div class="block{{if .ClippedTop}} clipped-top{{end}}{{if .ClippedBottom}} clipped-bottom{{end}}" data-id="{{.Appointment.ID}}"
 style="top: {{.TopPx}}px; height: {{.HeightPx}}px; left: {{pct .LeftPercent}}; width: {{pct .WidthPercent}}; background: {{kindColor .Appointment.Kind}};">
<strong>{{.Appointment.StartTime}}–{{.Appointment.EndTime}}</strong> {{.Appointment.Title}}{{if .Appointment.ClientName}} · {{.Appointment.ClientName}}{{end}}
</div>{{end}}
</div>
{{if .Hidden}}<div class="hidden">{{.Hidden}} outside visible hours</div>{{end}}
</div>
{{end}}
</div>
</div>
</body>
</html>
`))

// WriteHTML renders page. Page.Days must not be empty.
func WriteHTML(w io.Writer, page Page) error {
	if len(page.Days) == 0 {
		return fmt.Errorf("render: page %q has no days", page.Title)
	}
	return pageTmpl.Execute(w, page)
}
