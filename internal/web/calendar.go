package web

import (
	"bytes"
	"net/http"
	"time"

	"designcal/internal/apperr"
	appLog "designcal/internal/log"
	"designcal/internal/model"
	"designcal/internal/render"
)

// handleCalendar renders the day or week HTML view.
//
// GET /calendar?view=week&date=2026-03-10
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	date, err := s.dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, apperr.New("invalid query", err))
		return
	}
	day, _ := time.Parse(model.DateLayout, date)
	opts := render.OptionsFromConfig(s.cfg.View)

	page := render.Page{View: r.URL.Query().Get("view")}
	ctx := r.Context()

	switch page.View {
	case "week":
		first := render.WeekStart(day, s.cfg.WeekStart)
		from := first.Format(model.DateLayout)
		to := first.AddDate(0, 0, 6).Format(model.DateLayout)

		appts, err := s.repo.ListBetween(ctx, from, to)
		if err != nil {
			appLog.Error("calendar: list appointments failed", err, "from", from, "to", to)
			writeError(w, http.StatusInternalServerError, apperr.New("failed to list appointments"))
			return
		}
		byDate := render.GroupByDate(appts)
		if s.feeds != nil {
			for i := range 7 {
				d := first.AddDate(0, 0, i).Format(model.DateLayout)
				byDate[d] = append(byDate[d], s.feeds.Appointments(d)...)
				model.SortAppointments(byDate[d])
			}
		}

		week := render.WeekView(first, byDate, opts)
		page.Title = "Week of " + week.From
		page.Days = week.Days
		page.Prev = first.AddDate(0, 0, -7).Format(model.DateLayout)
		page.Next = first.AddDate(0, 0, 7).Format(model.DateLayout)

	default:
		page.View = "day"
		appts, err := s.dayAppointments(ctx, date)
		if err != nil {
			appLog.Error("calendar: list appointments failed", err, "date", date)
			writeError(w, http.StatusInternalServerError, apperr.New("failed to list appointments"))
			return
		}
		page.Title = date
		page.Days = []render.Day{render.DayView(date, appts, opts)}
		page.Prev = day.AddDate(0, 0, -1).Format(model.DateLayout)
		page.Next = day.AddDate(0, 0, 1).Format(model.DateLayout)
		if s.feeds != nil {
			page.AllDay = s.feeds.AllDay(date)
		}
	}

	var buf bytes.Buffer
	if err := render.WriteHTML(&buf, page); err != nil {
		appLog.Error("calendar: render failed", err, "date", date, "view", page.View)
		writeError(w, http.StatusInternalServerError, apperr.New("failed to render calendar"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
