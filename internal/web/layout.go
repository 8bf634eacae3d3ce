package web

import (
	"errors"
	"fmt"
	"net/http"

	"designcal/internal/apperr"
	"designcal/internal/layout"
	appLog "designcal/internal/log"
	"designcal/internal/model"
)

type placedAppointment struct {
	model.Appointment
	Position layout.Position `json:"position"`
}

type allDayDTO struct {
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	Location string `json:"location,omitempty"`
}

// layoutResponse is the JSON shape of GET /api/layout.
type layoutResponse struct {
	Date         string              `json:"date"`
	Appointments []placedAppointment `json:"appointments"`
	AllDay       []allDayDTO         `json:"all_day"`
}

type computeRequest struct {
	Events []layout.Event `json:"events"`
}

type computeResponse struct {
	Positions map[string]layout.Position `json:"positions"`
}

// handleDayLayout returns the appointments of a day with their lane
// positions.
//
// GET /api/layout?date=2026-03-10
func (s *Server) handleDayLayout(w http.ResponseWriter, r *http.Request) {
	date, err := s.dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, apperr.New("invalid query", err))
		return
	}

	if resp, ok := s.cachedLayout(date); ok {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	appts, err := s.dayAppointments(r.Context(), date)
	if err != nil {
		appLog.Error("layout: list appointments failed", err, "date", date)
		writeError(w, http.StatusInternalServerError, apperr.New("failed to list appointments"))
		return
	}

	positions := layout.Compute(model.LayoutEvents(appts))

	resp := layoutResponse{
		Date:         date,
		Appointments: make([]placedAppointment, 0, len(appts)),
		AllDay:       []allDayDTO{},
	}
	for _, a := range appts {
		resp.Appointments = append(resp.Appointments, placedAppointment{Appointment: a, Position: positions[a.ID]})
	}
	if s.feeds != nil {
		for _, occ := range s.feeds.AllDay(date) {
			resp.AllDay = append(resp.AllDay, allDayDTO{Summary: occ.Summary, Source: occ.SourceName, Location: occ.Location})
		}
	}

	s.storeLayout(date, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleComputeLayout lays out an ad-hoc list of events, e.g. while a form
// previews a new appointment before it is saved.
//
// POST /api/layout {"events": [{"id": "a", "start_time": "08:00", "end_time": "09:00"}]}
func (s *Server) handleComputeLayout(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.New("failed to decode JSON", err))
		return
	}

	seen := make(map[string]bool, len(req.Events))
	var errs []error
	for _, ev := range req.Events {
		if ev.ID == "" {
			errs = append(errs, errors.New("event without id"))
			continue
		}
		if seen[ev.ID] {
			errs = append(errs, fmt.Errorf("duplicate id %q", ev.ID))
			continue
		}
		seen[ev.ID] = true
		if err := layout.ValidateEvent(ev); err != nil {
			errs = append(errs, fmt.Errorf("event %q: %w", ev.ID, err))
		}
	}
	if len(errs) > 0 {
		writeError(w, http.StatusBadRequest, apperr.New("invalid events", errs...))
		return
	}

	writeJSON(w, http.StatusOK, computeResponse{Positions: layout.Compute(req.Events)})
}

func (s *Server) cachedLayout(date string) (layoutResponse, bool) {
	s.layoutMu.RLock()
	defer s.layoutMu.RUnlock()

	e, ok := s.layoutCache[date]
	if !ok || s.now().Sub(e.updatedAt) >= layoutCacheTTL {
		return layoutResponse{}, false
	}
	return e.resp, true
}

func (s *Server) storeLayout(date string, resp layoutResponse) {
	s.layoutMu.Lock()
	s.layoutCache[date] = layoutCacheEntry{resp: resp, updatedAt: s.now()}
	s.layoutMu.Unlock()
}

func (s *Server) invalidateLayouts() {
	s.layoutMu.Lock()
	clear(s.layoutCache)
	s.layoutMu.Unlock()
}
