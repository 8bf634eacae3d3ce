package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"designcal/internal/apperr"
	appLog "designcal/internal/log"
	"designcal/internal/model"
)

// dateParam returns the "date" query parameter, defaulting to today in the
// configured timezone.
func (s *Server) dateParam(r *http.Request) (string, error) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return s.now().In(s.cfg.Location()).Format(model.DateLayout), nil
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return "", errors.New("date must be YYYY-MM-DD")
	}
	return date, nil
}

// dayAppointments merges stored and feed appointments for date.
func (s *Server) dayAppointments(ctx context.Context, date string) ([]model.Appointment, error) {
	appts, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if s.feeds != nil {
		appts = append(appts, s.feeds.Appointments(date)...)
	}
	model.SortAppointments(appts)
	return appts, nil
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	date, err := s.dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, apperr.New("invalid query", err))
		return
	}

	appts, err := s.dayAppointments(r.Context(), date)
	if err != nil {
		appLog.Error("list appointments failed", err, "date", date)
		writeError(w, http.StatusInternalServerError, apperr.New("failed to list appointments"))
		return
	}

	writeJSON(w, http.StatusOK, appts)
}

func (s *Server) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := s.repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, "failed to get appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var appt model.Appointment
	if err := decodeJSON(w, r, &appt); err != nil {
		writeError(w, http.StatusBadRequest, apperr.New("failed to decode JSON", err))
		return
	}
	appt.ID = ""
	s.save(w, r, &appt, http.StatusCreated)
}

func (s *Server) handleUpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.repo.Get(r.Context(), id); err != nil {
		s.writeStoreError(w, "failed to get appointment", err)
		return
	}

	var appt model.Appointment
	if err := decodeJSON(w, r, &appt); err != nil {
		writeError(w, http.StatusBadRequest, apperr.New("failed to decode JSON", err))
		return
	}
	appt.ID = id
	s.save(w, r, &appt, http.StatusOK)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, appt *model.Appointment, status int) {
	if appt.Kind == model.KindExternal || appt.Source != "" {
		writeError(w, http.StatusBadRequest, apperr.New("appointment validation failed", apperr.ErrReadOnly))
		return
	}
	if err := model.ValidateAppointment(*appt); err != nil {
		writeError(w, http.StatusBadRequest, apperr.New("appointment validation failed", err))
		return
	}

	saved, err := s.repo.Save(r.Context(), appt)
	if err != nil {
		appLog.Error("saving appointment failed", err, "date", appt.Date)
		writeError(w, http.StatusInternalServerError, apperr.New("saving appointment failed"))
		return
	}
	s.invalidateLayouts()

	appLog.Info("appointment saved", "id", saved.ID, "date", saved.Date, "kind", saved.Kind)
	writeJSON(w, status, saved)
}

func (s *Server) handleDeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.repo.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, "failed to delete appointment", err)
		return
	}
	s.invalidateLayouts()

	appLog.Info("appointment deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStoreError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeError(w, http.StatusNotFound, apperr.New(msg, err))
		return
	}
	appLog.Error(msg, err)
	writeError(w, http.StatusInternalServerError, apperr.New(msg))
}
