// Package store persists the CRM's own appointments. Appointments imported
// from external feeds are never stored; they live in the scheduler snapshot.
package store

import (
	"context"

	"designcal/internal/model"
)

// Repository is the appointment book.
type Repository interface {
	// Save inserts a new appointment (empty ID) or replaces an existing one.
	Save(ctx context.Context, appt *model.Appointment) (*model.Appointment, error)
	// Get returns apperr.ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (*model.Appointment, error)
	// Delete returns apperr.ErrNotFound when id is unknown.
	Delete(ctx context.Context, id string) error
	// ListByDate returns one day's appointments ordered by start time.
	ListByDate(ctx context.Context, date string) ([]model.Appointment, error)
	// ListBetween returns appointments with from <= date <= to ordered by
	// date and start time.
	ListBetween(ctx context.Context, from, to string) ([]model.Appointment, error)
}
