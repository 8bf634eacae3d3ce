package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"designcal/internal/apperr"
	"designcal/internal/model"
)

// Memory is a Repository kept in process memory. It is used when no
// database is configured.
type Memory struct {
	mu    sync.RWMutex
	items map[string]model.Appointment
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]model.Appointment),
		now:   time.Now,
	}
}

func (m *Memory) Save(_ context.Context, appt *model.Appointment) (*model.Appointment, error) {
	saved := *appt
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.items[saved.ID]; ok {
		saved.CreatedAt = prev.CreatedAt
	} else {
		saved.CreatedAt = m.now().UTC().Truncate(time.Second)
	}
	m.items[saved.ID] = saved

	return &saved, nil
}

func (m *Memory) Get(_ context.Context, id string) (*model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.items[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &a, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *Memory) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	return m.ListBetween(ctx, date, date)
}

func (m *Memory) ListBetween(_ context.Context, from, to string) ([]model.Appointment, error) {
	m.mu.RLock()
	out := make([]model.Appointment, 0)
	for _, a := range m.items {
		if a.Date >= from && a.Date <= to {
			out = append(out, a)
		}
	}
	m.mu.RUnlock()

	model.SortAppointments(out)
	return out, nil
}
