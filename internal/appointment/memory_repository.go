package appointment

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryRepository is the in-process appointment store. State is lost on restart.
type MemoryRepository struct {
	mu           sync.RWMutex
	appointments map[string]*Appointment
	counter      atomic.Int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{appointments: make(map[string]*Appointment)}
}

func formatAppointmentID(n int64) string {
	return fmt.Sprintf("A%05d", n)
}

func (r *MemoryRepository) NextAppointmentID(_ context.Context) (string, error) {
	for {
		id := formatAppointmentID(r.counter.Add(1))

		r.mu.RLock()
		_, taken := r.appointments[id]
		r.mu.RUnlock()

		if !taken {
			return id, nil
		}
	}
}

func (r *MemoryRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	stored := a.clone()
	if stored.ID == "" {
		id, err := r.NextAppointmentID(ctx)
		if err != nil {
			return nil, err
		}
		stored.ID = id
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.appointments[stored.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, stored.ID)
	}
	r.appointments[stored.ID] = stored
	return stored.clone(), nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return a.clone(), nil
}

func (r *MemoryRepository) UpdateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.appointments[a.ID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	stored := a.clone()
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	r.appointments[a.ID] = stored
	return stored.clone(), nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context, f Filter) ([]Appointment, error) {
	r.mu.RLock()
	result := make([]Appointment, 0)
	for _, a := range r.appointments {
		if f.match(a) {
			result = append(result, *a.clone())
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(result, compareByDateTime)
	return result, nil
}

func (r *MemoryRepository) DeleteCancelledBefore(_ context.Context, cutoff Date) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, a := range r.appointments {
		if a.Status == StatusCancelled && a.Date().Before(cutoff) {
			delete(r.appointments, id)
			removed++
		}
	}
	return removed, nil
}

func compareByDateTime(a, b Appointment) int {
	if c := a.DateTime.Compare(b.DateTime); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
