package appointment

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// AvailabilityStore keeps at most one window per (doctor, date).
type AvailabilityStore interface {
	// SaveAvailability inserts or overwrites the window for (a.DoctorID, a.Date).
	SaveAvailability(ctx context.Context, a DoctorAvailability) error
	GetAvailability(ctx context.Context, doctorID string, date Date) (*DoctorAvailability, error)
	ListAvailabilityByDoctor(ctx context.Context, doctorID string) ([]DoctorAvailability, error)
	ListAvailabilityByDate(ctx context.Context, date Date) ([]DoctorAvailability, error)
	DeleteAvailability(ctx context.Context, doctorID string, date Date) error
}

type availabilityKey struct {
	doctorID string
	date     Date
}

// MemoryAvailabilityStore is the in-process availability store.
type MemoryAvailabilityStore struct {
	mu      sync.RWMutex
	windows map[availabilityKey]DoctorAvailability
}

func NewMemoryAvailabilityStore() *MemoryAvailabilityStore {
	return &MemoryAvailabilityStore{windows: make(map[availabilityKey]DoctorAvailability)}
}

func (s *MemoryAvailabilityStore) SaveAvailability(_ context.Context, a DoctorAvailability) error {
	a.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[availabilityKey{a.DoctorID, a.Date}] = a
	return nil
}

func (s *MemoryAvailabilityStore) GetAvailability(_ context.Context, doctorID string, date Date) (*DoctorAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.windows[availabilityKey{doctorID, date}]
	if !ok {
		return nil, ErrAvailabilityNotFound
	}
	return &a, nil
}

func (s *MemoryAvailabilityStore) ListAvailabilityByDoctor(_ context.Context, doctorID string) ([]DoctorAvailability, error) {
	result := s.collect(func(a DoctorAvailability) bool { return a.DoctorID == doctorID })
	slices.SortFunc(result, func(x, y DoctorAvailability) int { return x.Date.compare(y.Date) })
	return result, nil
}

func (s *MemoryAvailabilityStore) ListAvailabilityByDate(_ context.Context, date Date) ([]DoctorAvailability, error) {
	result := s.collect(func(a DoctorAvailability) bool { return a.Date == date })
	slices.SortFunc(result, func(x, y DoctorAvailability) int { return cmp.Compare(x.DoctorID, y.DoctorID) })
	return result, nil
}

func (s *MemoryAvailabilityStore) DeleteAvailability(_ context.Context, doctorID string, date Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := availabilityKey{doctorID, date}
	if _, ok := s.windows[key]; !ok {
		return ErrAvailabilityNotFound
	}
	delete(s.windows, key)
	return nil
}

func (s *MemoryAvailabilityStore) collect(keep func(DoctorAvailability) bool) []DoctorAvailability {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]DoctorAvailability, 0)
	for _, a := range s.windows {
		if keep(a) {
			result = append(result, a)
		}
	}
	return result
}
