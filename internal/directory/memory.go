package directory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

type Memory struct {
	mu     sync.RWMutex
	people map[string]Person
}

func NewMemory() *Memory {
	return &Memory{people: make(map[string]Person)}
}

// Add registers or replaces people by id.
func (m *Memory) Add(people ...Person) error {
	for _, p := range people {
		if p.ID == "" {
			return errors.New("person id is required")
		}
		if _, err := ParseRole(string(p.Role)); err != nil {
			return fmt.Errorf("person %s: %w", p.ID, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range people {
		m.people[p.ID] = p
	}
	return nil
}

func (m *Memory) Person(_ context.Context, id string) (*Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.people[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &p, nil
}

func (m *Memory) Doctor(ctx context.Context, id string) (*Person, error) {
	p, err := m.Person(ctx, id)
	if err != nil {
		return nil, err
	}
	return expectRole(p, RoleDoctor)
}

func (m *Memory) Patient(ctx context.Context, id string) (*Person, error) {
	p, err := m.Person(ctx, id)
	if err != nil {
		return nil, err
	}
	return expectRole(p, RolePatient)
}

func (m *Memory) ListByRole(_ context.Context, role Role) ([]Person, error) {
	m.mu.RLock()
	result := make([]Person, 0)
	for _, p := range m.people {
		if p.Role == role {
			result = append(result, p)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(result, byName)
	return result, nil
}

func byName(a, b Person) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
