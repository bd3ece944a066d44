package directory

import (
	"context"
	"errors"
	"testing"
)

func newTestDirectory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	err := m.Add(
		Person{ID: "D002", Name: "Dr. Zoe", Role: RoleDoctor},
		Person{ID: "D001", Name: "Dr. Adam", Role: RoleDoctor},
		Person{ID: "D003", Name: "Dr. Adam", Role: RoleDoctor},
		Person{ID: "P1001", Name: "Pat", Role: RolePatient},
		Person{ID: "X001", Name: "Phil", Role: RolePharmacist},
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return m
}

func TestMemory_RoleLookups(t *testing.T) {
	ctx := context.Background()
	m := newTestDirectory(t)

	tests := []struct {
		name    string
		lookup  func(context.Context, string) (*Person, error)
		id      string
		wantErr bool
	}{
		{"doctor", m.Doctor, "D001", false},
		{"patient", m.Patient, "P1001", false},
		{"any person", m.Person, "X001", false},
		{"patient as doctor", m.Doctor, "P1001", true},
		{"pharmacist as patient", m.Patient, "X001", true},
		{"unknown", m.Person, "nobody", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.lookup(ctx, tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("err = %v, want not found", err)
				}
				return
			}
			if err != nil || p.ID != tt.id {
				t.Fatalf("got %+v, %v", p, err)
			}
		})
	}
}

func TestMemory_ListByRoleOrderedByName(t *testing.T) {
	m := newTestDirectory(t)

	doctors, err := Doctors(context.Background(), m)
	if err != nil {
		t.Fatalf("Doctors: %v", err)
	}
	want := []string{"D001", "D003", "D002"}
	if len(doctors) != len(want) {
		t.Fatalf("got %d doctors", len(doctors))
	}
	for i, d := range doctors {
		if d.ID != want[i] {
			t.Fatalf("order = %v, want %v", doctors, want)
		}
	}

	patients, _ := Patients(context.Background(), m)
	if len(patients) != 1 || !patients[0].IsPatient() {
		t.Fatalf("patients = %+v", patients)
	}
}

func TestMemory_AddValidates(t *testing.T) {
	m := NewMemory()

	if err := m.Add(Person{Name: "No ID", Role: RoleDoctor}); err == nil {
		t.Error("missing id should fail")
	}
	if err := m.Add(Person{ID: "Z1", Role: "nurse"}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("err = %v, want invalid role", err)
	}

	// the whole batch is rejected when one entry is bad
	_ = m.Add(Person{ID: "D1", Role: RoleDoctor}, Person{ID: "D2", Role: "bad"})
	if _, err := m.Person(context.Background(), "D1"); !errors.Is(err, ErrNotFound) {
		t.Error("partial batch must not be stored")
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := newTestDirectory(t)

	p, _ := m.Doctor(ctx, "D001")
	p.Name = "changed"

	again, _ := m.Doctor(ctx, "D001")
	if again.Name != "Dr. Adam" {
		t.Fatal("mutating a returned person changed the directory")
	}
}
