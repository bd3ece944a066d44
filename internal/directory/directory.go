package directory

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("person not found")
	ErrInvalidRole = errors.New("invalid role")
)

// Role discriminates the kinds of people known to the hospital.
type Role string

const (
	RoleDoctor        Role = "doctor"
	RolePatient       Role = "patient"
	RolePharmacist    Role = "pharmacist"
	RoleAdministrator Role = "administrator"
)

var Roles = []Role{RoleDoctor, RolePatient, RolePharmacist, RoleAdministrator}

func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Person is any identity the directory knows. Role-specific fields are only
// set for the matching role.
type Person struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Gender string `json:"gender,omitempty"`
	Age    int    `json:"age,omitempty"`

	// doctor
	Specialization string `json:"specialization,omitempty"`

	// patient
	DateOfBirth string `json:"date_of_birth,omitempty"`
	BloodType   string `json:"blood_type,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

func (p Person) IsDoctor() bool  { return p.Role == RoleDoctor }
func (p Person) IsPatient() bool { return p.Role == RolePatient }

// Directory resolves identities. Implementations never hand out shared mutable state.
type Directory interface {
	Person(ctx context.Context, id string) (*Person, error)
	Doctor(ctx context.Context, id string) (*Person, error)
	Patient(ctx context.Context, id string) (*Person, error)
	ListByRole(ctx context.Context, role Role) ([]Person, error)
}

// Doctors lists every doctor ordered by name.
func Doctors(ctx context.Context, d Directory) ([]Person, error) {
	return d.ListByRole(ctx, RoleDoctor)
}

// Patients lists every patient ordered by name.
func Patients(ctx context.Context, d Directory) ([]Person, error) {
	return d.ListByRole(ctx, RolePatient)
}

func expectRole(p *Person, role Role) (*Person, error) {
	if p.Role != role {
		return nil, fmt.Errorf("%w: %s is not a %s", ErrNotFound, p.ID, role)
	}
	return p, nil
}
