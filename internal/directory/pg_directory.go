package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

const personColumns = `id, name, role, gender, age, specialization, date_of_birth, blood_type, email, phone`

func scanPerson(row pgx.Row) (*Person, error) {
	var p Person
	var gender, specialization, dob, bloodType, email, phone *string
	var age *int

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Role,
		&gender,
		&age,
		&specialization,
		&dob,
		&bloodType,
		&email,
		&phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.Gender = deref(gender)
	p.Specialization = deref(specialization)
	p.DateOfBirth = deref(dob)
	p.BloodType = deref(bloodType)
	p.Email = deref(email)
	p.Phone = deref(phone)
	if age != nil {
		p.Age = *age
	}
	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (d *PgDirectory) Person(ctx context.Context, id string) (*Person, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+personColumns+`
		FROM people
		WHERE id = $1
	`, id)
	p, err := scanPerson(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load person: %w", err)
	}
	return p, nil
}

func (d *PgDirectory) Doctor(ctx context.Context, id string) (*Person, error) {
	p, err := d.Person(ctx, id)
	if err != nil {
		return nil, err
	}
	return expectRole(p, RoleDoctor)
}

func (d *PgDirectory) Patient(ctx context.Context, id string) (*Person, error) {
	p, err := d.Person(ctx, id)
	if err != nil {
		return nil, err
	}
	return expectRole(p, RolePatient)
}

func (d *PgDirectory) ListByRole(ctx context.Context, role Role) ([]Person, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+personColumns+`
		FROM people
		WHERE role = $1
		ORDER BY name, id
	`, role)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	result := make([]Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Upsert inserts people or overwrites existing rows with the same id.
func (d *PgDirectory) Upsert(ctx context.Context, people ...Person) error {
	batch := &pgx.Batch{}
	for _, p := range people {
		if _, err := ParseRole(string(p.Role)); err != nil {
			return fmt.Errorf("person %s: %w", p.ID, err)
		}
		var age *int
		if p.Age > 0 {
			age = &p.Age
		}
		batch.Queue(`
			INSERT INTO people (`+personColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				role = EXCLUDED.role,
				gender = EXCLUDED.gender,
				age = EXCLUDED.age,
				specialization = EXCLUDED.specialization,
				date_of_birth = EXCLUDED.date_of_birth,
				blood_type = EXCLUDED.blood_type,
				email = EXCLUDED.email,
				phone = EXCLUDED.phone,
				updated_at = now()
		`, p.ID, p.Name, p.Role, nullable(p.Gender), age, nullable(p.Specialization),
			nullable(p.DateOfBirth), nullable(p.BloodType), nullable(p.Email), nullable(p.Phone))
	}

	if err := d.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert people: %w", err)
	}
	return nil
}
