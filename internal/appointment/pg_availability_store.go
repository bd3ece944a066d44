package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgAvailabilityStore struct {
	pool *pgxpool.Pool
}

func NewPgAvailabilityStore(pool *pgxpool.Pool) *PgAvailabilityStore {
	return &PgAvailabilityStore{pool: pool}
}

const availabilityColumns = `doctor_id, date, start_time, end_time, updated_at`

func scanAvailability(row pgx.Row) (*DoctorAvailability, error) {
	var a DoctorAvailability
	var date pgtype.Date
	var start, end pgtype.Time

	err := row.Scan(&a.DoctorID, &date, &start, &end, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}

	a.Date = DateOf(date.Time)
	a.Start = fromPgTime(start)
	a.End = fromPgTime(end)
	return &a, nil
}

func toPgDate(d Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func toPgTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: time.Duration(t).Microseconds(), Valid: true}
}

func fromPgTime(t pgtype.Time) TimeOfDay {
	return TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
}

func (s *PgAvailabilityStore) SaveAvailability(ctx context.Context, a DoctorAvailability) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO doctor_availability (doctor_id, date, start_time, end_time, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (doctor_id, date) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			updated_at = now()
	`, a.DoctorID, toPgDate(a.Date), toPgTime(a.Start), toPgTime(a.End))
	if err != nil {
		return fmt.Errorf("save availability: %w", err)
	}
	return nil
}

func (s *PgAvailabilityStore) GetAvailability(ctx context.Context, doctorID string, date Date) (*DoctorAvailability, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+availabilityColumns+`
		FROM doctor_availability
		WHERE doctor_id = $1 AND date = $2
	`, doctorID, toPgDate(date))
	return scanAvailability(row)
}

func (s *PgAvailabilityStore) ListAvailabilityByDoctor(ctx context.Context, doctorID string) ([]DoctorAvailability, error) {
	return s.list(ctx, `
		SELECT `+availabilityColumns+`
		FROM doctor_availability
		WHERE doctor_id = $1
		ORDER BY date
	`, doctorID)
}

func (s *PgAvailabilityStore) ListAvailabilityByDate(ctx context.Context, date Date) ([]DoctorAvailability, error) {
	return s.list(ctx, `
		SELECT `+availabilityColumns+`
		FROM doctor_availability
		WHERE date = $1
		ORDER BY doctor_id
	`, toPgDate(date))
}

func (s *PgAvailabilityStore) DeleteAvailability(ctx context.Context, doctorID string, date Date) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM doctor_availability
		WHERE doctor_id = $1 AND date = $2
	`, doctorID, toPgDate(date))
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

func (s *PgAvailabilityStore) list(ctx context.Context, query string, args ...any) ([]DoctorAvailability, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	defer rows.Close()

	result := make([]DoctorAvailability, 0)
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
