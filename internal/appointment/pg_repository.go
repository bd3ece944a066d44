package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	activeSlotIndexName = "appointments_active_slot_uidx"
)

// PgRepository stores appointments in Postgres. The partial unique index on
// (doctor_id, date_time) backs the one-active-appointment-per-slot rule.
type PgRepository struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

func NewPgRepository(pool *pgxpool.Pool, loc *time.Location) *PgRepository {
	if loc == nil {
		loc = time.Local
	}
	return &PgRepository{pool: pool, loc: loc}
}

const appointmentColumns = `id, patient_id, doctor_id, date_time, status, outcome, created_at, updated_at`

func (r *PgRepository) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var outcome []byte

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.DateTime,
		&a.Status,
		&outcome,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.DateTime = a.DateTime.In(r.loc)
	if len(outcome) > 0 {
		var o OutcomeRecord
		if err := json.Unmarshal(outcome, &o); err != nil {
			return nil, fmt.Errorf("decode outcome for %s: %w", a.ID, err)
		}
		a.Outcome = &o
	}
	return &a, nil
}

func encodeOutcome(o *OutcomeRecord) ([]byte, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

// mapWriteError turns constraint violations into scheduling errors.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == activeSlotIndexName {
			return ErrSlotAlreadyBooked
		}
		return ErrDuplicateID
	}
	return err
}

func (r *PgRepository) NextAppointmentID(ctx context.Context) (string, error) {
	for {
		var n int64
		if err := r.pool.QueryRow(ctx, `SELECT nextval('appointment_id_seq')`).Scan(&n); err != nil {
			return "", fmt.Errorf("next appointment id: %w", err)
		}
		id := formatAppointmentID(n)

		var exists bool
		err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("check appointment id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := a.ID
	if id == "" {
		var err error
		if id, err = r.NextAppointmentID(ctx); err != nil {
			return nil, err
		}
	}

	outcome, err := encodeOutcome(a.Outcome)
	if err != nil {
		return nil, fmt.Errorf("encode outcome: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, date_time, status, outcome, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+appointmentColumns,
		id, a.PatientID, a.DoctorID, a.DateTime, a.Status, outcome)

	created, err := r.scanAppointment(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return created, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return r.scanAppointment(row)
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	outcome, err := encodeOutcome(a.Outcome)
	if err != nil {
		return nil, fmt.Errorf("encode outcome: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    doctor_id = $3,
		    date_time = $4,
		    status = $5,
		    outcome = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.DoctorID, a.DateTime, a.Status, outcome)

	updated, err := r.scanAppointment(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return updated, nil
}

func (r *PgRepository) ListAppointments(ctx context.Context, f Filter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.DoctorID != "" {
		add("doctor_id = $%d", f.DoctorID)
	}
	if f.PatientID != "" {
		add("patient_id = $%d", f.PatientID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}
	if !f.From.IsZero() {
		add("date_time >= $%d", f.From.In(r.loc))
	}
	if !f.To.IsZero() {
		add("date_time < $%d", f.To.AddDays(1).In(r.loc))
	}
	if !f.After.IsZero() {
		add("date_time > $%d", f.After)
	}
	if !f.Before.IsZero() {
		add("date_time < $%d", f.Before)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date_time ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	result := make([]Appointment, 0)
	for rows.Next() {
		a, err := r.scanAppointment(rows)
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

func (r *PgRepository) DeleteCancelledBefore(ctx context.Context, cutoff Date) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointments
		WHERE status = 'cancelled'
		  AND date_time < $1
	`, cutoff.In(r.loc))
	if err != nil {
		return 0, fmt.Errorf("delete cancelled appointments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
