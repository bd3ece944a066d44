package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-scheduling/internal/directory"
	"github.com/hackgods/hospital-scheduling/internal/lock"
)

// activeStatuses are the statuses that hold a slot.
var activeStatuses = []Status{StatusPendingApproval, StatusConfirmed, StatusCompleted}

// Service owns every mutation of appointments and availability.
//
// Mutations of one appointment are serialized by a lock on its id. Claims and
// releases of a slot are serialized by a lock on (doctor, date, start), and
// window changes by a lock on (doctor, date). When an appointment and its slots
// are both locked the appointment lock is taken first.
type Service struct {
	repo    Repository
	avail   AvailabilityStore
	dir     directory.Directory
	locker  lock.Locker
	log     zerolog.Logger
	loc     *time.Location
	now     func() time.Time
	claims  *claims
	metrics *Metrics
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone dates and wall-clock times are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires the stores together. dir may be nil, in which case doctor
// and patient ids are not checked against a directory.
func NewService(repo Repository, avail AvailabilityStore, dir directory.Directory, locker lock.Locker, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		avail:  avail,
		dir:    dir,
		locker: locker,
		log:    zerolog.Nop(),
		loc:    time.Local,
		now:    time.Now,
		claims: newClaims(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	return s
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// Now returns the current instant in the scheduling location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) Today() Date {
	return DateOf(s.Now())
}

func appointmentLockKey(id string) string {
	return "appointment:" + id
}

func dayLockKey(doctorID string, date Date) string {
	return "doctor:" + doctorID + ":" + date.String()
}

// heldSlot is the slot an appointment occupies.
func (s *Service) heldSlot(a *Appointment) slotKey {
	return slotKey{doctorID: a.DoctorID, date: a.Date(), start: ClockOf(a.DateTime.In(s.loc))}
}

// contended reports lock contention on a claim as a lost race for the slot.
func contended(err error) error {
	if errors.Is(err, lock.ErrNotAcquired) {
		return fmt.Errorf("%w: %w", ErrSlotUnavailable, err)
	}
	return err
}

func (s *Service) checkDoctor(ctx context.Context, doctorID string) (*directory.Person, error) {
	if doctorID == "" {
		return nil, fmt.Errorf("%w: doctor is required", ErrInvalidArgument)
	}
	if s.dir == nil {
		return &directory.Person{ID: doctorID, Role: directory.RoleDoctor}, nil
	}
	d, err := s.dir.Doctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, doctorID)
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	return d, nil
}

func (s *Service) checkPatient(ctx context.Context, patientID string) error {
	if patientID == "" {
		return fmt.Errorf("%w: patient is required", ErrInvalidArgument)
	}
	if s.dir == nil {
		return nil
	}
	if _, err := s.dir.Patient(ctx, patientID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
		}
		return fmt.Errorf("load patient: %w", err)
	}
	return nil
}

// validateWindow checks a window that is about to be published.
func (s *Service) validateWindow(doctorID string, date Date, start, end TimeOfDay) error {
	if doctorID == "" {
		return fmt.Errorf("%w: doctor is required", ErrInvalidArgument)
	}
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidArgument)
	}
	if !start.Valid() || end <= 0 || time.Duration(end) > 24*time.Hour {
		return fmt.Errorf("%w: time of day out of range", ErrInvalidArgument)
	}
	if end <= start {
		return ErrInvalidTimeRange
	}

	now := s.Now()
	today := DateOf(now)
	if date.Before(today) {
		return ErrPastDate
	}
	if date == today && start < ClockOf(now) {
		return ErrPastStartTime
	}
	return nil
}

// SetAvailability publishes the doctor's window for date, replacing any
// window already set for that date.
func (s *Service) SetAvailability(ctx context.Context, doctorID string, date Date, start, end TimeOfDay) (*DoctorAvailability, error) {
	return s.saveAvailability(ctx, doctorID, date, start, end, false)
}

// UpdateAvailability changes an existing window and fails when none is set.
func (s *Service) UpdateAvailability(ctx context.Context, doctorID string, date Date, start, end TimeOfDay) (*DoctorAvailability, error) {
	return s.saveAvailability(ctx, doctorID, date, start, end, true)
}

func (s *Service) saveAvailability(ctx context.Context, doctorID string, date Date, start, end TimeOfDay, mustExist bool) (*DoctorAvailability, error) {
	if err := s.validateWindow(doctorID, date, start, end); err != nil {
		return nil, err
	}
	if _, err := s.checkDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	window := DoctorAvailability{DoctorID: doctorID, Date: date, Start: start, End: end}

	err := s.locker.WithLock(ctx, []string{dayLockKey(doctorID, date)}, func(ctx context.Context) error {
		if mustExist {
			if _, err := s.avail.GetAvailability(ctx, doctorID, date); err != nil {
				return err
			}
		}
		return s.avail.SaveAvailability(ctx, window)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("doctor_id", doctorID).
		Stringer("date", date).
		Stringer("start", start).
		Stringer("end", end).
		Msg("availability set")

	return s.avail.GetAvailability(ctx, doctorID, date)
}

func (s *Service) RemoveAvailability(ctx context.Context, doctorID string, date Date) error {
	if doctorID == "" || date.IsZero() {
		return fmt.Errorf("%w: doctor and date are required", ErrInvalidArgument)
	}
	err := s.locker.WithLock(ctx, []string{dayLockKey(doctorID, date)}, func(ctx context.Context) error {
		return s.avail.DeleteAvailability(ctx, doctorID, date)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("doctor_id", doctorID).Stringer("date", date).Msg("availability removed")
	return nil
}

func (s *Service) GetAvailability(ctx context.Context, doctorID string, date Date) (*DoctorAvailability, error) {
	return s.avail.GetAvailability(ctx, doctorID, date)
}

// DoctorAvailabilities lists a doctor's windows ordered by date.
func (s *Service) DoctorAvailabilities(ctx context.Context, doctorID string) ([]DoctorAvailability, error) {
	return s.avail.ListAvailabilityByDoctor(ctx, doctorID)
}

// AvailabilitiesByDate lists the windows on date ordered by doctor name.
func (s *Service) AvailabilitiesByDate(ctx context.Context, date Date) ([]DoctorAvailability, error) {
	windows, err := s.avail.ListAvailabilityByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if s.dir == nil {
		return windows, nil
	}

	doctors, err := directory.Doctors(ctx, s.dir)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	byDoctor := make(map[string]DoctorAvailability, len(windows))
	for _, w := range windows {
		byDoctor[w.DoctorID] = w
	}

	result := make([]DoctorAvailability, 0, len(windows))
	for _, d := range doctors {
		if w, ok := byDoctor[d.ID]; ok {
			result = append(result, w)
			delete(byDoctor, d.ID)
		}
	}
	// windows of doctors the directory no longer knows go last
	for _, w := range windows {
		if _, ok := byDoctor[w.DoctorID]; ok {
			result = append(result, w)
		}
	}
	return result, nil
}

// AvailableDoctors returns the doctors with a window on date, ordered by name.
// For today only windows that end after the current time count.
func (s *Service) AvailableDoctors(ctx context.Context, date Date) ([]directory.Person, error) {
	windows, err := s.AvailabilitiesByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	isToday := date == DateOf(now)

	result := make([]directory.Person, 0, len(windows))
	for _, w := range windows {
		if isToday && w.End <= ClockOf(now) {
			continue
		}
		d, err := s.checkDoctor(ctx, w.DoctorID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		result = append(result, *d)
	}
	return result, nil
}

// bookedTimes maps the start time of every held slot on date to its appointment id.
func (s *Service) bookedTimes(ctx context.Context, doctorID string, date Date) (map[TimeOfDay]string, error) {
	appts, err := s.repo.ListAppointments(ctx, Filter{
		DoctorID: doctorID,
		Statuses: activeStatuses,
		From:     date,
		To:       date,
	})
	if err != nil {
		return nil, fmt.Errorf("list booked appointments: %w", err)
	}
	booked := make(map[TimeOfDay]string, len(appts))
	for _, a := range appts {
		booked[ClockOf(a.DateTime.In(s.loc))] = a.ID
	}
	return booked, nil
}

// AvailableSlots lists the open slots of the doctor's window on date. A doctor
// without a window on date has no slots. The result is a snapshot: booking one
// of them can still lose a race.
func (s *Service) AvailableSlots(ctx context.Context, date Date, doctorID string) ([]*Slot, error) {
	if doctorID == "" || date.IsZero() {
		return nil, fmt.Errorf("%w: doctor and date are required", ErrInvalidArgument)
	}

	window, err := s.avail.GetAvailability(ctx, doctorID, date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []*Slot{}, nil
		}
		return nil, err
	}

	booked, err := s.bookedTimes(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	result := make([]*Slot, 0)
	for slot := range GenerateSlots(window, s.Now()) {
		if _, taken := booked[slot.Start]; !taken {
			result = append(result, slot)
		}
	}
	return result, nil
}

// SlotByDateTime returns the slot starting at t in the doctor's window on date.
// A claimed slot is returned as the instance that holds the claim.
func (s *Service) SlotByDateTime(ctx context.Context, doctorID string, date Date, t TimeOfDay) (*Slot, error) {
	window, err := s.avail.GetAvailability(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if !window.Covers(t) {
		return nil, ErrSlotNotFound
	}

	if claimed, ok := s.claims.get(slotKey{doctorID: doctorID, date: date, start: t}); ok {
		return claimed, nil
	}

	for slot := range GenerateSlots(window, s.Now()) {
		if slot.Start != t {
			continue
		}
		booked, err := s.bookedTimes(ctx, doctorID, date)
		if err != nil {
			return nil, err
		}
		if id, taken := booked[t]; taken {
			slot.TryBook(id)
		}
		return slot, nil
	}
	return nil, ErrSlotNotFound
}

// IsDoctorAvailable reports whether a slot starting at t on date lies inside
// the doctor's window and is not held by an appointment.
func (s *Service) IsDoctorAvailable(ctx context.Context, doctorID string, date Date, t TimeOfDay) (bool, error) {
	slot, err := s.SlotByDateTime(ctx, doctorID, date, t)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return slot.Available(), nil
}

// nextSlotHorizon is how many days NextAvailableSlot looks ahead, today included.
const nextSlotHorizon = 7

func (s *Service) NextAvailableSlot(ctx context.Context, doctorID string) (*Slot, error) {
	today := s.Today()
	for i := range nextSlotHorizon {
		slots, err := s.AvailableSlots(ctx, today.AddDays(i), doctorID)
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			return slots[0], nil
		}
	}
	return nil, ErrSlotNotFound
}

// checkSlotInWindow verifies slot is one the doctor's current window would generate.
func (s *Service) checkSlotInWindow(ctx context.Context, slot *Slot) error {
	window, err := s.avail.GetAvailability(ctx, slot.DoctorID, slot.Date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrSlotOutsideWindow
		}
		return err
	}
	if !window.Covers(slot.Start) || time.Duration(slot.Start-window.Start)%SlotDuration != 0 {
		return ErrSlotOutsideWindow
	}
	return nil
}

// checkNotBooked fails when another appointment already holds the slot's datetime.
func (s *Service) checkNotBooked(ctx context.Context, slot *Slot) error {
	booked, err := s.bookedTimes(ctx, slot.DoctorID, slot.Date)
	if err != nil {
		return err
	}
	if _, taken := booked[slot.Start]; taken {
		return ErrSlotAlreadyBooked
	}
	return nil
}

func (s *Service) checkFutureSlot(slot *Slot) error {
	if !slot.DateTime(s.loc).After(s.Now()) {
		return ErrPastStartTime
	}
	return nil
}

// ScheduleAppointment books slot for the patient. On success the slot is
// claimed and a pending appointment is stored; on failure nothing changes.
func (s *Service) ScheduleAppointment(ctx context.Context, patientID, doctorID string, slot *Slot) (appt *Appointment, err error) {
	defer func() { s.metrics.booking(err) }()

	if slot == nil {
		return nil, fmt.Errorf("%w: slot is required", ErrInvalidArgument)
	}
	if slot.DoctorID != doctorID {
		return nil, fmt.Errorf("%w: slot belongs to doctor %s", ErrInvalidArgument, slot.DoctorID)
	}
	if err := s.checkPatient(ctx, patientID); err != nil {
		return nil, err
	}
	if _, err := s.checkDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	if !slot.Available() {
		return nil, ErrSlotAlreadyBooked
	}
	if err := s.checkFutureSlot(slot); err != nil {
		return nil, err
	}

	err = s.locker.WithLock(ctx, []string{slot.key().lockKey()}, func(ctx context.Context) error {
		if err := s.checkSlotInWindow(ctx, slot); err != nil {
			return err
		}
		if err := s.checkNotBooked(ctx, slot); err != nil {
			return err
		}

		id, err := s.repo.NextAppointmentID(ctx)
		if err != nil {
			return err
		}
		if !slot.TryBook(id) {
			return ErrSlotAlreadyBooked
		}

		created, err := s.repo.CreateAppointment(ctx, &Appointment{
			ID:        id,
			PatientID: patientID,
			DoctorID:  doctorID,
			DateTime:  slot.DateTime(s.loc),
			Status:    StatusPendingApproval,
		})
		if err != nil {
			slot.Release()
			return fmt.Errorf("create appointment: %w", err)
		}

		s.claims.put(slot)
		appt = created
		return nil
	})
	if err != nil {
		s.log.Debug().Err(err).
			Str("doctor_id", doctorID).
			Str("patient_id", patientID).
			Time("date_time", slot.DateTime(s.loc)).
			Msg("booking rejected")
		return nil, contended(err)
	}

	s.log.Info().
		Str("appointment_id", appt.ID).
		Str("doctor_id", doctorID).
		Str("patient_id", patientID).
		Time("date_time", appt.DateTime).
		Msg("appointment scheduled")

	return appt, nil
}

// RescheduleAppointment moves an active appointment to newSlot and resets it to
// pending approval. The new claim, the record update and the release of the
// old slot happen under the locks of both slots, so either all apply or none.
func (s *Service) RescheduleAppointment(ctx context.Context, id string, newSlot *Slot) (appt *Appointment, err error) {
	defer func() { s.metrics.reschedule(err) }()

	if newSlot == nil {
		return nil, fmt.Errorf("%w: slot is required", ErrInvalidArgument)
	}

	err = s.locker.WithLock(ctx, []string{appointmentLockKey(id)}, func(ctx context.Context) error {
		current, err := s.repo.GetAppointmentByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() {
			return fmt.Errorf("%w: cannot reschedule a %s appointment", ErrInvalidTransition, current.Status)
		}
		if newSlot.DoctorID != current.DoctorID {
			return fmt.Errorf("%w: slot belongs to doctor %s", ErrInvalidArgument, newSlot.DoctorID)
		}
		if !newSlot.Available() {
			return ErrSlotAlreadyBooked
		}
		if err := s.checkFutureSlot(newSlot); err != nil {
			return err
		}

		oldSlot := s.heldSlot(current)
		keys := []string{oldSlot.lockKey(), newSlot.key().lockKey()}

		return s.locker.WithLock(ctx, keys, func(ctx context.Context) error {
			if err := s.checkSlotInWindow(ctx, newSlot); err != nil {
				return err
			}
			if err := s.checkNotBooked(ctx, newSlot); err != nil {
				return err
			}
			if !newSlot.TryBook(current.ID) {
				return ErrSlotAlreadyBooked
			}

			moved := current.clone()
			moved.DateTime = newSlot.DateTime(s.loc)
			moved.Status = StatusPendingApproval

			updated, err := s.repo.UpdateAppointment(ctx, moved)
			if err != nil {
				newSlot.Release()
				return fmt.Errorf("update appointment: %w", err)
			}

			s.claims.release(oldSlot, current.ID)
			s.claims.put(newSlot)
			appt = updated
			return nil
		})
	})
	if err != nil {
		return nil, contended(err)
	}

	s.metrics.transition(StatusPendingApproval)
	s.log.Info().
		Str("appointment_id", appt.ID).
		Time("date_time", appt.DateTime).
		Msg("appointment rescheduled")

	return appt, nil
}

// CancelAppointment cancels an active appointment and frees its slot.
func (s *Service) CancelAppointment(ctx context.Context, id string) (*Appointment, error) {
	return s.UpdateAppointmentStatus(ctx, id, StatusCancelled)
}

// ConfirmAppointment approves a pending appointment.
func (s *Service) ConfirmAppointment(ctx context.Context, id string) (*Appointment, error) {
	return s.UpdateAppointmentStatus(ctx, id, StatusConfirmed)
}

// UpdateAppointmentStatus applies one lifecycle edge. Completion needs an
// outcome and goes through RecordAppointmentOutcome instead.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id string, to Status) (*Appointment, error) {
	if _, err := ParseStatus(string(to)); err != nil {
		return nil, err
	}

	var updated *Appointment
	err := s.locker.WithLock(ctx, []string{appointmentLockKey(id)}, func(ctx context.Context) error {
		current, err := s.repo.GetAppointmentByID(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
		}
		if to == StatusCompleted {
			return ErrOutcomeRequired
		}

		next := current.clone()
		next.Status = to
		if to != StatusCancelled {
			updated, err = s.repo.UpdateAppointment(ctx, next)
			if err != nil {
				return fmt.Errorf("update appointment: %w", err)
			}
			return nil
		}

		held := s.heldSlot(current)
		return s.locker.WithLock(ctx, []string{held.lockKey()}, func(ctx context.Context) error {
			updated, err = s.repo.UpdateAppointment(ctx, next)
			if err != nil {
				return fmt.Errorf("update appointment: %w", err)
			}
			s.claims.release(held, current.ID)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.transition(to)
	s.log.Info().
		Str("appointment_id", id).
		Str("status", string(to)).
		Msg("appointment status updated")

	return updated, nil
}

// RecordAppointmentOutcome completes a confirmed appointment. The outcome is
// attached and the status moves to completed in a single write.
func (s *Service) RecordAppointmentOutcome(ctx context.Context, id, serviceType string, prescriptions []Prescription, notes string) (*Appointment, error) {
	if serviceType == "" {
		return nil, fmt.Errorf("%w: service type is required", ErrInvalidArgument)
	}
	prescribed := make([]Prescription, len(prescriptions))
	for i, p := range prescriptions {
		if p.Medicine == "" || p.Quantity <= 0 {
			return nil, fmt.Errorf("%w: prescription %d needs a medicine and a positive quantity", ErrInvalidArgument, i)
		}
		p.Status = PrescriptionPending
		prescribed[i] = p
	}

	var updated *Appointment
	err := s.locker.WithLock(ctx, []string{appointmentLockKey(id)}, func(ctx context.Context) error {
		current, err := s.repo.GetAppointmentByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusConfirmed {
			return fmt.Errorf("%w (status %s)", ErrNotConfirmed, current.Status)
		}

		next := current.clone()
		next.Status = StatusCompleted
		next.Outcome = &OutcomeRecord{
			AppointmentDate:   DateOf(current.DateTime.In(s.loc)),
			ServiceType:       serviceType,
			Prescriptions:     prescribed,
			ConsultationNotes: notes,
		}

		updated, err = s.repo.UpdateAppointment(ctx, next)
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.transition(StatusCompleted)
	s.log.Info().
		Str("appointment_id", id).
		Str("service_type", serviceType).
		Int("prescriptions", len(prescribed)).
		Msg("appointment outcome recorded")

	return updated, nil
}

// PurgeCancelledBefore deletes cancelled appointments dated before cutoff and
// drops claim entries older than cutoff.
func (s *Service) PurgeCancelledBefore(ctx context.Context, cutoff Date) (int, error) {
	if cutoff.IsZero() {
		return 0, fmt.Errorf("%w: cutoff is required", ErrInvalidArgument)
	}
	n, err := s.repo.DeleteCancelledBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	pruned := s.claims.pruneBefore(cutoff)

	s.log.Info().
		Stringer("cutoff", cutoff).
		Int("deleted", n).
		Int("claims_pruned", pruned).
		Msg("cancelled appointments purged")

	return n, nil
}

// PurgeCancelledOlderThan purges cancelled appointments dated more than
// retention before today.
func (s *Service) PurgeCancelledOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	if retention < 0 {
		return 0, fmt.Errorf("%w: retention must not be negative", ErrInvalidArgument)
	}
	return s.PurgeCancelledBefore(ctx, DateOf(s.Now().Add(-retention)))
}
