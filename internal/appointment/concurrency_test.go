package appointment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hackgods/hospital-scheduling/internal/lock"
)

// hookRepository runs callbacks around writes of the wrapped repository.
type hookRepository struct {
	Repository
	beforeCreate func(a *Appointment)
	afterUpdate  func(a *Appointment)
}

func (r *hookRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	if r.beforeCreate != nil {
		r.beforeCreate(a)
	}
	return r.Repository.CreateAppointment(ctx, a)
}

func (r *hookRepository) UpdateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	updated, err := r.Repository.UpdateAppointment(ctx, a)
	if err == nil && r.afterUpdate != nil {
		r.afterUpdate(updated)
	}
	return updated, err
}

// tryLocker never waits: a held key fails with lock.ErrNotAcquired, like the
// redis locker does.
type tryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newTryLocker() *tryLocker {
	return &tryLocker{held: make(map[string]bool)}
}

func (l *tryLocker) WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	keys = lock.Normalize(keys)

	l.mu.Lock()
	for _, k := range keys {
		if l.held[k] {
			l.mu.Unlock()
			return lock.ErrNotAcquired
		}
	}
	for _, k := range keys {
		l.held[k] = true
	}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		for _, k := range keys {
			delete(l.held, k)
		}
		l.mu.Unlock()
	}()
	return fn(ctx)
}

// activeAt returns the doctor's active appointments starting at t on testDate.
func (f *fixture) activeAt(t *testing.T, doctorID string, at TimeOfDay) []Appointment {
	t.Helper()
	list, err := f.repo.ListAppointments(context.Background(), Filter{DoctorID: doctorID, Statuses: activeStatuses})
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	want := testDate.At(at, f.svc.Location())
	var out []Appointment
	for _, a := range list {
		if a.DateTime.Equal(want) {
			out = append(out, a)
		}
	}
	return out
}

// checkSlotState fails unless at most one active appointment holds the slot at
// t and the claimed instance agrees with the store.
func (f *fixture) checkSlotState(t *testing.T, doctorID string, at TimeOfDay) {
	t.Helper()
	active := f.activeAt(t, doctorID, at)
	key := slotKey{doctorID: doctorID, date: testDate, start: at}
	claimed, ok := f.svc.claims.get(key)

	switch len(active) {
	case 0:
		if ok {
			t.Fatalf("%s: claim bound to %q left behind with no active appointment", at, claimed.BoundAppointment())
		}
	case 1:
		if !ok {
			t.Fatalf("%s: active appointment %s has no claimed slot", at, active[0].ID)
		}
		if claimed.Available() || claimed.BoundAppointment() != active[0].ID {
			t.Fatalf("%s: claimed slot available=%v bound=%q, want bound to %s",
				at, claimed.Available(), claimed.BoundAppointment(), active[0].ID)
		}
	default:
		t.Fatalf("%s: %d active appointments share one slot", at, len(active))
	}
}

func TestClaims_ReleaseSkipsForeignClaim(t *testing.T) {
	c := newClaims()
	s := NewSlot("D001", testDate, NewTimeOfDay(9, 0))
	s.TryBook("A00002")
	c.put(s)

	if c.release(s.key(), "A00001") {
		t.Fatal("release by a different appointment should be skipped")
	}
	if s.Available() || s.BoundAppointment() != "A00002" || c.len() != 1 {
		t.Fatalf("claim disturbed: available=%v bound=%q len=%d", s.Available(), s.BoundAppointment(), c.len())
	}

	if !c.release(s.key(), "A00002") {
		t.Fatal("release by the owner should succeed")
	}
	if !s.Available() || c.len() != 0 {
		t.Fatalf("owner release left available=%v len=%d", s.Available(), c.len())
	}
}

func TestCancelAppointment_BookingDuringCancelKeepsClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setWindow(t, "D001", testDate, "09:00", "10:00")
	first, _ := f.book(t, "P1001", "D001", testDate, "09:00")

	type result struct {
		appt *Appointment
		slot *Slot
		err  error
	}
	done := make(chan result, 1)
	var fired atomic.Bool

	f.svc.repo = &hookRepository{
		Repository: f.repo,
		afterUpdate: func(a *Appointment) {
			if a.ID != first.ID || a.Status != StatusCancelled || !fired.CompareAndSwap(false, true) {
				return
			}
			go func() {
				slot := NewSlot("D001", testDate, NewTimeOfDay(9, 0))
				appt, err := f.svc.ScheduleAppointment(ctx, "P1002", "D001", slot)
				done <- result{appt, slot, err}
			}()
		},
	}

	if _, err := f.svc.CancelAppointment(ctx, first.ID); err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}
	if !fired.Load() {
		t.Fatal("booking was not started during the cancellation")
	}

	second := <-done
	if second.err != nil {
		t.Fatalf("booking after cancel: %v", second.err)
	}
	if second.slot.Available() || second.slot.BoundAppointment() != second.appt.ID {
		t.Fatalf("winning slot available=%v bound=%q, want bound to %s",
			second.slot.Available(), second.slot.BoundAppointment(), second.appt.ID)
	}
	if got := f.slot(t, "D001", testDate, "09:00"); got != second.slot {
		t.Fatal("slot lookup does not return the claimed instance")
	}
	f.checkSlotState(t, "D001", NewTimeOfDay(9, 0))
}

func TestScheduleAppointment_FailFastLockIsPerSlot(t *testing.T) {
	tests := []struct {
		name    string
		at      TimeOfDay
		wantErr error
	}{
		{"different slot same day", NewTimeOfDay(9, 30), nil},
		{"same slot", NewTimeOfDay(9, 0), ErrSlotUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.setWindow(t, "D001", testDate, "09:00", "10:00")
			f.svc.locker = newTryLocker()

			var (
				fired     atomic.Bool
				nestedErr error
			)
			f.svc.repo = &hookRepository{
				Repository: f.repo,
				beforeCreate: func(*Appointment) {
					if !fired.CompareAndSwap(false, true) {
						return
					}
					// The outer booking still holds its lock here.
					_, nestedErr = f.svc.ScheduleAppointment(ctx, "P1002", "D001", NewSlot("D001", testDate, tt.at))
				},
			}

			if _, err := f.svc.ScheduleAppointment(ctx, "P1001", "D001", NewSlot("D001", testDate, NewTimeOfDay(9, 0))); err != nil {
				t.Fatalf("outer booking: %v", err)
			}

			if tt.wantErr == nil {
				if nestedErr != nil {
					t.Fatalf("concurrent booking of another slot failed: %v", nestedErr)
				}
			} else if !errors.Is(nestedErr, tt.wantErr) || !errors.Is(nestedErr, lock.ErrNotAcquired) {
				t.Fatalf("nested booking err = %v, want %v from lock contention", nestedErr, tt.wantErr)
			}
			f.checkSlotState(t, "D001", NewTimeOfDay(9, 0))
			f.checkSlotState(t, "D001", NewTimeOfDay(9, 30))
		})
	}
}

func TestCancelRacesBooking(t *testing.T) {
	nine := NewTimeOfDay(9, 0)
	for i := range 50 {
		ctx := context.Background()
		f := newFixture(t)
		f.setWindow(t, "D001", testDate, "09:00", "10:00")
		first, _ := f.book(t, "P1001", "D001", testDate, "09:00")

		var (
			wg      sync.WaitGroup
			start   = make(chan struct{})
			slot    = NewSlot("D001", testDate, nine)
			booked  *Appointment
			bookErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			if _, err := f.svc.CancelAppointment(ctx, first.ID); err != nil {
				t.Errorf("round %d: CancelAppointment: %v", i, err)
			}
		}()
		go func() {
			defer wg.Done()
			<-start
			booked, bookErr = f.svc.ScheduleAppointment(ctx, "P1002", "D001", slot)
		}()
		close(start)
		wg.Wait()

		switch {
		case bookErr == nil:
			if slot.Available() || slot.BoundAppointment() != booked.ID {
				t.Fatalf("round %d: winning slot available=%v bound=%q", i, slot.Available(), slot.BoundAppointment())
			}
		case errors.Is(bookErr, ErrSlotUnavailable):
			if !slot.Available() {
				t.Fatalf("round %d: losing slot instance left claimed", i)
			}
		default:
			t.Fatalf("round %d: booking: %v", i, bookErr)
		}
		f.checkSlotState(t, "D001", nine)
	}
}

func TestRescheduleRacesBooking(t *testing.T) {
	nine, nineThirty := NewTimeOfDay(9, 0), NewTimeOfDay(9, 30)
	for i := range 50 {
		ctx := context.Background()
		f := newFixture(t)
		f.setWindow(t, "D001", testDate, "09:00", "10:00")
		moving, _ := f.book(t, "P1001", "D001", testDate, "09:30")

		var (
			wg      sync.WaitGroup
			start   = make(chan struct{})
			target  = NewSlot("D001", testDate, nine)
			fresh   = NewSlot("D001", testDate, nine)
			moved   *Appointment
			booked  *Appointment
			moveErr error
			bookErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			moved, moveErr = f.svc.RescheduleAppointment(ctx, moving.ID, target)
		}()
		go func() {
			defer wg.Done()
			<-start
			booked, bookErr = f.svc.ScheduleAppointment(ctx, "P1002", "D001", fresh)
		}()
		close(start)
		wg.Wait()

		for _, err := range []error{moveErr, bookErr} {
			if err != nil && !errors.Is(err, ErrSlotUnavailable) {
				t.Fatalf("round %d: unexpected error: %v", i, err)
			}
		}
		if (moveErr == nil) == (bookErr == nil) {
			t.Fatalf("round %d: reschedule err=%v booking err=%v, want exactly one winner", i, moveErr, bookErr)
		}

		winner, winnerID, loser := target, "", fresh
		if moveErr == nil {
			winnerID = moved.ID
		} else {
			winner, winnerID, loser = fresh, booked.ID, target
		}
		if winner.Available() || winner.BoundAppointment() != winnerID {
			t.Fatalf("round %d: winning slot available=%v bound=%q, want %s", i, winner.Available(), winner.BoundAppointment(), winnerID)
		}
		if !loser.Available() {
			t.Fatalf("round %d: losing slot instance left claimed", i)
		}
		f.checkSlotState(t, "D001", nine)
		f.checkSlotState(t, "D001", nineThirty)
	}
}
