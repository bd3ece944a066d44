package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-scheduling/internal/appointment"
	"github.com/hackgods/hospital-scheduling/internal/directory"
)

type handlers struct {
	svc *appointment.Service
	dir directory.Directory
	log zerolog.Logger
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	handleServiceError(w, r, h.log, err)
}

func (h *handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := appointment.ParseDate(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	at, err := appointment.ParseTimeOfDay(req.Time)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	slot, err := h.svc.SlotByDateTime(r.Context(), req.DoctorID, date, at)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	appt, err := h.svc.ScheduleAppointment(r.Context(), req.PatientID, req.DoctorID, slot)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.GetAppointment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// listAppointments filters by one of status, date or from/to. Without a
// filter every appointment is returned.
func (h *handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		list []appointment.Appointment
		err  error
	)
	switch {
	case q.Get("status") != "":
		var st appointment.Status
		if st, err = appointment.ParseStatus(q.Get("status")); err == nil {
			list, err = h.svc.AppointmentsByStatus(r.Context(), st)
		}
	case q.Get("date") != "":
		var d appointment.Date
		if d, err = appointment.ParseDate(q.Get("date")); err == nil {
			list, err = h.svc.AppointmentsByDate(r.Context(), d)
		}
	case q.Get("from") != "" || q.Get("to") != "":
		var from, to appointment.Date
		if from, err = appointment.ParseDate(q.Get("from")); err == nil {
			if to, err = appointment.ParseDate(q.Get("to")); err == nil {
				list, err = h.svc.AppointmentsByDateRange(r.Context(), from, to)
			}
		}
	default:
		list, err = h.svc.AllAppointments(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponses(list))
}

func (h *handlers) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.ConfirmAppointment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.CancelAppointment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) rescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := appointment.ParseDate(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	at, err := appointment.ParseTimeOfDay(req.Time)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	current, err := h.svc.GetAppointment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slot, err := h.svc.SlotByDateTime(r.Context(), current.DoctorID, date, at)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	appt, err := h.svc.RescheduleAppointment(r.Context(), current.ID, slot)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := appointment.ParseStatus(req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	appt, err := h.svc.UpdateAppointmentStatus(r.Context(), chi.URLParam(r, "id"), st)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) recordOutcome(w http.ResponseWriter, r *http.Request) {
	var req OutcomeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	prescriptions := make([]appointment.Prescription, 0, len(req.Prescriptions))
	for _, p := range req.Prescriptions {
		prescriptions = append(prescriptions, appointment.Prescription{Medicine: p.Medicine, Quantity: p.Quantity})
	}

	appt, err := h.svc.RecordAppointmentOutcome(r.Context(), chi.URLParam(r, "id"), req.ServiceType, prescriptions, req.ConsultationNotes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) purgeCancelled(w http.ResponseWriter, r *http.Request) {
	cutoff, err := appointment.ParseDate(r.URL.Query().Get("before"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.svc.PurgeCancelledBefore(r.Context(), cutoff)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PurgeResponse{Deleted: n})
}

func (h *handlers) patientAppointments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "patientID")

	var (
		list []appointment.Appointment
		err  error
	)
	switch view := r.URL.Query().Get("view"); view {
	case "", "all":
		list, err = h.svc.AppointmentsForPatient(r.Context(), id)
	case "scheduled":
		list, err = h.svc.ScheduledForPatient(r.Context(), id)
	case "past":
		list, err = h.svc.PastRecordsForPatient(r.Context(), id)
	default:
		writeError(w, http.StatusBadRequest, "invalid_argument", "view must be all, scheduled or past")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponses(list))
}

func (h *handlers) nextPatientAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.NextAppointmentForPatient(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) doctorAppointments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "doctorID")

	var (
		list []appointment.Appointment
		err  error
	)
	switch view := r.URL.Query().Get("view"); view {
	case "", "all":
		list, err = h.svc.AppointmentsForDoctor(r.Context(), id)
	case "upcoming":
		list, err = h.svc.UpcomingForDoctor(r.Context(), id)
	case "pending":
		list, err = h.svc.PendingForDoctor(r.Context(), id)
	case "confirmed":
		list, err = h.svc.ConfirmedForDoctor(r.Context(), id)
	case "past":
		list, err = h.svc.PastAppointmentsForDoctor(r.Context(), id)
	default:
		writeError(w, http.StatusBadRequest, "invalid_argument", "view must be all, upcoming, pending, confirmed or past")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponses(list))
}

func (h *handlers) nextDoctorAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.NextAppointmentForDoctor(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) doctorStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.StatusCountsForDoctor(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
