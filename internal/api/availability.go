package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/hospital-scheduling/internal/appointment"
)

type saveWindowFunc func(ctx context.Context, doctorID string, date appointment.Date, start, end appointment.TimeOfDay) (*appointment.DoctorAvailability, error)

func (h *handlers) setAvailability(w http.ResponseWriter, r *http.Request) {
	h.saveAvailability(w, r, h.svc.SetAvailability)
}

func (h *handlers) updateAvailability(w http.ResponseWriter, r *http.Request) {
	h.saveAvailability(w, r, h.svc.UpdateAvailability)
}

func (h *handlers) saveAvailability(w http.ResponseWriter, r *http.Request, save saveWindowFunc) {
	date, err := appointment.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req AvailabilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err := appointment.ParseTimeOfDay(req.Start)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := parseWindowEnd(req.End)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	saved, err := save(r.Context(), chi.URLParam(r, "doctorID"), date, start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityResponse(saved))
}

// parseWindowEnd accepts 24:00 as the end of the day.
func parseWindowEnd(s string) (appointment.TimeOfDay, error) {
	if s == "24:00" {
		return appointment.NewTimeOfDay(24, 0), nil
	}
	return appointment.ParseTimeOfDay(s)
}

func (h *handlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	date, err := appointment.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	window, err := h.svc.GetAvailability(r.Context(), chi.URLParam(r, "doctorID"), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityResponse(window))
}

func (h *handlers) removeAvailability(w http.ResponseWriter, r *http.Request) {
	date, err := appointment.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.RemoveAvailability(r.Context(), chi.URLParam(r, "doctorID"), date); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listDoctorAvailability(w http.ResponseWriter, r *http.Request) {
	windows, err := h.svc.DoctorAvailabilities(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityResponses(windows))
}

func (h *handlers) listAvailabilityByDate(w http.ResponseWriter, r *http.Request) {
	date, err := appointment.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	windows, err := h.svc.AvailabilitiesByDate(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityResponses(windows))
}

func (h *handlers) availableDoctors(w http.ResponseWriter, r *http.Request) {
	date, err := appointment.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	doctors, err := h.svc.AvailableDoctors(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doctors)
}

func (h *handlers) isDoctorAvailable(w http.ResponseWriter, r *http.Request) {
	date, at, ok := h.dateTimeParams(w, r)
	if !ok {
		return
	}
	available, err := h.svc.IsDoctorAvailable(r.Context(), chi.URLParam(r, "doctorID"), date, at)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DoctorAvailableResponse{Available: available})
}

func (h *handlers) availableSlots(w http.ResponseWriter, r *http.Request) {
	date, err := appointment.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slots, err := h.svc.AvailableSlots(r.Context(), date, chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotResponses(slots))
}

func (h *handlers) nextAvailableSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := h.svc.NextAvailableSlot(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotResponse(slot))
}

func (h *handlers) getSlot(w http.ResponseWriter, r *http.Request) {
	date, at, ok := h.dateTimeParams(w, r)
	if !ok {
		return
	}
	slot, err := h.svc.SlotByDateTime(r.Context(), chi.URLParam(r, "doctorID"), date, at)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotResponse(slot))
}

func (h *handlers) dateTimeParams(w http.ResponseWriter, r *http.Request) (appointment.Date, appointment.TimeOfDay, bool) {
	date, err := appointment.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, err)
		return appointment.Date{}, 0, false
	}
	at, err := appointment.ParseTimeOfDay(chi.URLParam(r, "time"))
	if err != nil {
		h.fail(w, r, err)
		return appointment.Date{}, 0, false
	}
	return date, at, true
}
