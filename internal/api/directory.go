package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/hospital-scheduling/internal/directory"
)

func (h *handlers) listDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := directory.Doctors(r.Context(), h.dir)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doctors)
}

func (h *handlers) getDoctor(w http.ResponseWriter, r *http.Request) {
	d, err := h.dir.Doctor(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handlers) listPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := directory.Patients(r.Context(), h.dir)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

func (h *handlers) getPatient(w http.ResponseWriter, r *http.Request) {
	p, err := h.dir.Patient(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
