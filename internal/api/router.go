package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-scheduling/internal/appointment"
	"github.com/hackgods/hospital-scheduling/internal/directory"
)

type RouterConfig struct {
	Service      *appointment.Service
	Directory    directory.Directory
	Logger       zerolog.Logger
	Gatherer     prometheus.Gatherer
	Dependencies []Dependency
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := &handlers{svc: cfg.Service, dir: cfg.Directory, log: cfg.Logger}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Dependencies, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/availability", h.listAvailabilityByDate)
	r.Get("/available-doctors", h.availableDoctors)

	r.Route("/doctors", func(r chi.Router) {
		r.Get("/", h.listDoctors)
		r.Route("/{doctorID}", func(r chi.Router) {
			r.Get("/", h.getDoctor)

			r.Get("/availability", h.listDoctorAvailability)
			r.Get("/availability/{date}", h.getAvailability)
			r.Put("/availability/{date}", h.setAvailability)
			r.Patch("/availability/{date}", h.updateAvailability)
			r.Delete("/availability/{date}", h.removeAvailability)
			r.Get("/availability/{date}/{time}", h.isDoctorAvailable)

			r.Get("/slots", h.availableSlots)
			r.Get("/slots/next", h.nextAvailableSlot)
			r.Get("/slots/{date}/{time}", h.getSlot)

			r.Get("/appointments", h.doctorAppointments)
			r.Get("/appointments/next", h.nextDoctorAppointment)
			r.Get("/stats", h.doctorStats)
		})
	})

	r.Route("/patients", func(r chi.Router) {
		r.Get("/", h.listPatients)
		r.Route("/{patientID}", func(r chi.Router) {
			r.Get("/", h.getPatient)
			r.Get("/appointments", h.patientAppointments)
			r.Get("/appointments/next", h.nextPatientAppointment)
		})
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.createAppointment)
		r.Get("/", h.listAppointments)
		r.Delete("/cancelled", h.purgeCancelled)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getAppointment)
			r.Post("/confirm", h.confirmAppointment)
			r.Post("/cancel", h.cancelAppointment)
			r.Post("/reschedule", h.rescheduleAppointment)
			r.Put("/status", h.updateStatus)
			r.Post("/outcome", h.recordOutcome)
		})
	})

	return r
}
