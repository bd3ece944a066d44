package appointment

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts scheduling outcomes. A nil *Metrics records nothing.
type Metrics struct {
	bookings    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	reschedules *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by result.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduling",
			Name:      "transitions_total",
			Help:      "Appointment status transitions by target status.",
		}, []string{"status"}),
		reschedules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduling",
			Name:      "reschedules_total",
			Help:      "Reschedule attempts by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.bookings, m.transitions, m.reschedules)
	}
	return m
}

func (m *Metrics) booking(err error) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) transition(to Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) reschedule(err error) {
	if m == nil {
		return
	}
	m.reschedules.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSlotUnavailable):
		return "conflict"
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrNotFound):
		return "rejected"
	default:
		return "error"
	}
}
