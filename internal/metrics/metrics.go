package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ticketboss"

// Reservation attempt outcomes
const (
	OutcomeAccepted          = "accepted"
	OutcomeInsufficientSeats = "insufficient_seats"
	OutcomeConflict          = "conflict"
	OutcomeInvalid           = "invalid"
	OutcomeError             = "error"
)

// Cancellation outcomes
const (
	OutcomeCancelled = "cancelled"
	OutcomeNotFound  = "not_found"
	OutcomeReset     = "reset"
)

type Metrics struct {
	ReservationAttempts *prometheus.CounterVec
	Cancellations       *prometheus.CounterVec
	AvailableSeats      *prometheus.GaugeVec
	EventVersion        *prometheus.GaugeVec
	InvariantDrift      *prometheus.GaugeVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReservationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_attempts_total",
			Help:      "Reservation attempts by outcome.",
		}, []string{"outcome"}),
		Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by outcome.",
		}, []string{"outcome"}),
		AvailableSeats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "available_seats",
			Help:      "Available seats as last observed on the read path.",
		}, []string{"event_id"}),
		EventVersion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_version",
			Help:      "Event counter version as last observed on the read path.",
		}, []string{"event_id"}),
		InvariantDrift: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "invariant_drift",
			Help:      "availableSeats minus (totalSeats - seats held by confirmed reservations). Must be 0.",
		}, []string{"event_id"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ReservationAttempts,
			m.Cancellations,
			m.AvailableSeats,
			m.EventVersion,
			m.InvariantDrift,
			m.HTTPRequests,
			m.HTTPDuration,
		)
	}

	return m
}

// NewNop returns collectors that are not registered anywhere
func NewNop() *Metrics {
	return New(nil)
}
