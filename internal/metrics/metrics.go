// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration observes HTTP request latency per route and status.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "turnstile_http_request_duration_seconds",
		Help:    "HTTP request latency by method, path and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// BookingsCreated counts successful booking creations by initial status.
	BookingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "turnstile_bookings_created_total",
		Help: "Bookings created, labeled by initial status.",
	}, []string{"status"})

	// BookingsCancelled counts successful cancellations.
	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "turnstile_bookings_cancelled_total",
		Help: "Bookings cancelled.",
	})

	// TicketScans counts check-in attempts by outcome
	// (scanned, already_scanned, cancelled, not_confirmed).
	TicketScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "turnstile_ticket_scans_total",
		Help: "Ticket scan attempts by outcome.",
	}, []string{"result"})

	// ReservationConflicts counts reservations rejected for insufficient
	// inventory. A spike means an event is selling out under load.
	ReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "turnstile_reservation_conflicts_total",
		Help: "Reservations rejected because inventory was insufficient.",
	})

	// ConservationViolations counts events found violating the ticket
	// conservation invariant by the reconciliation job. Should stay at 0.
	ConservationViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "turnstile_conservation_violations_total",
		Help: "Events whose ticket counter disagreed with their bookings.",
	})
)
