package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sharpcut",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status.",
		},
		[]string{"method", "status"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sharpcut",
			Name:      "bookings_created_total",
			Help:      "Appointments booked.",
		},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sharpcut",
			Name:      "bookings_cancelled_total",
			Help:      "Appointments soft-cancelled.",
		},
	)

	waitlistNotified = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sharpcut",
			Name:      "waitlist_notifications_total",
			Help:      "Waitlist entries notified of an open slot.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, bookingsCancelled, waitlistNotified)
	})
}

func IncHTTP(method, status string) {
	httpRequests.WithLabelValues(method, status).Inc()
}

func IncBookingCreated()   { bookingsCreated.Inc() }
func IncBookingCancelled() { bookingsCancelled.Inc() }
func IncWaitlistNotified() { waitlistNotified.Inc() }
