package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barberdesk",
			Name:      "booking_created_total",
			Help:      "Count of bookings successfully created.",
		},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberdesk",
			Name:      "booking_rejected_total",
			Help:      "Count of rejected booking requests by reason.",
		},
		[]string{"reason"},
	)

	statusChanged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberdesk",
			Name:      "booking_status_changed_total",
			Help:      "Count of booking status transitions by target status.",
		},
		[]string{"status"},
	)

	blackoutAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barberdesk",
			Name:      "blackout_added_total",
			Help:      "Count of blackout windows added.",
		},
	)

	sweepArchived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barberdesk",
			Name:      "sweep_archived_total",
			Help:      "Count of bookings archived by the sweeper.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberdesk",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingCreated, bookingRejected, statusChanged,
			blackoutAdded, sweepArchived, httpRequests,
		)
	})
}

func IncBookingCreated() {
	bookingCreated.Inc()
}

func IncBookingRejected(reason string) {
	bookingRejected.WithLabelValues(reason).Inc()
}

func IncStatusChanged(status string) {
	statusChanged.WithLabelValues(status).Inc()
}

func IncBlackoutAdded() {
	blackoutAdded.Inc()
}

func AddSweepArchived(n int) {
	sweepArchived.Add(float64(n))
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
