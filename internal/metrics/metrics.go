package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "beachbookings"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_events_total",
			Help:      "Committed booking mutations by event kind.",
		},
		[]string{"event"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification dispatches by event kind and outcome.",
		},
		[]string{"event", "outcome"},
	)

	syncTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_sync_tasks_total",
			Help:      "Sheets sync tasks by outcome.",
		},
		[]string{"outcome"},
	)
)

// Notification outcomes.
const (
	OutcomeSent         = "sent"
	OutcomeFailed       = "failed"
	OutcomeNoRecipients = "no_recipients"
	OutcomeRenderError  = "render_error"
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingEvents, notifications, syncTasks)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingEvent(event string) {
	bookingEvents.WithLabelValues(event).Inc()
}

func IncNotification(event, outcome string) {
	notifications.WithLabelValues(event, outcome).Inc()
}

func IncSyncTask(outcome string) {
	syncTasks.WithLabelValues(outcome).Inc()
}
