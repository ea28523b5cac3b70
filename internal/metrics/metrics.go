package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wildenergy_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	registrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wildenergy_registrations_total",
		Help: "Successful registrations by funding source.",
	}, []string{"funding"})

	cancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wildenergy_cancellations_total",
		Help: "Cancelled registrations, split by whether the session was refunded.",
	}, []string{"refunded"})

	checkinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wildenergy_checkins_total",
		Help: "Validated check-ins.",
	})

	capacityOverridesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wildenergy_capacity_overrides_total",
		Help: "Admin registrations that exceeded course capacity.",
	})

	scheduleCoursesGenerated = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wildenergy_schedule_courses_generated",
		Help:    "Course instances produced per schedule expansion.",
		Buckets: []float64{1, 5, 10, 25, 50, 100},
	})

	subscriptionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wildenergy_subscriptions_created_total",
		Help: "Subscriptions created from plans.",
	})
)

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func RecordRegistration(funding string) {
	registrationsTotal.WithLabelValues(funding).Inc()
}

func RecordCancellation(refunded bool) {
	cancellationsTotal.WithLabelValues(strconv.FormatBool(refunded)).Inc()
}

func RecordCheckin() {
	checkinsTotal.Inc()
}

func RecordCapacityOverride() {
	capacityOverridesTotal.Inc()
}

func RecordScheduleExpansion(count int) {
	scheduleCoursesGenerated.Observe(float64(count))
}

func RecordSubscriptionCreated() {
	subscriptionsCreatedTotal.Inc()
}
