package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	httpRequestsTotal        *prometheus.CounterVec
	httpLatencySeconds       *prometheus.HistogramVec
	httpErrorsTotal          *prometheus.CounterVec
	submissionActionsTotal   *prometheus.CounterVec
	achievementsUnlocked     *prometheus.CounterVec
	notificationsPublished   *prometheus.CounterVec
	uploadsRejectedTotal     *prometheus.CounterVec
	backgroundTaskFailures   *prometheus.CounterVec
	backgroundTaskDurationSc *prometheus.HistogramVec
	exportsGeneratedTotal    *prometheus.CounterVec
	streamClientsActive      prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors exposed by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seniku_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seniku_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seniku_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seniku_submission_actions_total",
			Help: "Submission lifecycle transitions by action.",
		}, []string{"action"})

		achievementsUnlocked = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seniku_achievements_unlocked_total",
			Help: "Achievements unlocked by achievement name.",
		}, []string{"achievement"})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seniku_notifications_published_total",
			Help: "Notifications persisted by type.",
		}, []string{"type"})

		uploadsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seniku_uploads_rejected_total",
			Help: "Image uploads rejected during validation.",
		}, []string{"reason"})

		backgroundTaskFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seniku_background_task_failures_total",
			Help: "Background side effects that returned an error or panicked.",
		}, []string{"task"})

		backgroundTaskDurationSc = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seniku_background_task_duration_seconds",
			Help:    "Duration of background side effects.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"})

		exportsGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seniku_exports_generated_total",
			Help: "Generated export documents by format.",
		}, []string{"format"})

		streamClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seniku_notification_stream_clients",
			Help: "Connected SSE and websocket notification clients.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			submissionActionsTotal,
			achievementsUnlocked,
			notificationsPublished,
			uploadsRejectedTotal,
			backgroundTaskFailures,
			backgroundTaskDurationSc,
			exportsGeneratedTotal,
			streamClientsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// SubmissionActions counts lifecycle transitions (submit, update, grade, return, delete).
func SubmissionActions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionActionsTotal
}

// AchievementsUnlocked counts newly granted achievements.
func AchievementsUnlocked() *prometheus.CounterVec {
	RegisterMetrics()
	return achievementsUnlocked
}

// NotificationsPublished counts persisted notifications.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// UploadsRejected counts images refused by the processor.
func UploadsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsRejectedTotal
}

// BackgroundTaskFailures counts failed background tasks.
func BackgroundTaskFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return backgroundTaskFailures
}

// BackgroundTaskDuration observes background task runtimes.
func BackgroundTaskDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return backgroundTaskDurationSc
}

// ExportsGenerated counts generated export files.
func ExportsGenerated() *prometheus.CounterVec {
	RegisterMetrics()
	return exportsGeneratedTotal
}

// StreamClientsActive tracks live notification stream connections.
func StreamClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActive
}
