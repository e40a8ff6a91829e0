package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline holds the ingestion pipeline metrics.
type Pipeline struct {
	Messages         *prometheus.CounterVec
	CreateAttempts   *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	Failures         *prometheus.CounterVec
	FailureOverflows prometheus.Counter
	CommitErrors     prometheus.Counter
}

// NewPipeline registers the pipeline metrics on reg. A nil reg uses a private
// registry, which is what tests want.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Pipeline{
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventcatcher_messages_total",
			Help: "Stream messages by terminal outcome.",
		}, []string{"outcome"}),

		CreateAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventcatcher_create_attempts_total",
			Help: "Create calls issued to the event store by result.",
		}, []string{"result"}),

		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventcatcher_dispatch_duration_seconds",
			Help:    "Time from decode to terminal outcome, retries included.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),

		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventcatcher_failures_total",
			Help: "Messages routed to the failure sink by class.",
		}, []string{"class"}),

		FailureOverflows: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventcatcher_failure_sink_overflow_total",
			Help: "Failures that could not be queued for the sink and were only logged.",
		}),

		CommitErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventcatcher_commit_errors_total",
			Help: "Offset commits that returned an error.",
		}),
	}
}

// HTTP holds the event store API metrics.
type HTTP struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &HTTP{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventstore_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventstore_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}
