package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestDuration tracks the duration of HTTP requests.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time spent processing HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)

	// SubmissionsTotal counts submissions by final status.
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Submissions processed, labelled by resulting status",
		},
		[]string{"status"},
	)

	// ModerationDecisionsTotal counts moderation outcomes.
	ModerationDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_decisions_total",
			Help: "Moderation decisions, labelled by outcome (approve, reject, unavailable)",
		},
		[]string{"outcome"},
	)

	// VotesTotal counts vote casts by direction and transition.
	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_total",
			Help: "Vote operations, labelled by direction and transition (cast, undo)",
		},
		[]string{"direction", "transition"},
	)

	// ResolverOutcomesTotal counts metadata resolutions by path taken.
	ResolverOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_outcomes_total",
			Help: "Metadata resolutions, labelled by path (platform, extension, scrape, degraded)",
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration,
		SubmissionsTotal,
		ModerationDecisionsTotal,
		VotesTotal,
		ResolverOutcomesTotal,
	)
}

// ObserveRequest records an HTTP request duration sample.
func ObserveRequest(route, status string, start time.Time) {
	RequestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
}

// NewServer returns the Prometheus metrics endpoint server for the given
// address. The caller owns its lifecycle and must Shutdown it alongside the
// API server so the process can exit cleanly.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
