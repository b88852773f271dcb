package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coi_submissions_total",
		Help: "Declaration answers submitted or saved, by resulting status",
	}, []string{"status"})

	OrphanedEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coi_orphaned_entries_total",
		Help: "Form state entries skipped because the declaration no longer defines them",
	})

	UnsupportedQuestions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coi_unsupported_questions_total",
		Help: "Questions rendered as unsupported placeholders",
	})

	StatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coi_status_changes_total",
		Help: "Review routing decisions, by target status",
	}, []string{"to"})

	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coi_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
