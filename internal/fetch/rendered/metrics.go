package rendered

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// renderDuration tracks the wall-clock cost of one navigate-render-snapshot
	// cycle per store.
	renderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "render_page_duration_seconds",
		Help:    "Time spent rendering one listing page.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 9),
	}, []string{"store"})
	// renderErrors tracks failed render cycles by phase.
	renderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "render_errors_total",
		Help: "The total number of failed page renders.",
	}, []string{"store", "phase"})
	// blockedSubrequests tracks subrequests aborted by the resource filter.
	blockedSubrequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "render_blocked_subrequests_total",
		Help: "The total number of subrequests aborted before reaching the network.",
	}, []string{"store", "resource_type"})
)
