package direct

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// fetchDuration tracks the wall-clock cost of one direct fetch per store.
	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "direct_fetch_duration_seconds",
		Help:    "Time spent on one direct HTTP fetch.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 9),
	}, []string{"store"})
	// fetchErrors tracks failed direct fetches by error class.
	fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "direct_fetch_errors_total",
		Help: "The total number of failed direct fetches.",
	}, []string{"store", "class"})
	// challengeHits tracks anti-bot interstitials served in place of listings.
	challengeHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "direct_challenge_hits_total",
		Help: "The total number of anti-bot challenge pages encountered.",
	}, []string{"store"})
)
