package tagfetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fetchResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "revalidate_tagfetch_results_total",
	Help: "Number of tagged fetches by cache outcome",
}, []string{"status"})

var upstreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "revalidate_tagfetch_upstream_duration_seconds",
	Help:    "Duration of requests to the remote endpoint",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
})

var backgroundRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "revalidate_tagfetch_background_refreshes_total",
	Help: "Number of background refreshes of stale tags",
}, []string{"result"})
