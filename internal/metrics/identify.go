package metrics

import "github.com/prometheus/client_golang/prometheus"

// Resolver pipeline Prometheus metrics.
var (
	IdentifyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "faunalens",
			Name:      "identify_requests_total",
			Help:      "Total number of identification requests",
		},
		[]string{"filter", "status"}, // filter: "ecoregion" / "point" / "none"
	)

	IdentifyCandidatesReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "faunalens",
			Name:      "identify_candidates_returned",
			Help:      "Number of ranked species returned per identification",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	IdentifyPoolSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "faunalens",
			Name:      "identify_pool_size",
			Help:      "Size of the KNN candidate pool before species dedup",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500},
		},
	)
)

var identifyMetricsRegistered bool

// RegisterIdentifyMetrics registers Prometheus resolver metrics. Must be called once from main.
func RegisterIdentifyMetrics() {
	if identifyMetricsRegistered {
		return
	}
	prometheus.MustRegister(IdentifyRequestsTotal)
	prometheus.MustRegister(IdentifyCandidatesReturned)
	prometheus.MustRegister(IdentifyPoolSize)
	identifyMetricsRegistered = true
}
