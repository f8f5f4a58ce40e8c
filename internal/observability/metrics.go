package observability

import "github.com/prometheus/client_golang/prometheus"

// unmatchedRoute labels requests no mux pattern matched.
const unmatchedRoute = "unmatched"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesquery_http_requests_total",
			Help: "HTTP requests by method, matched route and status.",
		},
		[]string{"method", "route", "status"},
	)

	// Answers can take tens of seconds while the model runs, hence the long tail.
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesquery_http_request_duration_seconds",
			Help:    "HTTP request latency by matched route.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"method", "route", "status"},
	)

	httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "salesquery_http_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds, httpRequestsInFlight)
}
