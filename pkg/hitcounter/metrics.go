package hitcounter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeForwarded          = "forwarded"
	outcomeInvalidRequest     = "invalid_request"
	outcomeCounterUnavailable = "counter_unavailable"
	outcomeDownstreamError    = "downstream_error"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitcounter_requests_total",
			Help: "Requests handled by the hit counter",
		},
		[]string{"outcome"},
	)

	DownstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hitcounter_downstream_latency_ms",
			Help:    "Downstream invocation latency",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"outcome"},
	)
)
