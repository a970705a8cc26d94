package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRPCMetrics() {
	r.RPCCallsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_rpc_calls_total",
			Help: "Total number of outbound RPC calls",
		},
		[]string{"method", "result"}, // ok, error
	)

	r.RPCCallDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "counter_rpc_call_duration_seconds",
			Help:    "Outbound RPC round-trip latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2},
		},
		[]string{"method"},
	)

	r.RPCServedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_rpc_served_total",
			Help: "Total number of inbound RPC requests handled",
		},
		[]string{"method", "result"}, // ok, error, dropped
	)
}
