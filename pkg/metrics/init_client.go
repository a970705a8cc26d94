package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initClientMetrics() {
	r.ClientOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_client_operations_total",
			Help: "Total number of client operations",
		},
		[]string{"operation", "result"}, // ok, no_primary, no_reply
	)

	r.ClientDiscoveriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_client_discoveries_total",
			Help: "Total number of primary discovery rounds",
		},
		[]string{"result"}, // found, not_found
	)

	r.ClientRequestNumber = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "counter_client_request_number",
			Help: "Current client request number",
		},
	)
}
