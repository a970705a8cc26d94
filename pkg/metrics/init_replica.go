package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initReplicaMetrics() {
	r.ReplicaRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_replica_requests_total",
			Help: "Total number of client operations",
		},
		[]string{"operation", "result"}, // served, dropped
	)

	r.ReplicaCounter = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "counter_replica_value",
			Help: "Current counter value",
		},
	)

	r.ReplicaRole = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "counter_replica_role",
			Help: "Replica role (1 for current role, 0 otherwise)",
		},
		[]string{"role"}, // primary, backup
	)

	r.ReplicaCheckpointsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_replica_checkpoints_total",
			Help: "Total number of checkpoints sent or applied",
		},
		[]string{"direction", "result"}, // sent|received, ok|error
	)

	r.ReplicaCheckpointSequence = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "counter_replica_checkpoint_sequence",
			Help: "Last checkpoint sequence sent or applied",
		},
	)
}
