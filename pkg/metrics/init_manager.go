package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initManagerMetrics() {
	r.RMElectionsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "counter_rm_elections_total",
			Help: "Total number of primary elections",
		},
	)

	r.RMRoleAssignmentsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_rm_role_assignments_total",
			Help: "Total number of role assignment RPCs issued",
		},
		[]string{"role", "result"}, // primary|backup, ok|error
	)

	r.RMMembershipUpdates = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "counter_rm_membership_updates_total",
			Help: "Total number of membership updates received",
		},
	)
}
