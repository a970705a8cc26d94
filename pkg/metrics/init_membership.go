package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initMembershipMetrics() {
	r.MembershipSize = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "counter_gfd_membership_size",
			Help: "Number of replicas currently in the membership set",
		},
	)

	r.MembershipChangesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_gfd_membership_changes_total",
			Help: "Total number of membership changes",
		},
		[]string{"change"}, // join, leave
	)

	r.MembershipPushesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_gfd_membership_pushes_total",
			Help: "Total number of membership pushes to the replication manager",
		},
		[]string{"result"}, // ok, error
	)

	r.GFDReportsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_gfd_reports_total",
			Help: "Total number of detector reports received",
		},
		[]string{"status"}, // registered, alive, warn, failed
	)

	r.GFDSweepExpiredTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "counter_gfd_sweep_expired_total",
			Help: "Total number of reports marked failed by the timeout sweep",
		},
	)
}
