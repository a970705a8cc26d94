package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initDetectorMetrics() {
	r.DetectorProbesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_lfd_probes_total",
			Help: "Total number of heartbeat probes sent to the local replica",
		},
		[]string{"result"}, // ok, unreachable, malformed
	)

	r.DetectorStatus = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "counter_lfd_status",
			Help: "Classified replica status (1 for current status, 0 otherwise)",
		},
		[]string{"status"}, // alive, warn, failed
	)

	r.DetectorRecoveriesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "counter_lfd_recoveries_total",
			Help: "Total number of local recovery invocations",
		},
	)

	r.DetectorRegistered = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "counter_lfd_registered",
			Help: "Whether the detector is registered with the GFD (1=yes, 0=no)",
		},
	)

	r.DetectorReportFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "counter_lfd_report_failures_total",
			Help: "Total number of status reports the GFD did not acknowledge",
		},
	)
}
