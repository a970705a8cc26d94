package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for one daemon. Every daemon registers the full
// set so dashboards can share panels; unused series simply stay at zero.
type Registry struct {
	// RPC Metrics
	RPCCallsTotal   *prometheus.CounterVec
	RPCCallDuration *prometheus.HistogramVec
	RPCServedTotal  *prometheus.CounterVec

	// Detector Metrics (LFD)
	DetectorProbesTotal         *prometheus.CounterVec
	DetectorStatus              *prometheus.GaugeVec
	DetectorRecoveriesTotal     prometheus.Counter
	DetectorRegistered          prometheus.Gauge
	DetectorReportFailuresTotal prometheus.Counter

	// Membership Metrics (GFD)
	MembershipSize         prometheus.Gauge
	MembershipChangesTotal *prometheus.CounterVec
	MembershipPushesTotal  *prometheus.CounterVec
	GFDReportsTotal        *prometheus.CounterVec
	GFDSweepExpiredTotal   prometheus.Counter

	// Replication Manager Metrics
	RMElectionsTotal       prometheus.Counter
	RMRoleAssignmentsTotal *prometheus.CounterVec
	RMMembershipUpdates    prometheus.Counter

	// Replica Metrics
	ReplicaRequestsTotal      *prometheus.CounterVec
	ReplicaCounter            prometheus.Gauge
	ReplicaRole               *prometheus.GaugeVec
	ReplicaCheckpointsTotal   *prometheus.CounterVec
	ReplicaCheckpointSequence prometheus.Gauge

	// Client Metrics
	ClientOperationsTotal  *prometheus.CounterVec
	ClientDiscoveriesTotal *prometheus.CounterVec
	ClientRequestNumber    prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initRPCMetrics()
	r.initDetectorMetrics()
	r.initMembershipMetrics()
	r.initManagerMetrics()
	r.initReplicaMetrics()
	r.initClientMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
