package metrics

import (
	"runtime"
	"time"
)

// Result label values shared across metric families.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// RecordRPCCall records an outbound RPC with its round-trip latency
func (r *Registry) RecordRPCCall(method string, err error, duration time.Duration) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.RPCCallsTotal.WithLabelValues(method, result).Inc()
	r.RPCCallDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordServed records an inbound request handled by a serve loop
func (r *Registry) RecordServed(method, result string) {
	r.RPCServedTotal.WithLabelValues(method, result).Inc()
}

// RecordProbe records a heartbeat probe outcome
func (r *Registry) RecordProbe(result string) {
	r.DetectorProbesTotal.WithLabelValues(result).Inc()
}

// SetDetectorStatus marks the detector's current classification
func (r *Registry) SetDetectorStatus(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Reset all statuses
	r.DetectorStatus.WithLabelValues("alive").Set(0)
	r.DetectorStatus.WithLabelValues("warn").Set(0)
	r.DetectorStatus.WithLabelValues("failed").Set(0)

	r.DetectorStatus.WithLabelValues(status).Set(1)
}

// SetRegistered records whether the detector has registered with the GFD
func (r *Registry) SetRegistered(registered bool) {
	if registered {
		r.DetectorRegistered.Set(1)
	} else {
		r.DetectorRegistered.Set(0)
	}
}

// RecordReport records a detector report received by the GFD
func (r *Registry) RecordReport(status string) {
	r.GFDReportsTotal.WithLabelValues(status).Inc()
}

// RecordMembershipChange records a join or leave and the resulting size
func (r *Registry) RecordMembershipChange(change string, size int) {
	r.MembershipChangesTotal.WithLabelValues(change).Inc()
	r.MembershipSize.Set(float64(size))
}

// RecordPush records a membership push to the replication manager
func (r *Registry) RecordPush(err error) {
	if err != nil {
		r.MembershipPushesTotal.WithLabelValues(ResultError).Inc()
		return
	}
	r.MembershipPushesTotal.WithLabelValues(ResultOK).Inc()
}

// RecordRoleAssignment records a select_primary or select_backup RPC
func (r *Registry) RecordRoleAssignment(role string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.RMRoleAssignmentsTotal.WithLabelValues(role, result).Inc()
}

// RecordReplicaRequest records a client operation at a replica
func (r *Registry) RecordReplicaRequest(operation, result string, counter int64) {
	r.ReplicaRequestsTotal.WithLabelValues(operation, result).Inc()
	r.ReplicaCounter.Set(float64(counter))
}

// SetReplicaRole sets the current replica role
func (r *Registry) SetReplicaRole(role string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Reset all roles
	r.ReplicaRole.WithLabelValues("primary").Set(0)
	r.ReplicaRole.WithLabelValues("backup").Set(0)

	// Set current role
	r.ReplicaRole.WithLabelValues(role).Set(1)
}

// RecordCheckpoint records a checkpoint sent to or applied from a peer
func (r *Registry) RecordCheckpoint(direction string, sequence int64, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.ReplicaCheckpointsTotal.WithLabelValues(direction, result).Inc()
	if err == nil {
		r.ReplicaCheckpointSequence.Set(float64(sequence))
	}
}

// RecordClientOperation records the outcome of a client operation
func (r *Registry) RecordClientOperation(operation, result string, requestNumber int64) {
	r.ClientOperationsTotal.WithLabelValues(operation, result).Inc()
	r.ClientRequestNumber.Set(float64(requestNumber))
}

// RecordDiscovery records one primary discovery round
func (r *Registry) RecordDiscovery(found bool) {
	if found {
		r.ClientDiscoveriesTotal.WithLabelValues("found").Inc()
		return
	}
	r.ClientDiscoveriesTotal.WithLabelValues("not_found").Inc()
}

// UpdateSystemMetrics refreshes uptime, goroutine and memory gauges
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
