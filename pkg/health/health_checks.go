package health

import "time"

// SimpleCheck creates a simple health check that always returns healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// DetectorCheck reports the local detector's last classification of its
// replica: alive is healthy, warn is degraded, failed is unhealthy.
func DetectorCheck(getState func() (status string, registered bool)) CheckFunc {
	return func() Check {
		status, registered := getState()
		check := Check{
			Name: "detector",
			Details: map[string]any{
				"replica_status": status,
				"registered":     registered,
			},
		}

		switch status {
		case "alive":
			check.Status = StatusHealthy
			check.Message = "Replica alive"
			if !registered {
				check.Status = StatusDegraded
				check.Message = "Replica alive, not registered with GFD"
			}
		case "failed":
			check.Status = StatusUnhealthy
			check.Message = "Replica failed"
		case "":
			check.Status = StatusDegraded
			check.Message = "No heartbeat yet"
		default:
			check.Status = StatusDegraded
			check.Message = "Replica heartbeat missed"
		}

		return check
	}
}

// MembershipCheck reports how much of the configured topology is live.
func MembershipCheck(getMembership func() (members, total int)) CheckFunc {
	return func() Check {
		members, total := getMembership()
		check := Check{
			Name: "membership",
			Details: map[string]any{
				"members": members,
				"total":   total,
			},
		}

		switch {
		case total == 0:
			check.Status = StatusHealthy
			check.Message = "No replicas configured"
		case members == 0:
			check.Status = StatusUnhealthy
			check.Message = "No live replicas"
		case members < total:
			check.Status = StatusDegraded
			check.Message = "Some replicas down"
		default:
			check.Status = StatusHealthy
			check.Message = "All replicas live"
		}

		return check
	}
}

// PrimaryCheck reports whether a primary is currently known. Used by the
// replication manager in passive mode.
func PrimaryCheck(getPrimary func() string) CheckFunc {
	return func() Check {
		primary := getPrimary()
		check := Check{
			Name:    "primary",
			Details: map[string]any{"primary": primary},
		}
		if primary == "" {
			check.Status = StatusDegraded
			check.Message = "No primary elected"
		} else {
			check.Status = StatusHealthy
			check.Message = "Primary elected"
		}
		return check
	}
}

// ReplicaCheck reports role and whether the replica currently serves clients.
func ReplicaCheck(getState func() (role string, serving bool, counter int64)) CheckFunc {
	return func() Check {
		role, serving, counter := getState()
		return Check{
			Name:    "replica",
			Status:  StatusHealthy,
			Message: "Serving " + role,
			Details: map[string]any{
				"role":    role,
				"serving": serving,
				"counter": counter,
			},
		}
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		usagePercent := float64(alloc) / float64(sys) * 100

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
