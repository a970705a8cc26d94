package cluster

import (
	"runtime"

	"github.com/dd0wney/cluso-counter/pkg/gfd"
	"github.com/dd0wney/cluso-counter/pkg/health"
	"github.com/dd0wney/cluso-counter/pkg/lfd"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
	"github.com/dd0wney/cluso-counter/pkg/replica"
	"github.com/dd0wney/cluso-counter/pkg/rm"
)

func memoryUsage() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}

func newChecker(component string) *health.HealthChecker {
	hc := health.NewHealthChecker(component)
	hc.RegisterCheck("memory", health.MemoryCheck(memoryUsage))
	return hc
}

// ReplicaHealth reports role and counter; a replica is ready once it serves.
func ReplicaHealth(s *replica.Server) *health.HealthChecker {
	state := func() (string, bool, int64) {
		st := s.State()
		return string(st.Role), st.Serving, st.Counter
	}
	hc := newChecker("replica " + s.State().ReplicaID)
	hc.RegisterCheck("replica", health.ReplicaCheck(state))
	hc.RegisterReadinessCheck("replica", health.ReplicaCheck(state))
	return hc
}

// DetectorHealth reports the detector's view of its replica.
func DetectorHealth(d *lfd.Detector) *health.HealthChecker {
	state := func() (string, bool) {
		status, registered := d.Status()
		return string(status), registered
	}
	hc := newChecker("lfd")
	hc.RegisterCheck("detector", health.DetectorCheck(state))
	hc.RegisterReadinessCheck("detector", health.DetectorCheck(state))
	return hc
}

// GFDHealth reports live members against replicas seen so far.
func GFDHealth(s *gfd.Service) *health.HealthChecker {
	hc := newChecker("gfd")
	hc.RegisterCheck("membership", health.MembershipCheck(s.Summary))
	return hc
}

// RMHealth reports membership and, in passive mode, the elected primary.
func RMHealth(m *rm.Manager, topologySize int) *health.HealthChecker {
	hc := newChecker("rm")
	hc.RegisterCheck("membership", health.MembershipCheck(func() (int, int) {
		return len(m.Members()), topologySize
	}))
	if m.Mode() == protocol.ModePassive {
		hc.RegisterCheck("primary", health.PrimaryCheck(m.Primary))
		hc.RegisterReadinessCheck("primary", health.PrimaryCheck(m.Primary))
	}
	return hc
}
