package health

import (
	"time"
)

// NewHealthChecker creates a health checker for the named daemon
// (e.g. "replica S1", "gfd").
func NewHealthChecker(component string) *HealthChecker {
	return &HealthChecker{
		component:   component,
		startTime:   time.Now(),
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a check reported on /health.
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// RegisterReadinessCheck adds a check reported on /health/ready. A daemon
// is ready once it is doing its part of the protocol (registered,
// holding a membership, serving a role).
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.readyChecks[name] = check
}

// Check runs every health check.
func (hc *HealthChecker) Check() Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.run(hc.checks)
}

// CheckReadiness runs every readiness check.
func (hc *HealthChecker) CheckReadiness() Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.run(hc.readyChecks)
}

func (hc *HealthChecker) run(checks map[string]CheckFunc) Response {
	now := time.Now()
	resp := Response{
		Component: hc.component,
		Status:    StatusHealthy,
		Timestamp: now,
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    now.Sub(hc.startTime).Seconds(),
	}

	for name, fn := range checks {
		start := time.Now()
		c := fn()
		c.Duration = time.Since(start)
		c.LastChecked = start
		if c.Name == "" {
			c.Name = name
		}
		resp.Checks[name] = c
		resp.Status = worse(resp.Status, c.Status)
	}
	return resp
}

func severity(s Status) int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

func worse(a, b Status) Status {
	if severity(b) > severity(a) {
		return b
	}
	return a
}
