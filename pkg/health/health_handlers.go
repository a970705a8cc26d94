package health

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler returns an HTTP handler for the health check endpoint.
// Degraded still answers 200 so probes do not restart a daemon that is
// merely waiting on its peers.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, hc.Check(), false)
	}
}

// ReadinessHandler returns an HTTP handler for readiness checks
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, hc.CheckReadiness(), true)
	}
}

func writeResponse(w http.ResponseWriter, response Response, strict bool) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case response.Status == StatusHealthy:
		w.WriteHeader(http.StatusOK)
	case response.Status == StatusDegraded && !strict:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(response)
}
