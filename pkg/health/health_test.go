package health

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dd0wney/cluso-counter/pkg/metrics"
)

func TestNewHealthChecker(t *testing.T) {
	hc := NewHealthChecker("gfd")

	if hc == nil {
		t.Fatal("NewHealthChecker returned nil")
	}
	if hc.checks == nil {
		t.Error("checks map not initialized")
	}
	if hc.readyChecks == nil {
		t.Error("readyChecks map not initialized")
	}

	resp := hc.Check()
	if resp.Component != "gfd" {
		t.Errorf("component = %q, want gfd", resp.Component)
	}
	if resp.Uptime < 0 {
		t.Errorf("uptime = %v, want >= 0", resp.Uptime)
	}
}

func TestRegisterReadinessCheck(t *testing.T) {
	hc := NewHealthChecker("rm")

	called := false
	hc.RegisterReadinessCheck("ready-test", func() Check {
		called = true
		return Check{Status: StatusHealthy}
	})

	hc.Check()
	if called {
		t.Error("readiness check should not be called for Check()")
	}

	resp := hc.CheckReadiness()
	if !called {
		t.Error("readiness check was not called")
	}
	if got := resp.Checks["ready-test"].Name; got != "ready-test" {
		t.Errorf("check name = %q, want registration name", got)
	}
}

func TestCheckStatusAggregation(t *testing.T) {
	tests := []struct {
		name           string
		checkStatuses  []Status
		expectedStatus Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"degraded and unhealthy", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
		{"no checks", nil, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker("replica S1")
			for i, status := range tt.checkStatuses {
				s := status
				hc.RegisterCheck(string(rune('a'+i)), func() Check {
					return Check{Status: s}
				})
			}

			if resp := hc.Check(); resp.Status != tt.expectedStatus {
				t.Errorf("expected status %s, got %s", tt.expectedStatus, resp.Status)
			}
		})
	}
}

func TestDetectorCheck(t *testing.T) {
	tests := []struct {
		status     string
		registered bool
		want       Status
	}{
		{"alive", true, StatusHealthy},
		{"alive", false, StatusDegraded},
		{"warn", true, StatusDegraded},
		{"failed", true, StatusUnhealthy},
		{"", false, StatusDegraded},
	}

	for _, tt := range tests {
		check := DetectorCheck(func() (string, bool) { return tt.status, tt.registered })()
		if check.Status != tt.want {
			t.Errorf("DetectorCheck(%q, %v) = %s, want %s", tt.status, tt.registered, check.Status, tt.want)
		}
	}
}

func TestMembershipCheck(t *testing.T) {
	tests := []struct {
		name           string
		members, total int
		want           Status
		wantMsg        string
	}{
		{"no topology", 0, 0, StatusHealthy, "No replicas configured"},
		{"all down", 0, 3, StatusUnhealthy, "No live replicas"},
		{"partial", 2, 3, StatusDegraded, "Some replicas down"},
		{"full", 3, 3, StatusHealthy, "All replicas live"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := MembershipCheck(func() (int, int) { return tt.members, tt.total })()
			if check.Status != tt.want {
				t.Errorf("status = %s, want %s", check.Status, tt.want)
			}
			if check.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", check.Message, tt.wantMsg)
			}
		})
	}
}

func TestPrimaryCheck(t *testing.T) {
	if got := PrimaryCheck(func() string { return "" })().Status; got != StatusDegraded {
		t.Errorf("no primary = %s, want degraded", got)
	}
	check := PrimaryCheck(func() string { return "S2" })()
	if check.Status != StatusHealthy || check.Details["primary"] != "S2" {
		t.Errorf("primary check = %+v", check)
	}
}

func TestReplicaCheck(t *testing.T) {
	check := ReplicaCheck(func() (string, bool, int64) { return "backup", false, 7 })()
	if check.Status != StatusHealthy {
		t.Errorf("status = %s, want healthy", check.Status)
	}
	if check.Details["counter"] != int64(7) {
		t.Errorf("counter detail = %v", check.Details["counter"])
	}
}

func TestMemoryCheck(t *testing.T) {
	if got := MemoryCheck(func() (uint64, uint64) { return 90, 100 })().Status; got != StatusHealthy {
		t.Errorf("90%% usage = %s, want healthy", got)
	}
	if got := MemoryCheck(func() (uint64, uint64) { return 91, 100 })().Status; got != StatusDegraded {
		t.Errorf("91%% usage = %s, want degraded", got)
	}
}

func TestHTTPHandler(t *testing.T) {
	tests := []struct {
		name         string
		checkStatus  Status
		expectedCode int
	}{
		{"healthy returns 200", StatusHealthy, http.StatusOK},
		{"degraded returns 200", StatusDegraded, http.StatusOK},
		{"unhealthy returns 503", StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker("lfd LFD1")
			hc.RegisterCheck("test", func() Check {
				return Check{Status: tt.checkStatus}
			})

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()

			hc.HTTPHandler()(rec, req)

			if rec.Code != tt.expectedCode {
				t.Errorf("expected status code %d, got %d", tt.expectedCode, rec.Code)
			}
			if rec.Header().Get("Content-Type") != "application/json" {
				t.Error("expected Content-Type application/json")
			}

			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.checkStatus {
				t.Errorf("expected response status %s, got %s", tt.checkStatus, resp.Status)
			}
		})
	}
}

func TestReadinessHandler_DegradedIsNotReady(t *testing.T) {
	hc := NewHealthChecker("rm")
	hc.RegisterReadinessCheck("primary", PrimaryCheck(func() string { return "" }))

	rec := httptest.NewRecorder()
	hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestAdminServerHandler(t *testing.T) {
	reg := metrics.NewRegistry()
	reg.RMElectionsTotal.Inc()
	hc := NewHealthChecker("rm")
	hc.RegisterCheck("primary", PrimaryCheck(func() string { return "S1" }))

	srv := httptest.NewServer(NewAdminServer("", hc, reg).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "counter_rm_elections_total 1") {
		t.Errorf("metrics output missing election counter:\n%s", body)
	}
	if !strings.Contains(string(body), "counter_uptime_seconds") {
		t.Error("metrics output missing uptime gauge")
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d, want 200", resp.StatusCode)
	}
}

func TestConcurrentCheckRegistration(t *testing.T) {
	hc := NewHealthChecker("gfd")
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			hc.RegisterCheck(string(rune('a'+n%26)), func() Check { return Check{Status: StatusHealthy} })
		}(i)
		go func() {
			defer wg.Done()
			hc.Check()
		}()
	}
	wg.Wait()

	if resp := hc.Check(); len(resp.Checks) != 26 {
		t.Errorf("expected 26 checks, got %d", len(resp.Checks))
	}
}
