package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminServer exposes /health, /health/ready and /metrics for one daemon.
type AdminServer struct {
	addr      string
	checker   *HealthChecker
	registry  *metrics.Registry
	startTime time.Time
}

// NewAdminServer creates an admin server; nothing listens until Run.
func NewAdminServer(addr string, checker *HealthChecker, registry *metrics.Registry) *AdminServer {
	return &AdminServer{
		addr:      addr,
		checker:   checker,
		registry:  registry,
		startTime: time.Now(),
	}
}

// Handler returns the admin mux.
func (a *AdminServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.checker.HTTPHandler())
	mux.HandleFunc("/health/ready", a.checker.ReadinessHandler())

	promHandler := promhttp.HandlerFor(a.registry.GetPrometheusRegistry(), promhttp.HandlerOpts{})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		a.registry.UpdateSystemMetrics(a.startTime)
		promHandler.ServeHTTP(w, r)
	})
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *AdminServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
