package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/triage-autopilot/autopilot/pkg/version"
)

// rootHandler handles GET /.
func (s *Server) rootHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, RootResponse{
		Service: "triage-autopilot",
		Version: version.Full(),
		DryRun:  s.cfg.DryRun,
	})
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Full(),
		DryRun:  s.cfg.DryRun,
	})
}

// metricsHandler handles GET /metrics.
func (s *Server) metricsHandler(c *echo.Context) error {
	stats := s.limiter.Stats()
	return c.JSON(http.StatusOK, MetricsResponse{
		Counters: s.metrics.Snapshot(),
		RateLimit: ratelimitStatsView{
			ActiveKeys:            stats.ActiveKeys,
			TotalRequestsInWindow: stats.TotalRequestsInWindow,
			MaxRequests:           stats.MaxRequests,
			WindowSeconds:         stats.WindowSeconds,
		},
	})
}
