// Package api provides the HTTP surface for the triage autopilot:
// webhook ingest, the web-incident lifecycle, and read-only status
// endpoints, all served over Echo v5.
package api

import (
	"context"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/triage-autopilot/autopilot/pkg/audit"
	"github.com/triage-autopilot/autopilot/pkg/config"
	"github.com/triage-autopilot/autopilot/pkg/metrics"
	"github.com/triage-autopilot/autopilot/pkg/pipeline"
	"github.com/triage-autopilot/autopilot/pkg/pir"
	"github.com/triage-autopilot/autopilot/pkg/ratelimit"
	"github.com/triage-autopilot/autopilot/pkg/runbook"
	"github.com/triage-autopilot/autopilot/pkg/webui"
)

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg      *config.Config
	limiter  *ratelimit.Limiter
	pipeline *pipeline.Pipeline
	webui    *webui.Service
	catalog  *runbook.Catalog
	audit    *audit.Logger
	pirGen   *pir.Generator
	metrics  *metrics.Counters
}

// NewServer creates a new API server with Echo v5 and registers every
// route. Every dependency is required: unlike tarsy's phased MCP/dashboard
// startup, every autopilot collaborator is constructed synchronously
// before the server starts serving, so there is no need for a staged
// Set*/ValidateWiring sequence — they are all passed in up front.
func NewServer(
	cfg *config.Config,
	limiter *ratelimit.Limiter,
	p *pipeline.Pipeline,
	webuiService *webui.Service,
	catalog *runbook.Catalog,
	auditLogger *audit.Logger,
	pirGen *pir.Generator,
	metricsCounters *metrics.Counters,
) *Server {
	e := echo.New()

	s := &Server{
		echo:     e,
		cfg:      cfg,
		limiter:  limiter,
		pipeline: p,
		webui:    webuiService,
		catalog:  catalog,
		audit:    auditLogger,
		pirGen:   pirGen,
		metrics:  metricsCounters,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/", s.rootHandler)
	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/metrics", s.metricsHandler)

	webhook := s.echo.Group("/webhook")
	webhook.Use(s.webhookAuthMiddleware())
	webhook.Use(rateLimited(s.limiter, func(key string) { s.metrics.WebhooksRejected.Add(1) }))
	webhook.POST("/jira", s.webhookHandler)

	incidents := s.echo.Group("/api/incidents")
	incidents.POST("", s.createIncidentHandler)
	incidents.GET("", s.listIncidentsHandler)
	incidents.GET("/:id", s.getIncidentHandler)
	incidents.POST("/:id/triage", s.triageIncidentHandler)
	incidents.POST("/:id/approve", s.approveIncidentHandler)
	incidents.POST("/:id/reject", s.rejectIncidentHandler)
	incidents.POST("/:id/override", s.overrideIncidentHandler)
	incidents.POST("/:id/resolve", s.resolveIncidentHandler)
	incidents.POST("/:id/pir", s.pirHandler)
	incidents.GET("/:id/audit", s.auditTrailHandler)

	s.echo.GET("/api/runbooks", s.runbooksHandler)
}

// webhookAuthMiddleware rejects requests that do not carry the configured
// shared secret. A mismatch is never audited (§7: "Authentication
// failure: 401, no audit" — an unauthenticated caller has not yet proven
// they should appear in the incident trail).
func (s *Server) webhookAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if !verifyWebhookSecret(c, s.cfg.WebhookSecret) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing webhook secret")
			}
			return next(c)
		}
	}
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener.
// The listener may be bound to any address, including a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
