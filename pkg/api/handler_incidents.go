package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/triage-autopilot/autopilot/pkg/audit"
	"github.com/triage-autopilot/autopilot/pkg/domain"
	"github.com/triage-autopilot/autopilot/pkg/webui"
)

// createIncidentHandler handles POST /api/incidents.
func (s *Server) createIncidentHandler(c *echo.Context) error {
	var req IncidentCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	wi, err := s.webui.Create(c.Request().Context(), webui.CreateInput{
		Title:          req.Title,
		Description:    req.Description,
		Component:      req.Component,
		Environment:    domain.Environment(req.Environment),
		Reporter:       req.Reporter,
		Labels:         req.Labels,
		DemoAuthorized: demoAuthorized(c, s.cfg.DemoToken),
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, toIncidentView(wi))
}

// listIncidentsHandler handles GET /api/incidents.
func (s *Server) listIncidentsHandler(c *echo.Context) error {
	status := domain.WebIncidentStatus(c.QueryParam("status"))
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	incidents, err := s.webui.List(c.Request().Context(), status, limit, offset)
	if err != nil {
		return mapServiceError(err)
	}

	views := make([]IncidentView, 0, len(incidents))
	for _, wi := range incidents {
		views = append(views, toIncidentView(wi))
	}
	return c.JSON(http.StatusOK, views)
}

// getIncidentHandler handles GET /api/incidents/{id}.
func (s *Server) getIncidentHandler(c *echo.Context) error {
	wi, err := s.webui.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, toIncidentView(wi))
}

// triageIncidentHandler handles POST /api/incidents/{id}/triage.
func (s *Server) triageIncidentHandler(c *echo.Context) error {
	wi, err := s.webui.Triage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, toIncidentView(wi))
}

// approveIncidentHandler handles POST /api/incidents/{id}/approve.
func (s *Server) approveIncidentHandler(c *echo.Context) error {
	wi, err := s.webui.Approve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, toIncidentView(wi))
}

// rejectIncidentHandler handles POST /api/incidents/{id}/reject.
func (s *Server) rejectIncidentHandler(c *echo.Context) error {
	var req RejectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	wi, err := s.webui.Reject(c.Request().Context(), c.Param("id"), req.Reason)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, toIncidentView(wi))
}

// overrideIncidentHandler handles POST /api/incidents/{id}/override.
func (s *Server) overrideIncidentHandler(c *echo.Context) error {
	var req OverrideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	wi, err := s.webui.Override(c.Request().Context(), c.Param("id"), webui.OverrideInput{
		Severity: domain.Severity(req.Severity),
		Category: domain.Category(req.Category),
		Reason:   req.Reason,
		Author:   req.Author,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, toIncidentView(wi))
}

// resolveIncidentHandler handles POST /api/incidents/{id}/resolve.
func (s *Server) resolveIncidentHandler(c *echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	wi, err := s.webui.Resolve(c.Request().Context(), c.Param("id"), req.ResolutionNote)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, toIncidentView(wi))
}

// pirHandler handles POST /api/incidents/{id}/pir.
func (s *Server) pirHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	wi, err := s.webui.Get(ctx, c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}

	markdown, err := s.pirGen.Generate(ctx, wi)
	if err != nil {
		return mapServiceError(err)
	}

	s.audit.Log(ctx, domain.EventPIRGenerated, "pir_generated", domain.AuditStatusSuccess,
		audit.WithExternalKey(wi.ID))
	return c.JSON(http.StatusOK, PIRResponse{ExternalKey: wi.ID, Markdown: markdown})
}

// auditTrailHandler handles GET /api/incidents/{id}/audit.
func (s *Server) auditTrailHandler(c *echo.Context) error {
	events, err := s.audit.EventsForIncident(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}

	views := make([]AuditEventView, 0, len(events))
	for _, ev := range events {
		views = append(views, toAuditEventView(ev))
	}
	return c.JSON(http.StatusOK, views)
}

// runbooksHandler handles GET /api/runbooks.
func (s *Server) runbooksHandler(c *echo.Context) error {
	entries := s.catalog.List()
	views := make([]RunbookView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toRunbookView(e))
	}
	return c.JSON(http.StatusOK, views)
}

func queryInt(c *echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
