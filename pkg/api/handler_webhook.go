package api

import (
	"encoding/json"
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/triage-autopilot/autopilot/pkg/pipeline"
)

// webhookHandler handles POST /webhook/jira. Shared-secret auth and rate
// limiting are applied by middleware registered ahead of this route; by
// the time this handler runs both have already passed.
func (s *Server) webhookHandler(c *echo.Context) error {
	s.metrics.WebhooksReceived.Add(1)

	var payload map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "malformed webhook payload")
	}

	webhookEvent := ""
	if wt, ok := payload["webhookEvent"].(string); ok {
		webhookEvent = wt
	}

	result, err := s.pipeline.ProcessWebhook(c.Request().Context(), payload, webhookEvent)
	if err != nil {
		var llmErr *pipeline.ErrLLMTriageFailed
		if errors.As(err, &llmErr) {
			return echo.NewHTTPError(http.StatusInternalServerError, llmErr.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "normalization failed: "+err.Error())
	}

	resp := WebhookResponse{
		Status:  result.Status,
		Message: result.Message,
	}
	if result.Status == "processed" {
		resp.ExternalKey = result.Incident.ExternalKey
		resp.Severity = string(result.Policy.FinalSeverity)
		resp.Category = string(result.Verdict.Category)
		resp.Correlated = result.Correlated
		resp.CorrelatedWith = result.CorrelatedWith
	}
	return c.JSON(http.StatusOK, resp)
}
