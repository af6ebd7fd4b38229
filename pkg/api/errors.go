package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/triage-autopilot/autopilot/pkg/pipeline"
	"github.com/triage-autopilot/autopilot/pkg/store"
	"github.com/triage-autopilot/autopilot/pkg/webui"
)

// mapServiceError maps webui/store/pipeline errors to HTTP error responses.
func mapServiceError(err error) *echo.HTTPError {
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if errors.Is(err, webui.ErrInvalidTransition) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if errors.Is(err, webui.ErrValidation) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var llmErr *pipeline.ErrLLMTriageFailed
	if errors.As(err, &llmErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, "triage failed: "+err.Error())
	}

	slog.Error("unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
