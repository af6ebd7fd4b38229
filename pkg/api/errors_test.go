package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/triage-autopilot/autopilot/pkg/pipeline"
	"github.com/triage-autopilot/autopilot/pkg/store"
	"github.com/triage-autopilot/autopilot/pkg/webui"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "not found", err: store.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "invalid transition", err: webui.ErrInvalidTransition, wantCode: http.StatusBadRequest},
		{name: "validation failure", err: webui.ErrValidation, wantCode: http.StatusBadRequest},
		{name: "wrapped not found", err: errors.Join(errors.New("lookup"), store.ErrNotFound), wantCode: http.StatusNotFound},
		{name: "llm triage failure", err: &pipeline.ErrLLMTriageFailed{Cause: errors.New("timeout")}, wantCode: http.StatusInternalServerError},
		{name: "unknown error", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := mapServiceError(tt.err)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}
