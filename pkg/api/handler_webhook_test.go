package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhook_MissingSecretRejected(t *testing.T) {
	s := newTestServer(t)
	s.cfg.WebhookSecret = "configured-secret"

	req := httptest.NewRequest(http.MethodPost, "/webhook/jira", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_WrongSecretRejected(t *testing.T) {
	s := newTestServer(t)
	s.cfg.WebhookSecret = "configured-secret"

	req := httptest.NewRequest(http.MethodPost, "/webhook/jira", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhookSecretHeader, "wrong-secret")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
