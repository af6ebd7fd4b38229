package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
)

func TestVerifyWebhookSecret(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		got      string
		want     bool
	}{
		{name: "matching secret", expected: "topsecret", got: "topsecret", want: true},
		{name: "mismatched secret", expected: "topsecret", got: "wrong", want: false},
		{name: "missing header", expected: "topsecret", got: "", want: false},
		{name: "no configured secret always rejects", expected: "", got: "topsecret", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/webhook/jira", nil)
			if tt.got != "" {
				req.Header.Set(webhookSecretHeader, tt.got)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			assert.Equal(t, tt.want, verifyWebhookSecret(c, tt.expected))
		})
	}
}

func TestDemoAuthorized(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		got      string
		want     bool
	}{
		{name: "matching token", expected: "demo123", got: "demo123", want: true},
		{name: "mismatched token", expected: "demo123", got: "wrong", want: false},
		{name: "missing header", expected: "demo123", got: "", want: false},
		{name: "demo feature disabled", expected: "", got: "demo123", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/incidents", nil)
			if tt.got != "" {
				req.Header.Set(demoTokenHeader, tt.got)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			assert.Equal(t, tt.want, demoAuthorized(c, tt.expected))
		})
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "falls back to remote addr", remote: "203.0.113.5:54321", want: "203.0.113.5:54321"},
		{name: "uses first X-Forwarded-For hop", headers: map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, remote: "10.0.0.1:1", want: "198.51.100.1"},
		{name: "single X-Forwarded-For hop", headers: map[string]string{"X-Forwarded-For": "198.51.100.1"}, remote: "10.0.0.1:1", want: "198.51.100.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			assert.Equal(t, tt.want, clientKey(c))
		})
	}
}
