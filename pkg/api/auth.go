package api

import (
	"crypto/subtle"
	"strings"

	echo "github.com/labstack/echo/v5"
)

const (
	webhookSecretHeader = "X-AUTOPILOT-SECRET"
	demoTokenHeader     = "X-Demo-Token"
)

// verifyWebhookSecret reports whether the request carries the configured
// shared secret, compared in constant time to avoid a timing side channel.
func verifyWebhookSecret(c *echo.Context, expected string) bool {
	if expected == "" {
		return false
	}
	got := c.Request().Header.Get(webhookSecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// demoAuthorized reports whether the request carries the configured demo
// token. An empty configured token means the demo feature is disabled, so
// every request is unauthorized and web-UI triage always falls back to the
// mock provider.
func demoAuthorized(c *echo.Context, expected string) bool {
	if expected == "" {
		return false
	}
	got := c.Request().Header.Get(demoTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// clientKey returns the rate-limiter key for a request: the first
// X-Forwarded-For hop if present, else the remote address.
func clientKey(c *echo.Context) string {
	if fwd := c.Request().Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	return c.Request().RemoteAddr
}
