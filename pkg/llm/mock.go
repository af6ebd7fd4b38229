package llm

import (
	"context"
	"strings"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

// mockProvider is deterministic and makes no network calls. It is
// selected when the configured provider is "mock", and is also the
// provider the web-UI ingest path falls back to when a request lacks a
// demo token.
type mockProvider struct{}

// NewMock returns the deterministic mock Provider directly, for callers
// that must never invoke a paid vendor API regardless of configuration
// (the web-UI triage endpoint).
func NewMock() Provider {
	return &mockProvider{}
}

func (m *mockProvider) Triage(_ context.Context, incident domain.Incident) (domain.Verdict, error) {
	combined := strings.ToLower(incident.Title + " " + incident.Description)

	category, ownerTeam := classify(combined)
	severity := mockSeverity(combined)

	summary := incident.Title
	if len(summary) > 100 {
		summary = summary[:100]
	}

	return domain.Verdict{
		Category:   category,
		Severity:   severity,
		Confidence: 0.85,
		OwnerTeam:  ownerTeam,
		Summary:    "[MOCK] " + summary,
		FirstActions: []string{
			"Check " + incident.Component + " service logs",
			"Review monitoring dashboards for anomalies",
			"Check recent deployments or changes",
			"Verify " + string(incident.Environment) + " environment health",
			"Escalate to on-call if severity warrants",
		},
		RunbookSuggestion: "runbook-" + string(category) + "-general",
	}, nil
}

func classify(combined string) (domain.Category, string) {
	switch {
	case containsAny(combined, "deploy", "release", "rollout", "ci/cd"):
		return domain.CategoryDeployment, "platform"
	case containsAny(combined, "database", "db", "sql", "query", "postgres", "mysql"):
		return domain.CategoryDatabase, "data-platform"
	case containsAny(combined, "network", "dns", "load balancer", "connectivity", "timeout"):
		return domain.CategoryNetwork, "infrastructure"
	case containsAny(combined, "security", "breach", "unauthorized", "vulnerability"):
		return domain.CategorySecurity, "security"
	case containsAny(combined, "infrastructure", "server", "vm", "cloud", "aws", "gcp"):
		return domain.CategoryInfrastructure, "infrastructure"
	default:
		return domain.CategoryApplication, "engineering"
	}
}

func mockSeverity(combined string) domain.Severity {
	switch {
	case containsAny(combined, "security", "breach", "critical", "p1"):
		return domain.SeverityP1
	case containsAny(combined, "outage", "down", "500", "cannot", "failing"):
		return domain.SeverityP2
	case containsAny(combined, "degraded", "slow", "intermittent"):
		return domain.SeverityP3
	default:
		return domain.SeverityP4
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
