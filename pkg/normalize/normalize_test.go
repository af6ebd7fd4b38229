package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

func jiraPayload(issueType, summary, description string, labels []string, component string) map[string]any {
	labelsAny := make([]any, 0, len(labels))
	for _, l := range labels {
		labelsAny = append(labelsAny, l)
	}
	return map[string]any{
		"issue": map[string]any{
			"key": "OPS-1",
			"fields": map[string]any{
				"issuetype":   map[string]any{"name": issueType},
				"summary":     summary,
				"description": description,
				"labels":      labelsAny,
				"components":  []any{map[string]any{"name": component}},
				"reporter":    map[string]any{"displayName": "Alice"},
			},
		},
	}
}

func TestNormalize_SkipsNonIncident(t *testing.T) {
	_, ok, err := Normalize(jiraPayload("Story", "x", "y", nil, "auth"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNormalize_ProdOutage(t *testing.T) {
	payload := jiraPayload("Incident", "Production API outage - users cannot login", "", []string{"prod", "urgent"}, "auth-service")
	incident, ok, err := Normalize(payload)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "OPS-1", incident.ExternalKey)
	assert.Equal(t, domain.EnvironmentProd, incident.Environment)
	assert.Equal(t, "auth-service", incident.Component)
	assert.Equal(t, "Alice", incident.Reporter)
}

func TestNormalize_DefaultsUnknownComponent(t *testing.T) {
	payload := map[string]any{
		"issue": map[string]any{
			"key": "OPS-2",
			"fields": map[string]any{
				"issuetype": map[string]any{"name": "Incident"},
				"summary":   "no component here",
			},
		},
	}
	incident, ok, err := Normalize(payload)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "unknown", incident.Component)
	assert.Equal(t, "unknown", incident.Reporter)
	assert.Equal(t, "", incident.Description)
}

func TestNormalize_ADFDescription(t *testing.T) {
	description := map[string]any{
		"type": "doc",
		"content": []any{
			map[string]any{
				"type": "paragraph",
				"content": []any{
					map[string]any{"type": "text", "text": "Database"},
					map[string]any{"type": "text", "text": "connection"},
					map[string]any{"type": "text", "text": "failures"},
				},
			},
		},
	}
	payload := map[string]any{
		"issue": map[string]any{
			"key": "OPS-3",
			"fields": map[string]any{
				"issuetype":  map[string]any{"name": "Incident"},
				"summary":    "Staging database connection failures",
				"description": description,
			},
		},
	}
	incident, ok, err := Normalize(payload)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Database connection failures", incident.Description)
}

func TestDetectEnvironment_Aliases(t *testing.T) {
	cases := []struct {
		text string
		want domain.Environment
	}{
		{"this is a prd issue", domain.EnvironmentProd},
		{"reported on live site", domain.EnvironmentProd},
		{"stg deployment failed", domain.EnvironmentStaging},
		{"uat smoke test", domain.EnvironmentStaging},
		{"preprod rollout", domain.EnvironmentStaging},
		{"qa environment only", domain.EnvironmentDev},
		{"sandbox experiment", domain.EnvironmentDev},
		{"no markers at all", domain.EnvironmentUnknown},
	}
	for _, tc := range cases {
		got := DetectEnvironment(nil, tc.text, "", nil)
		assert.Equal(t, tc.want, got, tc.text)
	}
}

// P4: normalizing the same payload twice yields equal incidents modulo
// the created-at default (both calls happen fast enough in a test that
// the defaulted timestamps may legitimately differ by clock ticks, so we
// compare everything else).
func TestNormalize_Idempotent(t *testing.T) {
	payload := jiraPayload("Incident", "Payments API 500 errors", "", []string{"prod"}, "payments")
	a, _, err := Normalize(payload)
	require.NoError(t, err)
	b, _, err := Normalize(payload)
	require.NoError(t, err)

	assert.Equal(t, a.ExternalKey, b.ExternalKey)
	assert.Equal(t, a.Title, b.Title)
	assert.Equal(t, a.Description, b.Description)
	assert.Equal(t, a.Component, b.Component)
	assert.Equal(t, a.Environment, b.Environment)
	assert.Equal(t, a.Reporter, b.Reporter)
}
