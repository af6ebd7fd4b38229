package llm

import (
	"context"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

func TestMockProvider_ClassifiesOutageAsP2(t *testing.T) {
	p := &mockProvider{}
	verdict, err := p.Triage(context.Background(), domain.Incident{
		Title:     "Service is down, users cannot login",
		Component: "auth-service",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityP2, verdict.Severity)
	assert.Equal(t, 0.85, verdict.Confidence)
	assert.LessOrEqual(t, len(verdict.FirstActions), 7)
}

func TestMockProvider_ClassifiesSecurityAsP1(t *testing.T) {
	p := &mockProvider{}
	verdict, err := p.Triage(context.Background(), domain.Incident{Title: "Security breach detected"})
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityP1, verdict.Severity)
	assert.Equal(t, domain.CategorySecurity, verdict.Category)
}

func TestParseVerdict_StripsFences(t *testing.T) {
	raw := "```json\n{\"incident_type\":\"database\",\"severity\":\"p2\",\"confidence\":0.9,\"owner_team\":\"dba\",\"short_summary\":\"x\",\"first_actions\":[\"a\",\"b\"],\"runbook_suggestion\":\"r\"}\n```"
	verdict, err := parseVerdict(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryDatabase, verdict.Category)
	assert.Equal(t, domain.SeverityP2, verdict.Severity)
	assert.Equal(t, []string{"a", "b"}, verdict.FirstActions)
}

func TestParseVerdict_UnknownValuesCoerce(t *testing.T) {
	raw := `{"incident_type":"not-a-category","severity":"P9","confidence":1.5,"first_actions":"single-string-not-list"}`
	verdict, err := parseVerdict(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryUnknown, verdict.Category)
	assert.Equal(t, domain.SeverityP4, verdict.Severity)
	assert.Equal(t, 1.0, verdict.Confidence)
	assert.Equal(t, []string{"single-string-not-list"}, verdict.FirstActions)
}

func TestParseVerdict_MalformedJSONErrors(t *testing.T) {
	_, err := parseVerdict("not json at all")
	assert.Error(t, err)
}

// P6: for any JSON with valid structure, clamped confidence is in [0,1]
// and first-actions length is <= 7.
func TestParseVerdict_ConfidenceAndActionsBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		confidence := rng.Float64()*3 - 1
		actions := make([]string, rng.Intn(15))
		for j := range actions {
			actions[j] = "action"
		}
		raw, _ := buildTestJSON(confidence, actions)
		verdict, err := parseVerdict(raw)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, verdict.Confidence, 0.0)
		assert.LessOrEqual(t, verdict.Confidence, 1.0)
		assert.LessOrEqual(t, len(verdict.FirstActions), 7)
	}
}

func buildTestJSON(confidence float64, actions []string) (string, error) {
	quoted := make([]string, len(actions))
	for i, a := range actions {
		quoted[i] = `"` + a + `"`
	}
	list := "["
	for i, q := range quoted {
		if i > 0 {
			list += ","
		}
		list += q
	}
	list += "]"
	return `{"incident_type":"application","severity":"P3","confidence":` +
		strconv.FormatFloat(confidence, 'f', -1, 64) + `,"first_actions":` + list + `}`, nil
}
