package ticketing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

func TestUpdateIssue_SendsFieldsAndComment(t *testing.T) {
	var methods []string
	var paths []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		assert.Contains(t, r.Header.Get("Authorization"), "Basic ")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "bot@example.com", "token", false, server.Client())

	err := c.UpdateIssue(context.Background(), TriageResult{
		ExternalKey: "INC-1",
		Verdict:     domain.Verdict{Category: domain.CategoryDatabase, Severity: domain.SeverityP2, Confidence: 0.9, Summary: "db issue"},
		Policy:      domain.PolicyVerdict{FinalSeverity: domain.SeverityP2, Labels: []string{"autopilot"}},
	})
	require.NoError(t, err)

	require.Equal(t, []string{http.MethodPut, http.MethodPost}, methods)
	require.Equal(t, "/rest/api/3/issue/INC-1", paths[0])
	require.Equal(t, "/rest/api/3/issue/INC-1/comment", paths[1])
}

func TestUpdateIssue_DryRunMakesNoRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := New(server.URL, "bot@example.com", "token", true, server.Client())
	err := c.UpdateIssue(context.Background(), TriageResult{ExternalKey: "INC-1"})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestBuildSummaryADF_IncludesCorrelationAndReviewNotice(t *testing.T) {
	result := TriageResult{
		Verdict:        domain.Verdict{Category: domain.CategoryNetwork, Confidence: 0.4, Summary: "flaky", FirstActions: []string{"check dns"}},
		Policy:         domain.PolicyVerdict{FinalSeverity: domain.SeverityP3, NeedsHumanReview: true, Overridden: true, OriginalSeverity: domain.SeverityP4},
		Correlated:     true,
		CorrelatedWith: "INC-OLD",
	}

	doc := buildSummaryADF(result)
	encoded, err := json.Marshal(doc)
	require.NoError(t, err)

	s := string(encoded)
	assert.Contains(t, s, "INC-OLD")
	assert.Contains(t, s, "Needs human review")
	assert.Contains(t, s, "Overridden from P4")
}

func TestUpdateIssue_NonSuccessStatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, "bot@example.com", "token", false, server.Client())
	err := c.UpdateIssue(context.Background(), TriageResult{ExternalKey: "INC-1"})
	assert.Error(t, err)
}
