package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

func TestApply_ProdOutage(t *testing.T) {
	incident := domain.Incident{
		Title:       "Production API outage - users cannot login",
		Environment: domain.EnvironmentProd,
	}
	verdict := domain.Verdict{Category: domain.CategoryApplication, Severity: domain.SeverityP4, Confidence: 0.9}

	result := NewEngine().Apply(incident, verdict)

	assert.Equal(t, domain.SeverityP2, result.FinalSeverity)
	assert.True(t, result.Overridden)
	assert.Contains(t, result.Labels, "sev:P2")
	assert.Contains(t, result.Labels, "type:application")
	assert.Contains(t, result.Labels, "autopilot")
}

func TestApply_StagingCap(t *testing.T) {
	incident := domain.Incident{
		Title:       "Staging database connection failures",
		Environment: domain.EnvironmentStaging,
	}
	verdict := domain.Verdict{Category: domain.CategoryDatabase, Severity: domain.SeverityP1, Confidence: 0.9}

	result := NewEngine().Apply(incident, verdict)

	assert.Equal(t, domain.SeverityP3, result.FinalSeverity)
	assert.True(t, result.Overridden)
	assert.Contains(t, result.OverrideReason, "non-production")
}

func TestApply_ProdSecuritySupersedesOutage(t *testing.T) {
	incident := domain.Incident{
		Title:       "Potential security breach detected, service down",
		Environment: domain.EnvironmentProd,
	}
	verdict := domain.Verdict{Category: domain.CategorySecurity, Severity: domain.SeverityP4, Confidence: 0.9}

	result := NewEngine().Apply(incident, verdict)

	assert.Equal(t, domain.SeverityP1, result.FinalSeverity)
}

func TestApply_LowConfidenceGate(t *testing.T) {
	incident := domain.Incident{Title: "minor blip", Environment: domain.EnvironmentProd}
	verdict := domain.Verdict{Category: domain.CategoryApplication, Severity: domain.SeverityP3, Confidence: 0.50}

	result := NewEngine().Apply(incident, verdict)

	assert.True(t, result.NeedsHumanReview)
	assert.Contains(t, result.Labels, "needs-review")
	assert.Equal(t, domain.SeverityP3, result.FinalSeverity)
}

// P1
func TestApply_NonProdAlwaysP3OrLessSevere(t *testing.T) {
	for _, sev := range []domain.Severity{domain.SeverityP1, domain.SeverityP2, domain.SeverityP3, domain.SeverityP4} {
		for _, env := range []domain.Environment{domain.EnvironmentStaging, domain.EnvironmentDev, domain.EnvironmentUnknown} {
			incident := domain.Incident{Title: "anything", Environment: env}
			verdict := domain.Verdict{Category: domain.CategoryApplication, Severity: sev, Confidence: 0.9}
			result := NewEngine().Apply(incident, verdict)
			assert.Contains(t, []domain.Severity{domain.SeverityP3, domain.SeverityP4}, result.FinalSeverity)
		}
	}
}

// P2
func TestApply_ProdSecurityAlwaysP1(t *testing.T) {
	for _, sev := range []domain.Severity{domain.SeverityP1, domain.SeverityP2, domain.SeverityP3, domain.SeverityP4} {
		incident := domain.Incident{Title: "unauthorized access detected", Environment: domain.EnvironmentProd}
		verdict := domain.Verdict{Category: domain.CategorySecurity, Severity: sev, Confidence: 0.9}
		result := NewEngine().Apply(incident, verdict)
		assert.Equal(t, domain.SeverityP1, result.FinalSeverity)
	}
}

// P7
func TestApply_LabelsAlwaysIncludeCore(t *testing.T) {
	incident := domain.Incident{Title: "routine", Environment: domain.EnvironmentDev}
	verdict := domain.Verdict{Category: domain.CategoryNetwork, Severity: domain.SeverityP4, Confidence: 0.9}
	result := NewEngine().Apply(incident, verdict)
	assert.Contains(t, result.Labels, "autopilot")
	assert.Contains(t, result.Labels, "type:network")
	assert.Contains(t, result.Labels, "sev:"+string(result.FinalSeverity))
}
