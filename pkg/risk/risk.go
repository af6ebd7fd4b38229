// Package risk computes a deterministic [0,1] risk score from severity,
// LLM confidence, and environment.
package risk

import "github.com/triage-autopilot/autopilot/pkg/domain"

var severityWeights = map[domain.Severity]float64{
	domain.SeverityP1: 1.0,
	domain.SeverityP2: 0.75,
	domain.SeverityP3: 0.5,
	domain.SeverityP4: 0.25,
}

var environmentWeights = map[domain.Environment]float64{
	domain.EnvironmentProd:    1.0,
	domain.EnvironmentStaging: 0.5,
	domain.EnvironmentDev:     0.25,
	domain.EnvironmentUnknown: 0.5,
}

// Score computes risk = 0.4*severity_weight + 0.3*(1-confidence) +
// 0.3*env_weight, clamped to [0,1].
func Score(severity domain.Severity, confidence float64, environment domain.Environment) float64 {
	severityWeight, ok := severityWeights[severity]
	if !ok {
		severityWeight = 0.5
	}
	envWeight, ok := environmentWeights[environment]
	if !ok {
		envWeight = 0.5
	}

	score := severityWeight*0.4 + (1.0-confidence)*0.3 + envWeight*0.3

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Level bands a risk score for display.
func Level(score float64) domain.RiskLevel {
	switch {
	case score >= 0.8:
		return domain.RiskCritical
	case score >= 0.6:
		return domain.RiskHigh
	case score >= 0.4:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
