// Package policy applies deterministic guardrail rules that may override
// an LLM's severity verdict, with well-defined precedence between
// conflicting rules.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

const confidenceThreshold = 0.70

var outageKeywords = compileAll(
	`\boutage\b`,
	`\bdown\b`,
	`\bservice unavailable\b`,
	`\b500\b`,
	`\berror rate spike\b`,
	`\bcannot\b`,
	`\bfailing\b`,
	`\btimeouts?\b`,
)

var securityKeywords = compileAll(
	`\bsecurity\b`,
	`\bbreach\b`,
	`\bunauthorized\b`,
	`\bleak\b`,
	`\bexfiltration\b`,
	`\bexploit\b`,
	`\bvulnerability\b`,
	`\bcve\b`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

func containsAny(text string, patterns []*regexp.Regexp) bool {
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// Engine applies the ordered guardrail rules. It holds no mutable state
// and is safe for concurrent use.
type Engine struct{}

// NewEngine constructs a policy Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Apply evaluates the guardrail rules in their fixed precedence order and
// returns the committed policy verdict.
func (e *Engine) Apply(incident domain.Incident, verdict domain.Verdict) domain.PolicyVerdict {
	originalSeverity := verdict.Severity
	finalSeverity := verdict.Severity
	var overrideReason string

	searchableText := incident.Title + " " + incident.Description

	switch {
	case incident.Environment != domain.EnvironmentProd:
		// Rule 1: non-prod environments are capped at P3. This branch is
		// exclusive with rules 2 and 3 — they are guarded on env == prod.
		if finalSeverity.Rank() < domain.SeverityP3.Rank() {
			finalSeverity = domain.SeverityP3
			overrideReason = fmt.Sprintf("non-production environment (%s) capped to P3", incident.Environment)
		}
	default:
		// Rule 2: prod outage keywords raise severity to at least P2.
		if containsAny(searchableText, outageKeywords) {
			if finalSeverity.Rank() > domain.SeverityP2.Rank() {
				finalSeverity = domain.SeverityP2
				overrideReason = "production outage keywords detected, raised to P2"
			}
		}

		// Rule 3: prod security keywords force P1, superseding rule 2.
		if containsAny(searchableText, securityKeywords) {
			finalSeverity = domain.SeverityP1
			overrideReason = "production security keywords detected, set to P1"
		}
	}

	// Rule 4: confidence gate is orthogonal to severity and always runs.
	needsHumanReview := verdict.Confidence < confidenceThreshold

	labels := []string{
		"autopilot",
		fmt.Sprintf("type:%s", verdict.Category),
		fmt.Sprintf("sev:%s", finalSeverity),
	}
	if needsHumanReview {
		labels = append(labels, "needs-review")
	}

	return domain.PolicyVerdict{
		OriginalSeverity: originalSeverity,
		FinalSeverity:    finalSeverity,
		Overridden:       originalSeverity != finalSeverity,
		OverrideReason:   overrideReason,
		NeedsHumanReview: needsHumanReview,
		Confidence:       verdict.Confidence,
		Labels:           labels,
	}
}
