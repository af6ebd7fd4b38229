package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

// rawVerdict mirrors the JSON shape both HTTP-backed providers are
// instructed to emit. Fields are parsed defensively — an unknown or
// missing value never causes a parse failure, only a coerced default.
type rawVerdict struct {
	IncidentType      json.RawMessage `json:"incident_type"`
	Severity          json.RawMessage `json:"severity"`
	Confidence        json.RawMessage `json:"confidence"`
	OwnerTeam         json.RawMessage `json:"owner_team"`
	ShortSummary      json.RawMessage `json:"short_summary"`
	FirstActions      json.RawMessage `json:"first_actions"`
	RunbookSuggestion json.RawMessage `json:"runbook_suggestion"`
}

// parseVerdict strips surrounding markdown code fences if present,
// JSON-decodes the content, and coerces every field defensively: unknown
// category/severity values fall back to their defaults, confidence is
// clamped to [0,1], and first-actions is truncated to at most 7 entries.
// A malformed JSON body is the only condition that returns an error —
// semantically-invalid values are not an error, coercion handles them.
func parseVerdict(content string) (domain.Verdict, error) {
	content = stripFences(content)

	var raw rawVerdict
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return domain.Verdict{}, fmt.Errorf("parse LLM response: %w", err)
	}

	verdict := domain.Verdict{
		Category:          domain.ParseCategory(strings.ToLower(scalarString(raw.IncidentType, "unknown"))),
		Severity:          domain.ParseSeverity(strings.ToUpper(scalarString(raw.Severity, "P4"))),
		Confidence:        clamp01(scalarFloat(raw.Confidence, 0.5)),
		OwnerTeam:         scalarString(raw.OwnerTeam, "platform"),
		Summary:           scalarString(raw.ShortSummary, ""),
		FirstActions:      truncateActions(scalarStringSlice(raw.FirstActions), 7),
		RunbookSuggestion: scalarString(raw.RunbookSuggestion, ""),
	}
	return verdict, nil
}

// stripFences removes a single layer of surrounding ``` fencing, matching
// the LLM's tendency to wrap JSON in a markdown code block despite
// instructions not to.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

func scalarString(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Defensive coercion: stringify non-string scalars (numbers, bools).
	var v any
	if err := json.Unmarshal(raw, &v); err == nil && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return fallback
}

func scalarFloat(raw json.RawMessage, fallback float64) float64 {
	if len(raw) == 0 {
		return fallback
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	return fallback
}

func scalarStringSlice(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		// Not a list — coerce the single scalar into a one-element list.
		single := scalarString(raw, "")
		if single == "" {
			return nil
		}
		return []string{single}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, fmt.Sprintf("%v", item))
	}
	return out
}

func truncateActions(actions []string, max int) []string {
	if len(actions) > max {
		return actions[:max]
	}
	return actions
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
