// Package llm implements the provider-polymorphic triage adapter: a
// single Provider interface with OpenAI-style, Anthropic-style, and
// deterministic mock backends, plus the shared JSON verdict parser.
package llm

import (
	"context"
	"fmt"

	"github.com/triage-autopilot/autopilot/pkg/config"
	"github.com/triage-autopilot/autopilot/pkg/domain"
)

const systemPrompt = `You are an IT incident triage assistant. Output ONLY valid JSON. No markdown, no code fences, no explanation.

You must classify incidents and return a JSON object with these exact keys:
- incident_type: one of "deployment", "database", "network", "application", "security", "infrastructure", "unknown"
- severity: one of "P1", "P2", "P3", "P4"
- confidence: a float between 0 and 1 indicating your confidence
- owner_team: the team that should own this incident
- short_summary: a 1-2 sentence summary of the incident
- first_actions: an array of 3-7 immediate action items
- runbook_suggestion: a suggested runbook or procedure name

CRITICAL CONSTRAINT: If the environment is NOT "prod", you must NEVER output P1 or P2 severity. Use P3 or P4 only for non-production environments.`

// Provider is the single capability every LLM backend implements.
type Provider interface {
	Triage(ctx context.Context, incident domain.Incident) (domain.Verdict, error)
}

// New constructs the Provider selected by cfg.LLMProvider. This is the
// small closed set of variants called for in place of runtime dynamic
// dispatch: mock, OpenAI-style, Anthropic-style.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderMock:
		return &mockProvider{}, nil
	case config.LLMProviderOpenAI:
		if cfg.LLMAPIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for provider %q", cfg.LLMProvider)
		}
		return newOpenAIProvider(cfg), nil
	case config.LLMProviderAnthropic:
		if cfg.LLMAPIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for provider %q", cfg.LLMProvider)
		}
		return newAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

func buildUserPrompt(incident domain.Incident) string {
	description := incident.Description
	if description == "" {
		description = "No description"
	} else if len(description) > 2000 {
		description = description[:2000]
	}

	labels := "None"
	if len(incident.Labels) > 0 {
		labels = joinComma(incident.Labels)
	}

	return fmt.Sprintf(`Classify this incident and return JSON:

Summary: %s
Description: %s
Component: %s
Environment: %s
Labels: %s
Reporter: %s

Remember: If environment is not "prod", severity must be P3 or P4.`,
		incident.Title, description, incident.Component, incident.Environment, labels, incident.Reporter)
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
