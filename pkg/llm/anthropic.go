package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/triage-autopilot/autopilot/pkg/config"
	"github.com/triage-autopilot/autopilot/pkg/domain"
)

type anthropicProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func newAnthropicProvider(cfg *config.Config) *anthropicProvider {
	baseURL := cfg.LLMBaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &anthropicProvider{
		apiKey:     cfg.LLMAPIKey,
		model:      cfg.LLMModel,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.LLMTimeout},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (p *anthropicProvider) Triage(ctx context.Context, incident domain.Incident) (domain.Verdict, error) {
	reqBody := anthropicRequest{
		Model:     p.model,
		MaxTokens: 1024,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: buildUserPrompt(incident)},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("encode Anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("build Anthropic request: %w", err)
	}
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("Anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.Verdict{}, fmt.Errorf("Anthropic returned status %d", resp.StatusCode)
	}

	var body anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Verdict{}, fmt.Errorf("decode Anthropic response: %w", err)
	}
	if len(body.Content) == 0 {
		return domain.Verdict{}, fmt.Errorf("Anthropic response contained no content")
	}

	return parseVerdict(body.Content[0].Text)
}
