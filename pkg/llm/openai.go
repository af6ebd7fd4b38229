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

type openAIProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func newOpenAIProvider(cfg *config.Config) *openAIProvider {
	baseURL := cfg.LLMBaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAIProvider{
		apiKey:     cfg.LLMAPIKey,
		model:      cfg.LLMModel,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.LLMTimeout},
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string                 `json:"model"`
	Messages       []openAIMessage        `json:"messages"`
	Temperature    float64                `json:"temperature"`
	ResponseFormat map[string]string      `json:"response_format"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (p *openAIProvider) Triage(ctx context.Context, incident domain.Incident) (domain.Verdict, error) {
	reqBody := openAIRequest{
		Model: p.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(incident)},
		},
		Temperature:    0.1,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("encode OpenAI request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("build OpenAI request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("OpenAI request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.Verdict{}, fmt.Errorf("OpenAI returned status %d", resp.StatusCode)
	}

	var body openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Verdict{}, fmt.Errorf("decode OpenAI response: %w", err)
	}
	if len(body.Choices) == 0 {
		return domain.Verdict{}, fmt.Errorf("OpenAI response contained no choices")
	}

	return parseVerdict(body.Choices[0].Message.Content)
}
