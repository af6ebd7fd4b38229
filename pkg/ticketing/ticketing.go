// Package ticketing updates the originating ticket (Jira-compatible REST
// API) with triage results: priority, labels, and an ADF-formatted
// summary comment.
package ticketing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

// severityToPriority maps a final severity to the ticketing system's
// priority field value.
var severityToPriority = map[domain.Severity]string{
	domain.SeverityP1: "Highest",
	domain.SeverityP2: "High",
	domain.SeverityP3: "Medium",
	domain.SeverityP4: "Low",
}

// TriageResult carries everything needed to update the originating ticket.
type TriageResult struct {
	ExternalKey    string
	Verdict        domain.Verdict
	Policy         domain.PolicyVerdict
	Correlated     bool
	CorrelatedWith string
}

// Client updates tickets via the Jira REST API (v3).
type Client struct {
	baseURL    string
	authHeader string
	dryRun     bool
	httpClient *http.Client
}

// New creates a ticketing Client. If dryRun is true, UpdateIssue and
// AddHumanReviewComment return nil without making any network call.
func New(baseURL, email, apiToken string, dryRun bool, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	creds := base64.StdEncoding.EncodeToString([]byte(email + ":" + apiToken))
	return &Client{
		baseURL:    trimTrailingSlash(baseURL),
		authHeader: "Basic " + creds,
		dryRun:     dryRun,
		httpClient: httpClient,
	}
}

// IssueURL returns the browse URL for a ticket.
func (c *Client) IssueURL(externalKey string) string {
	return fmt.Sprintf("%s/browse/%s", c.baseURL, externalKey)
}

// UpdateIssue sets priority and labels, then adds a triage summary
// comment. In dry-run mode it performs neither write and returns nil.
func (c *Client) UpdateIssue(ctx context.Context, result TriageResult) error {
	if c.dryRun {
		return nil
	}

	if err := c.updateFields(ctx, result); err != nil {
		return fmt.Errorf("update fields for %s: %w", result.ExternalKey, err)
	}
	if err := c.addComment(ctx, result); err != nil {
		return fmt.Errorf("add comment for %s: %w", result.ExternalKey, err)
	}
	return nil
}

// AddHumanReviewComment posts a low-confidence review notice. In dry-run
// mode it is a no-op.
func (c *Client) AddHumanReviewComment(ctx context.Context, externalKey string, confidence float64) error {
	if c.dryRun {
		return nil
	}

	body := adfDoc(adfWarningPanel(fmt.Sprintf(
		"Autopilot confidence is low (%.0f%%). Manual review required for severity assignment.",
		confidence*100,
	)))
	return c.postComment(ctx, externalKey, body)
}

type fieldUpdatePayload struct {
	Fields map[string]any `json:"fields"`
	Update map[string]any `json:"update"`
}

func (c *Client) updateFields(ctx context.Context, result TriageResult) error {
	priority, ok := severityToPriority[result.Policy.FinalSeverity]
	if !ok {
		priority = "Medium"
	}

	labelOps := make([]map[string]string, 0, len(result.Policy.Labels)+1)
	for _, label := range result.Policy.Labels {
		labelOps = append(labelOps, map[string]string{"add": label})
	}
	if result.Correlated {
		labelOps = append(labelOps, map[string]string{"add": "correlated"})
	}

	payload := fieldUpdatePayload{
		Fields: map[string]any{"priority": map[string]string{"name": priority}},
		Update: map[string]any{"labels": labelOps},
	}

	req, err := c.newRequest(ctx, http.MethodPut,
		fmt.Sprintf("%s/rest/api/3/issue/%s", c.baseURL, result.ExternalKey), payload)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ticketing system returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) addComment(ctx context.Context, result TriageResult) error {
	return c.postComment(ctx, result.ExternalKey, buildSummaryADF(result))
}

func (c *Client) postComment(ctx context.Context, externalKey string, body map[string]any) error {
	payload := map[string]any{"body": body}

	req, err := c.newRequest(ctx, http.MethodPost,
		fmt.Sprintf("%s/rest/api/3/issue/%s/comment", c.baseURL, externalKey), payload)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ticketing system returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
