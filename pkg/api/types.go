package api

import (
	"time"

	"github.com/triage-autopilot/autopilot/pkg/domain"
	"github.com/triage-autopilot/autopilot/pkg/metrics"
	"github.com/triage-autopilot/autopilot/pkg/webui"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	DryRun  bool   `json:"dry_run"`
}

// RootResponse is the body of GET /.
type RootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	DryRun  bool   `json:"dry_run"`
}

// MetricsResponse is the body of GET /metrics.
type MetricsResponse struct {
	Counters  metrics.Snapshot    `json:"counters"`
	RateLimit ratelimitStatsView `json:"rate_limit"`
}

type ratelimitStatsView struct {
	ActiveKeys            int `json:"active_keys"`
	TotalRequestsInWindow int `json:"total_requests_in_window"`
	MaxRequests           int `json:"max_requests"`
	WindowSeconds         int `json:"window_seconds"`
}

// WebhookResponse is the body returned by POST /webhook/jira.
type WebhookResponse struct {
	Status         string  `json:"status"`
	ExternalKey    string  `json:"external_key,omitempty"`
	Severity       string  `json:"severity,omitempty"`
	Category       string  `json:"category,omitempty"`
	Correlated     bool    `json:"correlated,omitempty"`
	CorrelatedWith string  `json:"correlated_with,omitempty"`
	Message        string  `json:"message"`
}

// IncidentCreateRequest is the body of POST /api/incidents.
type IncidentCreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Component   string   `json:"component"`
	Environment string   `json:"environment"`
	Reporter    string   `json:"reporter"`
	Labels      []string `json:"labels"`
}

// OverrideRequest is the body of POST /api/incidents/{id}/override.
type OverrideRequest struct {
	Severity string `json:"severity"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
	Author   string `json:"author"`
}

// ResolveRequest is the body of POST /api/incidents/{id}/resolve.
type ResolveRequest struct {
	ResolutionNote string `json:"resolution_note"`
}

// RejectRequest is the body of POST /api/incidents/{id}/reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// IncidentView is the JSON representation of a stored web incident.
type IncidentView struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Labels           []string           `json:"labels"`
	Component        string             `json:"component"`
	Environment      string             `json:"environment"`
	Reporter         string             `json:"reporter"`
	Status           string             `json:"status"`
	Triage           *PolicyVerdictView `json:"triage,omitempty"`
	Verdict          *VerdictView       `json:"verdict,omitempty"`
	OriginalSeverity string             `json:"original_severity,omitempty"`
	RiskScore        float64            `json:"risk_score"`
	RiskLevel        string             `json:"risk_level"`
	DecisionAuthor   string             `json:"decision_author,omitempty"`
	DecisionNote     string             `json:"decision_note,omitempty"`
	DecidedAt        *time.Time         `json:"decided_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// PolicyVerdictView is the JSON representation of a domain.PolicyVerdict.
type PolicyVerdictView struct {
	OriginalSeverity string   `json:"original_severity"`
	FinalSeverity    string   `json:"final_severity"`
	Overridden       bool     `json:"overridden"`
	OverrideReason   string   `json:"override_reason,omitempty"`
	NeedsHumanReview bool     `json:"needs_human_review"`
	Confidence       float64  `json:"confidence"`
	Labels           []string `json:"labels,omitempty"`
}

// VerdictView is the JSON representation of a domain.Verdict.
type VerdictView struct {
	Category          string   `json:"category"`
	Severity          string   `json:"severity"`
	Confidence        float64  `json:"confidence"`
	OwnerTeam         string   `json:"owner_team"`
	Summary           string   `json:"summary"`
	FirstActions      []string `json:"first_actions,omitempty"`
	RunbookSuggestion string   `json:"runbook_suggestion,omitempty"`
}

// AuditEventView is the JSON representation of one audit event.
type AuditEventView struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   string         `json:"event_type"`
	Action      string         `json:"action"`
	Status      string         `json:"status"`
	ExternalKey string         `json:"external_key,omitempty"`
	Component   string         `json:"component,omitempty"`
	Severity    string         `json:"severity,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	DryRun      bool           `json:"dry_run"`
}

// RunbookView is the JSON representation of one catalog entry.
type RunbookView struct {
	Category string   `json:"category"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Steps    []string `json:"steps"`
}

// PIRResponse is the body of POST /api/incidents/{id}/pir.
type PIRResponse struct {
	ExternalKey string `json:"external_key"`
	Markdown    string `json:"markdown"`
}

func toIncidentView(wi domain.WebIncident) IncidentView {
	riskScore, riskLevel := webui.RiskScore(wi)

	view := IncidentView{
		ID:               wi.ID,
		Title:            wi.Incident.Title,
		Description:      wi.Incident.Description,
		Labels:           wi.Incident.Labels,
		Component:        wi.Incident.Component,
		Environment:      string(wi.Incident.Environment),
		Reporter:         wi.Incident.Reporter,
		Status:           string(wi.Status),
		OriginalSeverity: string(wi.OriginalSeverity),
		RiskScore:        riskScore,
		RiskLevel:        string(riskLevel),
		DecisionAuthor:   wi.DecisionAuthor,
		DecisionNote:     wi.DecisionNote,
		DecidedAt:        wi.DecidedAt,
		CreatedAt:        wi.CreatedAt,
		UpdatedAt:        wi.UpdatedAt,
	}

	if wi.Triage != nil {
		view.Triage = &PolicyVerdictView{
			OriginalSeverity: string(wi.Triage.OriginalSeverity),
			FinalSeverity:    string(wi.Triage.FinalSeverity),
			Overridden:       wi.Triage.Overridden,
			OverrideReason:   wi.Triage.OverrideReason,
			NeedsHumanReview: wi.Triage.NeedsHumanReview,
			Confidence:       wi.Triage.Confidence,
			Labels:           wi.Triage.Labels,
		}
	}
	if wi.Verdict != nil {
		view.Verdict = &VerdictView{
			Category:          string(wi.Verdict.Category),
			Severity:          string(wi.Verdict.Severity),
			Confidence:        wi.Verdict.Confidence,
			OwnerTeam:         wi.Verdict.OwnerTeam,
			Summary:           wi.Verdict.Summary,
			FirstActions:      wi.Verdict.FirstActions,
			RunbookSuggestion: wi.Verdict.RunbookSuggestion,
		}
	}
	return view
}

func toAuditEventView(ev domain.AuditEvent) AuditEventView {
	return AuditEventView{
		Timestamp:   ev.Timestamp,
		EventType:   string(ev.EventType),
		Action:      ev.Action,
		Status:      string(ev.Status),
		ExternalKey: ev.ExternalKey,
		Component:   ev.Component,
		Severity:    ev.Severity,
		Details:     ev.Details,
		DryRun:      ev.DryRun,
	}
}

func toRunbookView(e domain.RunbookEntry) RunbookView {
	return RunbookView{Category: string(e.Category), Name: e.Name, URL: e.URL, Steps: e.Steps}
}
