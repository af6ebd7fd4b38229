// Package pipeline sequences the full incident-triage flow: normalize,
// correlate, triage via LLM, apply policy guardrails, score risk, match a
// runbook, then (non-fatally) update the ticket and notify chat.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/triage-autopilot/autopilot/pkg/audit"
	"github.com/triage-autopilot/autopilot/pkg/correlate"
	"github.com/triage-autopilot/autopilot/pkg/domain"
	"github.com/triage-autopilot/autopilot/pkg/llm"
	"github.com/triage-autopilot/autopilot/pkg/metrics"
	"github.com/triage-autopilot/autopilot/pkg/normalize"
	"github.com/triage-autopilot/autopilot/pkg/policy"
	"github.com/triage-autopilot/autopilot/pkg/risk"
	"github.com/triage-autopilot/autopilot/pkg/runbook"
	"github.com/triage-autopilot/autopilot/pkg/ticketing"
)

// Store is the persistence surface the pipeline needs beyond what the
// audit logger and correlator already require.
type Store interface {
	correlate.Store
	UpsertIncident(ctx context.Context, rec domain.CorrelationRecord) error
}

// Ticketer updates the originating ticket. Satisfied by *ticketing.Client.
type Ticketer interface {
	UpdateIssue(ctx context.Context, result ticketing.TriageResult) error
	IssueURL(externalKey string) string
}

// ChatFunc posts a triage notification. cmd/autopilot wires this to
// pkg/chat.Service.NotifyTriage, keeping this package decoupled from the
// Slack SDK.
type ChatFunc func(ctx context.Context, result Result) error

// Pipeline wires every triage collaborator together.
type Pipeline struct {
	store      Store
	audit      *audit.Logger
	correlator *correlate.Correlator
	policy     *policy.Engine
	catalog    *runbook.Catalog
	provider   llm.Provider
	ticketer   Ticketer
	chatFunc   ChatFunc
	metrics    *metrics.Counters
	dryRun     bool
	logger     *slog.Logger
}

// Config configures a new Pipeline.
type Config struct {
	Store      Store
	Audit      *audit.Logger
	Correlator *correlate.Correlator
	Policy     *policy.Engine
	Catalog    *runbook.Catalog
	Provider   llm.Provider
	Ticketer   Ticketer
	ChatFunc   ChatFunc
	Metrics    *metrics.Counters
	DryRun     bool
}

// New creates a Pipeline. Ticketer and ChatFunc may be nil, in which
// case those steps are skipped entirely (not merely dry-run).
func New(cfg Config) *Pipeline {
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Pipeline{
		store:      cfg.Store,
		audit:      cfg.Audit,
		correlator: cfg.Correlator,
		policy:     cfg.Policy,
		catalog:    cfg.Catalog,
		provider:   cfg.Provider,
		ticketer:   cfg.Ticketer,
		chatFunc:   cfg.ChatFunc,
		metrics:    m,
		dryRun:     cfg.DryRun,
		logger:     slog.Default().With("component", "pipeline"),
	}
}

// Result is the outcome of processing one incident end to end.
type Result struct {
	Status         string // "skipped" or "processed"
	Incident       domain.Incident
	Verdict        domain.Verdict
	Policy         domain.PolicyVerdict
	RiskScore      float64
	RiskLevel      domain.RiskLevel
	RunbookMatch   domain.RunbookMatch
	Correlated     bool
	CorrelatedWith string
	Message        string
}

// ErrLLMTriageFailed wraps a failure from the LLM provider. It is the
// only fatal error in the pipeline — every later step is best-effort.
type ErrLLMTriageFailed struct {
	ExternalKey string
	Cause       error
}

func (e *ErrLLMTriageFailed) Error() string {
	return fmt.Sprintf("llm triage failed for %s: %v", e.ExternalKey, e.Cause)
}

func (e *ErrLLMTriageFailed) Unwrap() error { return e.Cause }

// ProcessWebhook normalizes a raw webhook payload and, if it describes an
// incident, runs it through the full pipeline.
func (p *Pipeline) ProcessWebhook(ctx context.Context, payload map[string]any, webhookEvent string) (Result, error) {
	incident, ok, err := normalize.Normalize(payload)
	if err != nil {
		return Result{}, fmt.Errorf("normalize webhook payload: %w", err)
	}
	if !ok {
		return Result{Status: "skipped", Message: "Not an Incident issue type"}, nil
	}

	p.audit.LogWebhookReceived(ctx, incident.ExternalKey, map[string]any{
		"event_type":  webhookEvent,
		"component":   incident.Component,
		"environment": string(incident.Environment),
	})

	return p.ProcessIncident(ctx, incident)
}

// ProcessIncident runs an already-normalized incident through
// correlation, LLM triage, policy, risk scoring, and runbook matching,
// then performs the non-fatal ticketing and chat side effects.
func (p *Pipeline) ProcessIncident(ctx context.Context, incident domain.Incident) (Result, error) {
	p.audit.LogNormalization(ctx, incident.ExternalKey, incident.Component, string(incident.Environment))

	correlated, correlatedWith, err := p.correlator.Check(ctx, incident)
	if err != nil {
		p.logger.Warn("correlation check failed", "external_key", incident.ExternalKey, "error", err)
	}
	if correlated {
		p.metrics.IncidentsCorrelated.Add(1)
	}
	p.audit.LogCorrelation(ctx, incident.ExternalKey, incident.Component, correlatedWith)

	if err := p.store.UpsertIncident(ctx, domain.CorrelationRecord{
		ExternalKey: incident.ExternalKey,
		Summary:     incident.Title,
		Component:   incident.Component,
		Environment: incident.Environment,
		CreatedAt:   incident.CreatedAt,
	}); err != nil {
		p.logger.Warn("failed to record incident for correlation", "external_key", incident.ExternalKey, "error", err)
	}

	p.metrics.LLMCalls.Add(1)
	verdict, err := p.provider.Triage(ctx, incident)
	if err != nil {
		p.metrics.LLMErrors.Add(1)
		p.audit.LogLLMTriage(ctx, incident.ExternalKey, domain.Verdict{}, domain.AuditStatusFailure, err)
		return Result{}, &ErrLLMTriageFailed{ExternalKey: incident.ExternalKey, Cause: err}
	}
	p.audit.LogLLMTriage(ctx, incident.ExternalKey, verdict, domain.AuditStatusSuccess, nil)

	policyVerdict := p.policy.Apply(incident, verdict)
	if policyVerdict.Overridden {
		p.metrics.PolicyOverrides.Add(1)
		p.audit.LogPolicyOverride(ctx, incident.ExternalKey, policyVerdict.OriginalSeverity, policyVerdict.FinalSeverity, policyVerdict.OverrideReason)
	}
	if policyVerdict.NeedsHumanReview {
		p.metrics.HumanReviewRequired.Add(1)
		p.audit.LogHumanReviewRequired(ctx, incident.ExternalKey, policyVerdict.Confidence)
	}

	riskScore := risk.Score(policyVerdict.FinalSeverity, policyVerdict.Confidence, incident.Environment)
	riskLevel := risk.Level(riskScore)

	var runbookMatch domain.RunbookMatch
	if p.catalog != nil {
		runbookMatch, _ = p.catalog.Match(verdict.Category, incident.Title, incident.Description)
	}

	result := Result{
		Status:         "processed",
		Incident:       incident,
		Verdict:        verdict,
		Policy:         policyVerdict,
		RiskScore:      riskScore,
		RiskLevel:      riskLevel,
		RunbookMatch:   runbookMatch,
		Correlated:     correlated,
		CorrelatedWith: correlatedWith,
		Message: fmt.Sprintf("Incident triaged as %s (%s)",
			policyVerdict.FinalSeverity, verdict.Category),
	}

	p.updateTicket(ctx, result)
	p.notifyChat(ctx, result)

	p.metrics.IncidentsTriaged.Add(1)
	p.metrics.WebhooksProcessed.Add(1)
	return result, nil
}

func (p *Pipeline) updateTicket(ctx context.Context, result Result) {
	if p.ticketer == nil {
		return
	}

	ticketResult := ticketing.TriageResult{
		ExternalKey:    result.Incident.ExternalKey,
		Verdict:        result.Verdict,
		Policy:         result.Policy,
		Correlated:     result.Correlated,
		CorrelatedWith: result.CorrelatedWith,
	}

	if p.dryRun {
		p.audit.LogDryRunAction(ctx, result.Incident.ExternalKey, "update_ticket", "issue", map[string]any{
			"priority": string(result.Policy.FinalSeverity),
			"labels":   result.Policy.Labels,
		})
		return
	}

	if err := p.ticketer.UpdateIssue(ctx, ticketResult); err != nil {
		p.metrics.TicketErrors.Add(1)
		p.audit.LogTicketUpdate(ctx, result.Incident.ExternalKey, "update", domain.AuditStatusFailure, err)
		p.logger.Error("ticket update failed", "external_key", result.Incident.ExternalKey, "error", err)
		return
	}
	p.metrics.TicketUpdates.Add(1)
	p.audit.LogTicketUpdate(ctx, result.Incident.ExternalKey, "updated_fields_and_comment", domain.AuditStatusSuccess, nil)
}

func (p *Pipeline) notifyChat(ctx context.Context, result Result) {
	if p.chatFunc == nil {
		return
	}

	if p.dryRun {
		p.audit.LogDryRunAction(ctx, result.Incident.ExternalKey, "post_chat", "chat", map[string]any{
			"severity": string(result.Policy.FinalSeverity),
			"summary":  result.Verdict.Summary,
		})
		return
	}

	if err := p.chatFunc(ctx, result); err != nil {
		p.metrics.ChatErrors.Add(1)
		p.audit.LogChatPost(ctx, result.Incident.ExternalKey, "", domain.AuditStatusFailure, err)
		p.logger.Error("chat notification failed", "external_key", result.Incident.ExternalKey, "error", err)
		return
	}
	p.metrics.ChatPosts.Add(1)
	p.audit.LogChatPost(ctx, result.Incident.ExternalKey, "", domain.AuditStatusSuccess, nil)
}
