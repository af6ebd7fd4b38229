// Package webui implements the incident lifecycle state machine behind
// the web-submitted-incident API: create, triage, approve, reject,
// override, and resolve.
package webui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/triage-autopilot/autopilot/pkg/audit"
	"github.com/triage-autopilot/autopilot/pkg/domain"
	"github.com/triage-autopilot/autopilot/pkg/llm"
	"github.com/triage-autopilot/autopilot/pkg/policy"
	"github.com/triage-autopilot/autopilot/pkg/risk"
	"github.com/triage-autopilot/autopilot/pkg/runbook"
)

// ErrInvalidTransition is returned when a requested lifecycle transition
// is not allowed from the incident's current status.
var ErrInvalidTransition = errors.New("webui: invalid status transition")

// ErrValidation is returned for malformed request input.
var ErrValidation = errors.New("webui: validation failed")

// Store is the persistence surface the service needs.
type Store interface {
	CreateWebIncident(ctx context.Context, wi domain.WebIncident) error
	GetWebIncident(ctx context.Context, id string) (domain.WebIncident, error)
	UpdateWebIncident(ctx context.Context, wi domain.WebIncident) error
	ListWebIncidents(ctx context.Context, status domain.WebIncidentStatus) ([]domain.WebIncident, error)
}

// Service implements the web-incident lifecycle.
type Service struct {
	store   Store
	audit   *audit.Logger
	policy  *policy.Engine
	catalog *runbook.Catalog
	// realProvider is the process-configured LLM backend, used only for
	// incidents created with a valid demo token (wi.DemoAuthorized).
	// Without one, every web-UI triage falls back to the deterministic mock
	// so a demo user cannot run up vendor API costs.
	realProvider llm.Provider
	mockProvider llm.Provider
}

// New creates a Service. realProvider is the same Provider the webhook
// pipeline uses; mockProvider should be llm.NewMock().
func New(store Store, auditLogger *audit.Logger, policyEngine *policy.Engine, catalog *runbook.Catalog, realProvider, mockProvider llm.Provider) *Service {
	return &Service{store: store, audit: auditLogger, policy: policyEngine, catalog: catalog, realProvider: realProvider, mockProvider: mockProvider}
}

// CreateInput describes a web-submitted incident report.
type CreateInput struct {
	Title          string
	Description    string
	Component      string
	Environment    domain.Environment
	Reporter       string
	Labels         []string
	DemoAuthorized bool
}

// Create stores a new incident in the "pending" state.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.WebIncident, error) {
	if in.Title == "" {
		return domain.WebIncident{}, fmt.Errorf("%w: title is required", ErrValidation)
	}

	component := in.Component
	if component == "" {
		component = "unknown"
	}
	environment := in.Environment
	if environment == "" {
		environment = domain.EnvironmentUnknown
	}
	reporter := in.Reporter
	if reporter == "" {
		reporter = "unknown"
	}

	now := time.Now().UTC()
	wi := domain.WebIncident{
		ID: uuid.NewString(),
		Incident: domain.Incident{
			ExternalKey: "",
			Title:       in.Title,
			Description: in.Description,
			Labels:      in.Labels,
			Component:   component,
			Environment: environment,
			Reporter:    reporter,
			CreatedAt:   now,
		},
		Status:         domain.WebIncidentPending,
		DemoAuthorized: in.DemoAuthorized,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	wi.Incident.ExternalKey = wi.ID

	if err := s.store.CreateWebIncident(ctx, wi); err != nil {
		return domain.WebIncident{}, fmt.Errorf("create web incident: %w", err)
	}

	s.audit.Log(ctx, domain.EventIncidentCreated, "created", domain.AuditStatusSuccess,
		audit.WithExternalKey(wi.ID), audit.WithComponent(component))

	return wi, nil
}

// Get fetches a single incident by ID.
func (s *Service) Get(ctx context.Context, id string) (domain.WebIncident, error) {
	return s.store.GetWebIncident(ctx, id)
}

// List returns incidents newest-first, optionally filtered by status,
// paginated in memory over the full filtered set.
func (s *Service) List(ctx context.Context, status domain.WebIncidentStatus, limit, offset int) ([]domain.WebIncident, error) {
	all, err := s.store.ListWebIncidents(ctx, status)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return []domain.WebIncident{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// allowedTriageFrom is the set of statuses from which Triage may run:
// the initial triage from pending, and a re-triage after rejection.
var allowedTriageFrom = map[domain.WebIncidentStatus]bool{
	domain.WebIncidentPending:  true,
	domain.WebIncidentRejected: true,
}

// Triage runs an LLM provider, policy engine, risk scorer, and runbook
// matcher against the stored incident, then moves it to "triaged". The
// configured provider runs only for incidents created with a valid demo
// token (wi.DemoAuthorized); otherwise the request falls back to the
// deterministic mock, so an anonymous demo user cannot run up vendor API
// costs by creating incidents and triaging them.
func (s *Service) Triage(ctx context.Context, id string) (domain.WebIncident, error) {
	wi, err := s.store.GetWebIncident(ctx, id)
	if err != nil {
		return domain.WebIncident{}, err
	}
	if !allowedTriageFrom[wi.Status] {
		return domain.WebIncident{}, fmt.Errorf("%w: cannot triage incident in status %q", ErrInvalidTransition, wi.Status)
	}

	provider := s.mockProvider
	if wi.DemoAuthorized && s.realProvider != nil {
		provider = s.realProvider
	}

	verdict, err := provider.Triage(ctx, wi.Incident)
	if err != nil {
		s.audit.Log(ctx, domain.EventIncidentTriageFail, "triage_failed", domain.AuditStatusFailure,
			audit.WithExternalKey(id), audit.WithDetails(map[string]any{"error": err.Error()}))
		return domain.WebIncident{}, fmt.Errorf("triage incident %s: %w", id, err)
	}

	policyVerdict := s.policy.Apply(wi.Incident, verdict)

	wi.Status = domain.WebIncidentTriaged
	wi.Verdict = &verdict
	wi.Triage = &policyVerdict
	wi.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateWebIncident(ctx, wi); err != nil {
		return domain.WebIncident{}, fmt.Errorf("persist triage result: %w", err)
	}

	s.audit.Log(ctx, domain.EventIncidentTriaged, "triaged", domain.AuditStatusSuccess,
		audit.WithExternalKey(id), audit.WithSeverity(string(policyVerdict.FinalSeverity)))

	return wi, nil
}

// allowedApproveFrom mirrors spec's "triaged -> approved" transition.
var allowedApproveFrom = map[domain.WebIncidentStatus]bool{domain.WebIncidentTriaged: true}

// Approve marks a triaged incident as approved.
func (s *Service) Approve(ctx context.Context, id string) (domain.WebIncident, error) {
	wi, err := s.store.GetWebIncident(ctx, id)
	if err != nil {
		return domain.WebIncident{}, err
	}
	if !allowedApproveFrom[wi.Status] {
		return domain.WebIncident{}, fmt.Errorf("%w: cannot approve incident in status %q", ErrInvalidTransition, wi.Status)
	}

	wi.Status = domain.WebIncidentApproved
	wi.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateWebIncident(ctx, wi); err != nil {
		return domain.WebIncident{}, fmt.Errorf("persist approval: %w", err)
	}

	s.audit.Log(ctx, domain.EventIncidentApproved, "approved", domain.AuditStatusSuccess, audit.WithExternalKey(id))
	return wi, nil
}

// Reject marks a triaged incident as rejected, allowing a later re-triage.
func (s *Service) Reject(ctx context.Context, id, reason string) (domain.WebIncident, error) {
	wi, err := s.store.GetWebIncident(ctx, id)
	if err != nil {
		return domain.WebIncident{}, err
	}
	if wi.Status != domain.WebIncidentTriaged {
		return domain.WebIncident{}, fmt.Errorf("%w: cannot reject incident in status %q", ErrInvalidTransition, wi.Status)
	}

	wi.Status = domain.WebIncidentRejected
	wi.DecisionNote = reason
	wi.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateWebIncident(ctx, wi); err != nil {
		return domain.WebIncident{}, fmt.Errorf("persist rejection: %w", err)
	}

	s.audit.Log(ctx, domain.EventIncidentDecision, "rejected", domain.AuditStatusSuccess,
		audit.WithExternalKey(id), audit.WithDetails(map[string]any{"reason": reason}))
	return wi, nil
}

// OverrideInput carries the human-supplied override decision.
type OverrideInput struct {
	Severity domain.Severity
	Category domain.Category
	Reason   string
	Author   string
}

// allowedOverrideFrom mirrors spec's "triaged -> overridden" transition.
var allowedOverrideFrom = map[domain.WebIncidentStatus]bool{domain.WebIncidentTriaged: true}

// Override applies a human severity/category decision, re-running the
// risk scorer and runbook matcher against the new inputs. The first
// override on an incident preserves the pre-override severity in
// OriginalSeverity.
func (s *Service) Override(ctx context.Context, id string, in OverrideInput) (domain.WebIncident, error) {
	if in.Reason == "" {
		return domain.WebIncident{}, fmt.Errorf("%w: override reason is required", ErrValidation)
	}
	if in.Severity == "" && in.Category == "" {
		return domain.WebIncident{}, fmt.Errorf("%w: override requires a new severity and/or category", ErrValidation)
	}

	wi, err := s.store.GetWebIncident(ctx, id)
	if err != nil {
		return domain.WebIncident{}, err
	}
	if !allowedOverrideFrom[wi.Status] {
		return domain.WebIncident{}, fmt.Errorf("%w: cannot override incident in status %q", ErrInvalidTransition, wi.Status)
	}
	if wi.Triage == nil || wi.Verdict == nil {
		return domain.WebIncident{}, fmt.Errorf("%w: incident has no triage result to override", ErrInvalidTransition)
	}

	if wi.OriginalSeverity == "" {
		wi.OriginalSeverity = wi.Triage.FinalSeverity
	}

	finalSeverity := wi.Triage.FinalSeverity
	if in.Severity != "" {
		finalSeverity = in.Severity
	}
	category := wi.Verdict.Category
	if in.Category != "" {
		category = in.Category
	}

	wi.Verdict.Category = category
	wi.Triage.FinalSeverity = finalSeverity
	wi.Triage.Overridden = true
	wi.Triage.OverrideReason = in.Reason

	if s.catalog != nil {
		match, _ := s.catalog.Match(category, wi.Incident.Title, wi.Incident.Description)
		wi.Verdict.RunbookSuggestion = match.Entry.Name
	}

	wi.Status = domain.WebIncidentOverridden
	wi.DecisionAuthor = in.Author
	wi.DecisionNote = in.Reason
	now := time.Now().UTC()
	wi.DecidedAt = &now
	wi.UpdatedAt = now

	if err := s.store.UpdateWebIncident(ctx, wi); err != nil {
		return domain.WebIncident{}, fmt.Errorf("persist override: %w", err)
	}

	s.audit.Log(ctx, domain.EventIncidentOverridden, "overridden", domain.AuditStatusApplied,
		audit.WithExternalKey(id), audit.WithSeverity(string(finalSeverity)),
		audit.WithDetails(map[string]any{"reason": in.Reason, "original_severity": string(wi.OriginalSeverity)}))

	return wi, nil
}

// resolvableFrom is every non-terminal status; "resolved" is terminal.
var resolvableFrom = map[domain.WebIncidentStatus]bool{
	domain.WebIncidentPending:    true,
	domain.WebIncidentTriaged:    true,
	domain.WebIncidentApproved:   true,
	domain.WebIncidentRejected:   true,
	domain.WebIncidentOverridden: true,
}

// Resolve closes an incident, direct from pending or from any
// post-triage state.
func (s *Service) Resolve(ctx context.Context, id, resolutionNote string) (domain.WebIncident, error) {
	wi, err := s.store.GetWebIncident(ctx, id)
	if err != nil {
		return domain.WebIncident{}, err
	}
	if !resolvableFrom[wi.Status] {
		return domain.WebIncident{}, fmt.Errorf("%w: cannot resolve incident in status %q", ErrInvalidTransition, wi.Status)
	}

	wi.Status = domain.WebIncidentResolved
	wi.DecisionNote = resolutionNote
	now := time.Now().UTC()
	wi.DecidedAt = &now
	wi.UpdatedAt = now

	if err := s.store.UpdateWebIncident(ctx, wi); err != nil {
		return domain.WebIncident{}, fmt.Errorf("persist resolution: %w", err)
	}

	s.audit.Log(ctx, domain.EventIncidentResolved, "resolved", domain.AuditStatusSuccess, audit.WithExternalKey(id))
	return wi, nil
}

// RiskScore computes the current risk score and level for an incident's
// triage result, for display by API handlers.
func RiskScore(wi domain.WebIncident) (float64, domain.RiskLevel) {
	if wi.Triage == nil {
		return 0, domain.RiskLow
	}
	score := risk.Score(wi.Triage.FinalSeverity, wi.Triage.Confidence, wi.Incident.Environment)
	return score, risk.Level(score)
}
