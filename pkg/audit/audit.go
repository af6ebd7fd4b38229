// Package audit records pipeline decisions to two independent sinks: the
// embedded store and an append-only JSONL file. Each sink failure is
// logged but never propagated — audit logging must not block triage.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

// Store is the subset of pkg/store.Client that audit logging needs.
type Store interface {
	InsertAuditEvent(ctx context.Context, ev domain.AuditEvent) error
	RecentAuditEvents(ctx context.Context, limit int) ([]domain.AuditEvent, error)
	EventsByExternalKey(ctx context.Context, externalKey string) ([]domain.AuditEvent, error)
}

// Logger writes audit events to the store and to an append-only JSONL
// file. A Logger from New with a nil store and an empty path skips both
// sinks and only emits the structured log line.
type Logger struct {
	store    Store
	jsonlPath string
	dryRun   bool
	logger   *slog.Logger

	mu sync.Mutex
}

// New creates a Logger backed by store and appending to jsonlPath.
func New(store Store, jsonlPath string, dryRun bool) (*Logger, error) {
	if jsonlPath != "" {
		if dir := filepath.Dir(jsonlPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create audit log directory: %w", err)
			}
		}
	}
	return &Logger{
		store:     store,
		jsonlPath: jsonlPath,
		dryRun:    dryRun,
		logger:    slog.Default().With("component", "audit"),
	}, nil
}

// Log writes one audit event to both sinks and to the structured logger.
func (l *Logger) Log(ctx context.Context, eventType domain.AuditEventType, action string, status domain.AuditStatus, opts ...EventOption) domain.AuditEvent {
	event := domain.AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Action:    action,
		Status:    status,
		DryRun:    l.dryRun,
	}
	for _, opt := range opts {
		opt(&event)
	}

	if l.store != nil {
		if err := l.store.InsertAuditEvent(ctx, event); err != nil {
			l.logger.Error("failed to write audit event to store", "error", err, "event_type", eventType)
		}
	}

	if l.jsonlPath != "" {
		if err := l.appendJSONL(event); err != nil {
			l.logger.Error("failed to write audit event to jsonl", "error", err, "event_type", eventType)
		}
	}

	msg := fmt.Sprintf("[%s] %s: %s", eventType, action, status)
	if event.ExternalKey != "" {
		msg = fmt.Sprintf("[%s] %s", event.ExternalKey, msg)
	}
	if status == domain.AuditStatusSuccess || status == domain.AuditStatusApplied || status == domain.AuditStatusNoMatch {
		l.logger.Info(msg)
	} else {
		l.logger.Warn(msg)
	}

	return event
}

func (l *Logger) appendJSONL(event domain.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.jsonlPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	return enc.Encode(event)
}

// EventOption sets an optional field on an AuditEvent before it is logged.
type EventOption func(*domain.AuditEvent)

func WithExternalKey(key string) EventOption {
	return func(e *domain.AuditEvent) { e.ExternalKey = key }
}

func WithComponent(component string) EventOption {
	return func(e *domain.AuditEvent) { e.Component = component }
}

func WithSeverity(severity string) EventOption {
	return func(e *domain.AuditEvent) { e.Severity = severity }
}

func WithDetails(details map[string]any) EventOption {
	return func(e *domain.AuditEvent) { e.Details = details }
}

// RecentEvents returns the most recent audit events from the store.
func (l *Logger) RecentEvents(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	if l.store == nil {
		return nil, nil
	}
	return l.store.RecentAuditEvents(ctx, limit)
}

// EventsForIncident returns the full audit trail for one incident, oldest
// first, for post-incident review generation.
func (l *Logger) EventsForIncident(ctx context.Context, externalKey string) ([]domain.AuditEvent, error) {
	if l.store == nil {
		return nil, nil
	}
	return l.store.EventsByExternalKey(ctx, externalKey)
}

// LogWebhookReceived logs receipt of a webhook payload.
func (l *Logger) LogWebhookReceived(ctx context.Context, externalKey string, details map[string]any) domain.AuditEvent {
	return l.Log(ctx, domain.EventWebhook, "received", domain.AuditStatusSuccess,
		WithExternalKey(externalKey), WithDetails(details))
}

// LogNormalization logs successful normalization of a webhook payload.
func (l *Logger) LogNormalization(ctx context.Context, externalKey, component, environment string) domain.AuditEvent {
	return l.Log(ctx, domain.EventNormalization, "normalized", domain.AuditStatusSuccess,
		WithExternalKey(externalKey), WithComponent(component),
		WithDetails(map[string]any{"environment": environment}))
}

// LogCorrelation logs the outcome of a correlation check.
func (l *Logger) LogCorrelation(ctx context.Context, externalKey, component, correlatedWith string) domain.AuditEvent {
	status := domain.AuditStatusNoMatch
	if correlatedWith != "" {
		status = domain.AuditStatusSuccess
	}
	return l.Log(ctx, domain.EventCorrelation, "checked", status,
		WithExternalKey(externalKey), WithComponent(component),
		WithDetails(map[string]any{"correlated_with": correlatedWith}))
}

// LogLLMTriage logs an LLM triage attempt, successful or not.
func (l *Logger) LogLLMTriage(ctx context.Context, externalKey string, verdict domain.Verdict, status domain.AuditStatus, triageErr error) domain.AuditEvent {
	details := map[string]any{
		"incident_type": string(verdict.Category),
		"severity":       string(verdict.Severity),
		"confidence":     verdict.Confidence,
	}
	if triageErr != nil {
		details["error"] = triageErr.Error()
	}
	return l.Log(ctx, domain.EventLLMTriage, "triaged", status,
		WithExternalKey(externalKey), WithSeverity(string(verdict.Severity)), WithDetails(details))
}

// LogPolicyOverride logs a deterministic severity override.
func (l *Logger) LogPolicyOverride(ctx context.Context, externalKey string, original, final domain.Severity, reason string) domain.AuditEvent {
	return l.Log(ctx, domain.EventPolicy, "override", domain.AuditStatusApplied,
		WithExternalKey(externalKey), WithSeverity(string(final)),
		WithDetails(map[string]any{
			"original_severity": string(original),
			"final_severity":    string(final),
			"reason":            reason,
		}))
}

// LogHumanReviewRequired logs when a low-confidence verdict is flagged
// for human review.
func (l *Logger) LogHumanReviewRequired(ctx context.Context, externalKey string, confidence float64) domain.AuditEvent {
	return l.Log(ctx, domain.EventPolicy, "human_review_required", domain.AuditStatusFlagged,
		WithExternalKey(externalKey), WithDetails(map[string]any{"confidence": confidence}))
}

// LogTicketUpdate logs a ticketing-system write (or its dry-run skip).
func (l *Logger) LogTicketUpdate(ctx context.Context, externalKey, action string, status domain.AuditStatus, ticketErr error) domain.AuditEvent {
	details := map[string]any{}
	if ticketErr != nil {
		details["error"] = ticketErr.Error()
	}
	return l.Log(ctx, domain.EventJira, action, status, WithExternalKey(externalKey), WithDetails(details))
}

// LogChatPost logs a chat notification attempt.
func (l *Logger) LogChatPost(ctx context.Context, externalKey, channel string, status domain.AuditStatus, postErr error) domain.AuditEvent {
	details := map[string]any{"channel": channel}
	if postErr != nil {
		details["error"] = postErr.Error()
	}
	return l.Log(ctx, domain.EventSlack, "posted", status, WithExternalKey(externalKey), WithDetails(details))
}

// LogDryRunAction logs an action that would have been taken had dry-run
// mode been disabled.
func (l *Logger) LogDryRunAction(ctx context.Context, externalKey, action, target string, details map[string]any) domain.AuditEvent {
	merged := map[string]any{"target": target}
	for k, v := range details {
		merged[k] = v
	}
	return l.Log(ctx, domain.EventDryRun, "would_have_"+action, domain.AuditStatusSkipped,
		WithExternalKey(externalKey), WithDetails(merged))
}
