package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

// ErrNotFound is returned when a lookup by ID finds no row.
var ErrNotFound = errors.New("store: not found")

// Fixed-width fractional seconds keep the stored strings in time order, so
// ORDER BY and range comparisons on these columns follow the timestamps.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// InsertAuditEvent appends one audit record. It never mutates existing
// rows; the audit log is append-only by construction.
func (c *Client) InsertAuditEvent(ctx context.Context, ev domain.AuditEvent) error {
	details, err := json.Marshal(ev.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO audit_events (timestamp, event_type, external_key, component, severity, action, status, details, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.Format(sqliteTimeLayout), string(ev.EventType), ev.ExternalKey, ev.Component, ev.Severity,
		ev.Action, string(ev.Status), string(details), boolToInt(ev.DryRun),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// RecentAuditEvents returns the most recent audit events, newest first.
func (c *Client) RecentAuditEvents(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, timestamp, event_type, external_key, component, severity, action, status, details, dry_run
		FROM audit_events
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var (
			ev          domain.AuditEvent
			ts          string
			eventType   string
			status      string
			externalKey sql.NullString
			component   sql.NullString
			severity    sql.NullString
			details     string
			dryRun      int
		)
		if err := rows.Scan(&ev.ID, &ts, &eventType, &externalKey, &component, &severity, &ev.Action, &status, &details, &dryRun); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Timestamp, _ = time.Parse(sqliteTimeLayout, ts)
		ev.EventType = domain.AuditEventType(eventType)
		ev.Status = domain.AuditStatus(status)
		ev.ExternalKey = externalKey.String
		ev.Component = component.String
		ev.Severity = severity.String
		ev.DryRun = dryRun != 0
		if details != "" {
			_ = json.Unmarshal([]byte(details), &ev.Details)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// EventsByExternalKey returns every audit event recorded for one incident,
// oldest first, for post-incident review timelines.
func (c *Client) EventsByExternalKey(ctx context.Context, externalKey string) ([]domain.AuditEvent, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, timestamp, event_type, external_key, component, severity, action, status, details, dry_run
		FROM audit_events
		WHERE external_key = ?
		ORDER BY timestamp ASC, id ASC`, externalKey)
	if err != nil {
		return nil, fmt.Errorf("query audit events for %s: %w", externalKey, err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var (
			ev          domain.AuditEvent
			ts          string
			eventType   string
			status      string
			externalKeyCol sql.NullString
			component   sql.NullString
			severity    sql.NullString
			details     string
			dryRun      int
		)
		if err := rows.Scan(&ev.ID, &ts, &eventType, &externalKeyCol, &component, &severity, &ev.Action, &status, &details, &dryRun); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Timestamp, _ = time.Parse(sqliteTimeLayout, ts)
		ev.EventType = domain.AuditEventType(eventType)
		ev.Status = domain.AuditStatus(status)
		ev.ExternalKey = externalKeyCol.String
		ev.Component = component.String
		ev.Severity = severity.String
		ev.DryRun = dryRun != 0
		if details != "" {
			_ = json.Unmarshal([]byte(details), &ev.Details)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// UpsertIncident records (or re-records) an incident for correlation
// lookups. Re-ingesting the same external key replaces the prior row.
func (c *Client) UpsertIncident(ctx context.Context, rec domain.CorrelationRecord) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO incidents (external_key, summary, component, environment, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(external_key) DO UPDATE SET
			summary = excluded.summary,
			component = excluded.component,
			environment = excluded.environment,
			created_at = excluded.created_at`,
		rec.ExternalKey, rec.Summary, rec.Component, string(rec.Environment), rec.CreatedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert incident: %w", err)
	}
	return nil
}

// FindCorrelated returns incidents for the given component created within
// window of now, excluding excludeKey. It satisfies pkg/correlate.Store.
func (c *Client) FindCorrelated(ctx context.Context, component string, window time.Duration, excludeKey string) ([]domain.CorrelationRecord, error) {
	cutoff := time.Now().UTC().Add(-window)

	rows, err := c.db.QueryContext(ctx, `
		SELECT external_key, summary, component, environment, created_at
		FROM incidents
		WHERE component = ? AND created_at > ? AND external_key != ?
		ORDER BY created_at DESC`,
		component, cutoff.Format(sqliteTimeLayout), excludeKey,
	)
	if err != nil {
		return nil, fmt.Errorf("query correlated incidents: %w", err)
	}
	defer rows.Close()

	var records []domain.CorrelationRecord
	for rows.Next() {
		var rec domain.CorrelationRecord
		var env, createdAt string
		if err := rows.Scan(&rec.ExternalKey, &rec.Summary, &rec.Component, &env, &createdAt); err != nil {
			return nil, fmt.Errorf("scan correlated incident: %w", err)
		}
		rec.Environment = domain.Environment(env)
		rec.CreatedAt, _ = time.Parse(sqliteTimeLayout, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CreateWebIncident inserts a new web-submitted incident record.
func (c *Client) CreateWebIncident(ctx context.Context, wi domain.WebIncident) error {
	labels, err := json.Marshal(wi.Incident.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO web_incidents (
			id, external_key, title, description, labels, component, environment, reporter,
			incident_created_at, status, triage_json, verdict_json, original_severity, demo_authorized,
			decision_author, decision_note, decided_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wi.ID, wi.Incident.ExternalKey, wi.Incident.Title, wi.Incident.Description, string(labels),
		wi.Incident.Component, string(wi.Incident.Environment), wi.Incident.Reporter,
		wi.Incident.CreatedAt.Format(sqliteTimeLayout), string(wi.Status),
		marshalPolicyVerdict(wi.Triage), marshalVerdict(wi.Verdict), string(wi.OriginalSeverity), boolToInt(wi.DemoAuthorized),
		wi.DecisionAuthor, wi.DecisionNote, formatOptionalTime(wi.DecidedAt),
		wi.CreatedAt.Format(sqliteTimeLayout), wi.UpdatedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert web incident: %w", err)
	}
	return nil
}

// UpdateWebIncident persists the mutable lifecycle fields of an existing
// web incident (status, triage/verdict, and decision metadata).
func (c *Client) UpdateWebIncident(ctx context.Context, wi domain.WebIncident) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE web_incidents SET
			status = ?, triage_json = ?, verdict_json = ?, original_severity = ?,
			decision_author = ?, decision_note = ?, decided_at = ?, updated_at = ?
		WHERE id = ?`,
		string(wi.Status), marshalPolicyVerdict(wi.Triage), marshalVerdict(wi.Verdict), string(wi.OriginalSeverity),
		wi.DecisionAuthor, wi.DecisionNote, formatOptionalTime(wi.DecidedAt), wi.UpdatedAt.Format(sqliteTimeLayout),
		wi.ID,
	)
	if err != nil {
		return fmt.Errorf("update web incident: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update web incident: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetWebIncident fetches a single web incident by ID.
func (c *Client) GetWebIncident(ctx context.Context, id string) (domain.WebIncident, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, external_key, title, description, labels, component, environment, reporter,
			incident_created_at, status, triage_json, verdict_json, original_severity, demo_authorized,
			decision_author, decision_note, decided_at, created_at, updated_at
		FROM web_incidents WHERE id = ?`, id)

	wi, err := scanWebIncident(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WebIncident{}, ErrNotFound
	}
	if err != nil {
		return domain.WebIncident{}, fmt.Errorf("get web incident: %w", err)
	}
	return wi, nil
}

// ListWebIncidents returns web incidents ordered newest-first, optionally
// filtered by status. An empty status returns every incident.
func (c *Client) ListWebIncidents(ctx context.Context, status domain.WebIncidentStatus) ([]domain.WebIncident, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = c.db.QueryContext(ctx, `
			SELECT id, external_key, title, description, labels, component, environment, reporter,
				incident_created_at, status, triage_json, verdict_json, original_severity, demo_authorized,
				decision_author, decision_note, decided_at, created_at, updated_at
			FROM web_incidents ORDER BY created_at DESC`)
	} else {
		rows, err = c.db.QueryContext(ctx, `
			SELECT id, external_key, title, description, labels, component, environment, reporter,
				incident_created_at, status, triage_json, verdict_json, original_severity, demo_authorized,
				decision_author, decision_note, decided_at, created_at, updated_at
			FROM web_incidents WHERE status = ? ORDER BY created_at DESC`, string(status))
	}
	if err != nil {
		return nil, fmt.Errorf("list web incidents: %w", err)
	}
	defer rows.Close()

	var incidents []domain.WebIncident
	for rows.Next() {
		wi, err := scanWebIncident(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan web incident: %w", err)
		}
		incidents = append(incidents, wi)
	}
	return incidents, rows.Err()
}

func scanWebIncident(scan func(dest ...any) error) (domain.WebIncident, error) {
	var (
		wi                                                      domain.WebIncident
		labels, env, status, triageJSON, verdictJSON            string
		originalSeverity, decisionAuthor, decisionNote, decided sql.NullString
		incidentCreatedAt, rowCreatedAt, rowUpdatedAt           string
		demoAuthorized                                          int
	)
	if err := scan(
		&wi.ID, &wi.Incident.ExternalKey, &wi.Incident.Title, &wi.Incident.Description, &labels,
		&wi.Incident.Component, &env, &wi.Incident.Reporter, &incidentCreatedAt, &status,
		&triageJSON, &verdictJSON, &originalSeverity, &demoAuthorized, &decisionAuthor, &decisionNote, &decided,
		&rowCreatedAt, &rowUpdatedAt,
	); err != nil {
		return domain.WebIncident{}, err
	}

	wi.Incident.Environment = domain.Environment(env)
	wi.Incident.CreatedAt, _ = time.Parse(sqliteTimeLayout, incidentCreatedAt)
	wi.Status = domain.WebIncidentStatus(status)
	wi.OriginalSeverity = domain.Severity(originalSeverity.String)
	wi.DemoAuthorized = demoAuthorized != 0
	wi.DecisionAuthor = decisionAuthor.String
	wi.DecisionNote = decisionNote.String
	wi.CreatedAt, _ = time.Parse(sqliteTimeLayout, rowCreatedAt)
	wi.UpdatedAt, _ = time.Parse(sqliteTimeLayout, rowUpdatedAt)

	if labels != "" {
		_ = json.Unmarshal([]byte(labels), &wi.Incident.Labels)
	}
	if triageJSON != "" {
		var triage domain.PolicyVerdict
		if err := json.Unmarshal([]byte(triageJSON), &triage); err == nil {
			wi.Triage = &triage
		}
	}
	if verdictJSON != "" {
		var verdict domain.Verdict
		if err := json.Unmarshal([]byte(verdictJSON), &verdict); err == nil {
			wi.Verdict = &verdict
		}
	}
	if decided.Valid && decided.String != "" {
		t, err := time.Parse(sqliteTimeLayout, decided.String)
		if err == nil {
			wi.DecidedAt = &t
		}
	}

	return wi, nil
}

func marshalPolicyVerdict(v *domain.PolicyVerdict) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func marshalVerdict(v *domain.Verdict) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(sqliteTimeLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
