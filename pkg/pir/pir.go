// Package pir generates post-incident review documents as Markdown: a
// timeline reconstructed from the audit trail, the final triage decision,
// and suggested follow-up actions drawn from the stored verdict.
package pir

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

// AuditSource provides the recorded audit trail for an incident. Satisfied
// by *audit.Logger via its EventsForIncident method, but kept narrow here so pir only depends on what it reads.
type AuditSource interface {
	EventsForIncident(ctx context.Context, externalKey string) ([]domain.AuditEvent, error)
}

// Generator builds Markdown PIR documents.
type Generator struct {
	audit AuditSource
}

// New creates a Generator.
func New(audit AuditSource) *Generator {
	return &Generator{audit: audit}
}

// Generate renders the post-incident review for a resolved (or any)
// WebIncident as a Markdown document.
func (g *Generator) Generate(ctx context.Context, wi domain.WebIncident) (string, error) {
	events, err := g.audit.EventsForIncident(ctx, wi.ID)
	if err != nil {
		return "", fmt.Errorf("load audit trail for %s: %w", wi.ID, err)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	var b strings.Builder

	fmt.Fprintf(&b, "# Post-Incident Review: %s\n\n", wi.Incident.Title)
	fmt.Fprintf(&b, "- **Incident ID:** %s\n", wi.ID)
	fmt.Fprintf(&b, "- **Component:** %s\n", wi.Incident.Component)
	fmt.Fprintf(&b, "- **Environment:** %s\n", wi.Incident.Environment)
	fmt.Fprintf(&b, "- **Reported:** %s\n", wi.Incident.CreatedAt.Format(time.RFC3339))
	if wi.DecidedAt != nil {
		fmt.Fprintf(&b, "- **Resolved:** %s\n", wi.DecidedAt.Format(time.RFC3339))
	}
	b.WriteString("\n## Final Disposition\n\n")

	severity := wi.OriginalSeverity
	category := domain.CategoryUnknown
	confidence := 0.0
	if wi.Triage != nil {
		severity = wi.Triage.FinalSeverity
		confidence = wi.Triage.Confidence
	}
	if wi.Verdict != nil {
		category = wi.Verdict.Category
	}
	fmt.Fprintf(&b, "- **Final severity:** %s\n", orUnknown(string(severity)))
	fmt.Fprintf(&b, "- **Category:** %s\n", category)
	fmt.Fprintf(&b, "- **Triage confidence:** %.2f\n", confidence)
	if wi.OriginalSeverity != "" && wi.Triage != nil && wi.OriginalSeverity != wi.Triage.FinalSeverity {
		fmt.Fprintf(&b, "- **Overridden from:** %s (%s)\n", wi.OriginalSeverity, wi.Triage.OverrideReason)
	}

	b.WriteString("\n## Timeline\n\n")
	if len(events) == 0 {
		b.WriteString("_No audit events recorded for this incident._\n")
	}
	for _, ev := range events {
		fmt.Fprintf(&b, "- `%s` **%s** (%s) — %s\n",
			ev.Timestamp.Format(time.RFC3339), ev.EventType, ev.Status, describeEvent(ev))
	}

	b.WriteString("\n## Root Cause\n\n")
	b.WriteString("_To be filled in by the incident owner._\n")

	b.WriteString("\n## Suggested Follow-Up Actions\n\n")
	if wi.Verdict != nil && len(wi.Verdict.FirstActions) > 0 {
		for _, action := range wi.Verdict.FirstActions {
			fmt.Fprintf(&b, "- [ ] %s\n", action)
		}
	} else {
		b.WriteString("_No triage-suggested actions recorded._\n")
	}

	if wi.DecisionNote != "" {
		fmt.Fprintf(&b, "\n## Decision Notes\n\n%s\n", wi.DecisionNote)
	}

	return b.String(), nil
}

func describeEvent(ev domain.AuditEvent) string {
	if reason, ok := ev.Details["reason"]; ok {
		return fmt.Sprintf("%s (%v)", ev.Action, reason)
	}
	return ev.Action
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
