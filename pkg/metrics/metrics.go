// Package metrics tracks atomic counters for pipeline observability.
package metrics

import "sync/atomic"

// Counters holds named atomic counters for the triage pipeline.
type Counters struct {
	WebhooksReceived     atomic.Int64
	WebhooksRejected     atomic.Int64
	WebhooksProcessed    atomic.Int64
	IncidentsTriaged     atomic.Int64
	IncidentsCorrelated  atomic.Int64
	LLMCalls             atomic.Int64
	LLMErrors            atomic.Int64
	PolicyOverrides      atomic.Int64
	HumanReviewRequired  atomic.Int64
	TicketUpdates        atomic.Int64
	TicketErrors         atomic.Int64
	ChatPosts            atomic.Int64
	ChatErrors           atomic.Int64
}

// New creates an empty Counters set.
func New() *Counters {
	return &Counters{}
}

// Snapshot is a point-in-time read of every counter, suitable for JSON
// serialization in a status endpoint.
type Snapshot struct {
	WebhooksReceived    int64 `json:"webhooks_received"`
	WebhooksRejected    int64 `json:"webhooks_rejected"`
	WebhooksProcessed   int64 `json:"webhooks_processed"`
	IncidentsTriaged    int64 `json:"incidents_triaged"`
	IncidentsCorrelated int64 `json:"incidents_correlated"`
	LLMCalls            int64 `json:"llm_calls"`
	LLMErrors           int64 `json:"llm_errors"`
	PolicyOverrides     int64 `json:"policy_overrides"`
	HumanReviewRequired int64 `json:"human_review_required"`
	TicketUpdates       int64 `json:"ticket_updates"`
	TicketErrors        int64 `json:"ticket_errors"`
	ChatPosts           int64 `json:"chat_posts"`
	ChatErrors          int64 `json:"chat_errors"`
}

// Snapshot returns the current value of every counter.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		WebhooksReceived:    c.WebhooksReceived.Load(),
		WebhooksRejected:    c.WebhooksRejected.Load(),
		WebhooksProcessed:   c.WebhooksProcessed.Load(),
		IncidentsTriaged:    c.IncidentsTriaged.Load(),
		IncidentsCorrelated: c.IncidentsCorrelated.Load(),
		LLMCalls:            c.LLMCalls.Load(),
		LLMErrors:           c.LLMErrors.Load(),
		PolicyOverrides:     c.PolicyOverrides.Load(),
		HumanReviewRequired: c.HumanReviewRequired.Load(),
		TicketUpdates:       c.TicketUpdates.Load(),
		TicketErrors:        c.TicketErrors.Load(),
		ChatPosts:           c.ChatPosts.Load(),
		ChatErrors:          c.ChatErrors.Load(),
	}
}
