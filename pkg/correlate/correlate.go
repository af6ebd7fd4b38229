// Package correlate implements the time-windowed, same-component textual
// similarity correlation check.
package correlate

import (
	"context"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

const similarityThreshold = 0.60

// Store is the read dependency the correlator needs from the persistence
// layer. pkg/store satisfies it.
type Store interface {
	FindCorrelated(ctx context.Context, component string, window time.Duration, excludeKey string) ([]domain.CorrelationRecord, error)
}

// Correlator is read-only: it looks up prior incidents but never writes
// one. Recording the current incident for future correlation is a
// separate step the pipeline performs after the lookup.
type Correlator struct {
	store  Store
	window time.Duration
}

// New constructs a Correlator with the configured correlation window.
func New(store Store, window time.Duration) *Correlator {
	return &Correlator{store: store, window: window}
}

// Check returns whether incident correlates with a recently seen incident
// on the same component, and if so, that incident's external key.
func (c *Correlator) Check(ctx context.Context, incident domain.Incident) (bool, string, error) {
	if incident.Component == "unknown" {
		return false, "", nil
	}

	related, err := c.store.FindCorrelated(ctx, incident.Component, c.window, incident.ExternalKey)
	if err != nil {
		return false, "", err
	}

	for _, candidate := range related {
		if Similarity(incident.Title, candidate.Summary) >= similarityThreshold {
			return true, candidate.ExternalKey, nil
		}
	}
	return false, "", nil
}

// Similarity computes the longest-common-subsequence ratio
// 2*M/(|a|+|b|) between two strings' lowercased, trimmed forms, matching
// a standard diff-matcher ratio. Identical strings score 1.0; wholly
// disjoint strings score near 0.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	matcher := difflib.NewMatcher(toChars(a), toChars(b))
	return matcher.Ratio()
}

func toChars(s string) []string {
	runes := []rune(s)
	chars := make([]string, len(runes))
	for i, r := range runes {
		chars[i] = string(r)
	}
	return chars
}
