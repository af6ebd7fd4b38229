package correlate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

type fakeStore struct {
	records []domain.CorrelationRecord
}

func (f *fakeStore) FindCorrelated(_ context.Context, component string, _ time.Duration, excludeKey string) ([]domain.CorrelationRecord, error) {
	var out []domain.CorrelationRecord
	for _, r := range f.records {
		if r.Component == component && r.ExternalKey != excludeKey {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestSimilarity_IdenticalIsOne(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Payments API 500 errors", "payments api 500 errors"))
}

func TestSimilarity_DisjointIsNearZero(t *testing.T) {
	assert.Less(t, Similarity("abc", "xyz"), 0.2)
}

func TestCheck_UnknownComponentNeverCorrelates(t *testing.T) {
	c := New(&fakeStore{}, 30*time.Minute)
	ok, key, err := c.Check(context.Background(), domain.Incident{Component: "unknown"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, key)
}

// Scenario 6: two similar prod incidents on the same component correlate.
func TestCheck_SimilarTitlesCorrelate(t *testing.T) {
	store := &fakeStore{records: []domain.CorrelationRecord{
		{ExternalKey: "OPS-1", Component: "payments", Summary: "Payments API 500 errors"},
	}}
	c := New(store, 30*time.Minute)
	ok, key, err := c.Check(context.Background(), domain.Incident{
		ExternalKey: "OPS-2",
		Component:   "payments",
		Title:       "Payments API returning 500s",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "OPS-1", key)
}

// P5: correlator never returns the queried key.
func TestCheck_NeverReturnsSelf(t *testing.T) {
	store := &fakeStore{records: []domain.CorrelationRecord{
		{ExternalKey: "OPS-1", Component: "payments", Summary: "Payments API 500 errors"},
	}}
	c := New(store, 30*time.Minute)
	ok, key, err := c.Check(context.Background(), domain.Incident{
		ExternalKey: "OPS-1",
		Component:   "payments",
		Title:       "Payments API 500 errors",
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, key)
}

func TestCheck_DissimilarTitlesDoNotCorrelate(t *testing.T) {
	store := &fakeStore{records: []domain.CorrelationRecord{
		{ExternalKey: "OPS-1", Component: "payments", Summary: "Completely unrelated issue about emails"},
	}}
	c := New(store, 30*time.Minute)
	ok, _, err := c.Check(context.Background(), domain.Incident{
		ExternalKey: "OPS-2",
		Component:   "payments",
		Title:       "Payments API 500 errors",
	})
	require.NoError(t, err)
	assert.False(t, ok)
}
