package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

type fakeStore struct {
	events []domain.AuditEvent
}

func (f *fakeStore) InsertAuditEvent(_ context.Context, ev domain.AuditEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeStore) RecentAuditEvents(_ context.Context, limit int) ([]domain.AuditEvent, error) {
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeStore) EventsByExternalKey(_ context.Context, externalKey string) ([]domain.AuditEvent, error) {
	var out []domain.AuditEvent
	for _, ev := range f.events {
		if ev.ExternalKey == externalKey {
			out = append(out, ev)
		}
	}
	return out, nil
}

func TestLog_WritesToStoreAndJSONL(t *testing.T) {
	store := &fakeStore{}
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := New(store, path, false)
	require.NoError(t, err)

	l.LogWebhookReceived(context.Background(), "INC-1", map[string]any{"source": "jira"})

	require.Len(t, store.events, 1)
	require.Equal(t, "INC-1", store.events[0].ExternalKey)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded domain.AuditEvent
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &decoded))
	require.Equal(t, domain.EventWebhook, decoded.EventType)
}

func TestLogCorrelation_StatusReflectsMatch(t *testing.T) {
	store := &fakeStore{}
	l, err := New(store, filepath.Join(t.TempDir(), "audit.jsonl"), false)
	require.NoError(t, err)

	l.LogCorrelation(context.Background(), "INC-2", "auth", "")
	require.Equal(t, domain.AuditStatusNoMatch, store.events[0].Status)

	l.LogCorrelation(context.Background(), "INC-3", "auth", "INC-2")
	require.Equal(t, domain.AuditStatusSuccess, store.events[1].Status)
}

func TestLogDryRunAction_MergesDetails(t *testing.T) {
	store := &fakeStore{}
	l, err := New(store, filepath.Join(t.TempDir(), "audit.jsonl"), true)
	require.NoError(t, err)

	ev := l.LogDryRunAction(context.Background(), "INC-4", "update_severity", "jira", map[string]any{"severity": "P1"})
	require.Equal(t, domain.AuditStatusSkipped, ev.Status)
	require.Equal(t, "jira", ev.Details["target"])
	require.Equal(t, "P1", ev.Details["severity"])
	require.True(t, ev.DryRun)
}

func TestLog_NilStoreDoesNotPanic(t *testing.T) {
	l, err := New(nil, "", false)
	require.NoError(t, err)
	require.NotPanics(t, func() {
		l.Log(context.Background(), domain.EventWebhook, "received", domain.AuditStatusSuccess)
	})
}
