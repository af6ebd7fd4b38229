package chat

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token   string
	Channel string
}

// Service posts triage notifications to Slack.
// Nil-safe: all methods are no-ops when the service itself is nil.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService creates a new chat notification service.
// Returns nil if Token or Channel is empty, so the pipeline can treat
// "chat not configured" and "chat disabled" identically.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client: NewClient(cfg.Token, cfg.Channel),
		logger: slog.Default().With("component", "chat-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client) *Service {
	return &Service{client: client, logger: slog.Default().With("component", "chat-service")}
}

// NotifyTriage posts a triage result notification. Fail-open: errors are
// logged and returned so the caller can audit them, but never retried.
func (s *Service) NotifyTriage(ctx context.Context, n TriageNotification) error {
	if s == nil {
		return nil
	}

	blocks := BuildTriageMessage(n)
	if err := s.client.PostMessage(ctx, blocks, 10*time.Second); err != nil {
		s.logger.Error("failed to send chat notification",
			"external_key", n.ExternalKey, "severity", n.Policy.FinalSeverity, "error", err)
		return err
	}
	return nil
}
