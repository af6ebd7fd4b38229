// Command autopilot runs the incident triage autopilot HTTP service.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/triage-autopilot/autopilot/pkg/api"
	"github.com/triage-autopilot/autopilot/pkg/audit"
	"github.com/triage-autopilot/autopilot/pkg/chat"
	"github.com/triage-autopilot/autopilot/pkg/config"
	"github.com/triage-autopilot/autopilot/pkg/correlate"
	"github.com/triage-autopilot/autopilot/pkg/llm"
	"github.com/triage-autopilot/autopilot/pkg/metrics"
	"github.com/triage-autopilot/autopilot/pkg/pipeline"
	"github.com/triage-autopilot/autopilot/pkg/pir"
	"github.com/triage-autopilot/autopilot/pkg/policy"
	"github.com/triage-autopilot/autopilot/pkg/ratelimit"
	"github.com/triage-autopilot/autopilot/pkg/runbook"
	"github.com/triage-autopilot/autopilot/pkg/store"
	"github.com/triage-autopilot/autopilot/pkg/ticketing"
	"github.com/triage-autopilot/autopilot/pkg/webui"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, continuing with existing environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := slog.Default().With("component", "main")
	logger.Info("starting triage autopilot", "http_port", cfg.HTTPPort, "dry_run", cfg.DryRun)

	ctx := context.Background()

	dbClient, err := store.NewClient(ctx, store.Config{Path: cfg.StorePath})
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logger.Error("error closing store", "error", err)
		}
	}()

	auditLogger, err := audit.New(dbClient, cfg.AuditLogPath, cfg.DryRun)
	if err != nil {
		log.Fatalf("failed to initialize audit logger: %v", err)
	}

	limiter := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	correlator := correlate.New(dbClient, cfg.CorrelationWindow)
	policyEngine := policy.NewEngine()

	catalog, err := runbook.LoadCatalog()
	if err != nil {
		log.Fatalf("failed to load runbook catalog: %v", err)
	}

	provider, err := llm.New(cfg)
	if err != nil {
		log.Fatalf("failed to construct LLM provider: %v", err)
	}
	mockProvider := llm.NewMock()

	var ticketer *ticketing.Client
	if cfg.TicketingBaseURL != "" {
		ticketer = ticketing.New(cfg.TicketingBaseURL, cfg.TicketingEmail, cfg.TicketingToken, cfg.DryRun, nil)
	}

	chatService := chat.NewService(chat.ServiceConfig{Token: cfg.ChatBotToken, Channel: cfg.ChatChannel})

	counters := metrics.New()

	pipelineCfg := pipeline.Config{
		Store:      dbClient,
		Audit:      auditLogger,
		Correlator: correlator,
		Policy:     policyEngine,
		Catalog:    catalog,
		Provider:   provider,
		Metrics:    counters,
		DryRun:     cfg.DryRun,
	}
	if ticketer != nil {
		pipelineCfg.Ticketer = ticketer
	}
	if chatService != nil {
		pipelineCfg.ChatFunc = func(ctx context.Context, result pipeline.Result) error {
			issueURL := ""
			if ticketer != nil {
				issueURL = ticketer.IssueURL(result.Incident.ExternalKey)
			}
			return chatService.NotifyTriage(ctx, chat.TriageNotification{
				ExternalKey:    result.Incident.ExternalKey,
				IssueURL:       issueURL,
				Incident:       result.Incident,
				Verdict:        result.Verdict,
				Policy:         result.Policy,
				Correlated:     result.Correlated,
				CorrelatedWith: result.CorrelatedWith,
			})
		}
	}
	p := pipeline.New(pipelineCfg)

	webuiService := webui.New(dbClient, auditLogger, policyEngine, catalog, provider, mockProvider)
	pirGen := pir.New(auditLogger)

	server := api.NewServer(cfg, limiter, p, webuiService, catalog, auditLogger, pirGen, counters)

	addr := ":" + cfg.HTTPPort
	logger.Info("listening", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(addr); err != nil {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	case sig := <-stop:
		logger.Info("received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}
