// Voicedesk is a voice-first personal assistant daemon that interprets
// transcribed speech into structured commands and records each interaction
// per user.
//
// Usage:
//
//	voicedesk [flags]
//	voicedesk --config /path/to/voicedesk.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voicedesk/voicedesk/internal/answer"
	localbackend "github.com/voicedesk/voicedesk/internal/answer/local"
	openaibackend "github.com/voicedesk/voicedesk/internal/answer/openai"
	"github.com/voicedesk/voicedesk/internal/assistant"
	"github.com/voicedesk/voicedesk/internal/config"
	"github.com/voicedesk/voicedesk/internal/health"
	"github.com/voicedesk/voicedesk/internal/mail"
	"github.com/voicedesk/voicedesk/internal/store"
	httptransport "github.com/voicedesk/voicedesk/internal/transport/http"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/voicedesk.local.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("voicedesk %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("voicedesk starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Open the flat-file tables.
	prompts, err := store.OpenPrompts(cfg.Storage.PromptsPath())
	if err != nil {
		slog.Error("failed to open prompt table", "error", err)
		os.Exit(1)
	}
	accounts, err := store.OpenAccounts(cfg.Storage.AccountsPath())
	if err != nil {
		slog.Error("failed to open account table", "error", err)
		os.Exit(1)
	}
	emailConfigs, err := store.OpenEmailConfigs(cfg.Storage.EmailConfigsPath())
	if err != nil {
		slog.Error("failed to open email config table", "error", err)
		os.Exit(1)
	}
	slog.Info("tables opened",
		"prompts", prompts.Len(),
		"accounts", accounts.Len(),
		"email_configs", emailConfigs.Len())

	// Initialize the answer backend.
	var answerer answer.Service
	switch cfg.Answer.Backend {
	case "openai":
		answerer = openaibackend.New(cfg.Answer.OpenAI)
		slog.Info("using OpenAI backend",
			"transcription_model", cfg.Answer.OpenAI.TranscriptionModel,
			"completion_model", cfg.Answer.OpenAI.CompletionModel)
	case "local":
		answerer = localbackend.New(cfg.Answer.Local)
		slog.Info("using local backend",
			"whisper", cfg.Answer.Local.WhisperEndpoint,
			"llm", cfg.Answer.Local.LLMEndpoint)
	default:
		slog.Error("unknown answer backend", "backend", cfg.Answer.Backend)
		os.Exit(1)
	}
	defer answerer.Close()

	// Wire the assistant.
	asst := assistant.New(assistant.Deps{
		Prompts:       prompts,
		Accounts:      accounts,
		EmailConfigs:  emailConfigs,
		Answerer:      answerer,
		Mailer:        mail.NewSMTP(),
		AnswerTimeout: time.Duration(cfg.Answer.TimeoutSeconds) * time.Second,
	})

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start the API server.
	api := httptransport.New(cfg.Server.Port, asst)
	errCh := make(chan error, 1)
	go func() {
		errCh <- api.Listen(ctx)
	}()

	healthServer.SetReady(true)
	slog.Info("voicedesk ready",
		"port", cfg.Server.Port,
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal or server failure.
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining...")
	case err := <-errCh:
		if err != nil {
			slog.Error("api server failed", "error", err)
		}
	}

	if err := api.Close(); err != nil {
		slog.Error("api server close error", "error", err)
	}
	slog.Info("voicedesk stopped")
}
