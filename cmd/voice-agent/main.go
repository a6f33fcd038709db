package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/api"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/config"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/extract"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/gate"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/ingester"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/refdata"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/sheets"
	slackalert "github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/slack"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("voice-agent starting",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"sheet", cfg.SheetName,
		"nats_enabled", cfg.NatsURL != "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Connect the dedup registry (Postgres).
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	reg, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer reg.Close()
	slog.Info("database connected")

	// Step 2: Wire the log sink (Google Sheets).
	if cfg.SpreadsheetID == "" || cfg.SheetsToken == "" {
		slog.Error("SHEETS_SPREADSHEET_ID and SHEETS_API_TOKEN are required")
		os.Exit(1)
	}
	sink := sheets.NewAppender(cfg.SpreadsheetID, cfg.SheetName, cfg.SheetsToken, cfg.IncludeTranscript)

	// Step 3: Assemble the gate.
	g := gate.New(reg, sink, extract.New())

	// Conditionally create Slack alerter for sink-failure notifications.
	if cfg.SlackBotToken != "" && cfg.SlackAlertChannel != "" {
		alerter := slackalert.NewAlerter(cfg.SlackBotToken, cfg.SlackAlertChannel)
		g.SetAlertFunc(func(ctx context.Context, callID string, err error) {
			if postErr := alerter.PostSinkAlert(ctx, callID, err); postErr != nil {
				slog.Warn("failed to post sink alert to Slack", "error", postErr)
			}
		})
		slog.Info("Slack sink alerter enabled", "channel", cfg.SlackAlertChannel)
	}

	// Step 4: Optionally consume call events from NATS.
	var ing *ingester.Ingester
	if cfg.NatsURL != "" {
		ing, err = ingester.New(cfg.NatsURL, g)
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer ing.Close()

		if err := ing.Start(); err != nil {
			slog.Error("failed to start ingester", "error", err)
			os.Exit(1)
		}
		slog.Info("NATS ingester started")

		announcement, _ := json.Marshal(map[string]any{
			"event_type": "agent.registered",
			"source":     "voice-agent",
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"metadata":   map[string]any{"port": cfg.Port},
		})
		if err := ing.Publish("voice.system.agent.registered", announcement); err != nil {
			slog.Warn("failed to publish registration event", "error", err)
		}
	}

	// Step 5: Start the HTTP API.
	srv := api.NewServer(g, reg, refdata.NewLoader(cfg.DataDir), cfg.ChunkMaxTokens, cfg.Port)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("voice-agent ready", "port", cfg.Port)

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("shutting down", "signal", sig)
	cancel()
	slog.Info("voice-agent stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
