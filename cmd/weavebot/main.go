package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/communityweave/weavebot/airtable"
	"github.com/communityweave/weavebot/bot"
	"github.com/communityweave/weavebot/config"
	"github.com/communityweave/weavebot/llm"
	"github.com/communityweave/weavebot/ops"
	"github.com/communityweave/weavebot/pipeline"
	"github.com/communityweave/weavebot/renderer"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	if err := godotenv.Load(); err != nil {
		// A missing .env is fine in containerized deployments.
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	if cfg.Telegram.Token == "" || cfg.Airtable.APIKey == "" || cfg.Airtable.BaseID == "" || cfg.LLM.APIKey == "" {
		slog.Error("missing one or more required environment variables",
			"need", "TELEGRAM_BOT_TOKEN, AIRTABLE_API_KEY, AIRTABLE_BASE_ID, OPENAI_API_KEY")
		os.Exit(1)
	}

	slog.Info("weavebot starting",
		"headless", cfg.Browser.Headless,
		"llmModel", cfg.LLM.Model,
		"digestSchedule", cfg.Digest.Schedule,
	)

	// ── 3. Assemble the pipeline ────────────────────────────────────
	rend := renderer.New(cfg.Browser, cfg.Renderer)
	extractor := llm.NewClient(nil, cfg.LLM)
	pl := pipeline.New(rend, extractor)

	store := airtable.NewClient(nil, cfg.Airtable)

	// ── 4. Telegram bot ─────────────────────────────────────────────
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		slog.Error("failed to connect to Telegram", "error", err)
		os.Exit(1)
	}

	counters := &ops.Counters{}
	b := bot.New(api, pl, store, counters)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 5. Weekly digest scheduler ─────────────────────────────────
	var scheduler *cron.Cron
	if cfg.Digest.Schedule != "" && cfg.Telegram.ChatID != 0 {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.Digest.Schedule, func() {
			slog.Info("scheduled digest firing", "chatID", cfg.Telegram.ChatID)
			b.SendDigest(ctx, cfg.Telegram.ChatID)
		}); err != nil {
			slog.Error("invalid digest schedule", "schedule", cfg.Digest.Schedule, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		slog.Info("digest scheduler started", "schedule", cfg.Digest.Schedule)
	}

	// ── 6. Ops endpoint ─────────────────────────────────────────────
	var opsSrv *http.Server
	if cfg.Ops.Enabled {
		opsSrv = &http.Server{
			Addr:    cfg.Ops.Addr,
			Handler: ops.NewServer(counters, time.Now()).Handler(),
		}
		go func() {
			slog.Info("ops endpoint listening", "addr", cfg.Ops.Addr)
			if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("ops server error", "error", err)
			}
		}()
	}

	// ── 7. Run until signalled ──────────────────────────────────────
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	b.Run(ctx)

	// ── 8. Graceful shutdown ────────────────────────────────────────
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if opsSrv != nil {
		_ = opsSrv.Close()
	}
	slog.Info("weavebot stopped")
}

func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
