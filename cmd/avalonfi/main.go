package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/avalon-py/new-avalonfi/internal/amqp"
	"github.com/avalon-py/new-avalonfi/internal/bot"
	"github.com/avalon-py/new-avalonfi/internal/config"
	apphttp "github.com/avalon-py/new-avalonfi/internal/http"
	"github.com/avalon-py/new-avalonfi/internal/insight"
	applog "github.com/avalon-py/new-avalonfi/internal/log"
	"github.com/avalon-py/new-avalonfi/internal/parse"
	"github.com/avalon-py/new-avalonfi/internal/storage"
	"github.com/avalon-py/new-avalonfi/internal/telegram"
	"github.com/avalon-py/new-avalonfi/internal/token"
)

func main() {
	// Load .env for local development; in production env vars come from the
	// runtime.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentApp})
	applog.SetDefault(logger)

	logger.Info("Starting avalonfi")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	parser := parse.New(parse.DefaultVocabulary())
	signer := token.NewSigner(cfg.WebSharedSecret, cfg.TokenTTL)
	sender := telegram.NewClient(cfg.BotToken)

	botHandler := bot.NewHandler(repo, sender, parser, signer, cfg.DashboardBaseURL)

	// Insights: Gemini when configured, template prose otherwise.
	var generator insight.Generator = insight.NewTemplateGenerator()
	if cfg.GeminiAPIKey != "" {
		generator = insight.WithFallback{
			Primary:  insight.NewGeminiGenerator(cfg.GeminiAPIKey, cfg.GeminiModel),
			Fallback: insight.NewTemplateGenerator(),
		}
	}

	srv := apphttp.NewServer(cfg.Port, repo, botHandler, signer, parser.Vocabulary(), generator, cfg.WebhookSecret)
	botHandler.SetWriteHook(srv.InvalidateUser)

	// Mirror pipeline is optional: without an AMQP URL transactions only
	// live in SQLite.
	if cfg.AMQPURL != "" {
		mirrorQueue, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer mirrorQueue.Close()
		botHandler.SetMirror(mirrorQueue)
		srv.SetMirror(mirrorQueue)
		logger.Info("Mirror pipeline enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
