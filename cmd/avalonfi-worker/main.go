package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/avalon-py/new-avalonfi/internal/amqp"
	"github.com/avalon-py/new-avalonfi/internal/config"
	applog "github.com/avalon-py/new-avalonfi/internal/log"
	"github.com/avalon-py/new-avalonfi/internal/sheets"
	"github.com/avalon-py/new-avalonfi/internal/storage"
	"github.com/avalon-py/new-avalonfi/internal/worker"
)

// resyncLookback bounds how far back the periodic catch-up pass scans.
const resyncLookback = 24 * time.Hour

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting avalonfi-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if !cfg.MirrorEnabled() {
		logger.Error("Mirror pipeline disabled: AMQP_URL and GOOGLE_SPREADSHEET_ID are required")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mirror, err := sheets.NewClient(ctx, cfg.SpreadsheetID, cfg.SheetName)
	if err != nil {
		logger.Error("Failed to initialize sheets mirror", "error", err)
		os.Exit(1)
	}

	queue, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	syncWorker := worker.NewSyncWorker(repo, mirror)

	// Catch up on anything written while the worker was down.
	if err := syncWorker.Resync(ctx, time.Now().Add(-resyncLookback)); err != nil {
		logger.Error("Startup resync failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return queue.Consume(gctx, syncWorker.Handle)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := syncWorker.Resync(gctx, time.Now().Add(-resyncLookback)); err != nil {
					logger.Error("Periodic resync failed", "error", err)
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
