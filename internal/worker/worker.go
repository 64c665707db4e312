// Package worker moves transactions from the local database into the
// spreadsheet mirror, driven by AMQP messages with a periodic catch-up pass.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/avalon-py/new-avalonfi/internal/amqp"
	"github.com/avalon-py/new-avalonfi/internal/core"
	"github.com/avalon-py/new-avalonfi/internal/sheets"
)

const maxMirrorRetries = 5

// Store is the read side of the transaction database the worker needs.
type Store interface {
	Get(ctx context.Context, id string) (core.Transaction, error)
	ListSince(ctx context.Context, since time.Time) ([]core.Transaction, error)
}

// SyncWorker applies mirror messages to the spreadsheet copy.
type SyncWorker struct {
	store  Store
	mirror sheets.Mirror
}

func NewSyncWorker(store Store, mirror sheets.Mirror) *SyncWorker {
	return &SyncWorker{store: store, mirror: mirror}
}

// Handle processes one mirror message. Sync messages load the current row
// from the database so the mirror always reflects the latest edit, not the
// payload that happened to be queued. A sync for a transaction that has since
// been deleted turns into a removal.
func (w *SyncWorker) Handle(ctx context.Context, msg *amqp.MirrorMessage) error {
	slog.InfoContext(ctx, "Processing mirror message", "kind", msg.Kind, "id", msg.ID)

	switch msg.Kind {
	case amqp.KindSync:
		tx, err := w.store.Get(ctx, msg.ID)
		if errors.Is(err, core.ErrNotFound) {
			slog.InfoContext(ctx, "Transaction deleted before sync, removing from mirror", "id", msg.ID)
			return w.retryMirror(ctx, func() error { return w.mirror.Remove(ctx, msg.ID) })
		}
		if err != nil {
			return fmt.Errorf("load transaction %s: %w", msg.ID, err)
		}
		if err := w.retryMirror(ctx, func() error { return w.mirror.Append(ctx, tx) }); err != nil {
			return fmt.Errorf("mirror transaction %s: %w", msg.ID, err)
		}
		return nil

	case amqp.KindDelete:
		if err := w.retryMirror(ctx, func() error { return w.mirror.Remove(ctx, msg.ID) }); err != nil {
			return fmt.Errorf("remove transaction %s from mirror: %w", msg.ID, err)
		}
		return nil

	default:
		return fmt.Errorf("unknown mirror message kind %q", msg.Kind)
	}
}

// Resync re-mirrors every transaction written since the given time. It covers
// messages lost while the worker or broker was down. Failures on individual
// rows are logged and skipped so one bad row cannot stall the rest.
func (w *SyncWorker) Resync(ctx context.Context, since time.Time) error {
	txs, err := w.store.ListSince(ctx, since)
	if err != nil {
		return fmt.Errorf("list transactions since %s: %w", since.Format(time.RFC3339), err)
	}
	if len(txs) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Resyncing transactions to mirror", "count", len(txs))
	var failed int
	for _, tx := range txs {
		if err := w.retryMirror(ctx, func() error { return w.mirror.Append(ctx, tx) }); err != nil {
			slog.ErrorContext(ctx, "Failed to resync transaction", "id", tx.ID, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("resync: %d of %d transactions failed", failed, len(txs))
	}
	return nil
}

func (w *SyncWorker) retryMirror(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxMirrorRetries), ctx)
	return backoff.Retry(op, policy)
}
