package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/avalon-py/new-avalonfi/internal/core"
	applog "github.com/avalon-py/new-avalonfi/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists transactions in a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Upsert writes a transaction keyed by its ID. The ID doubles as the
// idempotency key for chat updates: redelivery of the same update rewrites
// the same row instead of creating a duplicate.
func (r *SQLiteRepository) Upsert(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, username, type, amount_cents, category, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			amount_cents = excluded.amount_cents,
			category = excluded.category,
			description = excluded.description`,
		tx.ID, tx.UserID, tx.Username, string(tx.Type), tx.Amount.Cents,
		tx.Category, tx.Description, formatTime(tx.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		applog.FieldTxID, tx.ID,
		applog.FieldUserID, tx.UserID,
		applog.FieldTxType, string(tx.Type),
		applog.FieldAmountCents, tx.Amount.Cents,
		applog.FieldCategory, tx.Category)
	return nil
}

// Get returns a single transaction by ID, or core.ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, username, type, amount_cents, category, description, created_at, updated_at
		FROM transactions WHERE id = ?`, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

// ListByUser returns all of one user's transactions, newest first.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, username, type, amount_cents, category, description, created_at, updated_at
		FROM transactions WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// ListByUserBetween returns the user's transactions with created_at in
// [start, end), newest first. Used by the bot's /day and /month commands.
func (r *SQLiteRepository) ListByUserBetween(ctx context.Context, userID int64, start, end time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, username, type, amount_cents, category, description, created_at, updated_at
		FROM transactions
		WHERE user_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at DESC`,
		userID, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("list transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// ListSince returns every transaction created or edited at or after the
// given time, oldest first. The sync worker uses it to catch up after
// downtime.
func (r *SQLiteRepository) ListSince(ctx context.Context, since time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, username, type, amount_cents, category, description, created_at, updated_at
		FROM transactions
		WHERE created_at >= ? OR updated_at >= ?
		ORDER BY created_at ASC`,
		formatTime(since), formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("list transactions since %s: %w", formatTime(since), err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// UpdateDraftFields edits the mutable portion of a transaction: amount,
// category and description. Type and ownership never change.
func (r *SQLiteRepository) UpdateDraftFields(ctx context.Context, id string, amount core.Money, category, description string, updatedAt time.Time) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	if len(description) > core.MaxDescriptionLen {
		return core.ErrDescriptionSize
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount_cents = ?, category = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		amount.Cents, category, description, formatTime(updatedAt), id)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Delete removes a transaction by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx        core.Transaction
		kind      string
		createdAt string
		updatedAt sql.NullString
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Username, &kind, &tx.Amount.Cents,
		&tx.Category, &tx.Description, &createdAt, &updatedAt)
	if err != nil {
		return core.Transaction{}, err
	}

	tx.Type = core.TxType(kind)
	tx.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at: %w", err)
	}
	if updatedAt.Valid {
		t, err := parseTime(updatedAt.String)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("parse updated_at: %w", err)
		}
		tx.UpdatedAt = &t
	}
	return tx, nil
}

// Timestamps are stored as fixed-width RFC 3339 UTC strings so lexicographic
// ordering in SQL matches chronological ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
