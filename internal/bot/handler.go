// Package bot handles inbound Telegram updates: slash commands for quick
// stats and shorthand messages that record transactions.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avalon-py/new-avalonfi/internal/core"
	applog "github.com/avalon-py/new-avalonfi/internal/log"
	"github.com/avalon-py/new-avalonfi/internal/parse"
	"github.com/avalon-py/new-avalonfi/internal/telegram"
	"github.com/avalon-py/new-avalonfi/internal/token"
)

const helpReply = "Format invalid 😵\nExample:\n- 10k food - sushi"

// Store is the persistence surface the bot needs.
type Store interface {
	Upsert(ctx context.Context, tx core.Transaction) error
	ListByUser(ctx context.Context, userID int64) ([]core.Transaction, error)
	ListByUserBetween(ctx context.Context, userID int64, start, end time.Time) ([]core.Transaction, error)
}

// MirrorPublisher queues a saved transaction for the async sheet mirror.
type MirrorPublisher interface {
	PublishTxSync(ctx context.Context, id string) error
}

// Handler routes one Telegram update to the right action.
type Handler struct {
	store        Store
	sender       telegram.Sender
	parser       *parse.Parser
	signer       *token.Signer
	dashboardURL string

	mirror  MirrorPublisher // nil when the mirror pipeline is disabled
	onWrite func(userID int64)
	now     func() time.Time
}

func NewHandler(store Store, sender telegram.Sender, parser *parse.Parser, signer *token.Signer, dashboardURL string) *Handler {
	return &Handler{
		store:        store,
		sender:       sender,
		parser:       parser,
		signer:       signer,
		dashboardURL: strings.TrimRight(dashboardURL, "/"),
		now:          time.Now,
	}
}

// SetMirror enables async mirroring of saved transactions.
func (h *Handler) SetMirror(m MirrorPublisher) {
	h.mirror = m
}

// SetWriteHook registers a callback invoked after every successful write,
// used to invalidate per-user caches.
func (h *Handler) SetWriteHook(fn func(userID int64)) {
	h.onWrite = fn
}

// HandleUpdate processes a single webhook update. Updates without a text
// message are acknowledged silently.
func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return nil
	}

	chatID := update.Message.Chat.ID
	user := update.Message.From

	if strings.HasPrefix(text, "/") {
		return h.handleCommand(ctx, strings.Fields(text)[0], user, chatID)
	}
	return h.recordTransaction(ctx, update.UpdateID, text, user, chatID)
}

func (h *Handler) handleCommand(ctx context.Context, command string, user *telegram.User, chatID int64) error {
	switch command {
	case "/day":
		start := utcDayStart(h.now())
		return h.sendWindowStats(ctx, user.ID, chatID, "📅 Today", start, start.AddDate(0, 0, 1), "No transactions today 💤")
	case "/month":
		start := utcMonthStart(h.now())
		return h.sendWindowStats(ctx, user.ID, chatID, "📆 This Month", start, start.AddDate(0, 1, 0), "No transactions yet 💤")
	case "/hist":
		txs, err := h.store.ListByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		return h.sendStatsReply(ctx, chatID, "📊 All Time", txs, "No transactions yet 💤")
	case "/web":
		return h.sendDashboardLink(ctx, user, chatID)
	default:
		return h.sender.SendMessage(ctx, chatID, "Unknown command 🤔")
	}
}

func (h *Handler) sendWindowStats(ctx context.Context, userID, chatID int64, title string, start, end time.Time, emptyReply string) error {
	txs, err := h.store.ListByUserBetween(ctx, userID, start, end)
	if err != nil {
		return fmt.Errorf("load window transactions: %w", err)
	}
	return h.sendStatsReply(ctx, chatID, title, txs, emptyReply)
}

func (h *Handler) sendStatsReply(ctx context.Context, chatID int64, title string, txs []core.Transaction, emptyReply string) error {
	if len(txs) == 0 {
		return h.sender.SendMessage(ctx, chatID, title+"\n"+emptyReply)
	}

	var income, expense int64
	for _, tx := range txs {
		if tx.Type == core.Income {
			income += tx.Amount.Cents
		} else {
			expense += tx.Amount.Cents
		}
	}

	reply := fmt.Sprintf("%s\n• Income: Rp%s\n• Expense: Rp%s\n• Net: Rp%s",
		"*"+title+"*", formatAmount(income), formatAmount(expense), formatAmount(income-expense))
	return h.sender.SendMessage(ctx, chatID, reply, telegram.WithMarkdown())
}

func (h *Handler) sendDashboardLink(ctx context.Context, user *telegram.User, chatID int64) error {
	session, err := h.signer.Issue(user.ID, user.Username)
	if err != nil {
		return fmt.Errorf("issue dashboard token: %w", err)
	}
	return h.sender.SendMessage(ctx, chatID,
		fmt.Sprintf("🌐 Open dashboard:\n%s/?token=%s", h.dashboardURL, session))
}

func (h *Handler) recordTransaction(ctx context.Context, updateID int64, text string, user *telegram.User, chatID int64) error {
	draft, ok := h.parser.Parse(text)
	if !ok {
		return h.sender.SendMessage(ctx, chatID, helpReply)
	}

	tx := core.Transaction{
		// The update ID makes redelivered updates idempotent: retries hit
		// the same row instead of minting a duplicate.
		ID:          fmt.Sprintf("tg:%d", updateID),
		UserID:      user.ID,
		Username:    user.Username,
		Type:        draft.Type,
		Amount:      draft.Amount,
		Category:    draft.Category,
		Description: draft.Description,
		CreatedAt:   h.now(),
	}

	if err := h.store.Upsert(ctx, tx); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	if h.mirror != nil {
		if err := h.mirror.PublishTxSync(ctx, tx.ID); err != nil {
			// The row is saved; the mirror catches up on its resync pass.
			slog.ErrorContext(ctx, "Failed to publish mirror message",
				applog.FieldTxID, tx.ID, applog.FieldError, err)
		}
	}
	if h.onWrite != nil {
		h.onWrite(user.ID)
	}

	return h.sender.SendMessage(ctx, chatID,
		fmt.Sprintf("Saved ✅\n%s: %s", tx.Category, formatAmount(tx.Amount.Cents)))
}

func utcDayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func utcMonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// formatAmount renders minor units with thousands separators ("1,500,000").
func formatAmount(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	digits := fmt.Sprintf("%d", cents)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte(',')
		}
	}
	return b.String()
}
