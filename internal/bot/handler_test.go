package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/avalon-py/new-avalonfi/internal/core"
	"github.com/avalon-py/new-avalonfi/internal/parse"
	"github.com/avalon-py/new-avalonfi/internal/telegram"
	"github.com/avalon-py/new-avalonfi/internal/token"
)

type fakeStore struct {
	txs     map[string]core.Transaction
	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{txs: map[string]core.Transaction{}}
}

func (s *fakeStore) Upsert(_ context.Context, tx core.Transaction) error {
	s.txs[tx.ID] = tx
	s.upserts++
	return nil
}

func (s *fakeStore) ListByUser(_ context.Context, userID int64) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByUserBetween(_ context.Context, userID int64, start, end time.Time) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.UserID == userID && !tx.CreatedAt.Before(start) && tx.CreatedAt.Before(end) {
			out = append(out, tx)
		}
	}
	return out, nil
}

type fakeSender struct {
	messages []string
}

func (s *fakeSender) SendMessage(_ context.Context, _ int64, text string, _ ...telegram.SendOption) error {
	s.messages = append(s.messages, text)
	return nil
}

func (s *fakeSender) last(t *testing.T) string {
	t.Helper()
	if len(s.messages) == 0 {
		t.Fatal("no message sent")
	}
	return s.messages[len(s.messages)-1]
}

func update(updateID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		Message: &telegram.Message{
			From: &telegram.User{ID: 7, Username: "alice"},
			Chat: telegram.Chat{ID: 100},
			Text: text,
		},
	}
}

func newTestHandler(store *fakeStore, sender *fakeSender) *Handler {
	h := NewHandler(store, sender, parse.New(parse.DefaultVocabulary()),
		token.NewSigner("secret", time.Hour), "https://avalonfi.example.com")
	h.now = func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }
	return h
}

func TestRecordTransaction(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	h := newTestHandler(store, sender)

	if err := h.HandleUpdate(context.Background(), update(42, "10k food - sushi")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	tx, ok := store.txs["tg:42"]
	if !ok {
		t.Fatal("transaction not stored under idempotency key tg:42")
	}
	if tx.Type != core.Expense || tx.Amount.Cents != 10000 || tx.Category != "Food & Dining" || tx.Description != "sushi" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.UserID != 7 || tx.Username != "alice" {
		t.Fatalf("owner not captured: %+v", tx)
	}

	reply := sender.last(t)
	if !strings.Contains(reply, "Saved") || !strings.Contains(reply, "10,000") {
		t.Fatalf("unexpected confirmation: %q", reply)
	}
}

func TestRedeliveredUpdateDoesNotDuplicate(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store, &fakeSender{})
	ctx := context.Background()

	if err := h.HandleUpdate(ctx, update(42, "10k food")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := h.HandleUpdate(ctx, update(42, "10k food")); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if len(store.txs) != 1 {
		t.Fatalf("got %d stored transactions, want 1", len(store.txs))
	}
}

func TestParseFailureAsksToResend(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	h := newTestHandler(store, sender)

	if err := h.HandleUpdate(context.Background(), update(1, "what did I spend")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.txs) != 0 {
		t.Fatal("nothing should be stored on parse failure")
	}
	if !strings.Contains(sender.last(t), "Format invalid") {
		t.Fatalf("expected format help, got %q", sender.last(t))
	}
}

func TestDayCommand(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	h := newTestHandler(store, sender)
	ctx := context.Background()

	if err := h.HandleUpdate(ctx, update(1, "10k food")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := h.HandleUpdate(ctx, update(2, "+500k salary")); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := h.HandleUpdate(ctx, update(3, "/day")); err != nil {
		t.Fatalf("command: %v", err)
	}
	reply := sender.last(t)
	for _, want := range []string{"Today", "Income: Rp500,000", "Expense: Rp10,000", "Net: Rp490,000"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("reply %q missing %q", reply, want)
		}
	}
}

func TestDayCommandEmpty(t *testing.T) {
	sender := &fakeSender{}
	h := newTestHandler(newFakeStore(), sender)

	if err := h.HandleUpdate(context.Background(), update(1, "/day")); err != nil {
		t.Fatalf("command: %v", err)
	}
	if !strings.Contains(sender.last(t), "No transactions today") {
		t.Fatalf("unexpected reply: %q", sender.last(t))
	}
}

func TestWebCommandSendsVerifiableToken(t *testing.T) {
	sender := &fakeSender{}
	store := newFakeStore()
	signer := token.NewSigner("secret", time.Hour)
	h := NewHandler(store, sender, parse.New(parse.DefaultVocabulary()), signer, "https://avalonfi.example.com/")

	if err := h.HandleUpdate(context.Background(), update(1, "/web")); err != nil {
		t.Fatalf("command: %v", err)
	}

	reply := sender.last(t)
	const marker = "?token="
	i := strings.Index(reply, marker)
	if i < 0 {
		t.Fatalf("no token in reply %q", reply)
	}
	claims, err := signer.Verify(reply[i+len(marker):])
	if err != nil {
		t.Fatalf("token from /web does not verify: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if strings.Contains(reply, ".com//") {
		t.Fatal("base URL trailing slash not normalized")
	}
}

func TestUnknownCommand(t *testing.T) {
	sender := &fakeSender{}
	h := newTestHandler(newFakeStore(), sender)
	if err := h.HandleUpdate(context.Background(), update(1, "/export")); err != nil {
		t.Fatalf("command: %v", err)
	}
	if !strings.Contains(sender.last(t), "Unknown command") {
		t.Fatalf("unexpected reply: %q", sender.last(t))
	}
}

func TestWriteHookAndMirrorInvoked(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store, &fakeSender{})

	var hooked int64
	h.SetWriteHook(func(userID int64) { hooked = userID })
	mirror := &fakeMirror{}
	h.SetMirror(mirror)

	if err := h.HandleUpdate(context.Background(), update(9, "5k transport")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if hooked != 7 {
		t.Fatalf("write hook got user %d, want 7", hooked)
	}
	if len(mirror.published) != 1 || mirror.published[0] != "tg:9" {
		t.Fatalf("mirror publishes = %v", mirror.published)
	}
}

type fakeMirror struct {
	published []string
}

func (m *fakeMirror) PublishTxSync(_ context.Context, id string) error {
	m.published = append(m.published, id)
	return nil
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{10000, "10,000"},
		{1500000, "1,500,000"},
		{-490000, "-490,000"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.in); got != tt.want {
			t.Errorf("formatAmount(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
