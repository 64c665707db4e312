package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avalon-py/new-avalonfi/internal/core"
	"github.com/avalon-py/new-avalonfi/internal/insight"
	"github.com/avalon-py/new-avalonfi/internal/parse"
	"github.com/avalon-py/new-avalonfi/internal/telegram"
	"github.com/avalon-py/new-avalonfi/internal/token"
)

type fakeStore struct {
	txs map[string]core.Transaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{txs: make(map[string]core.Transaction)}
}

func (f *fakeStore) Get(_ context.Context, id string) (core.Transaction, error) {
	tx, ok := f.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID int64) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateDraftFields(_ context.Context, id string, amount core.Money, category, description string, updatedAt time.Time) error {
	tx, ok := f.txs[id]
	if !ok {
		return core.ErrNotFound
	}
	tx.Amount = amount
	tx.Category = category
	tx.Description = description
	tx.UpdatedAt = &updatedAt
	f.txs[id] = tx
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.txs[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.txs, id)
	return nil
}

type fakeBot struct {
	updates []telegram.Update
}

func (f *fakeBot) HandleUpdate(_ context.Context, update telegram.Update) error {
	f.updates = append(f.updates, update)
	return nil
}

func newTestServer(t *testing.T, store *fakeStore) (*Server, *fakeBot, string) {
	t.Helper()
	bot := &fakeBot{}
	signer := token.NewSigner("test-secret", time.Hour)
	srv := NewServer("8081", store, bot, signer, parse.DefaultVocabulary(),
		insight.NewTemplateGenerator(), "hook-secret")

	tok, err := signer.Issue(7, "alice")
	require.NoError(t, err)
	return srv, bot, tok
}

func seedTx(store *fakeStore, id string, userID int64, cents int64, category string) {
	store.txs[id] = core.Transaction{
		ID:        id,
		UserID:    userID,
		Username:  "alice",
		Type:      core.Expense,
		Amount:    core.Money{Cents: cents},
		Category:  category,
		CreatedAt: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
	}
}

func doRequest(srv *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, newFakeStore())
	rec := doRequest(srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestWebhookSecretMismatch(t *testing.T) {
	srv, bot, _ := newTestServer(t, newFakeStore())
	body := []byte(`{"update_id":1}`)

	rec := doRequest(srv, http.MethodPost, "/webhook/telegram/wrong-secret", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, bot.updates)
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	srv, bot, _ := newTestServer(t, newFakeStore())
	update := telegram.Update{
		UpdateID: 42,
		Message: &telegram.Message{
			From: &telegram.User{ID: 7, Username: "alice"},
			Chat: telegram.Chat{ID: 7},
			Text: "10k food - sushi",
		},
	}
	body, err := json.Marshal(update)
	require.NoError(t, err)

	rec := doRequest(srv, http.MethodPost, "/webhook/telegram/hook-secret", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, bot.updates, 1)
	assert.Equal(t, int64(42), bot.updates[0].UpdateID)
}

func TestVerify(t *testing.T) {
	srv, _, tok := newTestServer(t, newFakeStore())

	rec := doRequest(srv, http.MethodGet, "/api/verify?token="+tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "alice", resp.Username)
}

func TestVerifyRejectsBadToken(t *testing.T) {
	srv, _, _ := newTestServer(t, newFakeStore())

	rec := doRequest(srv, http.MethodGet, "/api/verify?token=garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/verify", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListTransactionsWithRollups(t *testing.T) {
	store := newFakeStore()
	seedTx(store, "tg:1", 7, 10_000, "Food & Dining")
	seedTx(store, "tg:2", 7, 5_000, "Transportation")
	seedTx(store, "tg:3", 99, 77_000, "Shopping") // other user, must not leak
	srv, _, tok := newTestServer(t, store)

	rec := doRequest(srv, http.MethodGet, "/api/transactions?token="+tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload dashboardPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Transactions, 2)
	assert.Len(t, payload.Daily, 30)
	assert.Len(t, payload.Monthly, 12)
	assert.Len(t, payload.Categories, 2)
}

func TestListTransactionsServesCacheUntilInvalidated(t *testing.T) {
	store := newFakeStore()
	seedTx(store, "tg:1", 7, 10_000, "Food & Dining")
	srv, _, tok := newTestServer(t, store)

	rec := doRequest(srv, http.MethodGet, "/api/transactions?token="+tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// A write that bypasses the server is invisible until invalidation.
	seedTx(store, "tg:2", 7, 5_000, "Shopping")
	rec = doRequest(srv, http.MethodGet, "/api/transactions?token="+tok, nil)
	var payload dashboardPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Transactions, 1)

	srv.InvalidateUser(7)
	rec = doRequest(srv, http.MethodGet, "/api/transactions?token="+tok, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Transactions, 2)
}

func TestUpdateTransaction(t *testing.T) {
	store := newFakeStore()
	seedTx(store, "tg:1", 7, 10_000, "Food & Dining")
	srv, _, tok := newTestServer(t, store)

	body := []byte(`{"amount_cents": 12000, "category": "groceries", "description": "weekly shop"}`)
	rec := doRequest(srv, http.MethodPut, "/api/transactions/tg:1?token="+tok, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, int64(12_000), updated.Amount.Cents)
	// Category goes through the normalizer, not stored raw.
	assert.Equal(t, "Food & Dining", updated.Category)
	assert.Equal(t, "weekly shop", updated.Description)
	require.NotNil(t, updated.UpdatedAt)
}

func TestUpdateTransactionErrors(t *testing.T) {
	store := newFakeStore()
	seedTx(store, "tg:1", 99, 10_000, "Food & Dining")
	srv, _, tok := newTestServer(t, store)

	body := []byte(`{"amount_cents": 12000, "category": "food"}`)

	rec := doRequest(srv, http.MethodPut, "/api/transactions/missing?token="+tok, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(srv, http.MethodPut, "/api/transactions/tg:1?token="+tok, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(srv, http.MethodPut, "/api/transactions/tg:1?token="+tok, []byte(`{"amount_cents": 0}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	long := fmt.Sprintf(`{"amount_cents": 100, "category": "food", "description": %q}`,
		strings.Repeat("x", core.MaxDescriptionLen+1))
	rec = doRequest(srv, http.MethodPut, "/api/transactions/tg:1?token="+tok, []byte(long))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTransaction(t *testing.T) {
	store := newFakeStore()
	seedTx(store, "tg:1", 7, 10_000, "Food & Dining")
	seedTx(store, "tg:2", 99, 5_000, "Shopping")
	srv, _, tok := newTestServer(t, store)

	rec := doRequest(srv, http.MethodDelete, "/api/transactions/tg:1?token="+tok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok := store.txs["tg:1"]
	assert.False(t, ok)

	rec = doRequest(srv, http.MethodDelete, "/api/transactions/tg:1?token="+tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(srv, http.MethodDelete, "/api/transactions/tg:2?token="+tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInsights(t *testing.T) {
	store := newFakeStore()
	seedTx(store, "tg:1", 7, 250_000, "Food & Dining")
	srv, _, tok := newTestServer(t, store)

	rec := doRequest(srv, http.MethodPost, "/api/insights?token="+tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["insight"])
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stopCleanup()

	for i := 0; i < rateLimitPerMinute; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
	assert.False(t, rl.allow("10.0.0.1"), "expected limit after burst")
	assert.True(t, rl.allow("10.0.0.2"), "other clients unaffected")
}

func TestRequestIDHeader(t *testing.T) {
	srv, _, _ := newTestServer(t, newFakeStore())
	rec := doRequest(srv, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}

func TestStatsKeyIsPerUser(t *testing.T) {
	keys := map[string]bool{}
	for _, id := range []int64{1, 2, 10, 21} {
		keys[statsKey(id)] = true
	}
	assert.Len(t, keys, 4)
	assert.True(t, strings.HasPrefix(statsKey(1), "stats:"), fmt.Sprintf("got %s", statsKey(1)))
}
