package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avalon-py/new-avalonfi/internal/core"
	applog "github.com/avalon-py/new-avalonfi/internal/log"
	"github.com/avalon-py/new-avalonfi/internal/stats"
	"github.com/avalon-py/new-avalonfi/internal/telegram"
	"github.com/avalon-py/new-avalonfi/internal/token"
)

// dashboardPayload is the full dashboard response: the raw transactions plus
// the precomputed rollups the charts are drawn from.
type dashboardPayload struct {
	Transactions []core.Transaction    `json:"transactions"`
	Daily        []core.DailyBucket    `json:"daily"`
	Monthly      []core.MonthlyBucket  `json:"monthly"`
	Categories   []core.CategoryBucket `json:"categories"`
}

type updateRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebhook receives Telegram updates. The secret path segment stands in
// for authentication: only Telegram knows the full URL.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.webhookSecret)) != 1 {
		http.NotFound(w, r)
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, http.StatusBadRequest, "malformed update")
		return
	}

	// Always acknowledge with 200 so Telegram does not retry forever; errors
	// are logged and the update is dropped.
	if err := s.bot.HandleUpdate(r.Context(), update); err != nil {
		slog.ErrorContext(r.Context(), "Webhook update failed", applog.FieldUpdateID, update.UpdateID, applog.FieldError, err)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	respondJSON(w, http.StatusOK, map[string]any{
		"id":       claims.UserID,
		"username": claims.Username,
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)

	if payload, ok := s.stats.Get(statsKey(claims.UserID)); ok {
		respondJSON(w, http.StatusOK, payload)
		return
	}

	txs, err := s.store.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions failed", applog.FieldUserID, claims.UserID, applog.FieldError, err)
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}

	now := s.now()
	payload := dashboardPayload{
		Transactions: txs,
		Daily:        stats.Daily(txs, now),
		Monthly:      stats.Monthly(txs, now),
		Categories:   stats.ByCategory(txs),
	}
	if payload.Transactions == nil {
		payload.Transactions = []core.Transaction{}
	}
	s.stats.Set(statsKey(claims.UserID), payload)
	respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed body")
		return
	}

	amount := core.Money{Cents: req.AmountCents}
	if err := amount.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if len(req.Description) > core.MaxDescriptionLen {
		respondError(w, http.StatusBadRequest, "description too long")
		return
	}

	tx, err := s.store.Get(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		respondError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if tx.UserID != claims.UserID {
		respondError(w, http.StatusForbidden, "not your transaction")
		return
	}

	category := s.vocab.Normalize(req.Category)
	if err := s.store.UpdateDraftFields(r.Context(), id, amount, category, req.Description, s.now()); err != nil {
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}

	s.afterWrite(r, claims.UserID, id, false)

	updated, err := s.store.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	id := chi.URLParam(r, "id")

	tx, err := s.store.Get(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		respondError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if tx.UserID != claims.UserID {
		respondError(w, http.StatusForbidden, "not your transaction")
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}

	s.afterWrite(r, claims.UserID, id, true)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)

	txs, err := s.store.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage error")
		return
	}

	summary := stats.Summarize(txs)
	text, err := s.insights.Generate(r.Context(), summary)
	if err != nil {
		slog.ErrorContext(r.Context(), "Insight generation failed", applog.FieldUserID, claims.UserID, applog.FieldError, err)
		respondError(w, http.StatusBadGateway, "insight generation failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"insight": text})
}

// afterWrite invalidates the stats cache and queues the mirror update.
// Mirror failures are logged only: the database row is already correct.
func (s *Server) afterWrite(r *http.Request, userID int64, id string, deleted bool) {
	s.InvalidateUser(userID)
	if s.mirror == nil {
		return
	}
	var err error
	if deleted {
		err = s.mirror.PublishTxDelete(r.Context(), id)
	} else {
		err = s.mirror.PublishTxSync(r.Context(), id)
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Mirror publish failed", applog.FieldTxID, id, applog.FieldError, err)
	}
}

func mustClaims(r *http.Request) token.Claims {
	claims, _ := r.Context().Value(claimsKey).(token.Claims)
	return claims
}
