// Package http exposes the bot webhook and the dashboard API.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avalon-py/new-avalonfi/internal/cache"
	"github.com/avalon-py/new-avalonfi/internal/core"
	"github.com/avalon-py/new-avalonfi/internal/insight"
	"github.com/avalon-py/new-avalonfi/internal/parse"
	"github.com/avalon-py/new-avalonfi/internal/telegram"
	"github.com/avalon-py/new-avalonfi/internal/token"
)

const (
	statsCacheSize = 256
	statsCacheTTL  = 2 * time.Minute
)

// Store is the persistence surface the API needs.
type Store interface {
	Get(ctx context.Context, id string) (core.Transaction, error)
	ListByUser(ctx context.Context, userID int64) ([]core.Transaction, error)
	UpdateDraftFields(ctx context.Context, id string, amount core.Money, category, description string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// UpdateHandler consumes one Telegram webhook update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update telegram.Update) error
}

// MirrorPublisher queues spreadsheet mirror work after API writes.
type MirrorPublisher interface {
	PublishTxSync(ctx context.Context, id string) error
	PublishTxDelete(ctx context.Context, id string) error
}

type Server struct {
	store         Store
	bot           UpdateHandler
	signer        *token.Signer
	vocab         parse.Vocabulary
	insights      insight.Generator
	webhookSecret string

	mirror      MirrorPublisher // nil when the mirror pipeline is disabled
	stats       *cache.TTLCache[dashboardPayload]
	limiter     *rateLimiter
	srv         *http.Server
	stopJanitor context.CancelFunc
	now         func() time.Time
}

func NewServer(port string, store Store, bot UpdateHandler, signer *token.Signer, vocab parse.Vocabulary, insights insight.Generator, webhookSecret string) *Server {
	s := &Server{
		store:         store,
		bot:           bot,
		signer:        signer,
		vocab:         vocab,
		insights:      insights,
		webhookSecret: webhookSecret,
		stats:         cache.New[dashboardPayload](statsCacheSize, statsCacheTTL),
		limiter:       newRateLimiter(),
		now:           time.Now,
	}

	janitorCtx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	s.stats.StartJanitor(janitorCtx, 5*time.Minute)

	s.srv = &http.Server{
		Addr:         ":" + port,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// SetMirror enables async mirroring of API writes.
func (s *Server) SetMirror(m MirrorPublisher) {
	s.mirror = m
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Post("/webhook/telegram/{secret}", s.handleWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.middleware)
		r.Use(s.authenticate)
		r.Get("/verify", s.handleVerify)
		r.Get("/transactions", s.handleListTransactions)
		r.Put("/transactions/{id}", s.handleUpdateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		r.Post("/insights", s.handleInsights)
	})
	return r
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// InvalidateUser drops the cached rollups for one user. The bot calls this
// after every webhook write so the dashboard never serves stale totals.
func (s *Server) InvalidateUser(userID int64) {
	s.stats.Delete(statsKey(userID))
}

func (s *Server) ListenAndServe() error {
	slog.Info("HTTP server listening", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.stopCleanup()
	s.stopJanitor()
	return s.srv.Shutdown(ctx)
}

func statsKey(userID int64) string {
	return fmt.Sprintf("stats:%d", userID)
}
