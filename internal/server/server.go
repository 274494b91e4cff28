// Package server provides the HTTP server setup and wiring.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/etherian3/crowd-fundapp/internal/auth"
	campaignsDomain "github.com/etherian3/crowd-fundapp/internal/campaigns/domain"
	campaignsTransport "github.com/etherian3/crowd-fundapp/internal/campaigns/transport"
	"github.com/etherian3/crowd-fundapp/internal/chain"
	"github.com/etherian3/crowd-fundapp/internal/config"
	"github.com/etherian3/crowd-fundapp/internal/middleware/logging"
	"github.com/etherian3/crowd-fundapp/internal/middleware/ratelimit"
	"github.com/etherian3/crowd-fundapp/internal/middleware/realip"
	"github.com/etherian3/crowd-fundapp/internal/middleware/security"
	"github.com/etherian3/crowd-fundapp/internal/observability/metrics"
	"github.com/etherian3/crowd-fundapp/internal/storage"
)

// Server is the HTTP server
type Server struct {
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger
	router *chi.Mux

	gateway      *chain.Gateway
	campaigns    *campaignsDomain.Store
	campaignsSvc campaignsDomain.Service
}

// New creates a new server. It dials the configured node, wires the
// campaign store, workflow and service, and restores the last persisted
// snapshot so reads work before the first reconcile.
func New(cfg *config.Config, store storage.Store, logger *slog.Logger) (*Server, error) {
	wallet := chain.NewKeystoreWallet(cfg.Wallet)
	gateway, err := chain.New(cfg.Chain, wallet, logger)
	if err != nil {
		return nil, err
	}
	return NewWithGateway(cfg, store, gateway, logger), nil
}

// NewWithGateway wires a server over an explicit gateway. The e2e harness
// uses it with a fake chain backend.
func NewWithGateway(cfg *config.Config, store storage.Store, gateway *chain.Gateway, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		router:  chi.NewRouter(),
		gateway: gateway,
	}

	s.campaigns = campaignsDomain.NewStore(gateway, logger)
	s.primeSnapshot(context.Background())
	s.campaigns.Subscribe(s.persistSnapshot)
	gateway.OnEvent(func(ev chain.Event) {
		if ev.Kind == chain.EventChainChanged {
			// The node no longer serves the configured chain; cached
			// campaigns belong to the wrong ledger.
			s.campaigns.Clear()
		}
	})

	workflow := campaignsDomain.NewWorkflow(gateway, s.campaigns, store, cfg.Chain.Confirmations, cfg.Chain.DonationFloor, logger)

	svcImpl := campaignsDomain.NewService(gateway, s.campaigns, workflow, store)
	s.campaignsSvc = campaignsDomain.LoggingMiddleware(logger)(svcImpl)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Start restores a persisted wallet session and runs the initial
// reconciliation. Both are best-effort; the server serves the primed
// snapshot (or an empty one) until the node answers.
func (s *Server) Start(ctx context.Context) {
	if account, err := s.campaignsSvc.RestoreConnection(ctx); err != nil {
		s.logger.Warn("wallet session restore failed", "error", err)
	} else if account != "" {
		s.logger.Info("wallet session restored", "account", account)
		return // Connect already reconciled
	}
	if _, err := s.campaignsSvc.Refresh(ctx); err != nil {
		s.logger.Warn("initial reconcile failed", "error", err)
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler returns the metrics HTTP handler for separate metrics server
func (s *Server) MetricsHandler() http.Handler {
	return metrics.Handler()
}

func (s *Server) setupMiddleware() {
	// Order matters! Client IP resolution runs first so every later
	// middleware sees the real origin.

	// 1. Real IP extraction
	s.router.Use(realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	}))

	// 2. Body size limit
	s.router.Use(security.MaxBodySizeMiddleware(s.cfg.Security.MaxBodySizeMB))

	// 3. Rate limiting (bypasses health checks and metrics)
	s.router.Use(ratelimit.Middleware(ratelimit.Config{
		Enabled:        s.cfg.RateLimit.Enabled,
		RequestsPerMin: s.cfg.RateLimit.RequestsPerMin,
		BurstSize:      s.cfg.RateLimit.BurstSize,
		CleanupMinutes: s.cfg.RateLimit.CleanupMinutes,
	}))

	// 4. Standard middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// 5. CORS
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

func (s *Server) setupRoutes() {
	// OpenAPI spec
	s.router.Get("/api/openapi.yaml", s.handleOpenAPISpec)

	// Health checks
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleHealth)

	// Prometheus scrape endpoint (404s when metrics are disabled)
	s.router.Handle("/metrics", metrics.Handler())

	campaignsHandler := campaignsTransport.NewHandler(s.campaignsSvc)
	campaignsHandler.SetSubmissionLister(&submissionListerAdapter{store: s.store})

	// Auth middleware for write operations
	requireAuth := func(r chi.Router) {
		if s.cfg.Auth.Type == "api-key" {
			r.Use(auth.Middleware(s.store, writeError))
		}
	}

	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Campaigns - split read/write
		r.Route("/campaigns", func(r chi.Router) {
			// Read operations - no auth required
			campaignsHandler.RegisterReadRoutes(r)

			// Write operations - auth required
			r.Group(func(r chi.Router) {
				requireAuth(r)
				campaignsHandler.RegisterWriteRoutes(r)
			})
		})

		// Wallet session - auth required, it drives the local signer
		r.Route("/wallet", func(r chi.Router) {
			requireAuth(r)
			campaignsHandler.RegisterWalletRoutes(r)
		})

		// Transaction audit log - auth required
		r.Route("/submissions", func(r chi.Router) {
			requireAuth(r)
			campaignsHandler.RegisterAuditRoutes(r)
		})
	})
}

// primeSnapshot loads the last persisted campaign set, if any.
func (s *Server) primeSnapshot(ctx context.Context) {
	payload, reconciledAt, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("loading saved snapshot failed", "error", err)
		}
		return
	}

	var all []campaignsDomain.Campaign
	if err := json.Unmarshal(payload, &all); err != nil {
		s.logger.Warn("saved snapshot is unreadable, starting empty", "error", err)
		return
	}
	s.campaigns.Prime(all, reconciledAt)
}

// persistSnapshot saves each reconciled campaign set. Cleared snapshots
// are skipped: a wipe on chain change should not destroy the last good
// copy for the next boot.
func (s *Server) persistSnapshot(snap campaignsDomain.Snapshot) {
	if snap.ReconciledAt.IsZero() {
		return
	}

	payload, err := json.Marshal(snap.All)
	if err != nil {
		s.logger.Warn("encoding snapshot failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SaveSnapshot(ctx, payload, snap.ReconciledAt); err != nil {
		s.logger.Warn("saving snapshot failed", "error", err)
	}
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleOpenAPISpec serves the OpenAPI document.
func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "spec/openapi.yaml")
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// submissionListerAdapter adapts the storage submission log to the
// transport's SubmissionLister interface.
type submissionListerAdapter struct {
	store storage.SubmissionStore
}

func (a *submissionListerAdapter) ListSubmissions(ctx context.Context, account, kind, status string, limit int) ([]campaignsTransport.SubmissionSummary, error) {
	records, err := a.store.ListSubmissions(ctx, storage.SubmissionFilter{
		Account: account,
		Kind:    kind,
		Status:  status,
	}, limit)
	if err != nil {
		return nil, err
	}

	result := make([]campaignsTransport.SubmissionSummary, len(records))
	for i, rec := range records {
		result[i] = campaignsTransport.SubmissionSummary{
			ID:          rec.ID,
			Kind:        rec.Kind,
			Account:     rec.Account,
			CampaignID:  rec.CampaignID,
			Amount:      rec.Amount,
			TxHash:      rec.TxHash,
			Status:      rec.Status,
			FailureKind: rec.FailureKind,
			Reason:      rec.Reason,
			CreatedAt:   rec.CreatedAt,
			UpdatedAt:   rec.UpdatedAt,
		}
	}
	return result, nil
}
