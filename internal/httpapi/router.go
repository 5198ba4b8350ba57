// Package httpapi wires the HTTP surface of the bookkeeping service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/safarbooks/ledger/internal/config"
	"github.com/safarbooks/ledger/internal/service/posting"
	"github.com/safarbooks/ledger/internal/service/report"
)

// Server wires handlers and middleware using Chi. It composes the read-side
// repository with the posting and report services.
type Server struct {
	posting posting.Service
	reports report.Service
	repo    Repository
	cfg     *config.Config
	log     *slog.Logger
	rt      *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(repo Repository, postingSvc posting.Service, reportSvc report.Service, cfg *config.Config, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		posting: postingSvc,
		reports: reportSvc,
		repo:    repo,
		cfg:     cfg,
		log:     logger,
		rt:      r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Vouchers (v1)
	s.rt.With(s.validatePostVoucher()).Post("/v1/vouchers", s.postVoucher)
	s.rt.Get("/v1/vouchers", s.listVouchers)
	s.rt.Get("/v1/vouchers/{id}", s.getVoucher)
	s.rt.With(s.validatePostVoucher()).Put("/v1/vouchers/{id}", s.updateVoucher)
	s.rt.Delete("/v1/vouchers/{id}", s.deleteVoucher)
	// Accounts (v1)
	s.rt.With(s.validatePostAccount()).Post("/v1/accounts", s.postAccount)
	s.rt.Get("/v1/accounts", s.listAccounts)
	s.rt.Get("/v1/accounts/{id}", s.getAccount)
	s.rt.Get("/v1/accounts/{id}/ledger", s.getAccountLedger)
	s.rt.Delete("/v1/accounts/{id}", s.deleteAccount)
	// Reports (v1)
	s.rt.Get("/v1/reports/trial-balance", s.trialBalance)
	s.rt.Get("/v1/reports/profit-and-loss", s.profitAndLoss)
	s.rt.Get("/v1/reports/balance-sheet", s.balanceSheet)
	// Export / import (v1)
	s.rt.Get("/v1/export", s.exportBooks)
	s.rt.Post("/v1/import", s.importBooks)
	// Config (v1)
	s.rt.Get("/v1/config", s.getConfig)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
