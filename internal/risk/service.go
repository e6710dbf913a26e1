// Package risk provides the HTTP handlers that load market and account state
// from the store, run the risk engine over it and publish the results.
//
// All monetary values use shopspring/decimal, never float64.
package risk

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/config"
	"github.com/atmx/risk-engine/internal/health"
	"github.com/atmx/risk-engine/internal/healthcheck"
	"github.com/atmx/risk-engine/internal/metrics"
	"github.com/atmx/risk-engine/internal/model"
	"github.com/atmx/risk-engine/internal/oracle"
	"github.com/atmx/risk-engine/internal/store"
)

// Service serves health, rate and selection queries. The engine calls are
// pure; the only state the service owns is one health.Tracker per account.
type Service struct {
	store       store.Store
	engine      config.Engine
	concurrency int
	wsHub       *WSHub // optional WebSocket hub for real-time broadcasts
	now         func() time.Time

	mu       sync.Mutex
	trackers map[model.AccountID]*health.Tracker
}

// NewService creates a new risk service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, cfg config.Config, hub *WSHub) *Service {
	concurrency := cfg.Service.RefreshConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		store:       st,
		engine:      cfg.Engine,
		concurrency: concurrency,
		wsHub:       hub,
		now:         time.Now,
		trackers:    make(map[model.AccountID]*health.Tracker),
	}
}

// Routes registers every handler on r. Paths are relative to /api/v1.
func (s *Service) Routes(r chi.Router) {
	r.Get("/markets", s.ListMarkets)
	r.Put("/markets/{marketID}", s.PutMarket)
	r.Get("/markets/{marketID}/rates", s.GetRates)
	r.Put("/prices/{marketID}", s.PutPrice)

	r.Post("/accounts/refresh", s.RefreshAll)
	r.Put("/accounts/{accountID}", s.PutAccount)
	r.Get("/accounts/{accountID}/health", s.GetHealth)
	r.Post("/accounts/{accountID}/refresh", s.Refresh)
	r.Get("/accounts/{accountID}/liquidation", s.GetLiquidationPrices)
	r.Get("/accounts/{accountID}/emissions", s.GetEmissions)
	r.Get("/accounts/{accountID}/max-borrow/{marketID}", s.GetMaxBorrow)
	r.Post("/accounts/{accountID}/health-check", s.HealthCheck)
}

// --- Market data handlers ---

// ListMarkets handles GET /api/v1/markets
func (s *Service) ListMarkets(w http.ResponseWriter, r *http.Request) {
	banks, err := s.store.ListBanks(r.Context())
	if err != nil {
		writeError(w, "failed to list markets", http.StatusInternalServerError)
		return
	}
	if banks == nil {
		banks = []*bank.Bank{}
	}
	writeJSON(w, http.StatusOK, banks)
}

// PutMarket handles PUT /api/v1/markets/{marketID}
// The bank snapshot is validated before it is stored; invalid curve
// parameters or weights reject it.
func (s *Service) PutMarket(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseMarketID(chi.URLParam(r, "marketID"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var b bank.Bank
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	b.ID = id
	if err := b.Validate(); err != nil {
		metrics.InvalidBankRejections.Inc()
		slog.Warn("bank rejected", "market", id, "err", err)
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.PutBank(r.Context(), &b); err != nil {
		writeError(w, "failed to store market", http.StatusInternalServerError)
		return
	}

	slog.Info("bank updated",
		"market", id,
		"utilization", b.Utilization().String(),
		"risk_tier", b.Risk.RiskTier.String(),
	)
	writeJSON(w, http.StatusOK, &b)
}

// PutPrice handles PUT /api/v1/prices/{marketID}
func (s *Service) PutPrice(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseMarketID(chi.URLParam(r, "marketID"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var p oracle.Price
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if p.PriceRealtime.IsZero() && p.ConfidenceRealtime.IsZero() {
		p.PriceRealtime, p.ConfidenceRealtime = p.PriceUnbiased, p.ConfidenceInterval
	}
	if err := p.Validate(); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.PutPrice(r.Context(), id, p); err != nil {
		writeError(w, "failed to store price", http.StatusInternalServerError)
		return
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "price_updated",
			MarketID: string(id),
			Price:    p.PriceUnbiased.String(),
		})
	}
	writeJSON(w, http.StatusOK, p)
}

// AccountRequest is the JSON body for PUT /accounts/{accountID}.
type AccountRequest struct {
	Balances []model.Balance `json:"balances"`
}

// PutAccount handles PUT /api/v1/accounts/{accountID}
func (s *Service) PutAccount(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	for _, b := range req.Balances {
		if _, err := model.ParseMarketID(string(b.BankID)); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	acct := &model.Account{ID: id, Balances: req.Balances}
	if err := acct.Validate(); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.PutAccount(r.Context(), acct); err != nil {
		writeError(w, "failed to store account", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// --- Shared helpers ---

// loadSnapshot reads every bank and price. Banks are validated again so a
// row written around the API cannot slip invalid parameters into the engine.
func (s *Service) loadSnapshot(ctx context.Context) (*health.Snapshot, error) {
	banks, err := s.store.ListBanks(ctx)
	if err != nil {
		return nil, err
	}
	prices, err := s.store.ListPrices(ctx)
	if err != nil {
		return nil, err
	}
	return health.NewSnapshot(banks, prices)
}

// loadAccount parses the accountID URL parameter and loads the account.
func (s *Service) loadAccount(r *http.Request) (*model.Account, error) {
	id, err := model.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		return nil, err
	}
	return s.store.GetAccount(r.Context(), id)
}

// tracker returns the account's health tracker, seeding a new one from the
// latest stored health record when there is one.
func (s *Service) tracker(ctx context.Context, id model.AccountID) *health.Tracker {
	s.mu.Lock()
	t, ok := s.trackers[id]
	s.mu.Unlock()
	if ok {
		return t
	}

	var seed *model.HealthCache
	if rec, err := s.store.LatestHealthRecord(ctx, id); err == nil {
		seed = &rec.Cache
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trackers[id]; ok {
		return t
	}
	t = health.NewTracker(seed)
	s.trackers[id] = t
	metrics.TrackedAccounts.Set(float64(len(s.trackers)))
	return t
}

// logWarnings makes every skipped balance visible in logs and metrics.
func logWarnings(id model.AccountID, warnings health.Warnings) {
	for _, w := range warnings {
		metrics.SkippedBalancesTotal.WithLabelValues(w.Reason.String()).Inc()
		slog.Warn("balance skipped",
			"account", id,
			"market", w.Market,
			"reason", w.Reason.String(),
		)
	}
}

// SkippedBalance reports a balance left out of a computation.
type SkippedBalance struct {
	MarketID model.MarketID `json:"market_id"`
	Reason   string         `json:"reason"`
}

func skipped(warnings health.Warnings) []SkippedBalance {
	out := make([]SkippedBalance, len(warnings))
	for i, w := range warnings {
		out[i] = SkippedBalance{MarketID: w.Market, Reason: w.Reason.String()}
	}
	return out
}

// statusFor maps engine and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, health.ErrBalanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, healthcheck.ErrCapacityExceeded), errors.Is(err, health.ErrIsolatedRiskTier):
		return http.StatusConflict
	case errors.Is(err, health.ErrMissingMarketData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidAddress),
		errors.Is(err, bank.ErrInvalidCurveParameters),
		errors.Is(err, bank.ErrInvalidRiskWeights):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeErr writes err with the status statusFor assigns to it.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, err.Error(), statusFor(err))
}
