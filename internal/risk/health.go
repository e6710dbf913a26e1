package risk

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/emissions"
	"github.com/atmx/risk-engine/internal/health"
	"github.com/atmx/risk-engine/internal/healthcheck"
	"github.com/atmx/risk-engine/internal/interest"
	"github.com/atmx/risk-engine/internal/metrics"
	"github.com/atmx/risk-engine/internal/model"
)

// --- Response types ---

// RatesResponse is the JSON body returned from GET /markets/{marketID}/rates.
type RatesResponse struct {
	MarketID    model.MarketID  `json:"market_id"`
	Utilization decimal.Decimal `json:"utilization"`
	BorrowAPR   decimal.Decimal `json:"borrow_apr"`
	LendAPR     decimal.Decimal `json:"lend_apr"`
	BorrowAPY   decimal.Decimal `json:"borrow_apy"`
	LendAPY     decimal.Decimal `json:"lend_apy"`
}

// HealthResponse is the JSON body returned from GET /accounts/{id}/health.
type HealthResponse struct {
	AccountID            model.AccountID   `json:"account_id"`
	Source               string            `json:"source"`
	Initial              health.Components `json:"initial"`
	Maintenance          health.Components `json:"maintenance"`
	Equity               health.Components `json:"equity"`
	FreeCollateral       decimal.Decimal   `json:"free_collateral"`
	SignedFreeCollateral decimal.Decimal   `json:"signed_free_collateral"`
	AccountValue         decimal.Decimal   `json:"account_value"`
	HealthFactor         decimal.Decimal   `json:"health_factor"`
	NetApy               *decimal.Decimal  `json:"net_apy,omitempty"`
	Skipped              []SkippedBalance  `json:"skipped"`
	ComputedAt           *time.Time        `json:"computed_at,omitempty"`
}

func newHealthResponse(id model.AccountID, source string, s health.Summary) HealthResponse {
	return HealthResponse{
		AccountID:            id,
		Source:               source,
		Initial:              s.Initial,
		Maintenance:          s.Maintenance,
		Equity:               s.Equity,
		FreeCollateral:       s.FreeCollateral,
		SignedFreeCollateral: s.SignedFreeCollateral,
		AccountValue:         s.AccountValue,
		HealthFactor:         s.HealthFactor,
		Skipped:              skipped(s.Warnings),
	}
}

// EmissionsResponse is one entry of GET /accounts/{id}/emissions.
type EmissionsResponse struct {
	BankID      model.MarketID  `json:"bank_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Accrued     decimal.Decimal `json:"accrued"`
	Owed        decimal.Decimal `json:"owed"`
}

// HealthCheckRequest is the JSON body for POST /accounts/{id}/health-check.
type HealthCheckRequest struct {
	Mandatory []model.MarketID `json:"mandatory"`
	Excluded  []model.MarketID `json:"excluded"`
}

// HealthCheckResponse lists the banks to pass into the verification call.
type HealthCheckResponse struct {
	AccountID model.AccountID  `json:"account_id"`
	Banks     []model.MarketID `json:"banks"`
	Capacity  int              `json:"capacity"`
}

// --- HTTP Handlers ---

// GetRates handles GET /api/v1/markets/{marketID}/rates
func (s *Service) GetRates(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseMarketID(chi.URLParam(r, "marketID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	b, err := s.store.GetBank(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	rates := interest.ComputeRates(b)
	periods := s.engine.CompoundingPeriodsPerYear
	writeJSON(w, http.StatusOK, RatesResponse{
		MarketID:    id,
		Utilization: rates.Utilization,
		BorrowAPR:   rates.BorrowAPR,
		LendAPR:     rates.LendAPR,
		BorrowAPY:   interest.AprToApy(rates.BorrowAPR, periods),
		LendAPY:     interest.AprToApy(rates.LendAPR, periods),
	})
}

// GetHealth handles GET /api/v1/accounts/{accountID}/health
// Recomputes health from scratch, or with ?source=cache returns the
// account's cached health without touching market data.
func (s *Service) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acct, err := s.loadAccount(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	if r.URL.Query().Get("source") == "cache" {
		cache, ok := s.tracker(ctx, acct.ID).Cache()
		if !ok {
			writeError(w, "no cached health for account", http.StatusNotFound)
			return
		}
		resp := newHealthResponse(acct.ID, "cache", health.SummaryFromCache(cache))
		resp.Skipped = make([]SkippedBalance, len(cache.Skipped))
		for i, m := range cache.Skipped {
			resp.Skipped[i] = SkippedBalance{MarketID: m, Reason: "missing"}
		}
		resp.ComputedAt = &cache.ComputedAt
		writeJSON(w, http.StatusOK, resp)
		return
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	summary, err := health.Summarize(acct, snap, s.engine.CompoundingPeriodsPerYear, s.engine.Options())
	if err != nil {
		writeErr(w, err)
		return
	}
	metrics.HealthComputationsTotal.WithLabelValues("legacy").Inc()
	logWarnings(acct.ID, summary.Warnings)

	resp := newHealthResponse(acct.ID, "legacy", summary)
	resp.NetApy = &summary.NetApy
	writeJSON(w, http.StatusOK, resp)
}

// GetLiquidationPrices handles GET /api/v1/accounts/{accountID}/liquidation
// Price is null for balances without a liquidation price.
func (s *Service) GetLiquidationPrices(w http.ResponseWriter, r *http.Request) {
	acct, err := s.loadAccount(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	snap, err := s.loadSnapshot(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	prices, warnings, err := health.ComputeLiquidationPrices(acct, snap, s.engine.Options())
	if err != nil {
		writeErr(w, err)
		return
	}
	logWarnings(acct.ID, warnings)
	if prices == nil {
		prices = []health.LiquidationPrice{}
	}
	writeJSON(w, http.StatusOK, prices)
}

// GetEmissions handles GET /api/v1/accounts/{accountID}/emissions?now=<unix>
// Balances whose bank is unknown are left out.
func (s *Service) GetEmissions(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	if v := r.URL.Query().Get("now"); v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, "now must be a unix timestamp", http.StatusBadRequest)
			return
		}
		now = time.Unix(sec, 0)
	}

	acct, err := s.loadAccount(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	snap, err := s.loadSnapshot(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}

	cfg := s.engine.Emissions()
	out := []EmissionsResponse{}
	for _, bal := range acct.ActiveBalances() {
		b, ok := snap.Banks[bal.BankID]
		if !ok {
			slog.Warn("emissions skipped", "account", acct.ID, "market", bal.BankID)
			continue
		}
		out = append(out, EmissionsResponse{
			BankID:      bal.BankID,
			Outstanding: bal.EmissionsOutstanding,
			Accrued:     emissions.Accrue(bal, b, now, cfg),
			Owed:        emissions.Owed(bal, b, now, cfg),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetMaxBorrow handles GET /api/v1/accounts/{accountID}/max-borrow/{marketID}
// Feeds transaction construction, so missing market data fails the request.
func (s *Service) GetMaxBorrow(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseMarketID(chi.URLParam(r, "marketID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	acct, err := s.loadAccount(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	snap, err := s.loadSnapshot(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	amount, _, err := health.ComputeMaxBorrow(acct, snap, id, health.Options{Strict: true})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": acct.ID,
		"market_id":  id,
		"max_borrow": amount,
	})
}

// HealthCheck handles POST /api/v1/accounts/{accountID}/health-check
// Returns the bounded bank list for a verification call, or 409 when the
// banks do not fit.
func (s *Service) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var req HealthCheckRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	acct, err := s.loadAccount(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	snap, err := s.loadSnapshot(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := health.CheckRiskTiers(acct, snap); err != nil {
		writeErr(w, err)
		return
	}

	capacity := s.engine.HealthCheckCapacity
	banks, err := healthcheck.Select(acct.Balances, snap.Banks, req.Mandatory, req.Excluded, capacity)
	if errors.Is(err, healthcheck.ErrCapacityExceeded) {
		metrics.CapacityRejections.Inc()
		slog.Warn("health check rejected", "account", acct.ID, "err", err)
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	ids := healthcheck.IDs(banks)
	for _, id := range ids {
		if _, _, err := snap.Lookup(id); err != nil {
			writeErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthCheckResponse{
		AccountID: acct.ID,
		Banks:     ids,
		Capacity:  capacity,
	})
}
