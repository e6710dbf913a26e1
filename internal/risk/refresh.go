package risk

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atmx/risk-engine/internal/health"
	"github.com/atmx/risk-engine/internal/metrics"
	"github.com/atmx/risk-engine/internal/model"
)

// Refresh handles POST /api/v1/accounts/{accountID}/refresh
// Re-simulates the account, swaps in the new health cache and appends an
// immutable health record.
func (s *Service) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acct, err := s.loadAccount(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	rec, err := s.refreshAccount(ctx, acct, snap)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RefreshAll handles POST /api/v1/accounts/refresh
// Every stored account is refreshed against one shared snapshot, with at
// most RefreshConcurrency refreshes in flight.
func (s *Service) RefreshAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.RefreshAccounts(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"refreshed": n})
}

// RefreshAccounts refreshes every stored account and returns how many were
// refreshed. The first failure cancels the remaining refreshes.
func (s *Service) RefreshAccounts(ctx context.Context) (int, error) {
	ids, err := s.store.ListAccountIDs(ctx)
	if err != nil {
		return 0, err
	}
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return 0, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			acct, err := s.store.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			_, err = s.refreshAccount(ctx, acct, snap)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	slog.Info("accounts refreshed", "count", len(ids))
	return len(ids), nil
}

func (s *Service) refreshAccount(ctx context.Context, acct *model.Account, snap *health.Snapshot) (*model.HealthRecord, error) {
	start := time.Now()
	cache, warnings, err := s.tracker(ctx, acct.ID).Refresh(acct, snap, s.engine.Options(), s.now())
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", acct.ID, err)
	}
	metrics.RefreshLatency.Observe(time.Since(start).Seconds())
	metrics.HealthComputationsTotal.WithLabelValues("refresh").Inc()
	logWarnings(acct.ID, warnings)

	rec := &model.HealthRecord{
		ID:        uuid.New().String(),
		AccountID: acct.ID,
		Cache:     cache,
	}
	if err := s.store.InsertHealthRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("record health for %s: %w", acct.ID, err)
	}

	summary := health.SummaryFromCache(cache)
	slog.Info("health refreshed",
		"account", acct.ID,
		"record", rec.ID,
		"free_collateral", summary.FreeCollateral.String(),
		"health_factor", summary.HealthFactor.String(),
		"skipped", len(cache.Skipped),
	)

	if s.wsHub != nil {
		skippedIDs := make([]string, len(cache.Skipped))
		for i, m := range cache.Skipped {
			skippedIDs[i] = string(m)
		}
		s.wsHub.Broadcast(WSMessage{
			Type:           "health_refreshed",
			AccountID:      string(acct.ID),
			RecordID:       rec.ID,
			FreeCollateral: summary.FreeCollateral.String(),
			HealthFactor:   summary.HealthFactor.String(),
			Skipped:        skippedIDs,
		})
	}
	return rec, nil
}
