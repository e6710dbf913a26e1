package health

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/atmx/risk-engine/internal/model"
)

// Tracker owns the health cache of one account.
//
// Refresh is the single writer: it recomputes every margin requirement into
// a fresh HealthCache and publishes it with one pointer swap, so readers
// either see the previous cache or the new one, never a mix of both.
type Tracker struct {
	mu    sync.Mutex // serializes Refresh
	cache atomic.Pointer[model.HealthCache]
}

// NewTracker returns a Tracker seeded with a previously stored cache. A nil
// seed leaves the tracker empty.
func NewTracker(seed *model.HealthCache) *Tracker {
	t := &Tracker{}
	if seed != nil {
		c := *seed
		t.cache.Store(&c)
	}
	return t
}

// Refresh re-simulates the account and swaps in the new cache. On error the
// previous cache stays in place.
func (t *Tracker) Refresh(acct *model.Account, snap *Snapshot, opts Options, now time.Time) (model.HealthCache, Warnings, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, warnings, err := BuildCache(acct, snap, opts, now)
	if err != nil {
		return model.HealthCache{}, nil, err
	}
	t.cache.Store(&next)
	return next, warnings, nil
}

// Cache returns the current cache and whether one has been computed.
func (t *Tracker) Cache() (model.HealthCache, bool) {
	c := t.cache.Load()
	if c == nil {
		return model.HealthCache{}, false
	}
	return *c, true
}

// BuildCache computes a HealthCache with the same routine the legacy
// computation uses.
func BuildCache(acct *model.Account, snap *Snapshot, opts Options, now time.Time) (model.HealthCache, Warnings, error) {
	var (
		next     model.HealthCache
		warnings Warnings
	)
	for _, mr := range model.MarginRequirements {
		c, err := computeComponents(acct.Balances, snap, mr, opts)
		if err != nil {
			return model.HealthCache{}, nil, err
		}
		switch mr {
		case model.Initial:
			next.AssetValue, next.LiabilityValue = c.Assets, c.Liabilities
		case model.Maintenance:
			next.AssetValueMaint, next.LiabilityValueMaint = c.Assets, c.Liabilities
		case model.Equity:
			next.AssetValueEquity, next.LiabilityValueEquity = c.Assets, c.Liabilities
		}
		warnings = warnings.merge(c.Warnings)
	}
	next.Skipped = warnings.Markets()
	next.ComputedAt = now.UTC()
	return next, warnings, nil
}

// ComponentsFromCache rebuilds the aggregate totals for one margin
// requirement from a cache, without per-balance detail.
func ComponentsFromCache(c model.HealthCache, mr model.MarginRequirement) Components {
	assets, liabilities := c.Components(mr)
	return Components{Requirement: mr, Assets: assets, Liabilities: liabilities}
}
