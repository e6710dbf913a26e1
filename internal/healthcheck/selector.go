// Package healthcheck chooses the banks passed into an on-chain health check.
//
// The verification instruction takes a fixed number of bank slots. Every
// bank the account is active in must be present, plus any bank the pending
// transaction is about to touch. If they do not all fit the selection fails;
// it is never truncated, since a bank left out of the check is a liability
// left out of the solvency verdict.
package healthcheck

import (
	"errors"
	"fmt"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/health"
	"github.com/atmx/risk-engine/internal/model"
)

// ErrCapacityExceeded is returned when active and mandatory banks together
// need more slots than the selector has.
var ErrCapacityExceeded = errors.New("healthcheck: capacity exceeded")

// ErrInvalidCapacity is returned for a selector without any slots.
var ErrInvalidCapacity = errors.New("healthcheck: capacity must be positive")

// Selector fills a bounded list of health-check slots.
type Selector struct {
	// Capacity is the number of bank slots available.
	Capacity int
}

// NewSelector creates a selector with the given slot count.
func NewSelector(capacity int) (*Selector, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Selector{Capacity: capacity}, nil
}

// Select returns the banks to include, in order: active balances not in
// excluded, then mandatory banks not already present. A mandatory bank is
// included even when it is also listed as excluded.
//
// Every selected bank must be present in banks; a missing one fails with a
// health.MarketDataError.
func (s *Selector) Select(
	balances []model.Balance,
	banks map[model.MarketID]*bank.Bank,
	mandatory []model.MarketID,
	excluded []model.MarketID,
) ([]*bank.Bank, error) {
	skip := make(map[model.MarketID]bool, len(excluded))
	for _, id := range excluded {
		skip[id] = true
	}

	seen := make(map[model.MarketID]bool, len(balances)+len(mandatory))
	ids := make([]model.MarketID, 0, s.Capacity)
	for _, bal := range balances {
		if !bal.Active || skip[bal.BankID] || seen[bal.BankID] {
			continue
		}
		seen[bal.BankID] = true
		ids = append(ids, bal.BankID)
	}
	active := len(ids)

	for _, id := range mandatory {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if len(ids) > s.Capacity {
		return nil, fmt.Errorf("%w: %d active + %d mandatory > %d slots",
			ErrCapacityExceeded, active, len(ids)-active, s.Capacity)
	}

	out := make([]*bank.Bank, len(ids))
	for i, id := range ids {
		b, ok := banks[id]
		if !ok || b == nil {
			return nil, &health.MarketDataError{Market: id, Reason: health.MissingBank}
		}
		out[i] = b
	}
	return out, nil
}

// Select is a convenience wrapper around a one-off Selector.
func Select(
	balances []model.Balance,
	banks map[model.MarketID]*bank.Bank,
	mandatory []model.MarketID,
	excluded []model.MarketID,
	capacity int,
) ([]*bank.Bank, error) {
	s, err := NewSelector(capacity)
	if err != nil {
		return nil, err
	}
	return s.Select(balances, banks, mandatory, excluded)
}

// IDs returns the market ids of a selection.
func IDs(banks []*bank.Bank) []model.MarketID {
	ids := make([]model.MarketID, len(banks))
	for i, b := range banks {
		ids[i] = b.ID
	}
	return ids
}
