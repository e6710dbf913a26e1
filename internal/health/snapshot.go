// Package health values accounts against a snapshot of banks and oracle
// prices.
//
// Every function here is pure: it reads the account, banks and prices it is
// given and never mutates them, so any number of callers may compute health
// previews concurrently. The only mutable state is the health cache held by
// a Tracker, which is replaced atomically on refresh.
//
// The legacy from-scratch computation and the cache refresh both go through
// computeComponents, so the two paths cannot drift apart.
package health

import (
	"fmt"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/model"
	"github.com/atmx/risk-engine/internal/oracle"
)

// Snapshot is the market data a computation runs against.
type Snapshot struct {
	Banks  map[model.MarketID]*bank.Bank
	Prices map[model.MarketID]oracle.Price
}

// NewSnapshot indexes banks and prices by market id. Every bank is validated;
// a bank with invalid curve parameters or weights rejects the whole snapshot.
func NewSnapshot(banks []*bank.Bank, prices map[model.MarketID]oracle.Price) (*Snapshot, error) {
	s := &Snapshot{
		Banks:  make(map[model.MarketID]*bank.Bank, len(banks)),
		Prices: make(map[model.MarketID]oracle.Price, len(prices)),
	}
	for _, b := range banks {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		s.Banks[b.ID] = b
	}
	for id, p := range prices {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("price for %s: %w", id, err)
		}
		s.Prices[id] = p
	}
	return s, nil
}

// Lookup returns the bank and price for a market, or a MarketDataError.
func (s *Snapshot) Lookup(id model.MarketID) (*bank.Bank, oracle.Price, error) {
	b, p, mde := s.lookup(id)
	if mde != nil {
		return nil, oracle.Price{}, mde
	}
	return b, p, nil
}

func (s *Snapshot) lookup(id model.MarketID) (*bank.Bank, oracle.Price, *MarketDataError) {
	b, ok := s.Banks[id]
	if !ok || b == nil {
		return nil, oracle.Price{}, &MarketDataError{Market: id, Reason: MissingBank}
	}
	p, ok := s.Prices[id]
	if !ok {
		return nil, oracle.Price{}, &MarketDataError{Market: id, Reason: MissingPrice}
	}
	return b, p, nil
}

// Options tune an aggregation.
type Options struct {
	// ExcludedBanks are left out of the sums entirely.
	ExcludedBanks []model.MarketID

	// Strict turns a missing bank or price into a hard error instead of a
	// skipped balance.
	Strict bool
}

func (o Options) excluded(id model.MarketID) bool {
	for _, e := range o.ExcludedBanks {
		if e == id {
			return true
		}
	}
	return false
}
