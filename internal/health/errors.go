package health

import (
	"errors"
	"fmt"

	"github.com/atmx/risk-engine/internal/model"
)

var (
	// ErrMissingMarketData is the kind shared by every MarketDataError.
	ErrMissingMarketData = errors.New("health: missing market data")

	// ErrBalanceNotFound is returned when an operation targets a bank the
	// account holds no active balance in.
	ErrBalanceNotFound = errors.New("health: no active balance for bank")

	// ErrIsolatedRiskTier is returned when an account borrows from an
	// isolated bank together with any other bank.
	ErrIsolatedRiskTier = errors.New("health: isolated bank borrowed alongside other liabilities")
)

// MissingReason says which piece of the snapshot was absent.
type MissingReason uint8

const (
	MissingBank MissingReason = iota + 1
	MissingPrice
)

func (r MissingReason) String() string {
	switch r {
	case MissingBank:
		return "bank"
	case MissingPrice:
		return "price"
	default:
		return "unknown"
	}
}

// MarketDataError reports a balance whose bank or oracle price is not part
// of the snapshot.
type MarketDataError struct {
	Market model.MarketID
	Reason MissingReason
}

func (e *MarketDataError) Error() string {
	return fmt.Sprintf("health: missing %s for market %s", e.Reason, e.Market)
}

// Unwrap lets errors.Is match ErrMissingMarketData.
func (e *MarketDataError) Unwrap() error {
	return ErrMissingMarketData
}

// Warnings lists the balances skipped by a non-strict computation. An empty
// list means every balance contributed.
type Warnings []*MarketDataError

// Markets returns the skipped market ids in order.
func (w Warnings) Markets() []model.MarketID {
	if len(w) == 0 {
		return nil
	}
	ids := make([]model.MarketID, len(w))
	for i, e := range w {
		ids[i] = e.Market
	}
	return ids
}

// merge appends warnings not already present.
func (w Warnings) merge(other Warnings) Warnings {
	for _, o := range other {
		dup := false
		for _, e := range w {
			if e.Market == o.Market && e.Reason == o.Reason {
				dup = true
				break
			}
		}
		if !dup {
			w = append(w, o)
		}
	}
	return w
}
