// Package emissions accrues the reward tokens a bank streams to its lenders
// or borrowers.
//
// Accrual is a pure preview: it never advances Balance.LastUpdate. The caller
// moves the timestamp forward once the accrual is committed, so the same
// inputs can be replayed any number of times.
package emissions

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/model"
)

// DefaultSecondsPerYear is a 365-day year.
const DefaultSecondsPerYear int64 = 365 * 24 * 60 * 60

// ErrInvalidSecondsPerYear is returned by Config.Validate.
var ErrInvalidSecondsPerYear = errors.New("emissions: seconds per year must be positive")

// Config holds the constants accrual depends on.
type Config struct {
	SecondsPerYear int64 `json:"seconds_per_year" yaml:"seconds_per_year"`
}

// DefaultConfig returns a Config using a 365-day year.
func DefaultConfig() Config {
	return Config{SecondsPerYear: DefaultSecondsPerYear}
}

func (c Config) Validate() error {
	if c.SecondsPerYear <= 0 {
		return ErrInvalidSecondsPerYear
	}
	return nil
}

// Accrue returns the rewards earned by bal since its last update:
//
//	elapsed × quantity × rate / secondsPerYear
//
// where quantity is the lend side when lending emissions are active, else
// the borrow side when borrowing emissions are active. The result never
// exceeds what is left in the bank's emissions pool. Inactive balances and a
// clock behind the balance's last update accrue nothing.
func Accrue(bal model.Balance, b *bank.Bank, now time.Time, cfg Config) decimal.Decimal {
	if !bal.Active || cfg.SecondsPerYear <= 0 {
		return decimal.Zero
	}
	elapsed := now.Unix() - bal.LastUpdate
	if elapsed <= 0 {
		return decimal.Zero
	}

	var qty decimal.Decimal
	switch {
	case b.Emissions.LendingActive:
		qty = b.AssetQuantity(bal.AssetShares)
	case b.Emissions.BorrowingActive:
		qty = b.LiabilityQuantity(bal.LiabilityShares)
	default:
		return decimal.Zero
	}
	if !qty.IsPositive() || !b.Emissions.Rate.IsPositive() {
		return decimal.Zero
	}

	reward := decimal.NewFromInt(elapsed).
		Mul(qty).
		Mul(b.Emissions.Rate).
		Div(decimal.NewFromInt(cfg.SecondsPerYear))
	remaining := decimal.Max(b.Emissions.Remaining, decimal.Zero)
	return decimal.Min(reward, remaining)
}

// Owed is the balance's outstanding emissions plus what has accrued since its
// last update.
func Owed(bal model.Balance, b *bank.Bank, now time.Time, cfg Config) decimal.Decimal {
	return bal.EmissionsOutstanding.Add(Accrue(bal, b, now, cfg))
}
