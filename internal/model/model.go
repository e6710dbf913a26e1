// Package model defines the core domain types shared across the risk engine.
// All monetary values use shopspring/decimal, never float64.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaxBalances is the number of balance slots an account carries.
const MaxBalances = 16

var (
	// ErrTooManyBalances is returned when an account holds more than
	// MaxBalances balances.
	ErrTooManyBalances = errors.New("model: account exceeds maximum number of balances")

	// ErrMixedBalance is returned when a balance holds asset and liability
	// shares at the same time.
	ErrMixedBalance = errors.New("model: balance holds both asset and liability shares")

	// ErrNegativeShares is returned for a balance with negative shares.
	ErrNegativeShares = errors.New("model: balance shares must be non-negative")
)

// MarginRequirement selects the risk weights and price bias used to value an
// account.
type MarginRequirement uint8

const (
	Initial MarginRequirement = iota
	Maintenance
	Equity
)

// MarginRequirements lists every requirement type in cache order.
var MarginRequirements = []MarginRequirement{Initial, Maintenance, Equity}

func (m MarginRequirement) String() string {
	switch m {
	case Initial:
		return "initial"
	case Maintenance:
		return "maintenance"
	case Equity:
		return "equity"
	default:
		return "unknown"
	}
}

// ParseMarginRequirement converts the String form back to a MarginRequirement.
func ParseMarginRequirement(s string) (MarginRequirement, error) {
	for _, m := range MarginRequirements {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("model: unknown margin requirement %q", s)
}

// Balance is a user's position in one bank. A position is either a lend
// (asset shares) or a borrow (liability shares), never both.
type Balance struct {
	BankID               MarketID        `json:"bank_id" yaml:"bank_id"`
	Active               bool            `json:"active" yaml:"active"`
	AssetShares          decimal.Decimal `json:"asset_shares" yaml:"asset_shares"`
	LiabilityShares      decimal.Decimal `json:"liability_shares" yaml:"liability_shares"`
	EmissionsOutstanding decimal.Decimal `json:"emissions_outstanding" yaml:"emissions_outstanding"`
	LastUpdate           int64           `json:"last_update" yaml:"last_update"` // unix seconds
}

// IsLending reports whether the balance is a lend position.
func (b Balance) IsLending() bool {
	return b.AssetShares.IsPositive()
}

// IsBorrowing reports whether the balance is a borrow position.
func (b Balance) IsBorrowing() bool {
	return b.LiabilityShares.IsPositive()
}

// Validate checks the one-sided share invariant.
func (b Balance) Validate() error {
	if b.AssetShares.IsNegative() || b.LiabilityShares.IsNegative() {
		return fmt.Errorf("%w: bank %s", ErrNegativeShares, b.BankID)
	}
	if b.IsLending() && b.IsBorrowing() {
		return fmt.Errorf("%w: bank %s", ErrMixedBalance, b.BankID)
	}
	return nil
}

// Account is an ordered list of balances owned by one user.
type Account struct {
	ID       AccountID `json:"id" yaml:"id"`
	Balances []Balance `json:"balances" yaml:"balances"`
}

// ActiveBalances returns the active balances in account order.
func (a *Account) ActiveBalances() []Balance {
	active := make([]Balance, 0, len(a.Balances))
	for _, b := range a.Balances {
		if b.Active {
			active = append(active, b)
		}
	}
	return active
}

// Balance returns the active balance held in bank, if any.
func (a *Account) Balance(bank MarketID) (Balance, bool) {
	for _, b := range a.Balances {
		if b.Active && b.BankID == bank {
			return b, true
		}
	}
	return Balance{}, false
}

// Validate checks the account-level invariants.
func (a *Account) Validate() error {
	if len(a.Balances) > MaxBalances {
		return fmt.Errorf("%w: %d > %d", ErrTooManyBalances, len(a.Balances), MaxBalances)
	}
	for _, b := range a.Balances {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HealthCache holds the weighted asset and liability totals of an account,
// one pair per margin requirement type.
type HealthCache struct {
	AssetValue           decimal.Decimal `json:"asset_value"`
	LiabilityValue       decimal.Decimal `json:"liability_value"`
	AssetValueMaint      decimal.Decimal `json:"asset_value_maint"`
	LiabilityValueMaint  decimal.Decimal `json:"liability_value_maint"`
	AssetValueEquity     decimal.Decimal `json:"asset_value_equity"`
	LiabilityValueEquity decimal.Decimal `json:"liability_value_equity"`
	Skipped              []MarketID      `json:"skipped,omitempty"`
	ComputedAt           time.Time       `json:"computed_at"`
}

// Components returns the cached pair for a margin requirement type.
func (c HealthCache) Components(mr MarginRequirement) (assets, liabilities decimal.Decimal) {
	switch mr {
	case Initial:
		return c.AssetValue, c.LiabilityValue
	case Maintenance:
		return c.AssetValueMaint, c.LiabilityValueMaint
	case Equity:
		return c.AssetValueEquity, c.LiabilityValueEquity
	default:
		return decimal.Zero, decimal.Zero
	}
}

// HealthRecord is an immutable record of one health cache refresh.
// Once created, these are never modified or deleted.
type HealthRecord struct {
	ID        string      `json:"id" db:"id"`
	AccountID AccountID   `json:"account_id" db:"account_id"`
	Cache     HealthCache `json:"cache"`
}
