package health

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/model"
)

// BalanceResult is the contribution of one active balance to an aggregate.
type BalanceResult struct {
	BankID   model.MarketID   `json:"bank_id"`
	Position Position         `json:"position"`
	Skipped  bool             `json:"skipped"`
	Err      *MarketDataError `json:"-"`
}

// Components are the weighted totals of an account for one margin
// requirement type.
type Components struct {
	Requirement model.MarginRequirement `json:"-"`
	Assets      decimal.Decimal         `json:"assets"`
	Liabilities decimal.Decimal         `json:"liabilities"`
	Balances    []BalanceResult         `json:"balances"`
	Warnings    Warnings                `json:"-"`
}

// Net returns assets minus liabilities.
func (c Components) Net() decimal.Decimal {
	return c.Assets.Sub(c.Liabilities)
}

// computeComponents is the single valuation routine behind both the legacy
// computation and the cache refresh.
func computeComponents(balances []model.Balance, snap *Snapshot, mr model.MarginRequirement, opts Options) (Components, error) {
	c := Components{
		Requirement: mr,
		Assets:      decimal.Zero,
		Liabilities: decimal.Zero,
	}
	for _, bal := range balances {
		if !bal.Active || opts.excluded(bal.BankID) {
			continue
		}
		b, price, mde := snap.lookup(bal.BankID)
		if mde != nil {
			if opts.Strict {
				return Components{}, mde
			}
			c.Warnings = append(c.Warnings, mde)
			c.Balances = append(c.Balances, BalanceResult{BankID: bal.BankID, Skipped: true, Err: mde})
			continue
		}
		pos := ValuePosition(bal, b, price, mr)
		c.Assets = c.Assets.Add(pos.Assets)
		c.Liabilities = c.Liabilities.Add(pos.Liabilities)
		c.Balances = append(c.Balances, BalanceResult{BankID: bal.BankID, Position: pos})
	}
	return c, nil
}

// ComputeHealthComponents sums the valuation of every active balance.
// Balances whose bank or price is missing contribute zero and are reported
// in Components.Warnings unless opts.Strict is set.
func ComputeHealthComponents(acct *model.Account, snap *Snapshot, mr model.MarginRequirement, opts Options) (Components, error) {
	return computeComponents(acct.Balances, snap, mr, opts)
}

// ComputeFreeCollateral returns initial-margin assets minus liabilities.
// With clamped set the result is floored at zero; the signed form exposes
// accounts that are already below the initial requirement.
func ComputeFreeCollateral(acct *model.Account, snap *Snapshot, clamped bool, opts Options) (decimal.Decimal, Warnings, error) {
	c, err := ComputeHealthComponents(acct, snap, model.Initial, opts)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return freeCollateral(c, clamped), c.Warnings, nil
}

func freeCollateral(c Components, clamped bool) decimal.Decimal {
	fc := c.Net()
	if clamped && fc.IsNegative() {
		return decimal.Zero
	}
	return fc
}

// ComputeAccountValue returns the unweighted, unbiased net worth.
func ComputeAccountValue(acct *model.Account, snap *Snapshot, opts Options) (decimal.Decimal, Warnings, error) {
	c, err := ComputeHealthComponents(acct, snap, model.Equity, opts)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return c.Net(), c.Warnings, nil
}

// ComputeHealthFactor returns (assets − liabilities) / assets for a margin
// requirement: 1 for an account without liabilities, zero or negative once
// the requirement is breached, and zero when the account holds no assets.
func ComputeHealthFactor(acct *model.Account, snap *Snapshot, mr model.MarginRequirement, opts Options) (decimal.Decimal, Warnings, error) {
	c, err := ComputeHealthComponents(acct, snap, mr, opts)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return healthFactor(c), c.Warnings, nil
}

func healthFactor(c Components) decimal.Decimal {
	if !c.Assets.IsPositive() {
		return decimal.Zero
	}
	return c.Net().Div(c.Assets)
}

// Summary is every account-level figure computed in one pass.
type Summary struct {
	Initial              Components      `json:"initial"`
	Maintenance          Components      `json:"maintenance"`
	Equity               Components      `json:"equity"`
	FreeCollateral       decimal.Decimal `json:"free_collateral"`
	SignedFreeCollateral decimal.Decimal `json:"signed_free_collateral"`
	AccountValue         decimal.Decimal `json:"account_value"`
	HealthFactor         decimal.Decimal `json:"health_factor"`
	NetApy               decimal.Decimal `json:"net_apy"`
	Warnings             Warnings        `json:"-"`
}

// Summarize computes components for every margin requirement type plus the
// derived figures. compoundingPeriods is passed to the net APY conversion.
func Summarize(acct *model.Account, snap *Snapshot, compoundingPeriods int64, opts Options) (Summary, error) {
	var s Summary
	for _, mr := range model.MarginRequirements {
		c, err := ComputeHealthComponents(acct, snap, mr, opts)
		if err != nil {
			return Summary{}, err
		}
		switch mr {
		case model.Initial:
			s.Initial = c
		case model.Maintenance:
			s.Maintenance = c
		case model.Equity:
			s.Equity = c
		}
		s.Warnings = s.Warnings.merge(c.Warnings)
	}
	s.derive()
	s.NetApy = netApy(snap, s.Equity, compoundingPeriods)
	return s, nil
}

// SummaryFromCache derives the account-level figures from a health cache.
// A cache carries no per-balance detail, so NetApy is left at zero.
func SummaryFromCache(c model.HealthCache) Summary {
	s := Summary{
		Initial:     ComponentsFromCache(c, model.Initial),
		Maintenance: ComponentsFromCache(c, model.Maintenance),
		Equity:      ComponentsFromCache(c, model.Equity),
		NetApy:      decimal.Zero,
	}
	s.derive()
	return s
}

func (s *Summary) derive() {
	s.FreeCollateral = freeCollateral(s.Initial, true)
	s.SignedFreeCollateral = freeCollateral(s.Initial, false)
	s.AccountValue = s.Equity.Net()
	s.HealthFactor = healthFactor(s.Maintenance)
}
