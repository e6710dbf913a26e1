// Package interest implements the kinked utilization curve that prices
// borrowing and lending in a bank.
//
// Below optimal utilization u_opt the borrow rate rises linearly from the
// base rate by slope1; above it the rate continues from base+slope1 with the
// steeper slope2:
//
//	u <  u_opt: base + slope1 × u / u_opt
//	u >= u_opt: base + slope1 + slope2 × (u − u_opt) / (1 − u_opt)
//
// Lenders receive borrow × u minus the insurance, fixed and group fees.
// Rates are simple annual rates (APR). Compounding to APY is a separate call
// so callers can show either.
//
// Curve parameters are validated when a bank is loaded
// (bank.InterestRateConfig.Validate); the functions here assume valid input.
package interest

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/bank"
)

var one = decimal.NewFromInt(1)

// Rates is the output of the curve for one bank.
type Rates struct {
	Utilization decimal.Decimal `json:"utilization"`
	BorrowAPR   decimal.Decimal `json:"borrow_apr"`
	LendAPR     decimal.Decimal `json:"lend_apr"`
}

// BorrowRate evaluates the borrow side of the curve at utilization u.
func BorrowRate(cfg bank.InterestRateConfig, u decimal.Decimal) decimal.Decimal {
	opt := cfg.OptimalUtilization
	if u.LessThan(opt) {
		return cfg.BaseRate.Add(cfg.SlopeBelowOptimal.Mul(u).Div(opt))
	}
	excess := u.Sub(opt).Div(one.Sub(opt))
	return cfg.BaseRate.Add(cfg.SlopeBelowOptimal).Add(cfg.SlopeAboveOptimal.Mul(excess))
}

// LendRate derives the lender rate from the borrow rate at utilization u.
func LendRate(cfg bank.InterestRateConfig, u decimal.Decimal) decimal.Decimal {
	return lendFromBorrow(cfg, BorrowRate(cfg, u), u)
}

func lendFromBorrow(cfg bank.InterestRateConfig, borrow, u decimal.Decimal) decimal.Decimal {
	share := one.Sub(cfg.TotalFee())
	if share.IsNegative() {
		share = decimal.Zero
	}
	return borrow.Mul(u).Mul(share)
}

// ComputeRates evaluates the curve at the bank's current utilization.
func ComputeRates(b *bank.Bank) Rates {
	u := b.Utilization()
	borrow := BorrowRate(b.Interest, u)
	return Rates{
		Utilization: u,
		BorrowAPR:   borrow,
		LendAPR:     lendFromBorrow(b.Interest, borrow, u),
	}
}
