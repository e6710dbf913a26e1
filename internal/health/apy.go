package health

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/interest"
	"github.com/atmx/risk-engine/internal/model"
)

// ComputeNetApy returns the account's blended yield: lend APR weighted by
// each asset's equity value, minus borrow APR weighted by each liability's
// equity value, over account value, compounded compoundingPeriods times per
// year. An account with zero net value has zero net APY.
func ComputeNetApy(acct *model.Account, snap *Snapshot, compoundingPeriods int64, opts Options) (decimal.Decimal, Warnings, error) {
	c, err := ComputeHealthComponents(acct, snap, model.Equity, opts)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return netApy(snap, c, compoundingPeriods), c.Warnings, nil
}

// netApy reuses the equity components already computed for the balances.
func netApy(snap *Snapshot, equity Components, compoundingPeriods int64) decimal.Decimal {
	total := equity.Net()
	if total.IsZero() {
		return decimal.Zero
	}
	apr := decimal.Zero
	for _, r := range equity.Balances {
		if r.Skipped {
			continue
		}
		b := snap.Banks[r.BankID]
		rates := interest.ComputeRates(b)
		apr = apr.Add(rates.LendAPR.Mul(r.Position.Assets).Div(total))
		apr = apr.Sub(rates.BorrowAPR.Mul(r.Position.Liabilities).Div(total))
	}
	return interest.AprToApy(apr, compoundingPeriods)
}
