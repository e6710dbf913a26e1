package health

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/model"
	"github.com/atmx/risk-engine/internal/oracle"
)

// ComputeMaxBorrow returns how many tokens (UI units) of bankID the account
// can borrow before free collateral reaches zero.
//
// Borrowing is priced at the Highest reading and the initial liability
// weight. When the account already lends in bankID, that deposit is released
// first: up to free collateral worth of it is withdrawn at the Lowest reading
// and initial asset weight, and whatever free collateral remains is borrowed.
func ComputeMaxBorrow(acct *model.Account, snap *Snapshot, bankID model.MarketID, opts Options) (decimal.Decimal, Warnings, error) {
	b, p, err := snap.Lookup(bankID)
	if err != nil {
		return decimal.Zero, nil, err
	}
	c, err := computeComponents(acct.Balances, snap, model.Initial, opts)
	if err != nil {
		return decimal.Zero, nil, err
	}
	free := freeCollateral(c, true)
	total := decimal.Zero

	if bal, ok := acct.Balance(bankID); ok && bal.IsLending() && !opts.excluded(bankID) {
		deposit := ValuePosition(bal, b, p, model.Initial).Assets
		untied := decimal.Min(free, deposit)
		denom := p.Biased(oracle.Lowest).Mul(b.AssetWeight(model.Initial))
		if denom.IsPositive() {
			total = total.Add(untied.Div(denom))
		}
		free = free.Sub(untied)
	}

	denom := p.Biased(oracle.Highest).Mul(b.LiabilityWeight(model.Initial))
	if denom.IsPositive() && free.IsPositive() {
		total = total.Add(free.Div(denom))
	}
	return total, c.Warnings, nil
}
