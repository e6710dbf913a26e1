package health

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/model"
)

// ComputeLiquidationPrice solves for the oracle price of bankID at which the
// account's maintenance assets equal its maintenance liabilities, holding
// every other balance at its current valuation.
//
// For a lend position the result is a floor: the price has to fall to it.
// For a borrow position it is a ceiling. The confidence interval is folded
// back in so the result is comparable with the unbiased oracle price.
//
// ok is false when no liquidation price exists: the position's weighted
// quantity is zero, a lend position has nothing to repay elsewhere, or the
// solution is negative. A missing price for bankID itself is reported like
// any other missing market data.
func ComputeLiquidationPrice(acct *model.Account, snap *Snapshot, bankID model.MarketID, opts Options) (price decimal.Decimal, ok bool, warnings Warnings, err error) {
	bal, found := acct.Balance(bankID)
	if !found {
		return decimal.Zero, false, nil, ErrBalanceNotFound
	}
	b, p, mde := snap.lookup(bankID)
	if mde != nil {
		return decimal.Zero, false, Warnings{mde}, mde
	}

	others := opts
	others.ExcludedBanks = append(append([]model.MarketID(nil), opts.ExcludedBanks...), bankID)
	c, err := computeComponents(acct.Balances, snap, model.Maintenance, others)
	if err != nil {
		return decimal.Zero, false, nil, err
	}
	assets, liabilities := c.Assets, c.Liabilities

	var result decimal.Decimal
	switch {
	case bal.IsLending():
		coeff := b.AssetQuantity(bal.AssetShares).Mul(b.AssetWeight(model.Maintenance))
		if coeff.IsZero() || liabilities.IsZero() {
			return decimal.Zero, false, c.Warnings, nil
		}
		result = liabilities.Sub(assets).Div(coeff).Add(p.ConfidenceInterval)
	case bal.IsBorrowing():
		coeff := b.LiabilityQuantity(bal.LiabilityShares).Mul(b.LiabilityWeight(model.Maintenance))
		if coeff.IsZero() {
			return decimal.Zero, false, c.Warnings, nil
		}
		result = assets.Sub(liabilities).Div(coeff).Sub(p.ConfidenceInterval)
	default:
		return decimal.Zero, false, c.Warnings, nil
	}
	if result.IsNegative() {
		return decimal.Zero, false, c.Warnings, nil
	}
	return result, true, c.Warnings, nil
}

// LiquidationPrice is the solver output for one balance.
type LiquidationPrice struct {
	BankID model.MarketID   `json:"bank_id"`
	Price  *decimal.Decimal `json:"price"`
}

// ComputeLiquidationPrices runs the solver for every active balance in
// account order. Price is nil where no liquidation price exists or the
// balance's own market data is missing.
func ComputeLiquidationPrices(acct *model.Account, snap *Snapshot, opts Options) ([]LiquidationPrice, Warnings, error) {
	var (
		out      []LiquidationPrice
		warnings Warnings
	)
	for _, bal := range acct.ActiveBalances() {
		if opts.excluded(bal.BankID) {
			continue
		}
		lp := LiquidationPrice{BankID: bal.BankID}
		price, ok, w, err := ComputeLiquidationPrice(acct, snap, bal.BankID, opts)
		warnings = warnings.merge(w)
		if err != nil {
			if opts.Strict {
				return nil, nil, err
			}
			var mde *MarketDataError
			if !errors.As(err, &mde) {
				return nil, nil, err
			}
		} else if ok {
			lp.Price = &price
		}
		out = append(out, lp)
	}
	return out, warnings, nil
}
