package health

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/model"
	"github.com/atmx/risk-engine/internal/oracle"
)

// Position is the USD value of one balance. At most one side is non-zero.
type Position struct {
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
}

// Biases returns the price bias applied to assets and liabilities for a
// margin requirement: unbiased for Equity, conservative otherwise.
func Biases(mr model.MarginRequirement) (asset, liability oracle.Bias) {
	if mr == model.Equity {
		return oracle.None, oracle.None
	}
	return oracle.Lowest, oracle.Highest
}

// ValuePosition converts a balance's shares into weighted, price-biased USD
// value. It ignores the bank's risk tier; isolation rules are enforced by
// the transaction layer (see CheckRiskTiers).
func ValuePosition(bal model.Balance, b *bank.Bank, price oracle.Price, mr model.MarginRequirement) Position {
	assetBias, liabBias := Biases(mr)
	assetWeight, liabWeight := b.Weights(mr)

	pos := Position{Assets: decimal.Zero, Liabilities: decimal.Zero}
	if bal.AssetShares.IsPositive() {
		qty := b.AssetQuantity(bal.AssetShares)
		pos.Assets = qty.Mul(price.Biased(assetBias)).Mul(assetWeight)
	}
	if bal.LiabilityShares.IsPositive() {
		qty := b.LiabilityQuantity(bal.LiabilityShares)
		pos.Liabilities = qty.Mul(price.Biased(liabBias)).Mul(liabWeight)
	}
	return pos
}
