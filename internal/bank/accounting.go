package bank

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/model"
)

// AssetShareValue is the native token value of one asset share:
// TotalAssetValue / TotalAssetShares, or 1 for an empty pool.
func (b *Bank) AssetShareValue() decimal.Decimal {
	return shareValue(b.TotalAssetValue, b.TotalAssetShares)
}

// LiabilityShareValue is the native token value of one liability share.
func (b *Bank) LiabilityShareValue() decimal.Decimal {
	return shareValue(b.TotalLiabilityValue, b.TotalLiabilityShares)
}

func shareValue(total, shares decimal.Decimal) decimal.Decimal {
	if !shares.IsPositive() {
		return one
	}
	return total.Div(shares)
}

// AssetQuantity converts asset shares to a UI-decimal token quantity.
func (b *Bank) AssetQuantity(shares decimal.Decimal) decimal.Decimal {
	return b.ToUI(shares.Mul(b.AssetShareValue()))
}

// LiabilityQuantity converts liability shares to a UI-decimal token quantity.
func (b *Bank) LiabilityQuantity(shares decimal.Decimal) decimal.Decimal {
	return b.ToUI(shares.Mul(b.LiabilityShareValue()))
}

// ToUI shifts a native amount by the mint decimals.
func (b *Bank) ToUI(native decimal.Decimal) decimal.Decimal {
	return native.Shift(-b.MintDecimals)
}

// ToNative shifts a UI amount back to smallest units.
func (b *Bank) ToNative(ui decimal.Decimal) decimal.Decimal {
	return ui.Shift(b.MintDecimals)
}

// TotalAssetQuantity is the UI quantity deposited in the bank.
func (b *Bank) TotalAssetQuantity() decimal.Decimal {
	return b.AssetQuantity(b.TotalAssetShares)
}

// TotalLiabilityQuantity is the UI quantity borrowed from the bank.
func (b *Bank) TotalLiabilityQuantity() decimal.Decimal {
	return b.LiabilityQuantity(b.TotalLiabilityShares)
}

// Utilization returns borrowed / deposited, or zero for an empty bank.
func (b *Bank) Utilization() decimal.Decimal {
	if !b.TotalAssetValue.IsPositive() {
		return decimal.Zero
	}
	return b.TotalLiabilityValue.Div(b.TotalAssetValue)
}

// Weights returns the asset and liability weight for a margin requirement.
// Equity valuation is unweighted.
func (b *Bank) Weights(mr model.MarginRequirement) (asset, liability decimal.Decimal) {
	switch mr {
	case model.Initial:
		return b.Risk.AssetWeightInitial, b.Risk.LiabilityWeightInitial
	case model.Maintenance:
		return b.Risk.AssetWeightMaintenance, b.Risk.LiabilityWeightMaintenance
	case model.Equity:
		return one, one
	default:
		return decimal.Zero, decimal.Zero
	}
}

// AssetWeight returns the asset weight for a margin requirement.
func (b *Bank) AssetWeight(mr model.MarginRequirement) decimal.Decimal {
	w, _ := b.Weights(mr)
	return w
}

// LiabilityWeight returns the liability weight for a margin requirement.
func (b *Bank) LiabilityWeight(mr model.MarginRequirement) decimal.Decimal {
	_, w := b.Weights(mr)
	return w
}
