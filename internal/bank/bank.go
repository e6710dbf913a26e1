// Package bank models one lending market: its risk weights, interest curve
// parameters and share-pool accounting.
//
// A Bank is a read-only snapshot for the risk engine. It is replaced
// wholesale on every state refresh from the chain and never mutated by
// valuation code.
package bank

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/model"
)

var (
	// ErrInvalidCurveParameters is returned when a bank's interest curve
	// cannot be evaluated: fees out of range or optimal utilization
	// outside (0, 1).
	ErrInvalidCurveParameters = errors.New("bank: invalid interest curve parameters")

	// ErrInvalidRiskWeights is returned for weights outside their allowed
	// ranges.
	ErrInvalidRiskWeights = errors.New("bank: invalid risk weights")

	// ErrNegativeShares is returned when share or pool totals are negative.
	ErrNegativeShares = errors.New("bank: share totals must be non-negative")

	one = decimal.NewFromInt(1)
)

// RiskTier controls whether a bank's collateral can be mixed with borrows
// from other banks.
type RiskTier uint8

const (
	Collateral RiskTier = iota
	Isolated
)

func (t RiskTier) String() string {
	switch t {
	case Collateral:
		return "collateral"
	case Isolated:
		return "isolated"
	default:
		return "unknown"
	}
}

func (t RiskTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *RiskTier) UnmarshalText(text []byte) error {
	for _, v := range []RiskTier{Collateral, Isolated} {
		if v.String() == string(text) {
			*t = v
			return nil
		}
	}
	return fmt.Errorf("bank: unknown risk tier %q", text)
}

// AssetTag distinguishes ordinary banks from staked-collateral banks.
type AssetTag uint8

const (
	AssetTagDefault AssetTag = iota
	AssetTagNative
	AssetTagStaked
)

func (t AssetTag) String() string {
	switch t {
	case AssetTagDefault:
		return "default"
	case AssetTagNative:
		return "native"
	case AssetTagStaked:
		return "staked"
	default:
		return "unknown"
	}
}

func (t AssetTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *AssetTag) UnmarshalText(text []byte) error {
	for _, v := range []AssetTag{AssetTagDefault, AssetTagNative, AssetTagStaked} {
		if v.String() == string(text) {
			*t = v
			return nil
		}
	}
	return fmt.Errorf("bank: unknown asset tag %q", text)
}

// RiskConfig groups the risk weights applied per margin requirement type.
type RiskConfig struct {
	AssetWeightInitial         decimal.Decimal `json:"asset_weight_initial" yaml:"asset_weight_initial"`
	AssetWeightMaintenance     decimal.Decimal `json:"asset_weight_maintenance" yaml:"asset_weight_maintenance"`
	LiabilityWeightInitial     decimal.Decimal `json:"liability_weight_initial" yaml:"liability_weight_initial"`
	LiabilityWeightMaintenance decimal.Decimal `json:"liability_weight_maintenance" yaml:"liability_weight_maintenance"`
	AssetTag                   AssetTag        `json:"asset_tag" yaml:"asset_tag"`
	RiskTier                   RiskTier        `json:"risk_tier" yaml:"risk_tier"`
}

// InterestRateConfig holds the kinked curve parameters and the fees carved
// out of lender interest. Rates are annualized simple rates.
type InterestRateConfig struct {
	OptimalUtilization decimal.Decimal `json:"optimal_utilization" yaml:"optimal_utilization"`
	BaseRate           decimal.Decimal `json:"base_rate" yaml:"base_rate"`
	SlopeBelowOptimal  decimal.Decimal `json:"slope_below_optimal" yaml:"slope_below_optimal"`
	SlopeAboveOptimal  decimal.Decimal `json:"slope_above_optimal" yaml:"slope_above_optimal"`
	InsuranceFee       decimal.Decimal `json:"insurance_fee" yaml:"insurance_fee"`
	FixedFee           decimal.Decimal `json:"fixed_fee" yaml:"fixed_fee"`
	GroupFee           decimal.Decimal `json:"group_fee" yaml:"group_fee"`
}

// TotalFee returns the sum of the fees applied to lender interest.
func (c InterestRateConfig) TotalFee() decimal.Decimal {
	return c.InsuranceFee.Add(c.FixedFee).Add(c.GroupFee)
}

// Validate checks the curve parameters. It is run once when a bank snapshot
// is loaded, not on every rate computation.
func (c InterestRateConfig) Validate() error {
	if !c.OptimalUtilization.IsPositive() || c.OptimalUtilization.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: optimal utilization %s outside (0, 1)", ErrInvalidCurveParameters, c.OptimalUtilization)
	}
	for _, p := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"base rate", c.BaseRate},
		{"slope below optimal", c.SlopeBelowOptimal},
		{"slope above optimal", c.SlopeAboveOptimal},
		{"insurance fee", c.InsuranceFee},
		{"fixed fee", c.FixedFee},
		{"group fee", c.GroupFee},
	} {
		if p.v.IsNegative() {
			return fmt.Errorf("%w: %s %s is negative", ErrInvalidCurveParameters, p.name, p.v)
		}
	}
	if fee := c.TotalFee(); fee.GreaterThan(one) {
		return fmt.Errorf("%w: fee sum %s exceeds 1", ErrInvalidCurveParameters, fee)
	}
	return nil
}

// EmissionsConfig describes the reward program attached to a bank.
type EmissionsConfig struct {
	LendingActive   bool            `json:"lending_active" yaml:"lending_active"`
	BorrowingActive bool            `json:"borrowing_active" yaml:"borrowing_active"`
	Rate            decimal.Decimal `json:"rate" yaml:"rate"`           // reward tokens per token per year
	Remaining       decimal.Decimal `json:"remaining" yaml:"remaining"` // undistributed pool
}

// Bank is the configuration and accounting state of one lending market.
type Bank struct {
	ID           model.MarketID `json:"id" yaml:"id"`
	MintDecimals int32          `json:"mint_decimals" yaml:"mint_decimals"`

	Risk      RiskConfig         `json:"risk" yaml:"risk"`
	Interest  InterestRateConfig `json:"interest" yaml:"interest"`
	Emissions EmissionsConfig    `json:"emissions" yaml:"emissions"`

	// Share pools. Values are native (smallest-unit) token amounts.
	TotalAssetShares     decimal.Decimal `json:"total_asset_shares" yaml:"total_asset_shares"`
	TotalLiabilityShares decimal.Decimal `json:"total_liability_shares" yaml:"total_liability_shares"`
	TotalAssetValue      decimal.Decimal `json:"total_asset_value" yaml:"total_asset_value"`
	TotalLiabilityValue  decimal.Decimal `json:"total_liability_value" yaml:"total_liability_value"`

	LastUpdate int64 `json:"last_update" yaml:"last_update"` // unix seconds
}

// Validate runs every load-time check on the bank snapshot.
func (b *Bank) Validate() error {
	if _, err := model.ParseMarketID(string(b.ID)); err != nil {
		return err
	}
	if b.MintDecimals < 0 {
		return fmt.Errorf("bank %s: negative mint decimals %d", b.ID, b.MintDecimals)
	}
	for _, v := range []decimal.Decimal{b.TotalAssetShares, b.TotalLiabilityShares, b.TotalAssetValue, b.TotalLiabilityValue} {
		if v.IsNegative() {
			return fmt.Errorf("bank %s: %w", b.ID, ErrNegativeShares)
		}
	}
	if err := b.Risk.Validate(); err != nil {
		return fmt.Errorf("bank %s: %w", b.ID, err)
	}
	if err := b.Interest.Validate(); err != nil {
		return fmt.Errorf("bank %s: %w", b.ID, err)
	}
	return nil
}

// Validate checks that weights are non-negative, asset weights do not exceed
// one and liability weights are at least one.
func (r RiskConfig) Validate() error {
	for _, w := range []decimal.Decimal{r.AssetWeightInitial, r.AssetWeightMaintenance} {
		if w.IsNegative() || w.GreaterThan(one) {
			return fmt.Errorf("%w: asset weight %s outside [0, 1]", ErrInvalidRiskWeights, w)
		}
	}
	for _, w := range []decimal.Decimal{r.LiabilityWeightInitial, r.LiabilityWeightMaintenance} {
		if w.LessThan(one) {
			return fmt.Errorf("%w: liability weight %s below 1", ErrInvalidRiskWeights, w)
		}
	}
	return nil
}
