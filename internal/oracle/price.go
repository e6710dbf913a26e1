// Package oracle models an oracle price reading with its confidence interval.
//
// A Price is an immutable value built fresh from every oracle fetch. Biased
// readings are derived per call and never stored: assets are valued at the
// Lowest reading and liabilities at the Highest reading whenever a margin
// requirement is evaluated.
package oracle

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNegativeConfidence is returned when a confidence interval is negative.
var ErrNegativeConfidence = errors.New("oracle: confidence interval must be non-negative")

// ErrNegativePrice is returned when a price is negative.
var ErrNegativePrice = errors.New("oracle: price must be non-negative")

// Bias selects which edge of the confidence interval a reading uses.
type Bias uint8

const (
	None Bias = iota
	Lowest
	Highest
)

func (b Bias) String() string {
	switch b {
	case None:
		return "none"
	case Lowest:
		return "lowest"
	case Highest:
		return "highest"
	default:
		return "unknown"
	}
}

// Price is one oracle reading. Both the smoothed and the realtime variants
// carry their own confidence interval.
type Price struct {
	PriceUnbiased      decimal.Decimal `json:"price_unbiased" yaml:"price_unbiased"`
	ConfidenceInterval decimal.Decimal `json:"confidence_interval" yaml:"confidence_interval"`
	PriceRealtime      decimal.Decimal `json:"price_realtime" yaml:"price_realtime"`
	ConfidenceRealtime decimal.Decimal `json:"confidence_realtime" yaml:"confidence_realtime"`
}

// NewPrice builds a Price whose realtime variant equals the smoothed one.
func NewPrice(price, confidence decimal.Decimal) Price {
	return Price{
		PriceUnbiased:      price,
		ConfidenceInterval: confidence,
		PriceRealtime:      price,
		ConfidenceRealtime: confidence,
	}
}

// Validate checks that prices and confidence intervals are non-negative.
func (p Price) Validate() error {
	if p.PriceUnbiased.IsNegative() || p.PriceRealtime.IsNegative() {
		return ErrNegativePrice
	}
	if p.ConfidenceInterval.IsNegative() || p.ConfidenceRealtime.IsNegative() {
		return ErrNegativeConfidence
	}
	return nil
}

// Biased returns the smoothed price shifted by its confidence interval.
func (p Price) Biased(bias Bias) decimal.Decimal {
	return biased(p.PriceUnbiased, p.ConfidenceInterval, bias)
}

// BiasedRealtime returns the realtime price shifted by its confidence
// interval.
func (p Price) BiasedRealtime(bias Bias) decimal.Decimal {
	return biased(p.PriceRealtime, p.ConfidenceRealtime, bias)
}

// Spread returns the distance between the unbiased and the biased reading.
func (p Price) Spread(bias Bias) decimal.Decimal {
	return p.Biased(bias).Sub(p.PriceUnbiased).Abs()
}

func biased(price, confidence decimal.Decimal, bias Bias) decimal.Decimal {
	switch bias {
	case Lowest:
		return decimal.Max(decimal.Zero, price.Sub(confidence))
	case Highest:
		return price.Add(confidence)
	default:
		return price
	}
}
