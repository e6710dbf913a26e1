package interest

import "github.com/shopspring/decimal"

// compoundingScale is the number of decimal places kept between squaring
// steps. Exact repeated squaring would grow the mantissa without bound.
const compoundingScale int32 = 18

// AprToApy converts a simple annual rate to the equivalent yield when
// interest compounds periods times per year:
//
//	apy = (1 + apr/periods)^periods − 1
//
// A non-positive periods count returns apr unchanged.
func AprToApy(apr decimal.Decimal, periods int64) decimal.Decimal {
	if periods <= 0 || apr.IsZero() {
		return apr
	}
	n := decimal.NewFromInt(periods)
	base := one.Add(apr.DivRound(n, compoundingScale))
	return powRound(base, periods).Sub(one).Round(compoundingScale - 2)
}

// powRound raises base to a non-negative integer power by squaring,
// rounding every intermediate product.
func powRound(base decimal.Decimal, exp int64) decimal.Decimal {
	result := one
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base).Round(compoundingScale)
		}
		base = base.Mul(base).Round(compoundingScale)
		exp >>= 1
	}
	return result
}
