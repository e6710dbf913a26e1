package health

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/model"
	"github.com/atmx/risk-engine/internal/oracle"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func market(seed byte) model.MarketID {
	var b [model.AddressLen]byte
	b[0] = seed
	b[model.AddressLen-1] = 7
	return model.MarketIDFromBytes(b)
}

var (
	sol  = market(1)
	usdc = market(2)
	jup  = market(3)
)

// newBank returns a 6-decimal bank whose share exchange rate is exactly one.
func newBank(id model.MarketID) *bank.Bank {
	return &bank.Bank{
		ID:           id,
		MintDecimals: 6,
		Risk: bank.RiskConfig{
			AssetWeightInitial:         d(0.8),
			AssetWeightMaintenance:     d(0.9),
			LiabilityWeightInitial:     d(1.25),
			LiabilityWeightMaintenance: d(1.1),
		},
		Interest: bank.InterestRateConfig{
			OptimalUtilization: d(0.8),
			BaseRate:           d(0.01),
			SlopeBelowOptimal:  d(0.05),
			SlopeAboveOptimal:  d(0.5),
		},
		TotalAssetShares:     d(1e12),
		TotalAssetValue:      d(1e12),
		TotalLiabilityShares: d(5e11),
		TotalLiabilityValue:  d(5e11),
	}
}

// native converts a UI quantity to 6-decimal shares at a rate of one.
func native(ui float64) decimal.Decimal {
	return d(ui).Shift(6)
}

func lend(id model.MarketID, ui float64) model.Balance {
	return model.Balance{BankID: id, Active: true, AssetShares: native(ui), LiabilityShares: decimal.Zero}
}

func borrow(id model.MarketID, ui float64) model.Balance {
	return model.Balance{BankID: id, Active: true, AssetShares: decimal.Zero, LiabilityShares: native(ui)}
}

func newSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := NewSnapshot(
		[]*bank.Bank{newBank(sol), newBank(usdc)},
		map[model.MarketID]oracle.Price{
			sol:  oracle.NewPrice(d(10), d(0.2)),
			usdc: oracle.NewPrice(d(1), d(0)),
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return snap
}

func TestComputeHealthComponents_Scenario(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100)}}

	initial, err := ComputeHealthComponents(acct, snap, model.Initial, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !initial.Assets.Equal(d(784)) {
		t.Errorf("expected initial assets 784, got %s", initial.Assets)
	}

	equity, err := ComputeHealthComponents(acct, snap, model.Equity, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equity.Assets.Equal(d(1000)) {
		t.Errorf("expected equity assets 1000, got %s", equity.Assets)
	}
	if !equity.Liabilities.IsZero() {
		t.Errorf("expected no liabilities, got %s", equity.Liabilities)
	}
}

func TestComputeHealthComponents_IgnoresInactive(t *testing.T) {
	snap := newSnapshot(t)
	inactive := borrow(usdc, 500)
	inactive.Active = false
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100), inactive}}

	c, err := ComputeHealthComponents(acct, snap, model.Initial, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Liabilities.IsZero() {
		t.Errorf("inactive balance counted: %s", c.Liabilities)
	}
	if len(c.Balances) != 1 {
		t.Errorf("expected 1 balance result, got %d", len(c.Balances))
	}
}

func TestValuePosition_WeightTablePerRequirement(t *testing.T) {
	snap := newSnapshot(t)
	for _, id := range []model.MarketID{sol, usdc} {
		b, p, err := snap.Lookup(id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tests := []struct {
			mr         model.MarginRequirement
			assetW     decimal.Decimal
			liabW      decimal.Decimal
			assetPrice decimal.Decimal
			liabPrice  decimal.Decimal
		}{
			{model.Initial, b.Risk.AssetWeightInitial, b.Risk.LiabilityWeightInitial, p.Biased(oracle.Lowest), p.Biased(oracle.Highest)},
			{model.Maintenance, b.Risk.AssetWeightMaintenance, b.Risk.LiabilityWeightMaintenance, p.Biased(oracle.Lowest), p.Biased(oracle.Highest)},
			{model.Equity, d(1), d(1), p.PriceUnbiased, p.PriceUnbiased},
		}
		for _, tt := range tests {
			t.Run(id.String()+"/"+tt.mr.String(), func(t *testing.T) {
				a := ValuePosition(lend(id, 50), b, p, tt.mr)
				if want := d(50).Mul(tt.assetPrice).Mul(tt.assetW); !a.Assets.Equal(want) {
					t.Errorf("assets: expected %s, got %s", want, a.Assets)
				}
				if !a.Liabilities.IsZero() {
					t.Errorf("lend position has liabilities %s", a.Liabilities)
				}
				l := ValuePosition(borrow(id, 50), b, p, tt.mr)
				if want := d(50).Mul(tt.liabPrice).Mul(tt.liabW); !l.Liabilities.Equal(want) {
					t.Errorf("liabilities: expected %s, got %s", want, l.Liabilities)
				}
				if !l.Assets.IsZero() {
					t.Errorf("borrow position has assets %s", l.Assets)
				}
			})
		}
	}
}

func TestComputeFreeCollateral_ClampedBoundsUnclamped(t *testing.T) {
	snap := newSnapshot(t)
	tests := []struct {
		name string
		acct *model.Account
	}{
		{"healthy", &model.Account{Balances: []model.Balance{lend(sol, 100), borrow(usdc, 100)}}},
		{"underwater", &model.Account{Balances: []model.Balance{lend(sol, 10), borrow(usdc, 500)}}},
		{"empty", &model.Account{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clamped, _, err := ComputeFreeCollateral(tt.acct, snap, true, Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			signed, _, err := ComputeFreeCollateral(tt.acct, snap, false, Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if signed.GreaterThan(clamped) {
				t.Errorf("unclamped %s exceeds clamped %s", signed, clamped)
			}
			if !signed.IsNegative() && !signed.Equal(clamped) {
				t.Errorf("expected equal values, got %s and %s", signed, clamped)
			}
			if clamped.IsNegative() {
				t.Errorf("clamped free collateral is negative: %s", clamped)
			}
		})
	}
}

func TestComputeFreeCollateral_Underwater(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 10), borrow(usdc, 500)}}

	// 10 × 9.8 × 0.8 − 500 × 1 × 1.25
	signed, _, err := ComputeFreeCollateral(acct, snap, false, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !signed.Equal(d(-546.6)) {
		t.Errorf("expected -546.6, got %s", signed)
	}
}

func TestComputeAccountValue(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100), borrow(usdc, 250)}}

	v, _, err := ComputeAccountValue(acct, snap, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Equal(d(750)) {
		t.Errorf("expected 750, got %s", v)
	}
}

func TestComputeHealthFactor(t *testing.T) {
	snap := newSnapshot(t)

	noDebt := &model.Account{Balances: []model.Balance{lend(sol, 100)}}
	hf, _, err := ComputeHealthFactor(noDebt, snap, model.Maintenance, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hf.Equal(d(1)) {
		t.Errorf("expected 1 without liabilities, got %s", hf)
	}

	empty := &model.Account{}
	hf, _, err = ComputeHealthFactor(empty, snap, model.Maintenance, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hf.IsZero() {
		t.Errorf("expected 0 for an empty account, got %s", hf)
	}
}

func TestMissingMarketData_SkipAndWarn(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100), borrow(jup, 1000)}}

	c, err := ComputeHealthComponents(acct, snap, model.Initial, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Assets.Equal(d(784)) || !c.Liabilities.IsZero() {
		t.Errorf("expected 784/0, got %s/%s", c.Assets, c.Liabilities)
	}
	if len(c.Warnings) != 1 || c.Warnings[0].Market != jup || c.Warnings[0].Reason != MissingBank {
		t.Fatalf("expected a missing-bank warning for %s, got %v", jup, c.Warnings)
	}
	if !errors.Is(c.Warnings[0], ErrMissingMarketData) {
		t.Error("warning does not match ErrMissingMarketData")
	}
	if len(c.Balances) != 2 || !c.Balances[1].Skipped {
		t.Errorf("expected the second balance to be flagged skipped: %+v", c.Balances)
	}
}

func TestMissingMarketData_MissingPrice(t *testing.T) {
	snap := newSnapshot(t)
	snap.Banks[jup] = newBank(jup)
	acct := &model.Account{Balances: []model.Balance{borrow(jup, 1)}}

	c, err := ComputeHealthComponents(acct, snap, model.Equity, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Warnings) != 1 || c.Warnings[0].Reason != MissingPrice {
		t.Errorf("expected a missing-price warning, got %v", c.Warnings)
	}
}

func TestMissingMarketData_Strict(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100), borrow(jup, 1000)}}

	_, err := ComputeHealthComponents(acct, snap, model.Initial, Options{Strict: true})
	if !errors.Is(err, ErrMissingMarketData) {
		t.Fatalf("expected ErrMissingMarketData, got %v", err)
	}
	var mde *MarketDataError
	if !errors.As(err, &mde) || mde.Market != jup {
		t.Errorf("expected market %s in error, got %v", jup, err)
	}
}

func TestExcludedBanks(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100), borrow(usdc, 100)}}

	c, err := ComputeHealthComponents(acct, snap, model.Equity, Options{ExcludedBanks: []model.MarketID{usdc}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Liabilities.IsZero() {
		t.Errorf("excluded bank counted: %s", c.Liabilities)
	}
}

func TestTracker_MatchesLegacy(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 37.5), borrow(usdc, 120), borrow(jup, 3)}}
	tr := NewTracker(nil)

	if _, ok := tr.Cache(); ok {
		t.Fatal("new tracker should have no cache")
	}
	now := time.Unix(1_700_000_000, 0)
	cache, warnings, err := tr.Refresh(acct, snap, Options{}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 || len(cache.Skipped) != 1 || cache.Skipped[0] != jup {
		t.Errorf("expected %s skipped, got %v", jup, cache.Skipped)
	}
	if !cache.ComputedAt.Equal(now) {
		t.Errorf("expected computed_at %v, got %v", now, cache.ComputedAt)
	}

	for _, mr := range model.MarginRequirements {
		legacy, err := ComputeHealthComponents(acct, snap, mr, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cached := ComponentsFromCache(cache, mr)
		if !legacy.Assets.Equal(cached.Assets) || !legacy.Liabilities.Equal(cached.Liabilities) {
			t.Errorf("%s: legacy %s/%s, cache %s/%s", mr, legacy.Assets, legacy.Liabilities, cached.Assets, cached.Liabilities)
		}
	}
}

func TestTracker_ErrorKeepsPreviousCache(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 1)}}
	tr := NewTracker(nil)
	first, _, err := tr.Refresh(acct, snap, Options{}, time.Unix(1, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acct.Balances = append(acct.Balances, borrow(jup, 1))
	if _, _, err := tr.Refresh(acct, snap, Options{Strict: true}, time.Unix(2, 0)); err == nil {
		t.Fatal("expected strict refresh to fail")
	}
	got, ok := tr.Cache()
	if !ok || !got.ComputedAt.Equal(first.ComputedAt) {
		t.Errorf("cache replaced after failed refresh: %+v", got)
	}
}

func TestTracker_ConcurrentReaders(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100), borrow(usdc, 100)}}
	tr := NewTracker(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if _, _, err := tr.Refresh(acct, snap, Options{}, time.Unix(int64(i), 0)); err != nil {
				t.Errorf("refresh: %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			if c, ok := tr.Cache(); ok && !c.AssetValueEquity.Equal(d(1000)) {
				t.Errorf("torn cache: %s", c.AssetValueEquity)
			}
		}()
	}
	wg.Wait()
}

func TestSummarize_Deterministic(t *testing.T) {
	acct := &model.Account{Balances: []model.Balance{lend(sol, 12.345678), borrow(usdc, 33.3)}}

	var outputs [][]byte
	for i := 0; i < 2; i++ {
		snap := newSnapshot(t)
		s, err := Summarize(acct, snap, 8760, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		outputs = append(outputs, out)
	}
	if string(outputs[0]) != string(outputs[1]) {
		t.Errorf("outputs differ:\n%s\n%s", outputs[0], outputs[1])
	}
}

func TestSummarize_Figures(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100), borrow(usdc, 100)}}

	s, err := Summarize(acct, snap, 8760, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 784 − 125
	if !s.FreeCollateral.Equal(d(659)) {
		t.Errorf("expected free collateral 659, got %s", s.FreeCollateral)
	}
	if !s.AccountValue.Equal(d(900)) {
		t.Errorf("expected account value 900, got %s", s.AccountValue)
	}
	// 100 × 9.8 × 0.9 = 882; 100 × 1 × 1.1 = 110
	if !s.HealthFactor.Equal(d(772).Div(d(882))) {
		t.Errorf("unexpected health factor %s", s.HealthFactor)
	}
}

func TestComputeNetApy(t *testing.T) {
	snap := newSnapshot(t)

	// Both banks sit at 50% utilization: borrow APR 0.01 + 0.05 × 0.5/0.8,
	// lend APR = borrow × 0.5 with no fees.
	borrowAPR := d(0.01).Add(d(0.05).Mul(d(0.5)).Div(d(0.8)))
	lendAPR := borrowAPR.Mul(d(0.5))

	lender := &model.Account{Balances: []model.Balance{lend(sol, 100)}}
	apr, _, err := ComputeNetApy(lender, snap, 0, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !apr.Equal(lendAPR) {
		t.Errorf("expected %s, got %s", lendAPR, apr)
	}

	apy, _, err := ComputeNetApy(lender, snap, 8760, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !apy.GreaterThan(apr) {
		t.Errorf("compounded %s should exceed simple %s", apy, apr)
	}

	empty := &model.Account{}
	zero, _, err := ComputeNetApy(empty, snap, 8760, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !zero.IsZero() {
		t.Errorf("expected 0 for an empty account, got %s", zero)
	}
}

func TestComputeLiquidationPrice_Lend(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100), borrow(usdc, 500)}}

	price, ok, _, err := ComputeLiquidationPrice(acct, snap, sol, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a liquidation price")
	}
	// 550 / (100 × 0.9) + 0.2
	want := d(550).Div(d(90)).Add(d(0.2))
	if !price.Equal(want) {
		t.Errorf("expected %s, got %s", want, price)
	}

	// At the solved price maintenance health is exactly breached.
	moved := newSnapshot(t)
	moved.Prices[sol] = oracle.NewPrice(price, d(0.2))
	c, err := ComputeHealthComponents(acct, moved, model.Maintenance, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := c.Net().Abs(); diff.GreaterThan(d(1e-9)) {
		t.Errorf("expected zero maintenance health at liquidation price, got %s", c.Net())
	}
}

func TestComputeLiquidationPrice_Borrow(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100), borrow(usdc, 500)}}

	price, ok, _, err := ComputeLiquidationPrice(acct, snap, usdc, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a liquidation price")
	}
	// 100 × 9.8 × 0.9 / (500 × 1.1)
	want := d(882).Div(d(550))
	if !price.Equal(want) {
		t.Errorf("expected %s, got %s", want, price)
	}
	if !price.GreaterThan(d(1)) {
		t.Errorf("a healthy borrow should liquidate above the current price, got %s", price)
	}
}

func TestComputeLiquidationPrice_MonotonicInWeight(t *testing.T) {
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100), borrow(usdc, 500)}}

	var prev decimal.Decimal
	for i, w := range []float64{0.5, 0.7, 0.9, 1} {
		snap := newSnapshot(t)
		snap.Banks[sol].Risk.AssetWeightMaintenance = d(w)
		price, ok, _, err := ComputeLiquidationPrice(acct, snap, sol, Options{})
		if err != nil || !ok {
			t.Fatalf("weight %v: ok=%v err=%v", w, ok, err)
		}
		if i > 0 && !price.LessThan(prev) {
			t.Errorf("weight %v: price %s did not fall below %s", w, price, prev)
		}
		prev = price
	}
}

func TestComputeLiquidationPrice_Undefined(t *testing.T) {
	snap := newSnapshot(t)

	tests := []struct {
		name string
		acct *model.Account
		bank model.MarketID
	}{
		{"lend without liabilities", &model.Account{Balances: []model.Balance{lend(sol, 100)}}, sol},
		{"zero weight", &model.Account{Balances: []model.Balance{lend(usdc, 100), borrow(sol, 1)}}, usdc},
	}
	snap.Banks[usdc].Risk.AssetWeightMaintenance = d(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, _, err := ComputeLiquidationPrice(tt.acct, snap, tt.bank, Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok {
				t.Error("expected no liquidation price")
			}
		})
	}
}

func TestComputeLiquidationPrice_NoBalance(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100)}}

	_, _, _, err := ComputeLiquidationPrice(acct, snap, usdc, Options{})
	if !errors.Is(err, ErrBalanceNotFound) {
		t.Errorf("expected ErrBalanceNotFound, got %v", err)
	}
}

func TestComputeLiquidationPrices(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100), borrow(usdc, 500), borrow(jup, 1)}}

	prices, warnings, err := ComputeLiquidationPrices(acct, snap, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 3 {
		t.Fatalf("expected 3 results, got %d", len(prices))
	}
	if prices[0].Price == nil || prices[1].Price == nil {
		t.Error("expected prices for known markets")
	}
	if prices[2].Price != nil {
		t.Error("expected nil price for missing market")
	}
	if len(warnings) == 0 {
		t.Error("expected warnings for missing market")
	}
}

func TestComputeMaxBorrow(t *testing.T) {
	snap := newSnapshot(t)
	snap.Prices[sol] = oracle.NewPrice(d(10), d(0))
	acct := &model.Account{Balances: []model.Balance{lend(sol, 100)}}

	// Free collateral 800 at 1.25 × 1.
	got, _, err := ComputeMaxBorrow(acct, snap, usdc, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(d(640)) {
		t.Errorf("expected 640, got %s", got)
	}

	// The whole deposit is released before borrowing against nothing left.
	got, _, err = ComputeMaxBorrow(acct, snap, sol, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(d(100)) {
		t.Errorf("expected 100, got %s", got)
	}

	if _, _, err := ComputeMaxBorrow(acct, snap, jup, Options{}); !errors.Is(err, ErrMissingMarketData) {
		t.Errorf("expected ErrMissingMarketData, got %v", err)
	}
}

func TestCheckRiskTiers(t *testing.T) {
	snap := newSnapshot(t)
	snap.Banks[sol].Risk.RiskTier = bank.Isolated

	alone := &model.Account{Balances: []model.Balance{lend(usdc, 100), borrow(sol, 1)}}
	if err := CheckRiskTiers(alone, snap); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	mixed := &model.Account{Balances: []model.Balance{borrow(usdc, 100), borrow(sol, 1)}}
	if err := CheckRiskTiers(mixed, snap); !errors.Is(err, ErrIsolatedRiskTier) {
		t.Errorf("expected ErrIsolatedRiskTier, got %v", err)
	}
}

func TestNewSnapshot_RejectsInvalidCurve(t *testing.T) {
	b := newBank(sol)
	b.Interest.OptimalUtilization = d(1.2)
	if _, err := NewSnapshot([]*bank.Bank{b}, nil); !errors.Is(err, bank.ErrInvalidCurveParameters) {
		t.Errorf("expected ErrInvalidCurveParameters, got %v", err)
	}
}

func TestSummaryFromCache_MatchesSummarize(t *testing.T) {
	snap := newSnapshot(t)
	acct := &model.Account{Balances: []model.Balance{lend(sol, 42), borrow(usdc, 77)}}

	legacy, err := Summarize(acct, snap, 8760, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache, _, err := BuildCache(acct, snap, Options{}, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cached := SummaryFromCache(cache)

	for _, pair := range [][2]decimal.Decimal{
		{legacy.FreeCollateral, cached.FreeCollateral},
		{legacy.SignedFreeCollateral, cached.SignedFreeCollateral},
		{legacy.AccountValue, cached.AccountValue},
		{legacy.HealthFactor, cached.HealthFactor},
	} {
		if !pair[0].Equal(pair[1]) {
			t.Errorf("legacy %s != cached %s", pair[0], pair[1])
		}
	}
}
