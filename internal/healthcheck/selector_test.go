package healthcheck

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/health"
	"github.com/atmx/risk-engine/internal/model"
)

func market(seed byte) model.MarketID {
	var b [model.AddressLen]byte
	b[0] = seed
	b[model.AddressLen-1] = 3
	return model.MarketIDFromBytes(b)
}

func active(id model.MarketID) model.Balance {
	return model.Balance{BankID: id, Active: true, AssetShares: decimal.NewFromInt(1)}
}

// fixture returns n active balances in markets 1..n and a bank map that also
// covers markets 100..109.
func fixture(n int) ([]model.Balance, map[model.MarketID]*bank.Bank) {
	banks := make(map[model.MarketID]*bank.Bank)
	balances := make([]model.Balance, 0, n)
	for i := 1; i <= n; i++ {
		id := market(byte(i))
		banks[id] = &bank.Bank{ID: id}
		balances = append(balances, active(id))
	}
	for i := 100; i < 110; i++ {
		id := market(byte(i))
		banks[id] = &bank.Bank{ID: id}
	}
	return balances, banks
}

func TestSelect_CapacityBoundary(t *testing.T) {
	balances, banks := fixture(14)
	mandatory := []model.MarketID{market(100), market(101), market(102)}

	_, err := Select(balances, banks, mandatory, nil, 16)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("capacity 16: expected ErrCapacityExceeded, got %v", err)
	}

	got, err := Select(balances, banks, mandatory, nil, 17)
	if err != nil {
		t.Fatalf("capacity 17: unexpected error: %v", err)
	}
	if len(got) != 17 {
		t.Fatalf("expected 17 banks, got %d", len(got))
	}
	for i := 0; i < 14; i++ {
		if got[i].ID != balances[i].BankID {
			t.Errorf("slot %d: expected active bank %s, got %s", i, balances[i].BankID, got[i].ID)
		}
	}
	for i, id := range mandatory {
		if got[14+i].ID != id {
			t.Errorf("slot %d: expected mandatory bank %s, got %s", 14+i, id, got[14+i].ID)
		}
	}
}

func TestSelect_MandatoryAlreadyActive(t *testing.T) {
	balances, banks := fixture(3)
	mandatory := []model.MarketID{market(2), market(100), market(100)}

	got, err := Select(balances, banks, mandatory, nil, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.MarketID{market(1), market(2), market(3), market(100)}
	ids := IDs(got)
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("slot %d: expected %s, got %s", i, want[i], ids[i])
		}
	}
}

func TestSelect_ExcludedAndInactive(t *testing.T) {
	balances, banks := fixture(4)
	balances[1].Active = false

	got, err := Select(balances, banks, nil, []model.MarketID{market(3)}, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := IDs(got)
	if len(ids) != 2 || ids[0] != market(1) || ids[1] != market(4) {
		t.Errorf("unexpected selection %v", ids)
	}
}

func TestSelect_MandatoryOverridesExcluded(t *testing.T) {
	balances, banks := fixture(2)

	got, err := Select(balances, banks, []model.MarketID{market(1)}, []model.MarketID{market(1)}, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := IDs(got)
	if len(ids) != 2 || ids[0] != market(2) || ids[1] != market(1) {
		t.Errorf("unexpected selection %v", ids)
	}
}

func TestSelect_MissingBank(t *testing.T) {
	balances, banks := fixture(2)

	_, err := Select(balances, banks, []model.MarketID{market(200)}, nil, 16)
	var mde *health.MarketDataError
	if !errors.As(err, &mde) || mde.Market != market(200) {
		t.Fatalf("expected MarketDataError for %s, got %v", market(200), err)
	}
	if !errors.Is(err, health.ErrMissingMarketData) {
		t.Error("expected ErrMissingMarketData")
	}
}

func TestNewSelector_InvalidCapacity(t *testing.T) {
	if _, err := NewSelector(0); err != ErrInvalidCapacity {
		t.Errorf("expected ErrInvalidCapacity, got %v", err)
	}
}
