package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/health"
	"github.com/atmx/risk-engine/internal/model"
)

func market(seed byte) model.MarketID {
	var b [model.AddressLen]byte
	b[0] = seed
	b[model.AddressLen-1] = 9
	return model.MarketIDFromBytes(b)
}

func account(seed byte) model.AccountID {
	var b [model.AddressLen]byte
	b[1] = seed
	return model.AccountIDFromBytes(b)
}

func fixtureYAML() string {
	return fmt.Sprintf(`
now: 1700000000
banks:
  - id: %[1]s
    mint_decimals: 6
    risk:
      asset_weight_initial: 0.8
      asset_weight_maintenance: 0.9
      liability_weight_initial: 1.25
      liability_weight_maintenance: 1.1
      risk_tier: isolated
    interest:
      optimal_utilization: 0.8
      base_rate: 0.01
      slope_below_optimal: 0.05
      slope_above_optimal: 0.5
    total_asset_shares: 1000000000000
    total_asset_value: 1000000000000
prices:
  %[1]s:
    price_unbiased: 10
    confidence_interval: 0.2
    price_realtime: 10
    confidence_realtime: 0.2
accounts:
  - id: %[2]s
    balances:
      - bank_id: %[1]s
        active: true
        asset_shares: 100000000
        liability_shares: 0
`, market(1), account(1))
}

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	f, err := Load(writeFile(t, "snap.yaml", fixtureYAML()))
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_000), f.Now)
	require.Len(t, f.Banks, 1)
	require.Equal(t, bank.Isolated, f.Banks[0].Risk.RiskTier)
	require.True(t, f.Banks[0].Risk.AssetWeightInitial.Equal(decimal.RequireFromString("0.8")))

	snap, err := f.Snapshot()
	require.NoError(t, err)
	acct, err := f.Account("")
	require.NoError(t, err)

	c, err := health.ComputeHealthComponents(acct, snap, model.Initial, health.Options{})
	require.NoError(t, err)
	require.True(t, c.Assets.Equal(decimal.NewFromInt(784)), "got %s", c.Assets)
}

func TestLoad_JSONMatchesYAML(t *testing.T) {
	fromYAML, err := Load(writeFile(t, "snap.yml", fixtureYAML()))
	require.NoError(t, err)

	raw, err := json.Marshal(fromYAML)
	require.NoError(t, err)
	fromJSON, err := Load(writeFile(t, "snap.json", string(raw)))
	require.NoError(t, err)

	again, err := json.Marshal(fromJSON)
	require.NoError(t, err)
	require.JSONEq(t, string(raw), string(again))
}

func TestLoad_UnknownFormat(t *testing.T) {
	_, err := Load(writeFile(t, "snap.toml", ""))
	require.True(t, errors.Is(err, ErrUnknownFormat), "got %v", err)
}

func TestLoad_InvalidAccount(t *testing.T) {
	contents := fmt.Sprintf(`
accounts:
  - id: %[1]s
    balances:
      - bank_id: %[2]s
        active: true
        asset_shares: 1
        liability_shares: 1
`, account(2), market(2))
	_, err := Load(writeFile(t, "snap.yaml", contents))
	require.True(t, errors.Is(err, model.ErrMixedBalance), "got %v", err)
}

func TestAccount_Lookup(t *testing.T) {
	f, err := Decode([]byte(fixtureYAML()), ".yaml")
	require.NoError(t, err)

	acct, err := f.Account(account(1))
	require.NoError(t, err)
	require.Equal(t, account(1), acct.ID)

	_, err = f.Account(account(9))
	require.Error(t, err)
}
