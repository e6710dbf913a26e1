package health

import (
	"fmt"

	"github.com/atmx/risk-engine/internal/bank"
	"github.com/atmx/risk-engine/internal/model"
)

// CheckRiskTiers rejects accounts that borrow from an isolated bank together
// with any other bank. Valuation does not call it; the transaction layer
// runs it before building a borrow. Balances whose bank is missing from the
// snapshot are ignored here and surface through the valuation warnings.
func CheckRiskTiers(acct *model.Account, snap *Snapshot) error {
	var (
		borrows  int
		isolated model.MarketID
	)
	for _, bal := range acct.ActiveBalances() {
		if !bal.IsBorrowing() {
			continue
		}
		borrows++
		if b, ok := snap.Banks[bal.BankID]; ok && b != nil && b.Risk.RiskTier == bank.Isolated {
			isolated = bal.BankID
		}
	}
	if isolated != "" && borrows > 1 {
		return fmt.Errorf("%w: %s", ErrIsolatedRiskTier, isolated)
	}
	return nil
}
