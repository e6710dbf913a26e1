package cmd

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/atmx/risk-engine/internal/emissions"
	"github.com/atmx/risk-engine/internal/health"
	"github.com/atmx/risk-engine/internal/model"
)

type healthReport struct {
	AccountID model.AccountID  `json:"account_id"`
	Skipped   []model.MarketID `json:"skipped"`
	health.Summary
}

func newHealthCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Print health components, free collateral and net APY per account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			accts, err := e.accounts(g.accountID)
			if err != nil {
				return err
			}
			reports := make([]healthReport, 0, len(accts))
			for _, acct := range accts {
				s, err := health.Summarize(acct, e.snap, e.cfg.Engine.CompoundingPeriodsPerYear, e.opts)
				if err != nil {
					return err
				}
				logSkipped(acct.ID, s.Warnings)
				skipped := s.Warnings.Markets()
				if skipped == nil {
					skipped = []model.MarketID{}
				}
				reports = append(reports, healthReport{AccountID: acct.ID, Skipped: skipped, Summary: s})
			}
			return printJSON(cmd.OutOrStdout(), reports)
		},
	}
	addSnapshotFlags(cmd, g)
	return cmd
}

type liquidationReport struct {
	AccountID model.AccountID           `json:"account_id"`
	Prices    []health.LiquidationPrice `json:"prices"`
}

func newLiquidationCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liquidation",
		Short: "Print the liquidation price of every active balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			accts, err := e.accounts(g.accountID)
			if err != nil {
				return err
			}
			reports := make([]liquidationReport, 0, len(accts))
			for _, acct := range accts {
				prices, warnings, err := health.ComputeLiquidationPrices(acct, e.snap, e.opts)
				if err != nil {
					return err
				}
				logSkipped(acct.ID, warnings)
				if prices == nil {
					prices = []health.LiquidationPrice{}
				}
				reports = append(reports, liquidationReport{AccountID: acct.ID, Prices: prices})
			}
			return printJSON(cmd.OutOrStdout(), reports)
		},
	}
	addSnapshotFlags(cmd, g)
	return cmd
}

type emissionsEntry struct {
	BankID model.MarketID  `json:"bank_id"`
	Owed   decimal.Decimal `json:"owed"`
}

type emissionsReport struct {
	AccountID model.AccountID  `json:"account_id"`
	Now       int64            `json:"now"`
	Balances  []emissionsEntry `json:"balances"`
}

func newEmissionsCmd(g *globalFlags) *cobra.Command {
	var now int64
	cmd := &cobra.Command{
		Use:   "emissions",
		Short: "Print emissions owed per balance at the snapshot time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			at := e.file.Now
			if now != 0 {
				at = now
			}
			accts, err := e.accounts(g.accountID)
			if err != nil {
				return err
			}
			cfg := e.cfg.Engine.Emissions()
			reports := make([]emissionsReport, 0, len(accts))
			for _, acct := range accts {
				r := emissionsReport{AccountID: acct.ID, Now: at, Balances: []emissionsEntry{}}
				for _, bal := range acct.ActiveBalances() {
					b, ok := e.snap.Banks[bal.BankID]
					if !ok {
						continue
					}
					r.Balances = append(r.Balances, emissionsEntry{
						BankID: bal.BankID,
						Owed:   emissions.Owed(bal, b, time.Unix(at, 0), cfg),
					})
				}
				reports = append(reports, r)
			}
			return printJSON(cmd.OutOrStdout(), reports)
		},
	}
	addSnapshotFlags(cmd, g)
	cmd.Flags().Int64Var(&now, "now", 0, "unix time to accrue to (default: the snapshot's now)")
	return cmd
}
