package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/atmx/risk-engine/internal/health"
	"github.com/atmx/risk-engine/internal/healthcheck"
	"github.com/atmx/risk-engine/internal/model"
)

type selectReport struct {
	AccountID model.AccountID  `json:"account_id"`
	Banks     []model.MarketID `json:"banks"`
	Capacity  int              `json:"capacity"`
}

func newSelectCmd(g *globalFlags) *cobra.Command {
	var (
		mandatory []string
		excluded  []string
		capacity  int
	)
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Pick the banks a health-check call must include",
		Long: `Select lists the account's active balances followed by the mandatory
banks, and fails when they do not fit the capacity.

Example:
  riskctl select -f snapshot.yaml --mandatory <bank> --exclude <bank> --capacity 16`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			if capacity == 0 {
				capacity = e.cfg.Engine.HealthCheckCapacity
			}
			sel, err := healthcheck.NewSelector(capacity)
			if err != nil {
				return err
			}
			accts, err := e.accounts(g.accountID)
			if err != nil {
				return err
			}
			reports := make([]selectReport, 0, len(accts))
			for _, acct := range accts {
				if err := health.CheckRiskTiers(acct, e.snap); err != nil {
					return err
				}
				banks, err := sel.Select(acct.Balances, e.snap.Banks, marketIDs(mandatory), marketIDs(excluded))
				if err != nil {
					slog.Warn("selection failed", "account", acct.ID, "err", err)
					return err
				}
				reports = append(reports, selectReport{
					AccountID: acct.ID,
					Banks:     healthcheck.IDs(banks),
					Capacity:  capacity,
				})
			}
			return printJSON(cmd.OutOrStdout(), reports)
		},
	}
	addSnapshotFlags(cmd, g)
	cmd.Flags().StringSliceVar(&mandatory, "mandatory", nil, "banks that must be included")
	cmd.Flags().StringSliceVar(&excluded, "exclude", nil, "banks to leave out")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "health-check slots (default: engine config)")
	return cmd
}

func marketIDs(ss []string) []model.MarketID {
	ids := make([]model.MarketID, len(ss))
	for i, s := range ss {
		ids[i] = model.MarketID(s)
	}
	return ids
}
