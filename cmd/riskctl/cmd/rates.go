package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/atmx/risk-engine/internal/interest"
	"github.com/atmx/risk-engine/internal/model"
)

type ratesReport struct {
	MarketID    model.MarketID  `json:"market_id"`
	Utilization decimal.Decimal `json:"utilization"`
	BorrowAPR   decimal.Decimal `json:"borrow_apr"`
	LendAPR     decimal.Decimal `json:"lend_apr"`
	BorrowAPY   decimal.Decimal `json:"borrow_apy"`
	LendAPY     decimal.Decimal `json:"lend_apy"`
}

func newRatesCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Print utilization and interest rates for every bank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			periods := e.cfg.Engine.CompoundingPeriodsPerYear
			reports := make([]ratesReport, 0, len(e.file.Banks))
			for _, b := range e.file.Banks {
				r := interest.ComputeRates(b)
				reports = append(reports, ratesReport{
					MarketID:    b.ID,
					Utilization: r.Utilization,
					BorrowAPR:   r.BorrowAPR,
					LendAPR:     r.LendAPR,
					BorrowAPY:   interest.AprToApy(r.BorrowAPR, periods),
					LendAPY:     interest.AprToApy(r.LendAPR, periods),
				})
			}
			return printJSON(cmd.OutOrStdout(), reports)
		},
	}
	cmd.Flags().StringVarP(&g.snapshotPath, "file", "f", "", "snapshot file (.yaml, .yml or .json)")
	cmd.MarkFlagRequired("file")
	return cmd
}
