// Package cmd implements the riskctl commands. Every command reads a
// snapshot file, runs the engine offline and prints indented JSON, so the
// same file always produces the same bytes.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/atmx/risk-engine/internal/config"
	"github.com/atmx/risk-engine/internal/health"
	"github.com/atmx/risk-engine/internal/model"
	"github.com/atmx/risk-engine/internal/snapshot"
)

// globalFlags are shared by every snapshot command.
type globalFlags struct {
	snapshotPath string
	configPath   string
	accountID    string
	strict       bool
	verbose      bool
}

// NewRootCmd builds the command tree. Each call returns an independent tree
// so tests can run commands side by side.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "riskctl",
		Short: "Offline account health and interest rate tool",
		Long: `riskctl runs the risk engine against a snapshot file of banks,
oracle prices and accounts.

Examples:
  riskctl health -f snapshot.yaml
  riskctl rates -f snapshot.yaml
  riskctl liquidation -f snapshot.yaml --account <address>
  riskctl select -f snapshot.yaml --mandatory <bank> --capacity 16
  riskctl config init -o risk.yaml`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if g.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "engine config file (defaults when empty)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		newHealthCmd(g),
		newRatesCmd(g),
		newLiquidationCmd(g),
		newEmissionsCmd(g),
		newSelectCmd(g),
		newConfigCmd(),
	)
	return root
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// addSnapshotFlags registers the flags every snapshot command takes.
func addSnapshotFlags(cmd *cobra.Command, g *globalFlags) {
	cmd.Flags().StringVarP(&g.snapshotPath, "file", "f", "", "snapshot file (.yaml, .yml or .json)")
	cmd.Flags().StringVarP(&g.accountID, "account", "a", "", "only this account (default: every account)")
	cmd.Flags().BoolVar(&g.strict, "strict", false, "fail on missing market data instead of skipping the balance")
	cmd.MarkFlagRequired("file")
}

// env is everything a snapshot command needs.
type env struct {
	cfg  config.Config
	file *snapshot.File
	snap *health.Snapshot
	opts health.Options
}

func (g *globalFlags) load() (*env, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	f, err := snapshot.Load(g.snapshotPath)
	if err != nil {
		return nil, err
	}
	snap, err := f.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.snapshotPath, err)
	}
	opts := cfg.Engine.Options()
	if g.strict {
		opts.Strict = true
	}
	slog.Debug("snapshot loaded",
		"file", g.snapshotPath,
		"banks", len(f.Banks),
		"prices", len(f.Prices),
		"accounts", len(f.Accounts),
	)
	return &env{cfg: cfg, file: f, snap: snap, opts: opts}, nil
}

// accounts returns the selected account, or every account in file order.
func (e *env) accounts(id string) ([]*model.Account, error) {
	if id != "" {
		acct, err := e.file.Account(model.AccountID(id))
		if err != nil {
			return nil, err
		}
		return []*model.Account{acct}, nil
	}
	out := make([]*model.Account, len(e.file.Accounts))
	for i := range e.file.Accounts {
		out[i] = &e.file.Accounts[i]
	}
	return out, nil
}

func logSkipped(id model.AccountID, warnings health.Warnings) {
	for _, w := range warnings {
		slog.Warn("balance skipped", "account", id, "market", w.Market, "reason", w.Reason.String())
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
