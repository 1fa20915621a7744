package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/store"
)

// FundOptions holds flags for the fund command.
type FundOptions struct {
	*RootOptions
	deployFlags
	To     string
	Amount string
}

// NewFundCommand creates the fund command.
func NewFundCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FundOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Issue stablecoin to an account",
		Long: `Issue stablecoin to an account as the configured issuer.

Funding happens outside the pair event log: the new balance is recorded in
the snapshot tables so later mint operations can pull the fee from it, but
no event is appended.

Examples:
  couplet fund --manifest deploy.cue --db couplet.db --to alice --amount 2000000`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFund(opts, cmd)
		},
	}

	addDeployFlags(cmd, &opts.deployFlags)
	cmd.Flags().StringVar(&opts.To, "to", "", "recipient account (required)")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "amount in base units (required)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runFund(opts *FundOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	amount, err := asset.ParseAmount(opts.Amount)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid amount", err)
	}

	d, err := OpenDeployment(ctx, opts.Manifest, opts.Database, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer d.Close()

	issuer := asset.Address(d.Manifest.Stable.Issuer)
	to := asset.Address(opts.To)
	if err := d.Stable.Mint(issuer, to, amount); err != nil {
		return operationError(formatter, err)
	}
	if err := d.Store.SeedBalance(ctx, store.BalanceRow{
		Token:   d.Manifest.Stable.Symbol,
		Account: to,
		Amount:  asset.FormatAmount(d.Stable.BalanceOf(to)),
	}); err != nil {
		return WrapExitError(ExitCommandError, "failed to persist funding", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"account": opts.To,
			"token":   d.Manifest.Stable.Symbol,
			"balance": asset.FormatAmount(d.Stable.BalanceOf(to)),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Funded %s with %s %s (balance %s)\n",
		opts.To, opts.Amount, d.Manifest.Stable.Symbol, asset.FormatAmount(d.Stable.BalanceOf(to)))
	return nil
}
