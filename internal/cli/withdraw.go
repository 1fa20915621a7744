package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// WithdrawOptions holds flags for the withdraw command.
type WithdrawOptions struct {
	*RootOptions
	deployFlags
	Caller string
	Token  string
	Amount string
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WithdrawOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Emergency-withdraw tokens held by the engine",
		Long: `Move tokens out of the engine's custody to the calling admin.

An escape hatch for incident response: works while paused, requires the
admin role, and is recorded in the event log. Withdrawing escrowed fees
leaves later burns unable to refund; the log keeps that attributable.

Examples:
  couplet withdraw --manifest deploy.cue --db couplet.db --as root --token usd-token --amount 1500000`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithdraw(opts, cmd)
		},
	}

	addDeployFlags(cmd, &opts.deployFlags)
	cmd.Flags().StringVar(&opts.Caller, "as", "", "calling account (required)")
	_ = cmd.MarkFlagRequired("as")
	cmd.Flags().StringVar(&opts.Token, "token", "", "token address to withdraw (required)")
	_ = cmd.MarkFlagRequired("token")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "amount in base units (required)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runWithdraw(opts *WithdrawOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	d, err := OpenDeployment(ctx, opts.Manifest, opts.Database, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer d.Close()

	caller := asset.Address(opts.Caller)
	if err := d.Engine.EmergencyWithdraw(ctx, caller, asset.Address(opts.Token), opts.Amount); err != nil {
		return operationError(formatter, err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"token":  opts.Token,
			"to":     opts.Caller,
			"amount": opts.Amount,
			"escrow": asset.FormatAmount(d.Engine.Escrow()),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Withdrew %s of %s to %s (escrow now %s)\n",
		opts.Amount, opts.Token, opts.Caller, asset.FormatAmount(d.Engine.Escrow()))
	return nil
}
