package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// TransferOptions holds flags for the transfer command.
type TransferOptions struct {
	*RootOptions
	deployFlags
	Caller  string
	To      string
	TokenID uint64
}

// NewTransferCommand creates the transfer command.
func NewTransferCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransferOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer a pair to another account",
		Long: `Transfer a pair owned by the calling account.

The token unit and the collectible move together; the recipient gains the
right to burn the pair and reclaim the escrowed fee.

Examples:
  couplet transfer --manifest deploy.cue --db couplet.db --as alice --to bob --id 3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(opts, cmd)
		},
	}

	addDeployFlags(cmd, &opts.deployFlags)
	cmd.Flags().StringVar(&opts.Caller, "as", "", "calling account (required)")
	_ = cmd.MarkFlagRequired("as")
	cmd.Flags().StringVar(&opts.To, "to", "", "recipient account (required)")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().Uint64Var(&opts.TokenID, "id", 0, "pair identifier (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runTransfer(opts *TransferOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	d, err := OpenDeployment(ctx, opts.Manifest, opts.Database, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer d.Close()

	caller := asset.Address(opts.Caller)
	to := asset.Address(opts.To)
	if err := d.Engine.TransferPair(ctx, caller, to, asset.TokenID(opts.TokenID)); err != nil {
		return operationError(formatter, err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"token_id": opts.TokenID,
			"from":     opts.Caller,
			"to":       opts.To,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Transferred pair %d from %s to %s\n", opts.TokenID, opts.Caller, opts.To)
	return nil
}
