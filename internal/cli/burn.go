package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// BurnOptions holds flags for the burn command.
type BurnOptions struct {
	*RootOptions
	deployFlags
	Caller  string
	TokenID uint64
}

// NewBurnCommand creates the burn command.
func NewBurnCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BurnOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "burn",
		Short: "Burn a pair and reclaim the escrowed fee",
		Long: `Burn a pair owned by the calling account.

Destroys one token unit and the collectible together and refunds the
escrowed stablecoin fee to the caller. The identifier is retired forever.

Examples:
  couplet burn --manifest deploy.cue --db couplet.db --as alice --id 3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBurn(opts, cmd)
		},
	}

	addDeployFlags(cmd, &opts.deployFlags)
	cmd.Flags().StringVar(&opts.Caller, "as", "", "calling account (required)")
	_ = cmd.MarkFlagRequired("as")
	cmd.Flags().Uint64Var(&opts.TokenID, "id", 0, "pair identifier (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runBurn(opts *BurnOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	d, err := OpenDeployment(ctx, opts.Manifest, opts.Database, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer d.Close()

	caller := asset.Address(opts.Caller)
	if err := d.Engine.BurnPair(ctx, caller, asset.TokenID(opts.TokenID)); err != nil {
		return operationError(formatter, err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"token_id": opts.TokenID,
			"burned":   true,
			"refund":   asset.FormatAmount(d.Engine.Fee()),
			"escrow":   asset.FormatAmount(d.Engine.Escrow()),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Burned pair %d, refunded %s %s to %s\n",
		opts.TokenID, asset.FormatAmount(d.Engine.Fee()), d.Manifest.Stable.Symbol, opts.Caller)
	return nil
}
