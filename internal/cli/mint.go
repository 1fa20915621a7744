package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// MintOptions holds flags for the mint command.
type MintOptions struct {
	*RootOptions
	deployFlags
	Caller  string
	Pointer string
}

// NewMintCommand creates the mint command.
func NewMintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a pair: one token unit plus its collectible",
		Long: `Mint a pair to the calling account.

The caller pays the configured stablecoin fee, which moves into escrow, and
receives one token unit together with a freshly minted collectible carrying
the given metadata pointer. The fee allowance for the engine is granted as
part of this invocation; allowances are not persisted between commands.

Exit codes:
  0 - Pair minted
  1 - Operation rejected (paused, unfunded, bad pointer, ...)
  2 - Command error

Examples:
  couplet mint --manifest deploy.cue --db couplet.db --as alice --pointer ipfs://Qm.../1.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMint(opts, cmd)
		},
	}

	addDeployFlags(cmd, &opts.deployFlags)
	cmd.Flags().StringVar(&opts.Caller, "as", "", "calling account (required)")
	_ = cmd.MarkFlagRequired("as")
	cmd.Flags().StringVar(&opts.Pointer, "pointer", "", "metadata pointer for the collectible (required)")
	_ = cmd.MarkFlagRequired("pointer")

	return cmd
}

func runMint(opts *MintOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	d, err := OpenDeployment(ctx, opts.Manifest, opts.Database, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer d.Close()

	caller := asset.Address(opts.Caller)
	if err := d.Stable.Approve(caller, d.Engine.Address(), d.Engine.Fee()); err != nil {
		return operationError(formatter, err)
	}

	id, err := d.Engine.MintPair(ctx, caller, opts.Pointer)
	if err != nil {
		return operationError(formatter, err)
	}

	pointer, err := d.Registry.Pointer(id)
	if err != nil {
		return WrapExitError(ExitCommandError, "minted pair has no stored pointer", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"token_id": uint64(id),
			"owner":    opts.Caller,
			"pointer":  pointer,
			"escrow":   asset.FormatAmount(d.Engine.Escrow()),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Minted pair %d to %s (pointer %s)\n", uint64(id), opts.Caller, pointer)
	return nil
}
