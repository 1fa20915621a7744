package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// PauseOptions holds flags for the pause and unpause commands.
type PauseOptions struct {
	*RootOptions
	deployFlags
	Caller string
}

// NewPauseCommand creates the pause command.
func NewPauseCommand(rootOpts *RootOptions) *cobra.Command {
	return newPauseCommand(rootOpts, true)
}

// NewUnpauseCommand creates the unpause command.
func NewUnpauseCommand(rootOpts *RootOptions) *cobra.Command {
	return newPauseCommand(rootOpts, false)
}

func newPauseCommand(rootOpts *RootOptions, pause bool) *cobra.Command {
	opts := &PauseOptions{RootOptions: rootOpts}

	use, short := "pause", "Pause all pair operations"
	if !pause {
		use, short = "unpause", "Resume pair operations"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: fmt.Sprintf(`%s the deployment.

Requires the pauser or admin role. Pause state is recorded in the event
log, so the transition survives reopening the database. Emergency
withdrawal remains available while paused.

Examples:
  couplet %s --manifest deploy.cue --db couplet.db --as ops`, short, use),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPause(opts, pause, cmd)
		},
	}

	addDeployFlags(cmd, &opts.deployFlags)
	cmd.Flags().StringVar(&opts.Caller, "as", "", "calling account (required)")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func runPause(opts *PauseOptions, pause bool, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	d, err := OpenDeployment(ctx, opts.Manifest, opts.Database, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer d.Close()

	caller := asset.Address(opts.Caller)
	if pause {
		err = d.Engine.Pause(ctx, caller)
	} else {
		err = d.Engine.Unpause(ctx, caller)
	}
	if err != nil {
		return operationError(formatter, err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"paused": pause,
		})
	}
	state := "paused"
	if !pause {
		state = "active"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deployment is now %s\n", state)
	return nil
}
