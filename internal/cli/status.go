package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/asset"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	deployFlags
}

// DeploymentStatus is the status payload.
type DeploymentStatus struct {
	Deployment string `json:"deployment"`
	Paused     bool   `json:"paused"`
	LivePairs  int    `json:"live_pairs"`
	NextID     uint64 `json:"next_id"`
	Escrow     string `json:"escrow"`
	Fee        string `json:"fee"`
	LastSeq    int64  `json:"last_seq"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show deployment state",
		Long: `Show the current state of a deployment: pause flag, live pair count,
next identifier, escrowed fees, and the last event sequence number.

Examples:
  couplet status --manifest deploy.cue --db couplet.db
  couplet status --manifest deploy.cue --db couplet.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	addDeployFlags(cmd, &opts.deployFlags)

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	d, err := OpenDeployment(ctx, opts.Manifest, opts.Database, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer d.Close()

	maxSeq, err := d.Store.MaxSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read event log", err)
	}

	status := DeploymentStatus{
		Deployment: d.Manifest.Name,
		Paused:     d.Engine.Paused(),
		LivePairs:  d.Engine.LivePairs(),
		NextID:     uint64(d.Registry.NextID()),
		Escrow:     asset.FormatAmount(d.Engine.Escrow()),
		Fee:        asset.FormatAmount(d.Engine.Fee()),
		LastSeq:    maxSeq,
	}

	if opts.Format == "json" {
		return formatter.Success(status)
	}

	w := cmd.OutOrStdout()
	state := "active"
	if status.Paused {
		state = "paused"
	}
	fmt.Fprintf(w, "Deployment: %s\n", status.Deployment)
	fmt.Fprintf(w, "State:      %s\n", state)
	fmt.Fprintf(w, "Live pairs: %d (next id %d)\n", status.LivePairs, status.NextID)
	fmt.Fprintf(w, "Escrow:     %s %s\n", status.Escrow, d.Manifest.Stable.Symbol)
	fmt.Fprintf(w, "Fee:        %s %s\n", status.Fee, d.Manifest.Stable.Symbol)
	fmt.Fprintf(w, "Last seq:   %d\n", status.LastSeq)
	return nil
}
