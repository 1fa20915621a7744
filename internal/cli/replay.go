package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/engine"
	"github.com/couplet-xyz/couplet/internal/manifest"
	"github.com/couplet-xyz/couplet/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	deployFlags
}

// ReplaySummary holds the replay result.
type ReplaySummary struct {
	Deterministic bool   `json:"deterministic"`
	Events        int64  `json:"events"`
	LivePairs     int    `json:"live_pairs"`
	Escrow        string `json:"escrow"`
	Mismatch      string `json:"mismatch,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the event log and verify the snapshot",
		Long: `Fold the full event log into a fresh state and compare it with the
persisted snapshot.

The log fully determines pair liveness, ownership, paired balances, engine
custody, escrow, pause state, and the identifier counter. Any divergence
means the snapshot and the log disagree and is reported as a failure.

Exit codes:
  0 - Snapshot matches the replayed log
  1 - Mismatch detected
  2 - Command error (database not found, etc.)

Examples:
  couplet replay --manifest deploy.cue --db couplet.db
  couplet replay --manifest deploy.cue --db couplet.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplayVerify(opts, cmd)
		},
	}

	addDeployFlags(cmd, &opts.deployFlags)

	return cmd
}

func runReplayVerify(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, err := manifest.Load(opts.Manifest)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}
	fee, err := asset.ParseAmount(m.Fee)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid manifest fee", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	cfg := replayConfig(m, fee)

	state, err := engine.Replay(ctx, st, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}
	formatter.VerboseLog("Replayed %d events: %d live pairs, escrow %s",
		state.MaxSeq, len(state.Pairs), asset.FormatAmount(state.Escrow))

	summary := ReplaySummary{
		Deterministic: true,
		Events:        state.MaxSeq,
		LivePairs:     len(state.Pairs),
		Escrow:        asset.FormatAmount(state.Escrow),
	}

	if err := engine.VerifyReplay(ctx, st, cfg); err != nil {
		summary.Deterministic = false
		summary.Mismatch = err.Error()
		if opts.Format == "json" {
			if outErr := formatter.Success(summary); outErr != nil {
				return WrapExitError(ExitCommandError, "failed to write output", outErr)
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✗ snapshot diverges from the event log\n  %v\n", err)
		}
		return WrapExitError(ExitFailure, "replay mismatch", err)
	}

	if opts.Format == "json" {
		return formatter.Success(summary)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ snapshot matches the event log (%d events, %d live pairs, escrow %s)\n",
		summary.Events, summary.LivePairs, summary.Escrow)
	return nil
}
