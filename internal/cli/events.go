package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/store"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Database string
	Types    []string
	Account  string
	TokenID  int64
	OpToken  string
	Since    int64
	Limit    int
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Read the deployment event log",
		Long: `Read events from the append-only log in sequence order.

Filters compose: every given filter must match. JSON output emits each
event in its canonical form.

Examples:
  couplet events --db couplet.db
  couplet events --db couplet.db --type pair_minted --account alice
  couplet events --db couplet.db --id 3 --format json
  couplet events --db couplet.db --since 100 --limit 50`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "filter by event type (repeatable)")
	cmd.Flags().StringVar(&opts.Account, "account", "", "filter by account (owner, sender, or recipient)")
	cmd.Flags().Int64Var(&opts.TokenID, "id", -1, "filter by pair identifier")
	cmd.Flags().StringVar(&opts.OpToken, "op-token", "", "filter by operation token")
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only events after this sequence number")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 = all)")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	filter := store.EventFilter{
		OpToken:  opts.OpToken,
		Account:  asset.Address(opts.Account),
		SinceSeq: opts.Since,
		Limit:    opts.Limit,
	}
	for _, t := range opts.Types {
		filter.Types = append(filter.Types, asset.EventType(t))
	}
	if opts.TokenID >= 0 {
		id := asset.TokenID(opts.TokenID)
		filter.TokenID = &id
	}

	events, err := st.ReadEvents(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	if opts.Format == "json" {
		out := make([]map[string]any, len(events))
		for i, ev := range events {
			out[i] = ev.CanonicalMap()
		}
		return formatter.Success(map[string]any{
			"count":  len(events),
			"events": out,
		})
	}

	w := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(w, "No events match.")
		return nil
	}
	for _, ev := range events {
		fmt.Fprintln(w, formatEvent(ev))
	}
	return nil
}

// formatEvent renders one event as a single text line.
func formatEvent(ev asset.Event) string {
	switch ev.Type {
	case asset.EventPairMinted:
		return fmt.Sprintf("%6d  %-20s  id=%d owner=%s amount=%s", ev.Seq, ev.Type, uint64(ev.TokenID), ev.Owner, ev.Amount)
	case asset.EventPairBurned:
		return fmt.Sprintf("%6d  %-20s  id=%d owner=%s amount=%s", ev.Seq, ev.Type, uint64(ev.TokenID), ev.Owner, ev.Amount)
	case asset.EventPairTransferred:
		return fmt.Sprintf("%6d  %-20s  id=%d from=%s to=%s", ev.Seq, ev.Type, uint64(ev.TokenID), ev.From, ev.To)
	case asset.EventEmergencyWithdrawal:
		return fmt.Sprintf("%6d  %-20s  asset=%s to=%s amount=%s", ev.Seq, ev.Type, ev.Asset, ev.To, ev.Amount)
	case asset.EventPauseChanged:
		return fmt.Sprintf("%6d  %-20s  paused=%t", ev.Seq, ev.Type, ev.Paused)
	}
	return fmt.Sprintf("%6d  %s", ev.Seq, ev.Type)
}
