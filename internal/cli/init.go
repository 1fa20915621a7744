package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/manifest"
	"github.com/couplet-xyz/couplet/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Manifest string
	Database string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a deployment database",
		Long: `Create the deployment database and apply the schema.

Validates the manifest first, then opens (or creates) the SQLite database
and runs the migrations. Running init against an existing database is safe:
migrations are idempotent and committed state is never touched.

Examples:
  couplet init --manifest deploy.cue --db couplet.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "path to deployment manifest (required)")
	_ = cmd.MarkFlagRequired("manifest")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, err := manifest.Load(opts.Manifest)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}
	formatter.VerboseLog("Manifest %s validated", opts.Manifest)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	if err := st.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to close database", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"deployment": m.Name,
			"database":   opts.Database,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized deployment %q at %s\n", m.Name, opts.Database)
	return nil
}

// requireFile returns a command error when the path does not exist.
func requireFile(path, what string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s not found: %s", what, path))
	}
	return nil
}
