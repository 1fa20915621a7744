package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couplet-xyz/couplet/internal/asset"
	"github.com/couplet-xyz/couplet/internal/manifest"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a deployment manifest",
		Long: `Validate a deployment manifest without touching any database.

Checks the CUE schema (required fields, defaults, value constraints) and
the semantic rules the schema cannot express, such as distinct engine and
issuer accounts and a well-formed base pointer.

Exit codes:
  0 - Manifest is valid
  1 - Manifest is invalid
  2 - Command error (file not found)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if err := requireFile(path, "manifest"); err != nil {
		return err
	}

	m, err := manifest.Load(path)
	if err != nil {
		if outErr := formatter.Error(string(asset.CodeValidation), err.Error(), nil); outErr != nil {
			return WrapExitError(ExitCommandError, "failed to write output", outErr)
		}
		return WrapExitError(ExitFailure, "manifest invalid", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"deployment": m.Name,
			"engine":     m.Engine,
			"fee":        m.Fee,
			"paired":     m.Paired.Symbol,
			"stable":     m.Stable.Symbol,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Manifest valid: deployment %q, engine %s, fee %s %s\n",
		m.Name, m.Engine, m.Fee, m.Stable.Symbol)
	return nil
}
