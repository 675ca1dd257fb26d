package cmd

import (
	"errors"
	"fmt"

	"github.com/giantswarm/conductor/internal/config"
	"github.com/giantswarm/conductor/internal/dependency"
	"github.com/giantswarm/conductor/internal/formatting"
	"github.com/giantswarm/conductor/internal/services"
	"github.com/giantswarm/conductor/pkg/logging"

	"github.com/spf13/cobra"
)

type checkOptions struct {
	output string
	quiet  bool
}

// newCheckCmd creates the command that validates the declared graph
// without starting anything.
func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the declared service graph",
		Long: `Loads the configuration, rejects dependency cycles and prints the
order in which services would start. Dependencies that no service declares
are listed separately; such services would wait until the dependency is
installed.

Examples:
  conductor check
  conductor check --config deploy/conductor.yaml -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress non-essential output")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *checkOptions) error {
	format, err := formatting.ParseOutputFormat(opts.output)
	if err != nil {
		return err
	}

	level := logging.LevelWarn
	if debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	cfg, err := config.Load(configPath)
	if err != nil {
		var cfgErr config.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(cmd.ErrOrStderr(), cfgErr.DetailedError())
		}
		return err
	}

	plan, err := services.Check(cfg.Services)
	if err != nil {
		var cycle *dependency.CycleError
		if errors.As(err, &cycle) && !opts.quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", cycle)
		}
		return err
	}

	return formatting.New(formatting.Options{Format: format, Quiet: opts.quiet}).FormatPlan(cmd.OutOrStdout(), plan)
}
