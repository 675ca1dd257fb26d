package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/giantswarm/conductor/internal/app"
	"github.com/giantswarm/conductor/internal/formatting"

	"github.com/spf13/cobra"
)

type runOptions struct {
	hold         bool
	watch        bool
	reload       bool
	metricsAddr  string
	retries      int
	retryBackoff time.Duration
	output       string
}

// newRunCmd creates the command that installs the declared graph and
// reports where every service ended up.
func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Install the declared services and report their state",
		Long: `Installs every service declared in the configuration into a fresh
container, waits until all of them have settled and prints their state.

By default conductor then removes every service and exits. Exit code 2
means at least one service failed to start.

With --hold the services stay up until conductor receives SIGINT or
SIGTERM, which is useful together with --metrics-addr:

  conductor run --hold --metrics-addr localhost:9464

With --reload as well, edits to the configuration file are applied to the
running graph: mode changes are applied in place, changed services are
replaced and new ones installed.

Failed starts can be retried with a fixed backoff:

  conductor run --retries 3 --retry-backoff 500ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.hold, "hold", false, "Keep services running until interrupted")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Log every lifecycle event")
	cmd.Flags().BoolVar(&opts.reload, "reload", false, "Apply configuration changes while holding")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "Retries per service after a failed start")
	cmd.Flags().DurationVar(&opts.retryBackoff, "retry-backoff", time.Second, "Delay before each retry")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json, yaml)")

	return cmd
}

func runRun(cmd *cobra.Command, opts *runOptions) error {
	format, err := formatting.ParseOutputFormat(opts.output)
	if err != nil {
		return err
	}
	if opts.reload && !opts.hold {
		return fmt.Errorf("--reload requires --hold")
	}
	if opts.retries < 0 {
		return fmt.Errorf("--retries must not be negative")
	}

	cfg := app.NewConfig(debug, configPath)
	cfg.Hold = opts.hold
	cfg.Watch = opts.watch
	cfg.Reload = opts.reload
	cfg.MetricsAddr = opts.metricsAddr
	cfg.Retries = opts.retries
	cfg.RetryBackoff = opts.retryBackoff
	cfg.Output = format
	cfg.Stdout = cmd.OutOrStdout()
	cfg.LogOutput = cmd.ErrOrStderr()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}
