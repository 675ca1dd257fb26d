package cmd

import (
	"errors"
	"os"

	"github.com/giantswarm/conductor/internal/app"
	"github.com/giantswarm/conductor/internal/config"
	"github.com/giantswarm/conductor/internal/dependency"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeStartFailures indicates that services were left in START_FAILED.
	ExitCodeStartFailures = 2
	// ExitCodeConfig indicates the configuration could not be loaded.
	ExitCodeConfig = 3
	// ExitCodeCycle indicates the declared graph contains a dependency cycle.
	ExitCodeCycle = 4
)

var (
	// configPath is the configuration file shared by every subcommand.
	configPath string

	// debug enables verbose logging across the application.
	debug bool
)

// rootCmd represents the base command for the conductor application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Run a graph of dependent services in one process",
	Long: `conductor installs a declared graph of services into an in-process
service container. Every service starts only once its dependencies are up
and stops only after its dependents have stopped.

The graph is read from conductor.yaml in the current directory, or from the
file given with --config.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "conductor version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if errors.Is(err, app.ErrStartFailures) {
		return ExitCodeStartFailures
	}

	var cfgErr config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}

	var cycle *dependency.CycleError
	if errors.As(err, &cycle) {
		return ExitCodeCycle
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default is ./"+config.DefaultConfigFileName+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCheckCmd())
}
