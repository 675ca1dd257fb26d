// Package logging provides the structured, subsystem tagged logger used
// throughout conductor.
//
// The package wraps Go's standard slog package. Every entry carries the
// subsystem that produced it, so output from the container, individual
// controllers and the worker pool can be filtered independently.
//
// # Log Levels
//   - **Debug**: state transitions, task execution and edge deliveries
//   - **Info**: installs, removals and container lifecycle
//   - **Warn**: contained service failures and recovered listener panics
//   - **Error**: failures that abort an operation
//
// # Usage Examples
//
//	import "github.com/giantswarm/conductor/pkg/logging"
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Container", "Installed %d services", n)
//	logging.Debug("Controller", "%s: DOWN -> STARTING", name)
//	logging.Error("CLI", err, "Failed to load configuration")
//
// ## Hooks
//
// AddHook registers a callback that sees every entry passing the level
// filter. Tests use it to assert on emitted warnings:
//
//	remove := logging.AddHook(func(e logging.LogEntry) { ... })
//	defer remove()
//
// # Subsystem Organization
//
//   - **Container**: install, removal and shutdown of the container
//   - **Controller**: per-service state machine
//   - **Executor**: worker pool lifecycle
//   - **ConfigLoader**: configuration loading and validation
//   - **CLI**: command line front end
//
// # Thread Safety
//
// Logging is safe from any goroutine. Init is expected to run once at
// startup; hooks may be added and removed at any time.
package logging
