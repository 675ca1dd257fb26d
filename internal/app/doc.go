// Package app bootstraps `conductor run`.
//
// NewApplication loads the configuration and sets up logging and the
// optional Prometheus registry. Run then:
//
//  1. creates a container sized by container.workers, observed by the
//     metrics collector when metrics are enabled
//  2. serves /metrics next to the container for the lifetime of the run
//  3. installs the declared scripted services as one batch, with a retry
//     listener and, with --watch, an event logger
//  4. waits until every controller has settled and no retry is pending,
//     bounded by container.stabilityTimeout
//  5. prints the status report in the selected output format
//  6. with --hold, blocks until SIGINT or SIGTERM; with --reload it
//     re-applies the configuration file whenever it changes
//  7. shuts the container down within container.shutdownTimeout
//
// Run returns ErrStartFailures when a service is left in START_FAILED and
// the run was not held.
package app
