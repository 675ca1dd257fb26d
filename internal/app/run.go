package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/giantswarm/conductor/internal/config"
	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/formatting"
	"github.com/giantswarm/conductor/internal/services"
	"github.com/giantswarm/conductor/pkg/logging"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// ErrStartFailures is returned by Run when at least one service ended the
// run in START_FAILED.
var ErrStartFailures = errors.New("services failed to start")

// Run installs the declared services, waits for the graph to settle, prints
// the status report and shuts the container down. With Hold set it keeps
// the container running until SIGINT, SIGTERM or ctx ends.
func (a *Application) Run(ctx context.Context) error {
	cc := a.config.Conductor.Container

	opts := []container.Option{
		container.WithWorkers(cc.Workers),
		container.WithContext(ctx),
	}
	if a.collector != nil {
		opts = append(opts, container.WithObserver(a.collector))
	}
	ct := container.New(opts...)

	g, gctx := errgroup.WithContext(ctx)
	var srv *http.Server
	if a.registry != nil {
		srv = &http.Server{
			Addr:              a.config.Conductor.Metrics.ListenAddress,
			Handler:           a.MetricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logging.Info("Metrics", "Serving metrics on http://%s/metrics", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	retrier := services.NewRetrier(a.config.RetryBackoff, a.config.Retries)
	listeners := []container.Listener{retrier}
	if a.config.Watch {
		listeners = append(listeners, newEventLogger())
	}

	runErr := a.runContainer(gctx, ct, retrier, listeners)

	retrier.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), durationOr(cc.ShutdownTimeout, config.DefaultShutdownTimeout))
	defer cancel()
	logging.Info("CLI", "--- Shutting down services ---")
	if err := ct.Shutdown(shutdownCtx); err != nil {
		logging.Error("CLI", err, "Shutdown did not complete")
		runErr = errors.Join(runErr, err)
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	if err := g.Wait(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

func (a *Application) runContainer(ctx context.Context, ct *container.Container, retrier *services.Retrier, listeners []container.Listener) error {
	reconciler := services.NewReconciler(ct, listeners...)
	if _, err := reconciler.Apply(ctx, a.config.Conductor.Services); err != nil {
		return fmt.Errorf("failed to install services: %w", err)
	}
	logging.Info("CLI", "Installed %d services", len(a.config.Conductor.Services))

	failed, total, err := a.settleAndReport(ctx, ct, retrier)
	if err != nil {
		return err
	}

	if a.config.Hold {
		return a.hold(ctx, ct, reconciler, retrier)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrStartFailures, failed, total)
	}
	return nil
}

// settleAndReport waits for the graph to settle, prints the status report
// and returns the number of services in START_FAILED.
func (a *Application) settleAndReport(ctx context.Context, ct *container.Container, retrier *services.Retrier) (int, int, error) {
	timeout := durationOr(a.config.Conductor.Container.StabilityTimeout, config.DefaultStabilityTimeout)
	settleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := settle(settleCtx, ct, retrier); err != nil {
		return 0, 0, fmt.Errorf("services did not settle: %w", err)
	}

	snapshot := ct.Snapshot()
	formatter := formatting.New(formatting.Options{Format: a.config.Output})
	if err := formatter.FormatStatus(a.config.Stdout, snapshot); err != nil {
		return 0, 0, fmt.Errorf("failed to print status: %w", err)
	}

	failed := 0
	for _, st := range snapshot {
		if st.State == container.StateStartFailed {
			failed++
		}
	}
	return failed, len(snapshot), nil
}

// hold blocks until SIGINT, SIGTERM or ctx ends, re-applying the
// configuration file on change when Reload is set.
func (a *Application) hold(ctx context.Context, ct *container.Container, reconciler *services.Reconciler, retrier *services.Retrier) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var g errgroup.Group
	if a.config.Reload {
		w, err := newConfigWatcher(a.config.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to watch configuration: %w", err)
		}
		g.Go(func() error {
			w.run(sigCtx, func() { a.reload(sigCtx, ct, reconciler, retrier) })
			return nil
		})
	}

	logging.Info("CLI", "Services settled. Press Ctrl+C to stop all services and exit.")
	<-sigCtx.Done()
	return g.Wait()
}

// reload applies the current configuration file. Failures are logged and
// leave the running graph untouched.
func (a *Application) reload(ctx context.Context, ct *container.Container, reconciler *services.Reconciler, retrier *services.Retrier) {
	cfg, err := config.Load(a.config.ConfigPath)
	if err != nil {
		logging.Error("Reload", err, "Ignoring invalid configuration")
		return
	}
	diff, err := reconciler.Apply(ctx, cfg.Services)
	if err != nil {
		logging.Error("Reload", err, "Failed to apply configuration")
		return
	}
	if diff.Empty() {
		logging.Info("Reload", "Configuration changed without affecting services")
		return
	}
	logging.Info("Reload", "Applied %s", diff)
	if _, _, err := a.settleAndReport(ctx, ct, retrier); err != nil {
		logging.Error("Reload", err, "Services did not settle after reload")
	}
}

// settle waits until the container is stable and no retry is scheduled.
// A retry fires while its timer is pending, so waiting for the retrier
// first and the container second converges.
func settle(ctx context.Context, ct *container.Container, retrier *services.Retrier) error {
	for {
		if err := ct.AwaitStability(ctx); err != nil {
			return err
		}
		if retrier.Pending() == 0 && ct.Pending() == 0 {
			return nil
		}
		if err := retrier.Wait(ctx); err != nil {
			return err
		}
	}
}

// MetricsHandler serves the registered collectors. It is nil when metrics
// are disabled.
func (a *Application) MetricsHandler() http.Handler {
	if a.registry == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return mux
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
