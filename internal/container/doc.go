// Package container implements the service lifecycle container.
//
// A Container holds named services and drives each of them through its
// lifecycle according to its mode and the state of its dependencies:
//
//	DOWN -> STARTING -> UP -> STOPPING -> DOWN
//	           |
//	           +-> START_FAILED -> DOWN
//	DOWN -> REMOVED (mode REMOVE, terminal)
//
// # Dependencies
//
// A service starts once every required dependency is installed, has not
// failed and is up. Missing and failed status is forwarded one hop at a
// time, so a dependent of a dependent sees it too, and listeners learn about
// it through the DependencyUninstalled/DependencyInstalled and
// DependencyFailed/DependencyFailureCleared pairs. A service stops before any
// of its dependencies does. Optional dependencies never block a start; when
// one appears or disappears while the service runs, the service is restarted
// to rebind its value.
//
// A removed service leaves its names behind as long as something depends on
// them, so dependents keep waiting for a replacement.
//
// Dependency cycles, through primary names or aliases, are rejected at
// install.
//
// # Concurrency
//
// Each controller has its own lock and its own task queue; its tasks run one
// at a time on a shared worker pool while tasks of different controllers run
// in parallel. Service hooks and listener callbacks run with no lock held and
// may call back into the container. There is no global lock over the graph;
// the namespace lock is only taken to bind and release names.
//
// # Usage
//
//	ct := container.New()
//	defer ct.Shutdown(ctx)
//
//	b := ct.AddService(service.MustName("app", "db"), db)
//	_ = b.AddAliases(service.MustName("db"))
//	if err := b.Install(); err != nil {
//	    return err
//	}
//
//	batch := ct.NewBatch()
//	api := batch.AddService(service.MustName("app", "api"), apiService)
//	_ = api.AddDependency(service.MustName("db"), container.WithInjector(inject.Field(&apiService.DB)))
//	_ = api.Install()
//	if err := batch.Install(); err != nil {
//	    return err
//	}
//
//	_ = ct.AwaitStability(ctx)
package container
