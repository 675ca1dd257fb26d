package container

import (
	"github.com/giantswarm/conductor/internal/inject"
	"github.com/giantswarm/conductor/internal/service"
)

// status is the aggregate a controller reports to its dependents.
type status struct {
	// missing: not installed, removed, or a required dependency is missing.
	missing bool
	// failed: start failed, or a dependency has failed.
	failed bool
	// up: running and not about to stop.
	up bool
}

// dependency is an edge from its owning dependent to a registration.
//
// The flags record what the edge currently contributes to the dependent's
// counters. A delivery re-reads the target's status and applies only the
// difference, so deliveries are idempotent and may be coalesced.
// All mutable fields are guarded by the dependent's lock.
type dependency struct {
	dependent *Controller
	reg       *registration
	optional  bool
	injectors []inject.Injector

	missing bool
	failed  bool
	down    bool
	// live is only used by optional edges: the target is installed and not
	// transitively missing. A non-live optional edge is transparent.
	live bool

	// held is the target instance counted in its running dependents while
	// the dependent is starting or up.
	held *Controller
}

// blocking reports whether the edge takes part in start eligibility and
// value binding.
func (d *dependency) blocking() bool {
	return !d.optional || d.live
}

// release gives back the running dependent slot taken on the target.
func (d *dependency) release() {
	if d.held != nil {
		d.held.removeRunningDependent()
		d.held = nil
	}
}

// DependencyInfo describes one declared dependency of a controller.
type DependencyInfo struct {
	Name     service.Name
	Optional bool
}
