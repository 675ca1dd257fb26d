package container

import (
	"sync"

	"github.com/giantswarm/conductor/internal/service"
)

// registration is the namespace slot for one name. It outlives its
// controller while dependents still point at the name, so a dependent waiting
// for a service that is not installed yet, or was removed, keeps a stable
// target.
//
// Lock order: a dependent controller's lock, then a registration's lock, then
// the dependency controller's lock.
type registration struct {
	name service.Name

	mu         sync.Mutex
	instance   *Controller
	dependents map[*dependency]struct{}
}

func newRegistration(name service.Name) *registration {
	return &registration{
		name:       name,
		dependents: make(map[*dependency]struct{}),
	}
}

func (r *registration) current() *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instance
}

func (r *registration) setInstance(c *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instance = c
}

// clearInstance unbinds c if it is still the bound controller.
func (r *registration) clearInstance(c *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == c {
		r.instance = nil
	}
}

func (r *registration) addDependent(d *dependency) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dependents[d] = struct{}{}
}

func (r *registration) removeDependent(d *dependency) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dependents, d)
}

func (r *registration) dependentEdges() []*dependency {
	r.mu.Lock()
	defer r.mu.Unlock()
	edges := make([]*dependency, 0, len(r.dependents))
	for d := range r.dependents {
		edges = append(edges, d)
	}
	return edges
}

// unused reports whether the registration can be dropped from the namespace.
func (r *registration) unused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instance == nil && len(r.dependents) == 0
}

// status is what a dependent sees of the name right now.
func (r *registration) status() status {
	inst := r.current()
	if inst == nil {
		return status{missing: true}
	}
	return inst.exported()
}
