package container

import (
	"fmt"
	"sync"

	"github.com/giantswarm/conductor/internal/service"
)

// BatchBuilder installs several services in one step. Dependencies between
// members of a batch are wired before any of them is evaluated, so an
// in-batch dependency is never seen as missing.
type BatchBuilder struct {
	container *Container

	mu        sync.Mutex
	drafts    []*draft
	deps      []dependencyDraft
	listeners []Listener
	installed bool
}

// AddService starts the declaration of a batch member. The returned builder's
// Install adds it to the batch.
func (bb *BatchBuilder) AddService(name service.Name, svc service.Service) *ServiceBuilder {
	b := newServiceBuilder(bb.container, bb, name, svc)

	bb.mu.Lock()
	defer bb.mu.Unlock()
	if bb.installed && b.err == nil {
		b.err = usageError("add service", name, ErrBuilderInstalled)
	}
	return b
}

func (bb *BatchBuilder) enrol(d *draft) error {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	if bb.installed {
		return usageError("install", d.name, ErrBuilderInstalled)
	}
	for _, existing := range bb.drafts {
		if existing.name == d.name {
			return structuralError("install", d.name, ErrDuplicateService)
		}
	}
	bb.drafts = append(bb.drafts, d)
	return nil
}

func (bb *BatchBuilder) mutate(op string, fn func() error) error {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	if bb.installed {
		return usageError(op, service.Name{}, ErrBuilderInstalled)
	}
	return fn()
}

// AddDependency adds a dependency to every service of the batch. Members
// depending on themselves this way ignore it.
func (bb *BatchBuilder) AddDependency(name service.Name, opts ...DependencyOption) error {
	return bb.mutate("add dependency", func() error {
		dep, err := buildDependency(name, opts)
		if err != nil {
			return structuralError("add dependency", name, fmt.Errorf("%w: %v", ErrInvalidArgument, err))
		}
		bb.deps = append(bb.deps, dep)
		return nil
	})
}

// AddDependencies adds required dependencies to every service of the batch.
func (bb *BatchBuilder) AddDependencies(names ...service.Name) error {
	return bb.mutate("add dependencies", func() error {
		for _, n := range names {
			if n.IsZero() {
				return structuralError("add dependencies", n, fmt.Errorf("%w: %v", ErrInvalidArgument, errNoDependencyTarget))
			}
		}
		for _, n := range names {
			bb.deps = append(bb.deps, dependencyDraft{name: n})
		}
		return nil
	})
}

// AddListener attaches listeners to every service of the batch.
func (bb *BatchBuilder) AddListener(listeners ...Listener) error {
	return bb.mutate("add listener", func() error {
		for _, l := range listeners {
			if l == nil {
				return structuralError("add listener", service.Name{}, fmt.Errorf("%w: nil listener", ErrInvalidArgument))
			}
		}
		for _, l := range listeners {
			if !containsListener(bb.listeners, l) {
				bb.listeners = append(bb.listeners, l)
			}
		}
		return nil
	})
}

// Len returns the number of services enrolled so far.
func (bb *BatchBuilder) Len() int {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	return len(bb.drafts)
}

// Install wires every enrolled service. Either all of them are installed or,
// on error, none is. Calling Install again after it succeeded does nothing.
func (bb *BatchBuilder) Install() error {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	if bb.installed {
		return nil
	}

	drafts := make([]*draft, len(bb.drafts))
	for i, d := range bb.drafts {
		merged := d.clone()
		for _, dep := range bb.deps {
			merged.addDependency(dep)
		}
		for _, l := range bb.listeners {
			merged.addListener(l)
		}
		drafts[i] = merged
	}

	if err := bb.container.install(drafts); err != nil {
		return err
	}
	bb.installed = true
	return nil
}
