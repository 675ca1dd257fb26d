package container

import (
	"fmt"
	"sync"

	"github.com/giantswarm/conductor/internal/inject"
	"github.com/giantswarm/conductor/internal/service"
)

// draft is the mutable description of a service before install.
type draft struct {
	name       service.Name
	svc        service.Service
	aliases    []service.Name
	deps       []*dependencyDraft
	listeners  []Listener
	injections []valueInjection
	location   *service.Location
	mode       Mode
}

type dependencyDraft struct {
	name      service.Name
	optional  bool
	injectors []inject.Injector
}

func (d *draft) addAlias(name service.Name) {
	if name == d.name {
		return
	}
	for _, a := range d.aliases {
		if a == name {
			return
		}
	}
	d.aliases = append(d.aliases, name)
}

// addDependency merges a declaration into the draft. A required declaration
// wins over an optional one regardless of order.
func (d *draft) addDependency(dep dependencyDraft) {
	for _, existing := range d.deps {
		if existing.name == dep.name {
			existing.optional = existing.optional && dep.optional
			existing.injectors = append(existing.injectors, dep.injectors...)
			return
		}
	}
	d.deps = append(d.deps, &dependencyDraft{
		name:      dep.name,
		optional:  dep.optional,
		injectors: append([]inject.Injector(nil), dep.injectors...),
	})
}

func (d *draft) addListener(l Listener) {
	if !containsListener(d.listeners, l) {
		d.listeners = append(d.listeners, l)
	}
}

// isOwnName reports whether name is the primary name or an alias.
func (d *draft) isOwnName(name service.Name) bool {
	if name == d.name {
		return true
	}
	for _, a := range d.aliases {
		if a == name {
			return true
		}
	}
	return false
}

// names returns the primary name followed by the aliases.
func (d *draft) names() []service.Name {
	return append([]service.Name{d.name}, d.aliases...)
}

// resolvedDependencies drops self dependencies.
func (d *draft) resolvedDependencies() []*dependencyDraft {
	deps := make([]*dependencyDraft, 0, len(d.deps))
	for _, dep := range d.deps {
		if !d.isOwnName(dep.name) {
			deps = append(deps, dep)
		}
	}
	return deps
}

func (d *draft) clone() *draft {
	c := *d
	c.aliases = append([]service.Name(nil), d.aliases...)
	c.listeners = append([]Listener(nil), d.listeners...)
	c.injections = append([]valueInjection(nil), d.injections...)
	c.deps = make([]*dependencyDraft, len(d.deps))
	for i, dep := range d.deps {
		cp := *dep
		cp.injectors = append([]inject.Injector(nil), dep.injectors...)
		c.deps[i] = &cp
	}
	return &c
}

// DependencyOption configures a declared dependency.
type DependencyOption func(*dependencyDraft)

// Optional marks the dependency as optional: the service may run without
// it, and is restarted when it appears or disappears.
func Optional() DependencyOption {
	return func(d *dependencyDraft) { d.optional = true }
}

// WithInjector binds the dependency's value into inj while the service runs.
func WithInjector(inj inject.Injector) DependencyOption {
	return func(d *dependencyDraft) { d.injectors = append(d.injectors, inj) }
}

// ServiceBuilder collects the declaration of one service. Nothing is visible
// to the container until Install; afterwards the builder is frozen.
type ServiceBuilder struct {
	container *Container
	batch     *BatchBuilder

	mu        sync.Mutex
	draft     *draft
	err       error
	installed bool
}

func newServiceBuilder(ct *Container, batch *BatchBuilder, name service.Name, svc service.Service) *ServiceBuilder {
	b := &ServiceBuilder{
		container: ct,
		batch:     batch,
		draft:     &draft{name: name, svc: svc, mode: ModeActive},
	}
	switch {
	case name.IsZero():
		b.err = structuralError("add service", name, fmt.Errorf("%w: empty service name", ErrInvalidArgument))
	case svc == nil:
		b.err = structuralError("add service", name, fmt.Errorf("%w: nil service", ErrInvalidArgument))
	}
	return b
}

// Name returns the primary name being declared.
func (b *ServiceBuilder) Name() service.Name {
	return b.draft.name
}

func (b *ServiceBuilder) mutate(op string, fn func(d *draft) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.installed {
		return usageError(op, b.draft.name, ErrBuilderInstalled)
	}
	if b.err != nil {
		return b.err
	}
	return fn(b.draft)
}

func (b *ServiceBuilder) invalid(op string, format string, args ...any) error {
	return structuralError(op, b.draft.name, fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...))
}

// AddAliases registers additional names for the service. Repeated aliases
// and the primary name itself are ignored.
func (b *ServiceBuilder) AddAliases(names ...service.Name) error {
	return b.mutate("add aliases", func(d *draft) error {
		for _, n := range names {
			if n.IsZero() {
				return b.invalid("add aliases", "empty alias")
			}
		}
		for _, n := range names {
			d.addAlias(n)
		}
		return nil
	})
}

// AddDependency declares a dependency on name. Declaring the same name more
// than once merges the declarations; if any of them is required the
// dependency is required.
func (b *ServiceBuilder) AddDependency(name service.Name, opts ...DependencyOption) error {
	return b.mutate("add dependency", func(d *draft) error {
		dep, err := buildDependency(name, opts)
		if err != nil {
			return b.invalid("add dependency", "%v", err)
		}
		d.addDependency(dep)
		return nil
	})
}

// AddDependencies declares required dependencies.
func (b *ServiceBuilder) AddDependencies(names ...service.Name) error {
	return b.addDependencies("add dependencies", names, false)
}

// AddOptionalDependencies declares optional dependencies.
func (b *ServiceBuilder) AddOptionalDependencies(names ...service.Name) error {
	return b.addDependencies("add optional dependencies", names, true)
}

func (b *ServiceBuilder) addDependencies(op string, names []service.Name, optional bool) error {
	return b.mutate(op, func(d *draft) error {
		for _, n := range names {
			if n.IsZero() {
				return b.invalid(op, "%v", errNoDependencyTarget)
			}
		}
		for _, n := range names {
			d.addDependency(dependencyDraft{name: n, optional: optional})
		}
		return nil
	})
}

func buildDependency(name service.Name, opts []DependencyOption) (dependencyDraft, error) {
	if name.IsZero() {
		return dependencyDraft{}, errNoDependencyTarget
	}
	dep := dependencyDraft{name: name}
	for _, opt := range opts {
		opt(&dep)
	}
	for _, inj := range dep.injectors {
		if inj == nil {
			return dependencyDraft{}, fmt.Errorf("nil injector for dependency %s", name)
		}
	}
	return dep, nil
}

// AddListener attaches listeners from the moment the service is installed.
// A listener given more than once is attached once.
func (b *ServiceBuilder) AddListener(listeners ...Listener) error {
	return b.mutate("add listener", func(d *draft) error {
		for _, l := range listeners {
			if l == nil {
				return b.invalid("add listener", "nil listener")
			}
		}
		for _, l := range listeners {
			d.addListener(l)
		}
		return nil
	})
}

// AddInjection injects value into inj every time the service starts and
// uninjects it when the service stops.
func (b *ServiceBuilder) AddInjection(inj inject.Injector, value any) error {
	return b.mutate("add injection", func(d *draft) error {
		if inj == nil {
			return b.invalid("add injection", "nil injector")
		}
		d.injections = append(d.injections, valueInjection{injector: inj, value: value})
		return nil
	})
}

// SetInitialMode sets the mode the controller is installed with. Only
// ModeActive, the default, and ModeNever are accepted.
func (b *ServiceBuilder) SetInitialMode(mode Mode) error {
	return b.mutate("set initial mode", func(d *draft) error {
		if mode != ModeActive && mode != ModeNever {
			return b.invalid("set initial mode", "initial mode %v", mode)
		}
		d.mode = mode
		return nil
	})
}

// SetLocation records where the service was declared.
func (b *ServiceBuilder) SetLocation(loc *service.Location) error {
	return b.mutate("set location", func(d *draft) error {
		d.location = loc
		return nil
	})
}

// SetCallerLocation records the caller of SetCallerLocation as the
// declaration site.
func (b *ServiceBuilder) SetCallerLocation() error {
	loc := service.Caller(1)
	return b.SetLocation(loc)
}

// Install commits the declaration. Calling Install again after it succeeded
// does nothing. For a builder obtained from a BatchBuilder, Install enrols
// the service in the batch; it is wired when the batch is installed.
func (b *ServiceBuilder) Install() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.installed {
		return nil
	}
	if b.err != nil {
		return b.err
	}

	if b.batch != nil {
		if err := b.batch.enrol(b.draft.clone()); err != nil {
			return err
		}
	} else if err := b.container.install([]*draft{b.draft.clone()}); err != nil {
		return err
	}
	b.installed = true
	return nil
}
