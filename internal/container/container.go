package container

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	depgraph "github.com/giantswarm/conductor/internal/dependency"
	"github.com/giantswarm/conductor/internal/executor"
	"github.com/giantswarm/conductor/internal/service"
	"github.com/giantswarm/conductor/pkg/logging"
)

// Container owns the service namespace and the worker pool running every
// controller's tasks.
type Container struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	pool     *executor.Pool
	observer Observer
	tracker  *tracker

	// mu guards the namespace and the graph. It is held only while names are
	// bound or released, never while a task runs.
	mu     sync.Mutex
	names  map[service.Name]*registration
	graph  *depgraph.Graph
	closed bool
}

type options struct {
	ctx      context.Context
	workers  int
	observer Observer
}

// Option configures a Container.
type Option func(*options)

// WithWorkers sets the size of the worker pool. Start and stop hooks run on
// these workers; services that block for long need a larger pool.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithObserver installs an observer, typically a metrics collector.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithContext sets the parent of the context handed to Start and Stop.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// New creates a container and starts its workers. Call Shutdown to release
// them.
func New(opts ...Option) *Container {
	o := options{ctx: context.Background(), observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}

	ctx, cancel := context.WithCancel(o.ctx)
	ct := &Container{
		id:       uuid.NewString(),
		ctx:      ctx,
		cancel:   cancel,
		pool:     executor.NewPool(executor.Config{Workers: o.workers}),
		observer: o.observer,
		tracker:  newTracker(),
		names:    make(map[service.Name]*registration),
		graph:    depgraph.New(),
	}
	// A fresh pool always starts. The pool does not inherit ctx so that
	// cancelling it does not strand queued tasks.
	_ = ct.pool.Start(context.Background())

	logging.Debug("Container", "Container %s started with %d workers", ct.id, ct.pool.Workers())
	return ct
}

// ID returns a unique identifier for this container.
func (ct *Container) ID() string {
	return ct.id
}

// AddService starts the declaration of a service.
func (ct *Container) AddService(name service.Name, svc service.Service) *ServiceBuilder {
	return newServiceBuilder(ct, nil, name, svc)
}

// NewBatch starts a batch of services that are installed together.
func (ct *Container) NewBatch() *BatchBuilder {
	return &BatchBuilder{container: ct}
}

// Service returns the controller registered under name, which may be a
// primary name or an alias.
func (ct *Container) Service(name service.Name) (*Controller, error) {
	ct.mu.Lock()
	r := ct.names[name]
	ct.mu.Unlock()

	if r != nil {
		if inst := r.current(); inst != nil {
			return inst, nil
		}
	}
	return nil, &Error{Kind: KindNotFound, Op: "lookup", Name: name, Err: ErrServiceNotFound}
}

// Names returns the primary names of all installed services, sorted.
func (ct *Container) Names() []service.Name {
	controllers := ct.controllers()
	names := make([]service.Name, len(controllers))
	for i, c := range controllers {
		names[i] = c.name
	}
	return names
}

// Snapshot returns the status of every installed controller, sorted by name.
func (ct *Container) Snapshot() []ControllerStatus {
	controllers := ct.controllers()
	rows := make([]ControllerStatus, len(controllers))
	for i, c := range controllers {
		rows[i] = c.Status()
	}
	return rows
}

// controllers returns installed controllers sorted by primary name.
func (ct *Container) controllers() []*Controller {
	ct.mu.Lock()
	regs := make([]*registration, 0, len(ct.names))
	for _, r := range ct.names {
		regs = append(regs, r)
	}
	ct.mu.Unlock()

	var out []*Controller
	for _, r := range regs {
		if inst := r.current(); inst != nil && inst.name == r.name {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name.Compare(out[j].name) < 0 })
	return out
}

// Pending returns the number of queued or running tasks.
func (ct *Container) Pending() int {
	return ct.tracker.count()
}

// AwaitStability blocks until no task is queued or running anywhere in the
// container, which means every controller has settled, or until ctx ends.
func (ct *Container) AwaitStability(ctx context.Context) error {
	return ct.tracker.wait(ctx)
}

// Shutdown removes every service, waits for the removals to finish and stops
// the workers. Further installs fail with ErrContainerClosed.
func (ct *Container) Shutdown(ctx context.Context) error {
	ct.mu.Lock()
	if ct.closed {
		ct.mu.Unlock()
		return nil
	}
	ct.closed = true
	ct.mu.Unlock()

	controllers := ct.controllers()
	logging.Info("Container", "Shutting down %d services", len(controllers))
	for _, c := range controllers {
		_ = c.SetMode(ModeRemove)
	}

	err := ct.AwaitStability(ctx)
	if err != nil {
		err = fmt.Errorf("waiting for services to stop: %w", err)
	}
	if perr := ct.pool.Shutdown(ctx); err == nil && perr != nil {
		err = perr
	}
	ct.cancel()
	return err
}

func (ct *Container) submit(job executor.Job) {
	if err := ct.pool.Submit(job); err != nil {
		logging.Error("Container", err, "Dropping task submission")
	}
}

func nodeID(n service.Name) depgraph.NodeID {
	return depgraph.NodeID(n.String())
}

// registrationLocked returns the registration for name, creating it if
// needed.
func (ct *Container) registrationLocked(name service.Name) *registration {
	r, ok := ct.names[name]
	if !ok {
		r = newRegistration(name)
		ct.names[name] = r
	}
	return r
}

func (ct *Container) collectLocked(r *registration) {
	if r.unused() && ct.names[r.name] == r {
		delete(ct.names, r.name)
	}
}

// install binds and wires drafts. Names are checked first so a failure has no
// effect; then controllers are wired dependencies first and only afterwards
// evaluated.
func (ct *Container) install(drafts []*draft) error {
	if len(drafts) == 0 {
		return nil
	}

	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.closed {
		return usageError("install", drafts[0].name, ErrContainerClosed)
	}

	byName := make(map[service.Name]*draft, len(drafts))
	primary := make(map[depgraph.NodeID]*draft, len(drafts))
	for _, d := range drafts {
		for _, n := range d.names() {
			if other, dup := byName[n]; dup {
				return structuralError("install", d.name, fmt.Errorf("%w: %s is also declared by %s", ErrDuplicateService, n, other.name))
			}
			if r, ok := ct.names[n]; ok && r.current() != nil {
				return structuralError("install", d.name, fmt.Errorf("%w: %s is already installed", ErrDuplicateService, n))
			}
			byName[n] = d
		}
		primary[nodeID(d.name)] = d
	}

	// Add the new nodes tentatively and reject the batch if they close a
	// cycle. Deadlock freedom of the controller lock order relies on this.
	var added []depgraph.NodeID
	for _, d := range drafts {
		deps := d.resolvedDependencies()
		edges := make([]depgraph.NodeID, len(deps))
		for i, dep := range deps {
			edges[i] = nodeID(dep.name)
		}
		ct.graph.AddNode(depgraph.Node{ID: nodeID(d.name), Kind: depgraph.KindService, DependsOn: edges})
		added = append(added, nodeID(d.name))
		for _, a := range d.aliases {
			ct.graph.AddNode(depgraph.Node{ID: nodeID(a), Kind: depgraph.KindAlias, DependsOn: []depgraph.NodeID{nodeID(d.name)}})
			added = append(added, nodeID(a))
		}
	}
	order, err := ct.graph.TopologicalSort(added)
	if err == nil {
		if path := ct.graph.FindCycle(added...); path != nil {
			err = &depgraph.CycleError{Path: path}
		}
	}
	if err != nil {
		for _, id := range added {
			ct.graph.RemoveNode(id)
		}
		return structuralError("install", drafts[0].name, fmt.Errorf("%w: %w", ErrCircularDependency, err))
	}

	// Phase one: wire in dependency order. Tasks queued here are held back.
	var wired []*Controller
	for _, id := range order {
		d, ok := primary[id]
		if !ok {
			continue
		}
		wired = append(wired, ct.wireLocked(d))
	}

	// Phase two: evaluate.
	for _, c := range wired {
		c.mu.Lock()
		c.setStateLocked(StateDown)
		c.lastExported = c.exportedLocked()
		if c.hasDependents() {
			c.enqueueLocked(TaskNotify, c.notifyDependents)
		}
		c.releaseWiringLocked()
		if c.asyncTasks == 0 {
			c.transitionLocked()
		}
		c.mu.Unlock()
	}

	logging.Info("Container", "Installed %d service(s)", len(wired))
	return nil
}

func (ct *Container) wireLocked(d *draft) *Controller {
	c := newController(ct, d)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range c.listeners {
		ev := Event{Kind: EventListenerAdded, Controller: c}
		c.enqueueLocked(TaskListener, func() { dispatch(l, ev) })
	}

	for _, dd := range d.resolvedDependencies() {
		edge := &dependency{
			dependent: c,
			reg:       ct.registrationLocked(dd.name),
			optional:  dd.optional,
			injectors: dd.injectors,
		}
		edge.reg.addDependent(edge)
		c.deps = append(c.deps, edge)
		c.refreshLocked(edge)
	}
	c.lastExported = c.exportedLocked()

	for _, n := range d.names() {
		r := ct.registrationLocked(n)
		r.setInstance(c)
		c.regs = append(c.regs, r)
	}
	return c
}

func (c *Controller) hasDependents() bool {
	for _, r := range c.regs {
		if len(r.dependentEdges()) > 0 {
			return true
		}
	}
	return false
}

// unregister releases c's names and detaches its edges. It returns the
// registrations c was bound to so their dependents can be told.
func (ct *Container) unregister(c *Controller) []*registration {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	for _, d := range c.deps {
		d.reg.removeDependent(d)
		ct.collectLocked(d.reg)
	}
	for _, r := range c.regs {
		r.clearInstance(c)
		ct.graph.RemoveNode(nodeID(r.name))
	}
	regs := append([]*registration(nil), c.regs...)
	for _, r := range c.regs {
		ct.collectLocked(r)
	}
	return regs
}
