package container

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/giantswarm/conductor/internal/inject"
	"github.com/giantswarm/conductor/internal/service"
)

// Controller drives one installed service through its lifecycle.
//
// All exported methods are safe for concurrent use, including from listener
// callbacks and from the service's own Start and Stop.
type Controller struct {
	container *Container
	job       *controllerJob

	// Immutable after install.
	id         string
	name       service.Name
	aliases    []service.Name
	location   *service.Location
	svc        service.Service
	deps       []*dependency
	regs       []*registration
	injections []valueInjection

	mu    sync.Mutex
	mode  Mode
	state State
	// Numbers of edges currently reporting missing, failed or not up.
	missing int
	failed  int
	down    int
	// runningDependents counts dependents holding this controller while
	// they start or run. It must drop to zero before the service stops.
	runningDependents int
	// available is cleared as soon as the controller decides to stop, so
	// dependents stop first.
	available bool
	// rebind is set when an optional dependency appeared or disappeared
	// while the service was starting, up or failed.
	rebind       bool
	startErr     error
	listeners    []Listener
	tasks        []task
	asyncTasks   int
	lastExported status
	// wiring holds back task submission while a batch is being installed.
	wiring bool

	// injected is only touched by this controller's own tasks.
	injected []inject.Injector
}

type controllerJob struct {
	c *Controller
}

func (j *controllerJob) Run(context.Context) {
	j.c.runNextTask()
}

type valueInjection struct {
	injector inject.Injector
	value    any
}

func newController(ct *Container, d *draft) *Controller {
	c := &Controller{
		container:  ct,
		id:         uuid.NewString(),
		name:       d.name,
		aliases:    append([]service.Name(nil), d.aliases...),
		location:   d.location,
		svc:        d.svc,
		injections: append([]valueInjection(nil), d.injections...),
		mode:       d.mode,
		state:      StateNew,
		listeners:  append([]Listener(nil), d.listeners...),
		wiring:     true,
	}
	c.job = &controllerJob{c: c}
	return c
}

// Name returns the primary name.
func (c *Controller) Name() service.Name {
	return c.name
}

// Aliases returns the alternative names the controller is registered under.
func (c *Controller) Aliases() []service.Name {
	return append([]service.Name(nil), c.aliases...)
}

// ID returns a unique identifier of this installation. Reinstalling a service
// under the same name yields a new ID.
func (c *Controller) ID() string {
	return c.id
}

// Location returns where the service was declared, or nil.
func (c *Controller) Location() *service.Location {
	return c.location
}

// Service returns the managed service.
func (c *Controller) Service() service.Service {
	return c.svc
}

// Container returns the owning container.
func (c *Controller) Container() *Container {
	return c.container
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// StartError returns the failure of the last start attempt while the
// controller is in StateStartFailed, and nil otherwise.
func (c *Controller) StartError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startErr
}

// Dependencies lists the declared dependencies sorted by name.
func (c *Controller) Dependencies() []DependencyInfo {
	infos := make([]DependencyInfo, 0, len(c.deps))
	for _, d := range c.deps {
		infos = append(infos, DependencyInfo{Name: d.reg.name, Optional: d.optional})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name.Compare(infos[j].Name) < 0 })
	return infos
}

// SetMode records the requested mode. The change takes effect as soon as no
// task of the controller is in flight; a start or stop already running is
// never interrupted.
func (c *Controller) SetMode(mode Mode) error {
	switch mode {
	case ModeActive, ModeNever, ModeRemove:
	default:
		return structuralError("set mode", c.name, fmt.Errorf("%w: mode %v", ErrInvalidArgument, mode))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeRemove {
		if mode == ModeRemove {
			return nil
		}
		return usageError("set mode", c.name, ErrModeAfterRemove)
	}
	if c.mode == mode {
		return nil
	}
	c.mode = mode
	if c.asyncTasks == 0 {
		c.transitionLocked()
	}
	return nil
}

// Retry restarts a service that failed to start, as if its mode had been
// toggled. It reports whether the controller was in START_FAILED.
func (c *Controller) Retry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStartFailed {
		return false
	}
	c.rebind = true
	if c.asyncTasks == 0 {
		c.transitionLocked()
	}
	return true
}

// AddListener attaches l. It first receives a ListenerAdded event and then
// every event that happens after this call.
func (c *Controller) AddListener(l Listener) error {
	if l == nil {
		return structuralError("add listener", c.name, fmt.Errorf("%w: nil listener", ErrInvalidArgument))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRemoved {
		return usageError("add listener", c.name, ErrControllerRemoved)
	}
	if containsListener(c.listeners, l) {
		return usageError("add listener", c.name, ErrDuplicateListener)
	}
	// Copy on write: queued events keep the slice they were created with.
	c.listeners = append(append([]Listener(nil), c.listeners...), l)

	ev := Event{Kind: EventListenerAdded, Controller: c}
	c.enqueueLocked(TaskListener, func() { dispatch(l, ev) })
	return nil
}

// RemoveListener detaches l. Events already queued for l may still be
// delivered. It reports whether l was attached.
func (c *Controller) RemoveListener(l Listener) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]Listener, 0, len(c.listeners))
	for _, existing := range c.listeners {
		if !sameListener(existing, l) {
			kept = append(kept, existing)
		}
	}
	removed := len(kept) != len(c.listeners)
	c.listeners = kept
	return removed
}

// Value returns the service's value. It fails with a usage error unless the
// controller is up.
func (c *Controller) Value() (any, error) {
	c.mu.Lock()
	up := c.state == StateUp
	c.mu.Unlock()

	if !up {
		return nil, usageError("get value", c.name, ErrNotUp)
	}
	return c.svc.Value()
}

func (c *Controller) String() string {
	return fmt.Sprintf("Controller(%s)", c.name)
}

// ControllerStatus is a point in time view of a controller.
type ControllerStatus struct {
	ID                  string
	Name                service.Name
	Aliases             []service.Name
	Mode                Mode
	State               State
	MissingDependencies int
	FailedDependencies  int
	RunningDependents   int
	StartError          error
}

// Status returns a snapshot of the controller's state and counters.
func (c *Controller) Status() ControllerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ControllerStatus{
		ID:                  c.id,
		Name:                c.name,
		Aliases:             c.Aliases(),
		Mode:                c.mode,
		State:               c.state,
		MissingDependencies: c.missing,
		FailedDependencies:  c.failed,
		RunningDependents:   c.runningDependents,
		StartError:          c.startErr,
	}
}

func (c *Controller) exported() status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exportedLocked()
}

func (c *Controller) exportedLocked() status {
	return status{
		missing: c.state == StateRemoved || c.missing > 0,
		failed:  c.state == StateStartFailed || c.failed > 0,
		up:      c.state == StateUp && c.available,
	}
}

// addRunningDependent is called by a dependent that is about to start. It
// succeeds only while the service is up and not about to stop.
func (c *Controller) addRunningDependent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateUp || !c.available {
		return false
	}
	c.runningDependents++
	return true
}

func (c *Controller) removeRunningDependent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runningDependents--
	if c.runningDependents == 0 && c.asyncTasks == 0 {
		c.transitionLocked()
	}
}

func containsListener(listeners []Listener, l Listener) bool {
	for _, existing := range listeners {
		if sameListener(existing, l) {
			return true
		}
	}
	return false
}

// sameListener compares listeners without panicking on non-comparable
// dynamic types, which are never considered equal.
func sameListener(a, b Listener) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}
