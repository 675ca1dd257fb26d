package container

import (
	"context"
	"fmt"
	"time"

	"github.com/giantswarm/conductor/internal/inject"
	"github.com/giantswarm/conductor/pkg/logging"
)

// TaskKind labels the work a controller schedules on the worker pool.
type TaskKind string

const (
	TaskListener TaskKind = "listener"
	TaskNotify   TaskKind = "notify"
	TaskStart    TaskKind = "start"
	TaskStop     TaskKind = "stop"
	TaskRemove   TaskKind = "remove"
)

type task struct {
	kind TaskKind
	run  func()
}

// enqueueLocked appends a task to the controller's private FIFO. The
// controller does not transition again until every queued task has run.
func (c *Controller) enqueueLocked(kind TaskKind, fn func()) {
	c.tasks = append(c.tasks, task{kind: kind, run: fn})
	c.asyncTasks++
	c.container.tracker.add()
	if !c.wiring {
		c.container.submit(c.job)
	}
}

// releaseWiringLocked ends batch wiring and submits tasks queued meanwhile.
func (c *Controller) releaseWiringLocked() {
	c.wiring = false
	if len(c.tasks) > 0 {
		c.container.submit(c.job)
	}
}

// runNextTask runs one queued task. Tasks of one controller never run
// concurrently because the controller is a single job on the pool.
func (c *Controller) runNextTask() {
	c.mu.Lock()
	if len(c.tasks) == 0 {
		c.mu.Unlock()
		return
	}
	t := c.tasks[0]
	c.tasks[0] = task{}
	c.tasks = c.tasks[1:]
	c.mu.Unlock()

	begin := time.Now()
	t.run()
	c.container.observer.TaskCompleted(t.kind, time.Since(begin))

	c.mu.Lock()
	c.asyncTasks--
	if c.asyncTasks == 0 {
		c.transitionLocked()
	}
	more := len(c.tasks) > 0
	c.mu.Unlock()

	if more {
		c.container.submit(c.job)
	}
	c.container.tracker.done()
}

func (c *Controller) setStateLocked(s State) {
	old := c.state
	c.state = s
	c.container.observer.StateChanged(c.name, old, s)
	logging.Debug("Controller", "%s: %s -> %s", c.name, old, s)
}

// listenerTaskLocked queues delivery of one event to the listeners attached
// right now.
func (c *Controller) listenerTaskLocked(kind EventKind, err error) {
	listeners := c.listeners
	if len(listeners) == 0 {
		return
	}
	ev := Event{Kind: kind, Controller: c, Err: err}
	c.enqueueLocked(TaskListener, func() {
		for _, l := range listeners {
			dispatch(l, ev)
		}
	})
}

// checkExportedLocked queues a notification of dependents when the status
// they observe has changed.
func (c *Controller) checkExportedLocked() {
	st := c.exportedLocked()
	if st == c.lastExported {
		return
	}
	c.lastExported = st
	if c.state == StateNew {
		return
	}
	c.enqueueLocked(TaskNotify, c.notifyDependents)
}

func (c *Controller) shouldRunLocked() bool {
	return c.mode == ModeActive && c.missing == 0 && c.failed == 0 && c.down == 0
}

// transitionLocked advances the state machine as far as it can go without
// waiting for a task.
func (c *Controller) transitionLocked() {
	for c.asyncTasks == 0 && c.stepLocked() {
	}
}

// stepLocked performs at most one transition. It returns true when the
// state changed and another step may be possible.
func (c *Controller) stepLocked() bool {
	switch c.state {
	case StateDown:
		if c.mode == ModeRemove {
			c.setStateLocked(StateRemoved)
			c.checkExportedLocked()
			c.enqueueLocked(TaskRemove, c.removeTask)
			return false
		}
		if !c.shouldRunLocked() || !c.acquireDependenciesLocked() {
			return false
		}
		c.rebind = false
		c.setStateLocked(StateStarting)
		c.listenerTaskLocked(EventServiceStarting, nil)
		c.enqueueLocked(TaskStart, c.startTask)
		return false

	case StateStartFailed:
		if c.shouldRunLocked() && !c.rebind {
			return false
		}
		c.rebind = false
		c.startErr = nil
		c.setStateLocked(StateDown)
		c.listenerTaskLocked(EventServiceStopped, nil)
		c.checkExportedLocked()
		return true

	case StateUp:
		if c.shouldRunLocked() && !c.rebind {
			if !c.available {
				c.available = true
				c.checkExportedLocked()
			}
			return false
		}
		if c.available {
			// Dependents learn that this service is going away and stop
			// first.
			c.available = false
			c.checkExportedLocked()
			return true
		}
		if c.runningDependents > 0 {
			return false
		}
		c.setStateLocked(StateStopping)
		c.listenerTaskLocked(EventServiceStopping, nil)
		c.enqueueLocked(TaskStop, c.stopTask)
		return false
	}
	return false
}

// acquireDependenciesLocked takes a running dependent slot on every blocking
// dependency. It fails without side effects if any of them is not up; the
// pending status change of that dependency will trigger another attempt.
func (c *Controller) acquireDependenciesLocked() bool {
	for i, d := range c.deps {
		if !d.blocking() {
			continue
		}
		target := d.reg.current()
		if target == nil || !target.addRunningDependent() {
			for _, prev := range c.deps[:i] {
				prev.release()
			}
			return false
		}
		d.held = target
	}
	return true
}

func (c *Controller) releaseDependenciesLocked() {
	for _, d := range c.deps {
		d.release()
	}
}

// dependencyChanged is called when the target of d may have changed status.
func (c *Controller) dependencyChanged(d *dependency) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRemoved {
		return
	}
	c.refreshLocked(d)
	c.checkExportedLocked()
	if c.asyncTasks == 0 && !c.wiring {
		c.transitionLocked()
	}
}

// refreshLocked reads the current status of d's target and folds the
// difference into the counters, queueing the listener events that result.
func (c *Controller) refreshLocked(d *dependency) {
	st := d.reg.status()

	if d.optional {
		live := !st.missing
		if live != d.live {
			d.live = live
			switch c.state {
			case StateStarting, StateUp, StateStartFailed:
				c.rebind = true
			}
		}
		if !live {
			st = status{up: true}
		}
		st.missing = false
	}

	if st.missing != d.missing {
		d.missing = st.missing
		if st.missing {
			c.missing++
			if c.missing == 1 {
				c.listenerTaskLocked(EventDependencyUninstalled, nil)
			}
		} else {
			c.missing--
			if c.missing == 0 {
				c.listenerTaskLocked(EventDependencyInstalled, nil)
			}
		}
	}

	if st.failed != d.failed {
		d.failed = st.failed
		if st.failed {
			c.failed++
			if c.failed == 1 {
				c.listenerTaskLocked(EventDependencyFailed, nil)
			}
		} else {
			c.failed--
			if c.failed == 0 {
				c.listenerTaskLocked(EventDependencyFailureCleared, nil)
			}
		}
	}

	if down := !st.up; down != d.down {
		d.down = down
		if down {
			c.down++
		} else {
			c.down--
		}
	}
}

// notifyDependents delivers this controller's status to every edge that
// targets one of its names.
func (c *Controller) notifyDependents() {
	for _, r := range c.regs {
		for _, d := range r.dependentEdges() {
			d.dependent.dependencyChanged(d)
		}
	}
}

func (c *Controller) serviceContext() context.Context {
	return withController(c.container.ctx, c)
}

func (c *Controller) startTask() {
	c.mu.Lock()
	held := make([]*dependency, 0, len(c.deps))
	for _, d := range c.deps {
		if d.held != nil && len(d.injectors) > 0 {
			held = append(held, d)
		}
	}
	c.mu.Unlock()

	err := c.injectValues(held)
	if err == nil {
		err = c.callStart()
	}
	if err != nil {
		c.uninject()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		startErr := &StartError{Name: c.name, Err: err}
		c.startErr = startErr
		c.setStateLocked(StateStartFailed)
		c.releaseDependenciesLocked()
		c.listenerTaskLocked(EventServiceFailed, startErr)
		c.container.observer.StartFailed(c.name)
		logging.Warn("Controller", "Service %s failed to start: %v", c.name, err)
	} else {
		c.startErr = nil
		c.available = true
		c.setStateLocked(StateUp)
		c.listenerTaskLocked(EventServiceStarted, nil)
	}
	c.checkExportedLocked()
}

func (c *Controller) stopTask() {
	if err := c.callStop(); err != nil {
		logging.Warn("Controller", "Service %s reported an error while stopping: %v", c.name, err)
	}
	c.uninject()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rebind = false
	c.setStateLocked(StateDown)
	c.releaseDependenciesLocked()
	c.listenerTaskLocked(EventServiceStopped, nil)
	c.checkExportedLocked()
}

func (c *Controller) removeTask() {
	regs := c.container.unregister(c)
	for _, r := range regs {
		for _, d := range r.dependentEdges() {
			d.dependent.dependencyChanged(d)
		}
	}

	c.mu.Lock()
	listeners := c.listeners
	c.mu.Unlock()

	ev := Event{Kind: EventServiceRemoved, Controller: c}
	for _, l := range listeners {
		dispatch(l, ev)
	}
	logging.Info("Container", "Removed service %s", c.name)
}

// injectValues binds constant injections and the values of held dependencies, in
// declaration order.
func (c *Controller) injectValues(held []*dependency) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during injection: %v", r)
		}
	}()
	for _, vi := range c.injections {
		if err := vi.injector.Inject(vi.value); err != nil {
			return fmt.Errorf("injecting value: %w", err)
		}
		c.injected = append(c.injected, vi.injector)
	}
	for _, d := range held {
		value, err := d.held.Value()
		if err != nil {
			return fmt.Errorf("reading value of dependency %s: %w", d.reg.name, err)
		}
		for _, inj := range d.injectors {
			if err := inj.Inject(value); err != nil {
				return fmt.Errorf("injecting dependency %s: %w", d.reg.name, err)
			}
			c.injected = append(c.injected, inj)
		}
	}
	return nil
}

// uninject reverts injections in reverse order.
func (c *Controller) uninject() {
	for i := len(c.injected) - 1; i >= 0; i-- {
		uninjectSafely(c.injected[i])
	}
	c.injected = nil
}

func uninjectSafely(inj inject.Injector) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Controller", "Injector %T panicked on uninject: %v", inj, r)
		}
	}()
	inj.Uninject()
}

func (c *Controller) callStart() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during start: %v", r)
		}
	}()
	return c.svc.Start(c.serviceContext())
}

func (c *Controller) callStop() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during stop: %v", r)
		}
	}()
	return c.svc.Stop(c.serviceContext())
}
