package container

import (
	"fmt"

	"github.com/giantswarm/conductor/pkg/logging"
)

// Listener observes a controller. Callbacks for one controller are delivered
// one at a time, in the order the underlying transitions happened, on a
// worker goroutine with no container lock held. A callback may call back into
// the container.
//
// Listeners are compared with ==, so implementations must be comparable;
// pointer types are the usual choice.
type Listener interface {
	// ListenerAdded is the first event every listener receives.
	ListenerAdded(c *Controller)
	ServiceStarting(c *Controller)
	ServiceStarted(c *Controller)
	ServiceFailed(c *Controller, reason error)
	ServiceStopping(c *Controller)
	ServiceStopped(c *Controller)
	ServiceRemoved(c *Controller)
	// DependencyFailed fires when the first dependency of c fails, directly
	// or transitively. DependencyFailureCleared fires when the last such
	// failure clears.
	DependencyFailed(c *Controller)
	DependencyFailureCleared(c *Controller)
	// DependencyUninstalled fires when the first required dependency of c
	// becomes missing, directly or transitively. DependencyInstalled fires when
	// the last missing dependency is installed.
	DependencyInstalled(c *Controller)
	DependencyUninstalled(c *Controller)
}

// BaseListener implements Listener with no-op methods. Embed it to handle
// only the events of interest.
type BaseListener struct{}

func (BaseListener) ListenerAdded(*Controller)            {}
func (BaseListener) ServiceStarting(*Controller)          {}
func (BaseListener) ServiceStarted(*Controller)           {}
func (BaseListener) ServiceFailed(*Controller, error)     {}
func (BaseListener) ServiceStopping(*Controller)          {}
func (BaseListener) ServiceStopped(*Controller)           {}
func (BaseListener) ServiceRemoved(*Controller)           {}
func (BaseListener) DependencyFailed(*Controller)         {}
func (BaseListener) DependencyFailureCleared(*Controller) {}
func (BaseListener) DependencyInstalled(*Controller)      {}
func (BaseListener) DependencyUninstalled(*Controller)    {}

// EventKind identifies a listener callback.
type EventKind int

const (
	EventListenerAdded EventKind = iota
	EventServiceStarting
	EventServiceStarted
	EventServiceFailed
	EventServiceStopping
	EventServiceStopped
	EventServiceRemoved
	EventDependencyFailed
	EventDependencyFailureCleared
	EventDependencyInstalled
	EventDependencyUninstalled
)

var eventNames = [...]string{
	EventListenerAdded:            "listenerAdded",
	EventServiceStarting:          "serviceStarting",
	EventServiceStarted:           "serviceStarted",
	EventServiceFailed:            "serviceFailed",
	EventServiceStopping:          "serviceStopping",
	EventServiceStopped:           "serviceStopped",
	EventServiceRemoved:           "serviceRemoved",
	EventDependencyFailed:         "dependencyFailed",
	EventDependencyFailureCleared: "dependencyFailureCleared",
	EventDependencyInstalled:      "dependencyInstalled",
	EventDependencyUninstalled:    "dependencyUninstalled",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a single listener callback in value form.
type Event struct {
	Kind       EventKind
	Controller *Controller
	// Err is the failure reason for EventServiceFailed.
	Err error
}

// ListenerFunc adapts a function receiving Events to the Listener
// interface. A *ListenerFunc is comparable; a ListenerFunc value is not, so
// always pass its address.
type ListenerFunc func(Event)

func (f *ListenerFunc) emit(kind EventKind, c *Controller, err error) {
	(*f)(Event{Kind: kind, Controller: c, Err: err})
}

func (f *ListenerFunc) ListenerAdded(c *Controller) {
	f.emit(EventListenerAdded, c, nil)
}

func (f *ListenerFunc) ServiceStarting(c *Controller) {
	f.emit(EventServiceStarting, c, nil)
}

func (f *ListenerFunc) ServiceStarted(c *Controller) {
	f.emit(EventServiceStarted, c, nil)
}

func (f *ListenerFunc) ServiceFailed(c *Controller, reason error) {
	f.emit(EventServiceFailed, c, reason)
}

func (f *ListenerFunc) ServiceStopping(c *Controller) {
	f.emit(EventServiceStopping, c, nil)
}

func (f *ListenerFunc) ServiceStopped(c *Controller) {
	f.emit(EventServiceStopped, c, nil)
}

func (f *ListenerFunc) ServiceRemoved(c *Controller) {
	f.emit(EventServiceRemoved, c, nil)
}

func (f *ListenerFunc) DependencyFailed(c *Controller) {
	f.emit(EventDependencyFailed, c, nil)
}

func (f *ListenerFunc) DependencyFailureCleared(c *Controller) {
	f.emit(EventDependencyFailureCleared, c, nil)
}

func (f *ListenerFunc) DependencyInstalled(c *Controller) {
	f.emit(EventDependencyInstalled, c, nil)
}

func (f *ListenerFunc) DependencyUninstalled(c *Controller) {
	f.emit(EventDependencyUninstalled, c, nil)
}

// dispatch delivers one event to l, recovering from panics in user code.
func dispatch(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Controller", "Listener %T panicked handling %s for %s: %v", l, ev.Kind, ev.Controller.Name(), r)
		}
	}()

	c := ev.Controller
	switch ev.Kind {
	case EventListenerAdded:
		l.ListenerAdded(c)
	case EventServiceStarting:
		l.ServiceStarting(c)
	case EventServiceStarted:
		l.ServiceStarted(c)
	case EventServiceFailed:
		l.ServiceFailed(c, ev.Err)
	case EventServiceStopping:
		l.ServiceStopping(c)
	case EventServiceStopped:
		l.ServiceStopped(c)
	case EventServiceRemoved:
		l.ServiceRemoved(c)
	case EventDependencyFailed:
		l.DependencyFailed(c)
	case EventDependencyFailureCleared:
		l.DependencyFailureCleared(c)
	case EventDependencyInstalled:
		l.DependencyInstalled(c)
	case EventDependencyUninstalled:
		l.DependencyUninstalled(c)
	}
}
