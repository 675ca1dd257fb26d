// Package recorder provides a container.Listener that records every event it
// receives, for use in tests.
package recorder

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/service"
)

// Entry is one recorded event.
type Entry struct {
	Seq  int
	Kind container.EventKind
	Name service.Name
	Err  error
}

func (e Entry) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s(%v)", e.Name, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Name, e.Kind)
}

// Recorder records events from any number of controllers. It must be used
// through its pointer.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	changed chan struct{}
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{changed: make(chan struct{})}
}

func (r *Recorder) record(kind container.EventKind, c *container.Controller, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Seq: len(r.entries), Kind: kind, Name: c.Name(), Err: err})
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *Recorder) ListenerAdded(c *container.Controller) {
	r.record(container.EventListenerAdded, c, nil)
}

func (r *Recorder) ServiceStarting(c *container.Controller) {
	r.record(container.EventServiceStarting, c, nil)
}

func (r *Recorder) ServiceStarted(c *container.Controller) {
	r.record(container.EventServiceStarted, c, nil)
}

func (r *Recorder) ServiceFailed(c *container.Controller, reason error) {
	r.record(container.EventServiceFailed, c, reason)
}

func (r *Recorder) ServiceStopping(c *container.Controller) {
	r.record(container.EventServiceStopping, c, nil)
}

func (r *Recorder) ServiceStopped(c *container.Controller) {
	r.record(container.EventServiceStopped, c, nil)
}

func (r *Recorder) ServiceRemoved(c *container.Controller) {
	r.record(container.EventServiceRemoved, c, nil)
}

func (r *Recorder) DependencyFailed(c *container.Controller) {
	r.record(container.EventDependencyFailed, c, nil)
}

func (r *Recorder) DependencyFailureCleared(c *container.Controller) {
	r.record(container.EventDependencyFailureCleared, c, nil)
}

func (r *Recorder) DependencyInstalled(c *container.Controller) {
	r.record(container.EventDependencyInstalled, c, nil)
}

func (r *Recorder) DependencyUninstalled(c *container.Controller) {
	r.record(container.EventDependencyUninstalled, c, nil)
}

// Entries returns every recorded event in arrival order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Kinds returns the kinds of events recorded for name, in order.
func (r *Recorder) Kinds(name service.Name) []container.EventKind {
	var kinds []container.EventKind
	for _, e := range r.Entries() {
		if e.Name == name {
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds
}

// Count returns how many events of kind were recorded for name.
func (r *Recorder) Count(name service.Name, kind container.EventKind) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Name == name && e.Kind == kind {
			n++
		}
	}
	return n
}

// Index returns the sequence number of the n-th (zero based) event of kind
// for name, or -1.
func (r *Recorder) Index(name service.Name, kind container.EventKind, n int) int {
	for _, e := range r.Entries() {
		if e.Name == name && e.Kind == kind {
			if n == 0 {
				return e.Seq
			}
			n--
		}
	}
	return -1
}

// Last returns the most recent event recorded for name.
func (r *Recorder) Last(name service.Name) (Entry, bool) {
	entries := r.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Name == name {
			return entries[i], true
		}
	}
	return Entry{}, false
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// WaitFor blocks until at least count events of kind were recorded for name,
// or the timeout expires. It reports whether the count was reached.
func (r *Recorder) WaitFor(name service.Name, kind container.EventKind, count int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		r.mu.Lock()
		n := 0
		for _, e := range r.entries {
			if e.Name == name && e.Kind == kind {
				n++
			}
		}
		changed := r.changed
		r.mu.Unlock()

		if n >= count {
			return true
		}
		select {
		case <-changed:
		case <-deadline.C:
			return false
		}
	}
}

// String renders all entries, one per line.
func (r *Recorder) String() string {
	var b strings.Builder
	for _, e := range r.Entries() {
		fmt.Fprintf(&b, "%d: %s\n", e.Seq, e)
	}
	return b.String()
}
