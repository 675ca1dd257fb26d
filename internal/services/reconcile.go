package services

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/giantswarm/conductor/internal/config"
	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/service"
	"github.com/giantswarm/conductor/pkg/logging"
)

// Diff describes how a desired set of declarations differs from the
// installed one. Entries are keyed by primary name.
type Diff struct {
	// Added are declared but not installed.
	Added []config.ServiceConfig
	// Removed are installed but no longer declared.
	Removed []service.Name
	// Replaced changed anything besides their mode and are reinstalled.
	Replaced []config.ServiceConfig
	// Modes holds the new mode of entries that only changed their mode.
	Modes map[service.Name]container.Mode
}

// Empty reports whether applying d changes nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Replaced) == 0 && len(d.Modes) == 0
}

func (d Diff) String() string {
	return fmt.Sprintf("%d added, %d removed, %d replaced, %d mode change(s)",
		len(d.Added), len(d.Removed), len(d.Replaced), len(d.Modes))
}

// Compare computes the Diff that turns current into desired. Both lists
// must have passed config validation.
func Compare(current, desired []config.ServiceConfig) Diff {
	diff := Diff{Modes: make(map[service.Name]container.Mode)}

	installed := make(map[service.Name]config.ServiceConfig, len(current))
	for _, spec := range current {
		name, _ := spec.ServiceName()
		installed[name] = spec
	}

	declared := make(map[service.Name]bool, len(desired))
	for _, spec := range desired {
		name, _ := spec.ServiceName()
		declared[name] = true

		prev, ok := installed[name]
		switch {
		case !ok:
			diff.Added = append(diff.Added, spec)
		case !sameDeclaration(prev, spec):
			diff.Replaced = append(diff.Replaced, spec)
		case prev.Mode != spec.Mode:
			mode, _ := spec.InitialMode()
			diff.Modes[name] = mode
		}
	}

	for _, spec := range current {
		name, _ := spec.ServiceName()
		if !declared[name] {
			diff.Removed = append(diff.Removed, name)
		}
	}
	return diff
}

// sameDeclaration compares everything except the mode.
func sameDeclaration(a, b config.ServiceConfig) bool {
	a.Mode, b.Mode = "", ""
	return reflect.DeepEqual(a, b)
}

// Reconciler keeps a container in line with a list of declarations. Apply
// may be called repeatedly, typically after the configuration changed.
type Reconciler struct {
	ct        *container.Container
	listeners []container.Listener

	mu      sync.Mutex
	current []config.ServiceConfig
}

// NewReconciler creates a Reconciler for ct. The listeners are attached to
// every service it installs.
func NewReconciler(ct *container.Container, listeners ...container.Listener) *Reconciler {
	return &Reconciler{ct: ct, listeners: listeners}
}

// Apply brings the container in line with desired. A graph with a cycle is
// rejected before anything changes. Removed and replaced services are taken
// out first and Apply waits for them to go away before installing the
// replacements together with the added services as one batch.
func (r *Reconciler) Apply(ctx context.Context, desired []config.ServiceConfig) (Diff, error) {
	if _, err := Check(desired); err != nil {
		return Diff{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	diff := Compare(r.current, desired)
	if diff.Empty() {
		return diff, nil
	}
	logging.Info("Reconciler", "Applying %s", diff)

	outgoing := append([]service.Name(nil), diff.Removed...)
	for _, spec := range diff.Replaced {
		name, _ := spec.ServiceName()
		outgoing = append(outgoing, name)
	}
	for _, name := range outgoing {
		if err := r.setMode(name, container.ModeRemove); err != nil {
			return diff, err
		}
	}
	if len(outgoing) > 0 {
		if err := r.ct.AwaitStability(ctx); err != nil {
			return diff, fmt.Errorf("waiting for removals: %w", err)
		}
	}

	for name, mode := range diff.Modes {
		if err := r.setMode(name, mode); err != nil {
			return diff, err
		}
	}

	incoming := append(append([]config.ServiceConfig(nil), diff.Replaced...), diff.Added...)
	if len(incoming) > 0 {
		if _, err := Install(r.ct, incoming, r.listeners...); err != nil {
			return diff, err
		}
	}

	r.current = append([]config.ServiceConfig(nil), desired...)
	return diff, nil
}

func (r *Reconciler) setMode(name service.Name, mode container.Mode) error {
	c, err := r.ct.Service(name)
	if container.IsNotFound(err) {
		logging.Debug("Reconciler", "%s is already gone", name)
		return nil
	}
	if err != nil {
		return err
	}
	if err := c.SetMode(mode); err != nil {
		return fmt.Errorf("setting %s to %s: %w", name, mode, err)
	}
	return nil
}
