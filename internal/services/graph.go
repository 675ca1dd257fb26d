package services

import (
	"fmt"
	"sort"

	"github.com/giantswarm/conductor/internal/config"
	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/dependency"
	"github.com/giantswarm/conductor/internal/service"
	"github.com/giantswarm/conductor/pkg/logging"
)

// Graph builds the dependency graph declared by specs: one service node per
// entry and one alias node per alias. Optional dependencies are edges too.
// The specs must have passed config validation.
func Graph(specs []config.ServiceConfig) (*dependency.Graph, error) {
	g := dependency.New()
	for _, spec := range specs {
		name, err := spec.ServiceName()
		if err != nil {
			return nil, err
		}
		required, err := spec.DependencyNames()
		if err != nil {
			return nil, err
		}
		optional, err := spec.OptionalDependencyNames()
		if err != nil {
			return nil, err
		}
		var edges []dependency.NodeID
		for _, d := range append(required, optional...) {
			edges = append(edges, dependency.NodeID(d.String()))
		}
		g.AddNode(dependency.Node{ID: dependency.NodeID(name.String()), Kind: dependency.KindService, DependsOn: edges})

		aliases, err := spec.AliasNames()
		if err != nil {
			return nil, err
		}
		for _, a := range aliases {
			g.AddNode(dependency.Node{
				ID:        dependency.NodeID(a.String()),
				Kind:      dependency.KindAlias,
				DependsOn: []dependency.NodeID{dependency.NodeID(name.String())},
			})
		}
	}
	return g, nil
}

// Plan is the result of checking a declared graph.
type Plan struct {
	// Order lists primary names so that every service comes after the
	// services it depends on.
	Order []service.Name
	// Unresolved lists dependency names no entry declares, sorted.
	Unresolved []service.Name
}

// Check validates the graph declared by specs. A cycle is reported as a
// *dependency.CycleError.
func Check(specs []config.ServiceConfig) (Plan, error) {
	g, err := Graph(specs)
	if err != nil {
		return Plan{}, err
	}
	if err := g.Validate(); err != nil {
		return Plan{}, err
	}

	var all []dependency.NodeID
	primary := make(map[dependency.NodeID]service.Name)
	for _, spec := range specs {
		name, _ := spec.ServiceName()
		id := dependency.NodeID(name.String())
		primary[id] = name
		all = append(all, id)
		aliases, _ := spec.AliasNames()
		for _, a := range aliases {
			all = append(all, dependency.NodeID(a.String()))
		}
	}
	order, err := g.TopologicalSort(all)
	if err != nil {
		return Plan{}, err
	}

	var plan Plan
	for _, id := range order {
		if name, ok := primary[id]; ok {
			plan.Order = append(plan.Order, name)
		}
	}
	seen := make(map[service.Name]bool)
	for _, spec := range specs {
		deps, _ := spec.DependencyNames()
		opt, _ := spec.OptionalDependencyNames()
		for _, d := range append(deps, opt...) {
			if g.Get(dependency.NodeID(d.String())) == nil && !seen[d] {
				seen[d] = true
				plan.Unresolved = append(plan.Unresolved, d)
			}
		}
	}
	sort.Slice(plan.Unresolved, func(i, j int) bool { return plan.Unresolved[i].Compare(plan.Unresolved[j]) < 0 })
	return plan, nil
}

// Install declares every entry as a scripted service and installs them as one
// batch. The listeners are attached to every service.
func Install(ct *container.Container, specs []config.ServiceConfig, listeners ...container.Listener) (map[service.Name]*Scripted, error) {
	batch := ct.NewBatch()
	if len(listeners) > 0 {
		if err := batch.AddListener(listeners...); err != nil {
			return nil, err
		}
	}

	installed := make(map[service.Name]*Scripted, len(specs))
	for _, spec := range specs {
		name, err := spec.ServiceName()
		if err != nil {
			return nil, err
		}
		svc := NewScripted(name, spec)
		if err := declare(batch, name, svc, spec); err != nil {
			return nil, fmt.Errorf("declaring %s: %w", name, err)
		}
		installed[name] = svc
	}

	if err := batch.Install(); err != nil {
		return nil, err
	}
	logging.Info("Services", "Installed %d scripted service(s)", len(installed))
	return installed, nil
}

func declare(batch *container.BatchBuilder, name service.Name, svc *Scripted, spec config.ServiceConfig) error {
	b := batch.AddService(name, svc)

	aliases, err := spec.AliasNames()
	if err != nil {
		return err
	}
	if err := b.AddAliases(aliases...); err != nil {
		return err
	}
	required, err := spec.DependencyNames()
	if err != nil {
		return err
	}
	if err := b.AddDependencies(required...); err != nil {
		return err
	}
	optional, err := spec.OptionalDependencyNames()
	if err != nil {
		return err
	}
	if err := b.AddOptionalDependencies(optional...); err != nil {
		return err
	}
	mode, err := spec.InitialMode()
	if err != nil {
		return err
	}
	if err := b.SetInitialMode(mode); err != nil {
		return err
	}
	return b.Install()
}
