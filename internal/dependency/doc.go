// Package dependency provides the name level dependency graph used by the
// service container.
//
// Every installed controller contributes one KindService node per primary
// name, with edges to the names it depends on, and one KindAlias node per
// alias, with a single edge to the primary name. Names that are depended on
// but not installed have no node and act as leaves.
//
// # Operations
//
// FindCycle: depth first search for a cycle reachable from a set of nodes
//   - Used by install to reject graphs that would deadlock
//   - Returns the full cycle path for error messages
//
// TopologicalSort: dependencies-first ordering of a subset of nodes
//   - Used by batch install to wire dependencies before dependents
//   - Deterministic for a given graph
//
// Dependents: direct reverse edges of a node
//
// The graph is not safe for concurrent use; the container guards it with its
// namespace lock.
package dependency
