// Package dependency provides a small directed acyclic graph used to order
// validation parameters.
//
// A parameter such as "ounit_id" can only be discovered once "hei_id" is
// known, so it declares a dependency on it:
//
//	g := dependency.New()
//	g.AddNode(dependency.Node{ID: "hei_id"})
//	g.AddNode(dependency.Node{ID: "ounit_id", DependsOn: []dependency.NodeID{"hei_id"}})
//
//	order, err := g.TopologicalOrder() // [hei_id ounit_id]
//
// TopologicalOrder is deterministic: independent nodes keep the order in which
// they were added. Cycles and references to undeclared nodes are reported as
// *CycleError and *MissingDependencyError.
package dependency
