// Package metadata captures a sealed metamodel as a serializable snapshot and
// serves read-only queries over it.
//
// # Overview
//
// A snapshot lists every object specification with its members, parameters and
// effective facets, the validation failures of the build, and the dependency
// graph between specifications. Snapshots are JSON documents so that tools
// outside the process (code generators, documentation, admin UIs) can consume
// the metamodel without linking the domain packages.
//
//	loader := specloader.New()
//	err := loader.Start(ctx)
//	meta, err := metadata.Build(loader.Specifications(), loader.Failures()...)
//	data, err := metadata.Encode(meta)
//
// # Registry
//
// A Registry indexes one snapshot for fast lookups. Registration builds the
// indexes once; queries take a read lock and cache their results because a
// registered snapshot never changes.
//
//	reg := metadata.NewRegistry()
//	_ = reg.Register(meta)
//	owner, err := reg.Spec("petclinic.Owner")
//	deps, err := reg.Dependencies("petclinic.Owner", metadata.DependencyOptions{Depth: 1})
//
// # Dependency graph
//
// Edges point from a specification to the specifications it references
// through properties, collections, action return types, action parameters
// and embedded superclasses. DetectCycles reports reference cycles.
package metadata
