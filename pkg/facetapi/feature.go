// Package facetapi defines the core abstractions of the metamodel: feature types,
// identifiers, facets and the holders that own them.
//
// A facet is an immutable descriptor of one behavioral capability of a program
// element (its title, whether it is hidden, its choices, ...). Holders keep at
// most one facet per kind and arbitrate between competing facets by precedence.
package facetapi

import "strings"

// FeatureType identifies the kind of program element a holder represents
type FeatureType int

const (
	Object FeatureType = iota
	Property
	Collection
	Action
	Parameter
)

// String returns the string representation of the feature type
func (f FeatureType) String() string {
	switch f {
	case Object:
		return "object"
	case Property:
		return "property"
	case Collection:
		return "collection"
	case Action:
		return "action"
	case Parameter:
		return "parameter"
	default:
		return "unknown"
	}
}

// IsMember returns true for properties, collections and actions
func (f FeatureType) IsMember() bool {
	return f == Property || f == Collection || f == Action
}

// FeatureSet is a set of feature types a factory applies to
type FeatureSet uint8

const (
	Objects     FeatureSet = 1 << Object
	Properties  FeatureSet = 1 << Property
	Collections FeatureSet = 1 << Collection
	Actions     FeatureSet = 1 << Action
	Parameters  FeatureSet = 1 << Parameter

	Associations FeatureSet = Properties | Collections
	Members      FeatureSet = Properties | Collections | Actions
	Everything   FeatureSet = Objects | Members | Parameters
)

// Has reports whether the set contains the feature type
func (s FeatureSet) Has(ft FeatureType) bool {
	return s&(1<<ft) != 0
}

// String returns a comma-separated list of the feature types in the set
func (s FeatureSet) String() string {
	var parts []string
	for ft := Object; ft <= Parameter; ft++ {
		if s.Has(ft) {
			parts = append(parts, ft.String())
		}
	}
	return strings.Join(parts, ",")
}
