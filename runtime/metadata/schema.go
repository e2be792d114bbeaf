package metadata

import (
	"time"
)

// SchemaVersion is the version of the snapshot format written by Build
const SchemaVersion = "1.0"

// Metadata is the top-level container for an exported metamodel snapshot
type Metadata struct {
	Version      string           `json:"version"`
	ID           string           `json:"id"`
	Generated    time.Time        `json:"generated"`
	SourceHash   string           `json:"source_hash"`
	Specs        []SpecMetadata   `json:"specs"`
	Failures     []string         `json:"failures,omitempty"`
	Dependencies *DependencyGraph `json:"dependencies,omitempty"`
}

// SpecMetadata is the exported form of an object specification
type SpecMetadata struct {
	Name        string           `json:"name"` // Logical name
	Type        string           `json:"type"` // Full type name
	Nature      string           `json:"nature"`
	Singular    string           `json:"singular"`
	Plural      string           `json:"plural"`
	Description string           `json:"description,omitempty"`
	Superclass  string           `json:"superclass,omitempty"`
	Registered  bool             `json:"registered"`
	Immutable   bool             `json:"immutable,omitempty"`
	Facets      []FacetMetadata  `json:"facets,omitempty"`
	Properties  []MemberMetadata `json:"properties,omitempty"`
	Collections []MemberMetadata `json:"collections,omitempty"`
	Actions     []ActionMetadata `json:"actions,omitempty"`
	Orphans     []string         `json:"orphans,omitempty"`
}

// MemberMetadata describes a property or collection
type MemberMetadata struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Reference string          `json:"reference,omitempty"` // Full name of the referenced domain type
	Optional  bool            `json:"optional,omitempty"`
	Sequence  string          `json:"sequence,omitempty"`
	Facets    []FacetMetadata `json:"facets,omitempty"`
}

// ActionMetadata describes an action and its parameters
type ActionMetadata struct {
	MemberMetadata
	Parameters []ParameterMetadata `json:"parameters,omitempty"`
}

// ParameterMetadata describes an action parameter
type ParameterMetadata struct {
	Index     int             `json:"index"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Reference string          `json:"reference,omitempty"`
	Optional  bool            `json:"optional,omitempty"`
	Facets    []FacetMetadata `json:"facets,omitempty"`
}

// FacetMetadata describes a facet installed on a holder
type FacetMetadata struct {
	Kind       string            `json:"kind"`
	Precedence string            `json:"precedence"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// DependencyGraph represents references between specifications
type DependencyGraph struct {
	Nodes map[string]*DependencyNode `json:"nodes"`
	Edges []DependencyEdge           `json:"edges"`
}

// DependencyNode is a specification in the dependency graph, keyed by full type name
type DependencyNode struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Nature string `json:"nature"`
}

// DependencyEdge is a reference from one specification to another
type DependencyEdge struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Relationship string `json:"relationship"` // property, collection, returns, parameter, extends
	Via          string `json:"via,omitempty"`
	Weight       int    `json:"weight"`
}

// Relationship kinds of dependency edges
const (
	RelProperty   = "property"
	RelCollection = "collection"
	RelReturns    = "returns"
	RelParameter  = "parameter"
	RelExtends    = "extends"
)

// Spec returns the specification with the given logical or full type name
func (m *Metadata) Spec(name string) (*SpecMetadata, bool) {
	for i := range m.Specs {
		if m.Specs[i].Name == name || m.Specs[i].Type == name {
			return &m.Specs[i], true
		}
	}
	return nil, false
}

// Facet returns the facet of the given kind, if present
func (s *SpecMetadata) Facet(kind string) (FacetMetadata, bool) {
	return findFacet(s.Facets, kind)
}

// Facet returns the facet of the given kind, if present
func (m *MemberMetadata) Facet(kind string) (FacetMetadata, bool) {
	return findFacet(m.Facets, kind)
}

func findFacet(facets []FacetMetadata, kind string) (FacetMetadata, bool) {
	for _, f := range facets {
		if f.Kind == kind {
			return f, true
		}
	}
	return FacetMetadata{}, false
}
