package facetapi

import (
	"fmt"
	"sort"
)

// Kind tags a facet with the capability it describes.
// A holder keeps at most one facet per kind.
type Kind string

// Precedence ranks competing facets of the same kind.
// Higher precedence wins; a holder never replaces a facet with a lower-ranked one.
type Precedence int

const (
	// PrecedenceFallback marks permissive defaults installed for every holder
	PrecedenceFallback Precedence = iota
	// PrecedenceDerived marks facets inferred from types, names or other specifications
	PrecedenceDerived
	// PrecedenceAnnotation marks facets declared explicitly by tags, registration or supporting methods
	PrecedenceAnnotation
	// PrecedenceLayout marks facets read from layout files
	PrecedenceLayout
)

// String returns the string representation of the precedence
func (p Precedence) String() string {
	switch p {
	case PrecedenceFallback:
		return "fallback"
	case PrecedenceDerived:
		return "derived"
	case PrecedenceAnnotation:
		return "annotation"
	case PrecedenceLayout:
		return "layout"
	default:
		return fmt.Sprintf("precedence(%d)", int(p))
	}
}

// Facet is an immutable behavior descriptor attached to a Holder
type Facet interface {
	Kind() Kind
	Precedence() Precedence
	Holder() Holder
	// Attributes describes the facet payload for inspection and export
	Attributes() map[string]string
}

// Base carries the identity every facet shares. Concrete facets embed it.
type Base struct {
	kind       Kind
	precedence Precedence
	holder     Holder
}

// NewBase creates the shared part of a facet
func NewBase(kind Kind, precedence Precedence, holder Holder) Base {
	return Base{kind: kind, precedence: precedence, holder: holder}
}

// Kind returns the facet kind
func (b Base) Kind() Kind { return b.kind }

// Precedence returns the facet precedence
func (b Base) Precedence() Precedence { return b.precedence }

// Holder returns the holder the facet was created for
func (b Base) Holder() Holder { return b.holder }

// Attributes returns no attributes; facets with a payload override it
func (b Base) Attributes() map[string]string { return nil }

// IsFallback reports whether the facet is a permissive default
func IsFallback(f Facet) bool {
	return f != nil && f.Precedence() == PrecedenceFallback
}

// As returns the facet of the given kind as its concrete type
func As[T Facet](h Holder, kind Kind) (T, bool) {
	var zero T
	if h == nil {
		return zero, false
	}
	f := h.Facet(kind)
	if f == nil {
		return zero, false
	}
	typed, ok := f.(T)
	return typed, ok
}

// SortFacets orders facets by kind
func SortFacets(facets []Facet) {
	sort.Slice(facets, func(i, j int) bool {
		return facets[i].Kind() < facets[j].Kind()
	})
}
