// Package spec holds the object specifications of the metamodel: one per domain
// type, each with its properties, collections and actions. Specifications are
// built once by the specification loader and are read-only afterwards.
package spec

import (
	"reflect"
	"sort"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/facets"
	"github.com/conduit-lang/metamodel/pkg/scan"
)

// Resolver looks up the specifications of other types
type Resolver interface {
	SpecificationFor(t reflect.Type) (*ObjectSpecification, bool)
	Specifications() []*ObjectSpecification
}

// ObjectSpecification is the metamodel of one type
type ObjectSpecification struct {
	facetapi.FacetHolder
	typ      reflect.Type
	fullName string
	resolver Resolver
	reg      *scan.Registration

	properties  []*Property
	collections []*Collection
	actions     []*Action
	members     map[string]Member
	orphans     []string
}

// New creates an empty specification for t. reg is nil for types that are only
// reached by reference.
func New(t reflect.Type, reg *scan.Registration, resolver Resolver) *ObjectSpecification {
	t = scan.Normalize(t)
	name := scan.FullName(t)
	return &ObjectSpecification{
		FacetHolder: facetapi.NewFacetHolder(facetapi.TypeIdentifier(name), facetapi.Object),
		typ:         t,
		fullName:    name,
		resolver:    resolver,
		reg:         reg,
		members:     make(map[string]Member),
	}
}

// Type returns the specified type
func (s *ObjectSpecification) Type() reflect.Type { return s.typ }

// FullName returns the package-qualified type name
func (s *ObjectSpecification) FullName() string { return s.fullName }

// Registration returns the registration the specification was built from, or nil
func (s *ObjectSpecification) Registration() *scan.Registration { return s.reg }

// Own returns the holder of the facets declared on this type itself, ignoring supertypes.
// Factories write to it.
func (s *ObjectSpecification) Own() facetapi.Holder { return &s.FacetHolder }

// LogicalName returns the object type name, e.g. "petclinic.Owner"
func (s *ObjectSpecification) LogicalName() string {
	if f, ok := facetapi.As[*facets.ObjectTypeFacet](s, facets.KindObjectType); ok {
		return f.Name()
	}
	return s.fullName
}

// SingularName returns the display name of the type
func (s *ObjectSpecification) SingularName() string {
	return s.text(facets.KindNamed)
}

// PluralName returns the plural display name of the type
func (s *ObjectSpecification) PluralName() string {
	return s.text(facets.KindPlural)
}

// Description returns the type description
func (s *ObjectSpecification) Description() string {
	return s.text(facets.KindDescribedAs)
}

func (s *ObjectSpecification) text(kind facetapi.Kind) string {
	if f, ok := facetapi.As[*facets.TextFacet](s, kind); ok {
		return f.Value()
	}
	return ""
}

// Superclass returns the specification of the first embedded struct, if any
func (s *ObjectSpecification) Superclass() (*ObjectSpecification, bool) {
	st := SuperType(s.typ)
	if st == nil || s.resolver == nil {
		return nil, false
	}
	return s.resolver.SpecificationFor(st)
}

// Subclasses returns the specifications whose superclass is s, sorted by name
func (s *ObjectSpecification) Subclasses() []*ObjectSpecification {
	if s.resolver == nil {
		return nil
	}
	var result []*ObjectSpecification
	for _, other := range s.resolver.Specifications() {
		if super, ok := other.Superclass(); ok && super == s {
			result = append(result, other)
		}
	}
	return result
}

// SuperType returns the first embedded struct type of t, or nil
func SuperType(t reflect.Type) reflect.Type {
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		if ft := scan.Normalize(f.Type); ft.Kind() == reflect.Struct {
			return ft
		}
	}
	return nil
}

// Facet returns the facet of the kind. A facet declared on the type wins over
// one inherited from the superclass; fallbacks are used only when neither
// the type nor its supertypes declare anything better.
func (s *ObjectSpecification) Facet(kind facetapi.Kind) facetapi.Facet {
	own := s.FacetHolder.Facet(kind)
	if own != nil && !facetapi.IsFallback(own) {
		return own
	}
	if super, ok := s.Superclass(); ok {
		if inherited := super.Facet(kind); inherited != nil && !facetapi.IsFallback(inherited) {
			return inherited
		}
	}
	return own
}

// ContainsFacet reports whether the type has or inherits a facet of the kind
func (s *ObjectSpecification) ContainsFacet(kind facetapi.Kind) bool {
	return s.Facet(kind) != nil
}

// ContainsNonFallback reports whether the type has or inherits a non-fallback facet of the kind
func (s *ObjectSpecification) ContainsNonFallback(kind facetapi.Kind) bool {
	f := s.Facet(kind)
	return f != nil && !facetapi.IsFallback(f)
}

// Facets returns the effective facets including inherited ones, sorted by kind
func (s *ObjectSpecification) Facets() []facetapi.Facet {
	kinds := make(map[facetapi.Kind]bool)
	for _, f := range s.FacetHolder.Facets() {
		kinds[f.Kind()] = true
	}
	if super, ok := s.Superclass(); ok {
		for _, f := range super.Facets() {
			kinds[f.Kind()] = true
		}
	}
	result := make([]facetapi.Facet, 0, len(kinds))
	for kind := range kinds {
		if f := s.Facet(kind); f != nil {
			result = append(result, f)
		}
	}
	facetapi.SortFacets(result)
	return result
}

// Nature returns the declared or derived nature
func (s *ObjectSpecification) Nature() annotation.Nature {
	if f, ok := facetapi.As[*facets.NatureFacet](s, facets.KindNature); ok {
		return f.Nature()
	}
	return annotation.NatureNotSpecified
}

// IsEntity reports whether the type is a persistent entity
func (s *ObjectSpecification) IsEntity() bool { return s.Nature() == annotation.NatureEntity }

// IsViewModel reports whether the type is a view model
func (s *ObjectSpecification) IsViewModel() bool { return s.Nature() == annotation.NatureViewModel }

// IsService reports whether the type is a domain service
func (s *ObjectSpecification) IsService() bool { return s.Nature() == annotation.NatureService }

// IsValue reports whether the type is a value type
func (s *ObjectSpecification) IsValue() bool { return s.ContainsFacet(facets.KindValue) }

// IsImmutable reports whether instances may not be modified
func (s *ObjectSpecification) IsImmutable() bool { return s.ContainsNonFallback(facets.KindImmutable) }

// Title returns the title of an instance
func (s *ObjectSpecification) Title(obj any) string {
	if f, ok := facetapi.As[facets.TitleFacet](s, facets.KindTitle); ok {
		return f.Title(obj)
	}
	return ""
}

// IconName returns the icon name of an instance, or ""
func (s *ObjectSpecification) IconName(obj any) string {
	if f, ok := facetapi.As[facets.TextProvider](s, facets.KindIconName); ok {
		return f.Text(obj)
	}
	return ""
}

// Properties returns the properties in member order
func (s *ObjectSpecification) Properties() []*Property { return s.properties }

// Collections returns the collections in member order
func (s *ObjectSpecification) Collections() []*Collection { return s.collections }

// Actions returns the actions in member order
func (s *ObjectSpecification) Actions() []*Action { return s.actions }

// Members returns every member: properties, then collections, then actions
func (s *ObjectSpecification) Members() []Member {
	result := make([]Member, 0, len(s.members))
	for _, p := range s.properties {
		result = append(result, p)
	}
	for _, c := range s.collections {
		result = append(result, c)
	}
	for _, a := range s.actions {
		result = append(result, a)
	}
	return result
}

// Member returns the member with the given id
func (s *ObjectSpecification) Member(id string) (Member, bool) {
	m, ok := s.members[id]
	return m, ok
}

// Property returns the property with the given id
func (s *ObjectSpecification) Property(id string) (*Property, bool) {
	p, ok := s.members[id].(*Property)
	return p, ok
}

// Collection returns the collection with the given id
func (s *ObjectSpecification) Collection(id string) (*Collection, bool) {
	c, ok := s.members[id].(*Collection)
	return c, ok
}

// Action returns the action with the given id
func (s *ObjectSpecification) Action(id string) (*Action, bool) {
	a, ok := s.members[id].(*Action)
	return a, ok
}

// Orphans returns the supporting methods that did not match any member
func (s *ObjectSpecification) Orphans() []string { return s.orphans }

// AddMember adds a member. Only used while the specification is being built.
func (s *ObjectSpecification) AddMember(m Member) {
	s.members[m.ID()] = m
	switch m := m.(type) {
	case *Property:
		s.properties = append(s.properties, m)
	case *Collection:
		s.collections = append(s.collections, m)
	case *Action:
		s.actions = append(s.actions, m)
	}
}

// AddOrphan records a supporting method without a member. Only used while building.
func (s *ObjectSpecification) AddOrphan(name string) {
	s.orphans = append(s.orphans, name)
}

// SortMembers orders the members by their member order sequence, then by
// declaration order. Called once all facets are in place.
func (s *ObjectSpecification) SortMembers() {
	sortMembers(s.properties)
	sortMembers(s.collections)
	sortMembers(s.actions)
	sort.Strings(s.orphans)
}

func sortMembers[M Member](members []M) {
	sort.SliceStable(members, func(i, j int) bool {
		if c := facets.CompareSequence(Sequence(members[i]), Sequence(members[j])); c != 0 {
			return c < 0
		}
		return members[i].Index() < members[j].Index()
	})
}

// Sequence returns the member order sequence of a holder, or ""
func Sequence(h facetapi.Holder) string {
	if f, ok := facetapi.As[*facets.MemberOrderFacet](h, facets.KindMemberOrder); ok {
		return f.Sequence()
	}
	return ""
}
