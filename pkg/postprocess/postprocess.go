// Package postprocess refines specifications once the whole specification graph
// is built: facets that depend on other specifications are derived here.
package postprocess

import (
	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/facets"
	"github.com/conduit-lang/metamodel/pkg/spec"
)

// PostProcessor refines one specification. Returned errors are recorded as
// failures of that specification; they do not stop other post-processors.
type PostProcessor interface {
	Name() string
	PostProcess(s *spec.ObjectSpecification, failures facets.Reporter) error
}

// ChoicesFromType gives properties and parameters of a bounded type the
// bounded instances as choices
type ChoicesFromType struct{}

func (ChoicesFromType) Name() string { return "ChoicesFromType" }

func (ChoicesFromType) PostProcess(s *spec.ObjectSpecification, _ facets.Reporter) error {
	derive := func(h facetapi.Holder, kind facetapi.Kind, target *spec.ObjectSpecification, ok bool) {
		if !ok || h.ContainsNonFallback(kind) {
			return
		}
		bounded, ok := facetapi.As[*facets.ChoicesFromValues](target, facets.KindChoices)
		if !ok {
			return
		}
		values, err := bounded.Choices(nil)
		if err != nil {
			return
		}
		h.AddFacet(facets.NewChoicesFromValues(kind, values, "type", facetapi.PrecedenceDerived, h))
	}
	for _, p := range s.Properties() {
		target, ok := p.Spec()
		derive(p, facets.KindPropertyChoices, target, ok)
	}
	for _, a := range s.Actions() {
		for _, p := range a.Parameters() {
			target, ok := p.Spec()
			derive(p, facets.KindParamChoices, target, ok)
		}
	}
	return nil
}

// DefaultFromType gives properties and parameters the default declared by their type
type DefaultFromType struct{}

func (DefaultFromType) Name() string { return "DefaultFromType" }

func (DefaultFromType) PostProcess(s *spec.ObjectSpecification, _ facets.Reporter) error {
	derive := func(h facetapi.Holder, kind facetapi.Kind, target *spec.ObjectSpecification, ok bool) {
		if !ok || h.ContainsNonFallback(kind) {
			return
		}
		def, ok := facetapi.As[*facets.DefaultFromValue](target, facets.KindDefaulted)
		if !ok {
			return
		}
		v, _ := def.Default(nil)
		h.AddFacet(facets.NewDefaultFromValue(kind, v, facetapi.PrecedenceDerived, h))
	}
	for _, p := range s.Properties() {
		target, ok := p.Spec()
		derive(p, facets.KindPropertyDefault, target, ok)
	}
	for _, a := range s.Actions() {
		for _, p := range a.Parameters() {
			target, ok := p.Spec()
			derive(p, facets.KindParamDefault, target, ok)
		}
	}
	return nil
}

// ChoicesFromParentedCollection offers the elements of the associated collection
// as choices for the first matching parameter of an associated action
type ChoicesFromParentedCollection struct{}

func (ChoicesFromParentedCollection) Name() string { return "ChoicesFromParentedCollection" }

func (ChoicesFromParentedCollection) PostProcess(s *spec.ObjectSpecification, _ facets.Reporter) error {
	for _, a := range s.Actions() {
		assoc, ok := facetapi.As[*facets.AssociatedWithFacet](a, facets.KindAssociatedWith)
		if !ok {
			continue
		}
		coll, ok := s.Collection(assoc.Collection())
		if !ok {
			continue
		}
		elem := coll.Type()
		for _, p := range a.Parameters() {
			if p.Type() != elem || p.ContainsNonFallback(facets.KindParamChoices) {
				continue
			}
			p.AddFacet(&collectionChoices{
				Base:       facetapi.NewBase(facets.KindParamChoices, facetapi.PrecedenceDerived, p),
				collection: coll,
			})
			break
		}
	}
	return nil
}

// collectionChoices reads the choices from a collection of the target
type collectionChoices struct {
	facetapi.Base
	collection *spec.Collection
}

func (f *collectionChoices) Choices(obj any) ([]any, error) {
	if obj == nil {
		return nil, nil
	}
	return f.collection.Get(obj)
}

func (f *collectionChoices) Attributes() map[string]string {
	return map[string]string{"source": "collection", "collection": f.collection.ID()}
}

// DisabledFromImmutable disables the properties and collections of immutable types
type DisabledFromImmutable struct{}

func (DisabledFromImmutable) Name() string { return "DisabledFromImmutable" }

func (DisabledFromImmutable) PostProcess(s *spec.ObjectSpecification, _ facets.Reporter) error {
	immutable, ok := facetapi.As[*facets.ImmutableFacet](s, facets.KindImmutable)
	if !ok || facetapi.IsFallback(immutable) {
		return nil
	}
	reason := immutable.Reason()
	if reason == "" {
		reason = "Immutable"
	}
	for _, p := range s.Properties() {
		p.AddFacet(facets.NewDisabledFacet(reason, facetapi.PrecedenceDerived, p))
	}
	for _, c := range s.Collections() {
		c.AddFacet(facets.NewDisabledFacet(reason, facetapi.PrecedenceDerived, c))
	}
	return nil
}

// IdentityFromKeys collects the key properties of entities and view models into an identity facet
type IdentityFromKeys struct{}

func (IdentityFromKeys) Name() string { return "IdentityFromKeys" }

func (IdentityFromKeys) PostProcess(s *spec.ObjectSpecification, _ facets.Reporter) error {
	if !s.IsEntity() && !s.IsViewModel() {
		return nil
	}
	var keys []string
	for _, p := range s.Properties() {
		if p.ContainsNonFallback(facets.KindKey) {
			keys = append(keys, p.ID())
		}
	}
	if len(keys) > 0 {
		s.Own().AddFacet(facets.NewIdentityFacet(keys, s.Own()))
	}
	return nil
}
