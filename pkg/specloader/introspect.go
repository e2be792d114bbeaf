package specloader

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/facets"
	"github.com/conduit-lang/metamodel/pkg/spec"
)

// introspect runs the factories over a specification. Class-level factories run
// for every type; members are only introspected for registered struct types
// that are not values.
func (l *Loader) introspect(s *spec.ObjectSpecification) {
	t := s.Type()
	reg := s.Registration()

	if super := spec.SuperType(t); super != nil {
		l.specificationFor(super)
	}

	methods := facets.NewMethodRemover(t)
	if reg != nil {
		for name := range reg.Programmatic {
			methods.Remove(name)
		}
	}

	classCtx := &facets.ClassContext{
		Type:         t,
		Holder:       s.Own(),
		Registration: reg,
		Methods:      methods,
		Failures:     l.failures,
	}
	for _, f := range l.factories {
		if p, ok := f.(facets.ClassProcessor); ok && f.FeatureTypes().Has(facetapi.Object) {
			p.ProcessClass(classCtx)
		}
	}

	if reg == nil || t.Kind() != reflect.Struct || s.ContainsFacet(facets.KindValue) {
		return
	}

	l.introspectFields(s, methods)
	l.introspectActions(s, methods)

	for _, m := range methods.Remaining() {
		if l.isPrefixed(m.Name) {
			s.AddOrphan(m.Name)
		}
	}
	s.SortMembers()

	l.logger.Debug("introspected type",
		zap.String("type", s.FullName()),
		zap.Int("properties", len(s.Properties())),
		zap.Int("collections", len(s.Collections())),
		zap.Int("actions", len(s.Actions())),
	)
}

func (l *Loader) introspectFields(s *spec.ObjectSpecification, methods *facets.MethodRemover) {
	t := s.Type()
	reg := s.Registration()
	var properties, collections int

	for _, field := range reflect.VisibleFields(t) {
		if !field.IsExported() || field.Anonymous || reg.IsProgrammatic(field.Name) {
			continue
		}
		switch field.Type.Kind() {
		case reflect.Func, reflect.Chan, reflect.UnsafePointer:
			continue
		}
		tag, err := facets.ParseTag(field)
		if err != nil {
			l.failures.Add(facetapi.MemberIdentifier(s.FullName(), field.Name), "%v", err)
			continue
		}
		if tag.Excluded() {
			continue
		}

		var m spec.Member
		if facets.IsCollectionType(field.Type) {
			m = spec.NewCollection(s, field, collections)
			collections++
		} else {
			m = spec.NewProperty(s, field, properties)
			properties++
		}
		s.AddMember(m)
		l.reference(field.Type)

		f := field
		l.processMember(&facets.MemberContext{
			Type:         t,
			FeatureType:  m.FeatureType(),
			ID:           field.Name,
			Field:        &f,
			Holder:       m,
			Registration: reg,
			Methods:      methods,
			Failures:     l.failures,
		})
	}
}

func (l *Loader) introspectActions(s *spec.ObjectSpecification, methods *facets.MethodRemover) {
	t := s.Type()
	reg := s.Registration()

	var candidates []reflect.Method
	for _, m := range methods.Remaining() {
		if l.isPrefixed(m.Name) {
			continue
		}
		if m.Type.IsVariadic() {
			methods.Remove(m.Name)
			l.failures.Add(facetapi.MemberIdentifier(s.FullName(), m.Name),
				"variadic method %s cannot be an action; mark it programmatic", m.Name)
			continue
		}
		candidates = append(candidates, m)
	}
	for i, m := range candidates {
		if methods.IsRemoved(m.Name) {
			continue
		}
		methods.Remove(m.Name)
		a := spec.NewAction(s, m, i)
		s.AddMember(a)
		if rt := a.Type(); rt != nil {
			l.reference(rt)
		}

		method := m
		l.processMember(&facets.MemberContext{
			Type:         t,
			FeatureType:  facetapi.Action,
			ID:           m.Name,
			Method:       &method,
			Holder:       a,
			Registration: reg,
			Methods:      methods,
			Failures:     l.failures,
		})

		for _, p := range a.Parameters() {
			l.reference(p.Type())
			l.processParameter(&facets.ParameterContext{
				Type:         t,
				ActionID:     m.Name,
				Action:       method,
				Index:        p.Index(),
				ParamType:    p.Type(),
				Holder:       p,
				Registration: reg,
				Methods:      methods,
				Failures:     l.failures,
			})
		}
	}
}

func (l *Loader) processMember(ctx *facets.MemberContext) {
	for _, f := range l.factories {
		if p, ok := f.(facets.MemberProcessor); ok && f.FeatureTypes().Has(ctx.FeatureType) {
			p.ProcessMember(ctx)
		}
	}
}

func (l *Loader) processParameter(ctx *facets.ParameterContext) {
	for _, f := range l.factories {
		if p, ok := f.(facets.ParameterProcessor); ok && f.FeatureTypes().Has(facetapi.Parameter) {
			p.ProcessParameter(ctx)
		}
	}
}

func (l *Loader) isPrefixed(name string) bool {
	for _, prefix := range l.prefixes {
		if facets.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
