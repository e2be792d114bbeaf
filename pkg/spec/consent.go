package spec

import (
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/facets"
)

// Where names the context a member is rendered in
type Where = annotation.Where

// Consent is the outcome of an interaction check
type Consent struct {
	Allowed bool
	Reason  string
}

// Allow returns a consent that permits the interaction
func Allow() Consent { return Consent{Allowed: true} }

// Veto returns a consent that forbids the interaction
func Veto(reason string) Consent { return Consent{Reason: reason} }

// IsVetoed reports whether the interaction is forbidden
func (c Consent) IsVetoed() bool { return !c.Allowed }

func vetoErr(err error) Consent { return Veto(err.Error()) }

// Visibility checks whether the member is visible for obj in the given context
func (m *member) Visibility(obj any, where Where) Consent {
	if f, ok := facetapi.As[*facets.HiddenFacet](m, facets.KindHidden); ok && f.HiddenIn(where) {
		return Veto("Hidden")
	}
	if f, ok := facetapi.As[*facets.HideFacet](m, facets.KindHide); ok && obj != nil {
		hidden, err := f.Hides(obj)
		if err != nil {
			return vetoErr(err)
		}
		if hidden {
			return Veto("Hidden")
		}
	}
	return Allow()
}

// Usability checks whether the member can be used for obj
func (m *member) Usability(obj any) Consent {
	if c := m.owner.Usability(obj); c.IsVetoed() {
		return c
	}
	if f, ok := facetapi.As[*facets.DisabledFacet](m, facets.KindDisabled); ok {
		return Veto(f.Reason())
	}
	if f, ok := facetapi.As[*facets.DisableFacet](m, facets.KindDisable); ok && obj != nil {
		reason, err := f.Disables(obj)
		if err != nil {
			return vetoErr(err)
		}
		if reason != "" {
			return Veto(reason)
		}
	}
	return Allow()
}

// Usability checks the object-level Disabled() method of the type
func (s *ObjectSpecification) Usability(obj any) Consent {
	if obj == nil {
		return Allow()
	}
	if f, ok := facetapi.As[*facets.ObjectMethodFacet](s, facets.KindDisabledObject); ok {
		reason, err := f.Reason(obj)
		if err != nil {
			return vetoErr(err)
		}
		if reason != "" {
			return Veto(reason)
		}
	}
	return Allow()
}

// ValidateObject runs the object-level Validate() method of the type and the
// mandatory checks of every property
func (s *ObjectSpecification) ValidateObject(obj any) Consent {
	for _, p := range s.properties {
		v, err := p.Get(obj)
		if err != nil {
			return vetoErr(err)
		}
		if c := validateValue(p, v); c.IsVetoed() {
			return Veto(fmt.Sprintf("%s: %s", p.Name(), c.Reason))
		}
	}
	if f, ok := facetapi.As[*facets.ObjectMethodFacet](s, facets.KindValidateObject); ok {
		reason, err := f.Reason(obj)
		if err != nil {
			return vetoErr(err)
		}
		if reason != "" {
			return Veto(reason)
		}
	}
	return Allow()
}

// ValidateProposed checks a proposed new value of the property
func (p *Property) ValidateProposed(obj any, value any) Consent {
	if c := validateValue(p, value); c.IsVetoed() {
		return c
	}
	if f, ok := facetapi.As[*facets.ValidateFacet](p, facets.KindValidate); ok {
		reason, err := f.Invalidates(obj, value)
		if err != nil {
			return vetoErr(err)
		}
		if reason != "" {
			return Veto(reason)
		}
	}
	return Allow()
}

// ValidateArguments checks the arguments of an action invocation, first each
// argument on its own and then all of them together
func (a *Action) ValidateArguments(obj any, args ...any) Consent {
	if len(args) != len(a.params) {
		return Veto(fmt.Sprintf("expected %d arguments, got %d", len(a.params), len(args)))
	}
	for i, p := range a.params {
		if c := p.ValidateArgument(obj, args[i]); c.IsVetoed() {
			return Veto(fmt.Sprintf("%s: %s", p.Name(), c.Reason))
		}
	}
	if f, ok := facetapi.As[*facets.ValidateFacet](a, facets.KindValidate); ok {
		reason, err := f.Invalidates(obj, args...)
		if err != nil {
			return vetoErr(err)
		}
		if reason != "" {
			return Veto(reason)
		}
	}
	return Allow()
}

// ValidateArgument checks a single argument
func (p *Parameter) ValidateArgument(obj any, value any) Consent {
	if c := validateValue(p, value); c.IsVetoed() {
		return c
	}
	if f, ok := facetapi.As[*facets.ValidateFacet](p, facets.KindValidate); ok {
		reason, err := f.Invalidates(obj, value)
		if err != nil {
			return vetoErr(err)
		}
		if reason != "" {
			return Veto(reason)
		}
	}
	return Allow()
}

// validateValue applies the declarative constraints of a property or parameter
func validateValue(h facetapi.Holder, value any) Consent {
	if f, ok := facetapi.As[*facets.MandatoryFacet](h, facets.KindMandatory); ok {
		if reason := f.Invalidates(value); reason != "" {
			return Veto(reason)
		}
	}
	s, isString := stringValue(value)
	if !isString {
		return Allow()
	}
	if f, ok := facetapi.As[*facets.IntFacet](h, facets.KindMaxLength); ok && f.Value() > 0 {
		if utf8.RuneCountInString(s) > f.Value() {
			return Veto(fmt.Sprintf("Too long, max %d characters", f.Value()))
		}
	}
	if f, ok := facetapi.As[*facets.RegexFacet](h, facets.KindRegex); ok {
		if reason := f.Invalidates(s); reason != "" {
			return Veto(reason)
		}
	}
	return Allow()
}

func stringValue(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}
