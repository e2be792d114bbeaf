package validate

import (
	"reflect"
	"sort"
	"strings"

	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/facets"
	"github.com/conduit-lang/metamodel/pkg/scan"
	"github.com/conduit-lang/metamodel/pkg/spec"
)

// Config switches optional checks on and off
type Config struct {
	// ExplicitObjectType requires entities and view models to declare their object type
	ExplicitObjectType bool `mapstructure:"explicit_object_type"`
	// CheckOrphans reports supporting methods that match no member
	CheckOrphans bool `mapstructure:"check_orphans"`
	// AllowDeprecated tolerates the deprecated Clear and Modify prefixes
	AllowDeprecated bool `mapstructure:"allow_deprecated"`
	// CheckUnknownTypes reports members whose struct type is not registered
	CheckUnknownTypes bool `mapstructure:"check_unknown_types"`
}

// DefaultConfig returns the default validation settings
func DefaultConfig() Config {
	return Config{
		CheckOrphans:      true,
		CheckUnknownTypes: true,
	}
}

// Validator checks the completed metamodel and records failures
type Validator interface {
	Name() string
	Validate(specs []*spec.ObjectSpecification, failures *Failures)
}

// Run runs each validator over the specifications
func Run(specs []*spec.ObjectSpecification, validators []Validator) *Failures {
	failures := NewFailures()
	for _, v := range validators {
		v.Validate(specs, failures)
	}
	return failures
}

// OrphanedSupportingMethods reports supporting methods that match no member
type OrphanedSupportingMethods struct {
	AllowDeprecated bool
}

func (v OrphanedSupportingMethods) Name() string { return "OrphanedSupportingMethods" }

func (v OrphanedSupportingMethods) Validate(specs []*spec.ObjectSpecification, failures *Failures) {
	for _, s := range specs {
		for _, name := range s.Orphans() {
			if prefix, ok := deprecatedPrefix(name); ok {
				if !v.AllowDeprecated {
					failures.Add(s.Identifier(), "%s uses the deprecated %q prefix, which is no longer supported", name, prefix)
				}
				continue
			}
			failures.Add(s.Identifier(), "supporting method %s does not match any member (is it misspelled or is its member excluded?)", name)
		}
	}
}

func deprecatedPrefix(name string) (string, bool) {
	for _, prefix := range []string{facets.PrefixClear, facets.PrefixModify} {
		if facets.HasPrefix(name, prefix) {
			return prefix, true
		}
	}
	return "", false
}

// ObjectTypeValidator reports object types shared by several types and, when
// configured, entities and view models without an explicit object type
type ObjectTypeValidator struct {
	Explicit bool
}

func (v ObjectTypeValidator) Name() string { return "ObjectType" }

func (v ObjectTypeValidator) Validate(specs []*spec.ObjectSpecification, failures *Failures) {
	byName := make(map[string][]*spec.ObjectSpecification)
	for _, s := range specs {
		if s.Registration() == nil {
			continue
		}
		byName[s.LogicalName()] = append(byName[s.LogicalName()], s)

		if v.Explicit && (s.IsEntity() || s.IsViewModel()) {
			f := s.FacetHolder.Facet(facets.KindObjectType)
			if f == nil || f.Precedence() < facetapi.PrecedenceAnnotation {
				failures.Add(s.Identifier(), "%s must declare an explicit object type", s.Nature())
			}
		}
	}

	for name, shared := range byName {
		if len(shared) < 2 {
			continue
		}
		names := make([]string, len(shared))
		for i, s := range shared {
			names[i] = s.FullName()
		}
		sort.Strings(names)
		for _, s := range shared {
			failures.Add(s.Identifier(), "object type %q is used by more than one type: %s", name, strings.Join(names, ", "))
		}
	}
}

// IdentityValidator checks key properties: only entities and view models may
// declare keys, and keys must be mandatory
type IdentityValidator struct{}

func (IdentityValidator) Name() string { return "Identity" }

func (IdentityValidator) Validate(specs []*spec.ObjectSpecification, failures *Failures) {
	for _, s := range specs {
		for _, p := range s.Properties() {
			if !p.ContainsNonFallback(facets.KindKey) {
				continue
			}
			if !s.IsEntity() && !s.IsViewModel() {
				failures.Add(p.Identifier(), "only entities and view models may declare key properties")
				continue
			}
			if p.IsOptional() {
				failures.Add(p.Identifier(), "key property must be mandatory")
			}
		}
	}
}

// ChoicesAndAutoCompleteValidator reports properties and parameters declaring both
// choices and auto-complete
type ChoicesAndAutoCompleteValidator struct{}

func (ChoicesAndAutoCompleteValidator) Name() string { return "ChoicesAndAutoComplete" }

func (ChoicesAndAutoCompleteValidator) Validate(specs []*spec.ObjectSpecification, failures *Failures) {
	check := func(h facetapi.Holder, kind facetapi.Kind) {
		choices := h.Facet(kind)
		if choices == nil || choices.Precedence() < facetapi.PrecedenceAnnotation {
			return
		}
		if h.ContainsFacet(facets.KindAutoComplete) {
			failures.Add(h.Identifier(), "cannot have both choices and auto-complete")
		}
	}
	for _, s := range specs {
		for _, p := range s.Properties() {
			check(p, facets.KindPropertyChoices)
		}
		for _, a := range s.Actions() {
			for _, p := range a.Parameters() {
				check(p, facets.KindParamChoices)
			}
		}
	}
}

// AssociatedWithValidator checks that actions are associated with existing collections
type AssociatedWithValidator struct{}

func (AssociatedWithValidator) Name() string { return "AssociatedWith" }

func (AssociatedWithValidator) Validate(specs []*spec.ObjectSpecification, failures *Failures) {
	for _, s := range specs {
		for _, a := range s.Actions() {
			f, ok := facetapi.As[*facets.AssociatedWithFacet](a, facets.KindAssociatedWith)
			if !ok {
				continue
			}
			if _, ok := s.Collection(f.Collection()); !ok {
				failures.Add(a.Identifier(), "associated collection %q does not exist", f.Collection())
			}
		}
	}
}

// UnknownTypesValidator reports members referring to struct types that are
// neither registered nor values
type UnknownTypesValidator struct{}

func (UnknownTypesValidator) Name() string { return "UnknownTypes" }

func (UnknownTypesValidator) Validate(specs []*spec.ObjectSpecification, failures *Failures) {
	check := func(id facetapi.Identifier, t reflect.Type, lookup func() (*spec.ObjectSpecification, bool)) {
		t = scan.Normalize(t)
		if t == nil || t.Kind() != reflect.Struct {
			return
		}
		target, ok := lookup()
		if !ok {
			failures.Add(id, "type %s has no specification", scan.FullName(t))
			return
		}
		if target.Registration() == nil && !target.IsValue() {
			failures.Add(id, "type %s is not a registered domain type", scan.FullName(t))
		}
	}
	for _, s := range specs {
		if s.Registration() == nil {
			continue
		}
		for _, m := range s.Members() {
			check(m.Identifier(), m.Type(), m.Spec)
			if a, ok := m.(*spec.Action); ok {
				for _, p := range a.Parameters() {
					check(p.Identifier(), p.Type(), p.Spec)
				}
			}
		}
	}
}

// ValueConstraintsValidator reports string constraints declared on non-string values
type ValueConstraintsValidator struct{}

func (ValueConstraintsValidator) Name() string { return "ValueConstraints" }

func (ValueConstraintsValidator) Validate(specs []*spec.ObjectSpecification, failures *Failures) {
	check := func(h facetapi.Holder, t reflect.Type) {
		if scan.Normalize(t).Kind() == reflect.String {
			return
		}
		for _, kind := range []facetapi.Kind{facets.KindMaxLength, facets.KindRegex, facets.KindMultiLine} {
			if h.ContainsNonFallback(kind) {
				failures.Add(h.Identifier(), "%s only applies to string values, not %s", kind, t)
			}
		}
	}
	for _, s := range specs {
		for _, p := range s.Properties() {
			check(p, p.Type())
		}
		for _, a := range s.Actions() {
			for _, p := range a.Parameters() {
				check(p, p.Type())
			}
		}
	}
}
