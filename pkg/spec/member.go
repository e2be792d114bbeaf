package spec

import (
	"context"
	"fmt"
	"reflect"

	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/facets"
)

// Member is a property, collection or action of a specification
type Member interface {
	facetapi.Holder
	ID() string
	// Name returns the display name
	Name() string
	Description() string
	Owner() *ObjectSpecification
	// Index is the declaration position among members of the same feature type
	Index() int
	// Type returns the member value type: the field type of a property, the
	// element type of a collection and the return type of an action (nil when none)
	Type() reflect.Type
	// Spec returns the specification of Type
	Spec() (*ObjectSpecification, bool)

	Visibility(obj any, where Where) Consent
	Usability(obj any) Consent
}

type member struct {
	facetapi.FacetHolder
	id    string
	owner *ObjectSpecification
	index int
}

func newMember(owner *ObjectSpecification, id string, ft facetapi.FeatureType, index int) member {
	return member{
		FacetHolder: facetapi.NewFacetHolder(facetapi.MemberIdentifier(owner.fullName, id), ft),
		id:          id,
		owner:       owner,
		index:       index,
	}
}

func (m *member) ID() string                  { return m.id }
func (m *member) Owner() *ObjectSpecification { return m.owner }
func (m *member) Index() int                  { return m.index }

func (m *member) Name() string {
	if f, ok := facetapi.As[*facets.TextFacet](m, facets.KindNamed); ok {
		return f.Value()
	}
	return m.id
}

func (m *member) Description() string {
	if f, ok := facetapi.As[*facets.TextFacet](m, facets.KindDescribedAs); ok {
		return f.Value()
	}
	return ""
}

func (m *member) resolve(t reflect.Type) (*ObjectSpecification, bool) {
	if t == nil || m.owner.resolver == nil {
		return nil, false
	}
	return m.owner.resolver.SpecificationFor(t)
}

// Property is a single-valued member backed by a struct field
type Property struct {
	member
	field reflect.StructField
}

// NewProperty creates a property for a struct field
func NewProperty(owner *ObjectSpecification, field reflect.StructField, index int) *Property {
	return &Property{member: newMember(owner, field.Name, facetapi.Property, index), field: field}
}

// Field returns the backing struct field
func (p *Property) Field() reflect.StructField { return p.field }

// Type returns the field type
func (p *Property) Type() reflect.Type { return p.field.Type }

// Spec returns the specification of the field type
func (p *Property) Spec() (*ObjectSpecification, bool) { return p.resolve(p.field.Type) }

// IsOptional reports whether the property may be left empty
func (p *Property) IsOptional() bool {
	if f, ok := facetapi.As[*facets.MandatoryFacet](p, facets.KindMandatory); ok {
		return f.IsOptional()
	}
	return false
}

// Get reads the property of obj
func (p *Property) Get(obj any) (any, error) {
	if f, ok := facetapi.As[*facets.AccessorFacet](p, facets.KindAccessor); ok {
		return f.Get(obj)
	}
	return nil, fmt.Errorf("property %s has no accessor", p.Identifier())
}

// Set writes the property of obj, which must be a pointer
func (p *Property) Set(obj any, value any) error {
	if f, ok := facetapi.As[*facets.AccessorFacet](p, facets.KindAccessor); ok {
		return f.Set(obj, value)
	}
	return fmt.Errorf("property %s has no accessor", p.Identifier())
}

// Choices returns the allowed values of the property, or nil when unconstrained
func (p *Property) Choices(obj any) ([]any, error) {
	if f, ok := facetapi.As[facets.ChoicesProvider](p, facets.KindPropertyChoices); ok {
		return f.Choices(obj)
	}
	return nil, nil
}

// Default returns the default value of the property, or nil
func (p *Property) Default(obj any) (any, error) {
	if f, ok := facetapi.As[facets.DefaultProvider](p, facets.KindPropertyDefault); ok {
		return f.Default(obj)
	}
	return nil, nil
}

// Collection is a multi-valued member backed by a slice, array or map field
type Collection struct {
	member
	field reflect.StructField
}

// NewCollection creates a collection for a struct field
func NewCollection(owner *ObjectSpecification, field reflect.StructField, index int) *Collection {
	return &Collection{member: newMember(owner, field.Name, facetapi.Collection, index), field: field}
}

// Field returns the backing struct field
func (c *Collection) Field() reflect.StructField { return c.field }

// Type returns the element type
func (c *Collection) Type() reflect.Type {
	if f, ok := facetapi.As[*facets.TypeOfFacet](c, facets.KindTypeOf); ok {
		return f.ElementType()
	}
	return facets.ElementType(c.field.Type)
}

// Spec returns the specification of the element type
func (c *Collection) Spec() (*ObjectSpecification, bool) { return c.resolve(c.Type()) }

// Get returns the elements of the collection of obj
func (c *Collection) Get(obj any) ([]any, error) {
	f, ok := facetapi.As[*facets.AccessorFacet](c, facets.KindAccessor)
	if !ok {
		return nil, fmt.Errorf("collection %s has no accessor", c.Identifier())
	}
	v, err := f.Get(obj)
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(v)
	var result []any
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			result = append(result, rv.Index(i).Interface())
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			result = append(result, iter.Value().Interface())
		}
	}
	return result, nil
}

// Action is a member backed by a method
type Action struct {
	member
	method reflect.Method
	params []*Parameter
}

// NewAction creates an action for a method together with its parameters
func NewAction(owner *ObjectSpecification, method reflect.Method, index int) *Action {
	a := &Action{member: newMember(owner, method.Name, facetapi.Action, index), method: method}
	for i, pt := range facets.ParamTypes(method.Type) {
		a.params = append(a.params, newParameter(a, i, pt))
	}
	return a
}

// Method returns the backing method
func (a *Action) Method() reflect.Method { return a.method }

// Parameters returns the action parameters
func (a *Action) Parameters() []*Parameter { return a.params }

// Type returns the return type of the action, or nil
func (a *Action) Type() reflect.Type { return facets.ReturnType(a.method.Type) }

// Spec returns the specification of the return type (or its element type for collections)
func (a *Action) Spec() (*ObjectSpecification, bool) {
	rt := a.Type()
	if facets.IsCollectionType(rt) {
		rt = facets.ElementType(rt)
	}
	return a.resolve(rt)
}

// Invoke runs the action on obj
func (a *Action) Invoke(ctx context.Context, obj any, args ...any) (any, error) {
	f, ok := facetapi.As[*facets.InvocationFacet](a, facets.KindInvocation)
	if !ok {
		return nil, fmt.Errorf("action %s cannot be invoked", a.Identifier())
	}
	return f.Invoke(ctx, obj, args...)
}

// Parameter is one argument of an action
type Parameter struct {
	facetapi.FacetHolder
	action *Action
	index  int
	typ    reflect.Type
}

func newParameter(a *Action, index int, t reflect.Type) *Parameter {
	return &Parameter{
		FacetHolder: facetapi.NewFacetHolder(
			facetapi.ParameterIdentifier(a.owner.fullName, a.id, index), facetapi.Parameter),
		action: a,
		index:  index,
		typ:    t,
	}
}

// Action returns the owning action
func (p *Parameter) Action() *Action { return p.action }

// Index returns the parameter position
func (p *Parameter) Index() int { return p.index }

// Type returns the parameter type
func (p *Parameter) Type() reflect.Type { return p.typ }

// Spec returns the specification of the parameter type
func (p *Parameter) Spec() (*ObjectSpecification, bool) { return p.action.resolve(p.typ) }

// Name returns the display name
func (p *Parameter) Name() string {
	if f, ok := facetapi.As[*facets.TextFacet](p, facets.KindNamed); ok {
		return f.Value()
	}
	return fmt.Sprintf("Arg %d", p.index)
}

// IsOptional reports whether the argument may be omitted
func (p *Parameter) IsOptional() bool {
	if f, ok := facetapi.As[*facets.MandatoryFacet](p, facets.KindMandatory); ok {
		return f.IsOptional()
	}
	return false
}

// Choices returns the allowed arguments, or nil when unconstrained
func (p *Parameter) Choices(obj any) ([]any, error) {
	if f, ok := facetapi.As[facets.ChoicesProvider](p, facets.KindParamChoices); ok {
		return f.Choices(obj)
	}
	return nil, nil
}

// Default returns the default argument, or nil
func (p *Parameter) Default(obj any) (any, error) {
	if f, ok := facetapi.As[facets.DefaultProvider](p, facets.KindParamDefault); ok {
		return f.Default(obj)
	}
	return nil, nil
}
