package facets

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
)

// ObjectTypeFacet carries the logical type name of a type
type ObjectTypeFacet struct {
	facetapi.Base
	name string
}

// NewObjectTypeFacet creates an object type facet
func NewObjectTypeFacet(name string, p facetapi.Precedence, h facetapi.Holder) *ObjectTypeFacet {
	return &ObjectTypeFacet{Base: facetapi.NewBase(KindObjectType, p, h), name: name}
}

// Name returns the logical type name
func (f *ObjectTypeFacet) Name() string { return f.name }

func (f *ObjectTypeFacet) Attributes() map[string]string {
	return map[string]string{"name": f.name}
}

// NatureFacet records whether a type is an entity, view model, service or value
type NatureFacet struct {
	facetapi.Base
	nature annotation.Nature
}

// NewNatureFacet creates a nature facet
func NewNatureFacet(n annotation.Nature, p facetapi.Precedence, h facetapi.Holder) *NatureFacet {
	return &NatureFacet{Base: facetapi.NewBase(KindNature, p, h), nature: n}
}

// Nature returns the nature
func (f *NatureFacet) Nature() annotation.Nature { return f.nature }

func (f *NatureFacet) Attributes() map[string]string {
	return map[string]string{"nature": f.nature.String()}
}

// TextFacet is a fixed piece of text: a name, plural, description or css class
type TextFacet struct {
	facetapi.Base
	value string
}

// NewTextFacet creates a text facet of the given kind
func NewTextFacet(kind facetapi.Kind, value string, p facetapi.Precedence, h facetapi.Holder) *TextFacet {
	return &TextFacet{Base: facetapi.NewBase(kind, p, h), value: value}
}

// Value returns the text
func (f *TextFacet) Value() string { return f.value }

// Text returns the text regardless of the target
func (f *TextFacet) Text(obj any) string { return f.value }

func (f *TextFacet) Attributes() map[string]string {
	return map[string]string{"value": f.value}
}

// TextProvider is implemented by facets whose text may depend on the target
type TextProvider interface {
	facetapi.Facet
	Text(obj any) string
}

// MethodTextFacet computes text by calling a method on the target
type MethodTextFacet struct {
	facetapi.Base
	typ    reflect.Type
	method reflect.Method
}

// NewMethodTextFacet creates a facet that calls method for its text
func NewMethodTextFacet(kind facetapi.Kind, t reflect.Type, m reflect.Method, h facetapi.Holder) *MethodTextFacet {
	return &MethodTextFacet{Base: facetapi.NewBase(kind, facetapi.PrecedenceAnnotation, h), typ: t, method: m}
}

// Text calls the method; failures yield an empty string
func (f *MethodTextFacet) Text(obj any) string {
	out, err := call(f.method, f.typ, obj, nil)
	if err != nil {
		return ""
	}
	v, _ := splitResult(out)
	s, _ := v.(string)
	return s
}

func (f *MethodTextFacet) Attributes() map[string]string {
	return map[string]string{"method": f.method.Name}
}

// TitleFacet renders the title of an instance
type TitleFacet interface {
	facetapi.Facet
	Title(obj any) string
}

// TitleNone is the fallback title facet; it yields no title
type TitleNone struct {
	facetapi.Base
}

// NewTitleNone creates the fallback title facet
func NewTitleNone(h facetapi.Holder) *TitleNone {
	return &TitleNone{Base: facetapi.NewBase(KindTitle, facetapi.PrecedenceFallback, h)}
}

// Title returns an empty string
func (f *TitleNone) Title(obj any) string { return "" }

// TitleViaMethod renders a title using a Title() or String() method
type TitleViaMethod struct {
	MethodTextFacet
}

// NewTitleViaMethod creates a title facet backed by a method
func NewTitleViaMethod(t reflect.Type, m reflect.Method, p facetapi.Precedence, h facetapi.Holder) *TitleViaMethod {
	f := &TitleViaMethod{MethodTextFacet: *NewMethodTextFacet(KindTitle, t, m, h)}
	f.Base = facetapi.NewBase(KindTitle, p, h)
	return f
}

// Title calls the title method. A failing method yields "Failed Title".
func (f *TitleViaMethod) Title(obj any) string {
	out, err := call(f.method, f.typ, obj, nil)
	if err != nil {
		return "Failed Title"
	}
	v, _ := splitResult(out)
	s, _ := v.(string)
	return s
}

// TitleComponent is one field contributing to a composite title
type TitleComponent struct {
	Field    reflect.StructField
	Sequence float64
}

// TitleViaFields renders a title by joining the values of tagged fields
type TitleViaFields struct {
	facetapi.Base
	components []TitleComponent
}

// NewTitleViaFields creates a composite title facet; components are ordered by sequence
func NewTitleViaFields(components []TitleComponent, h facetapi.Holder) *TitleViaFields {
	sorted := make([]TitleComponent, len(components))
	copy(sorted, components)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sequence < sorted[j].Sequence
	})
	return &TitleViaFields{Base: facetapi.NewBase(KindTitle, facetapi.PrecedenceAnnotation, h), components: sorted}
}

// Title joins the non-empty field values with spaces
func (f *TitleViaFields) Title(obj any) string {
	v := reflect.Indirect(reflect.ValueOf(obj))
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return ""
	}
	var parts []string
	for _, c := range f.components {
		fv, err := v.FieldByIndexErr(c.Field.Index)
		if err != nil {
			continue
		}
		s := formatValue(fv)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (f *TitleViaFields) Attributes() map[string]string {
	names := make([]string, len(f.components))
	for i, c := range f.components {
		names[i] = c.Field.Name
	}
	return map[string]string{"fields": strings.Join(names, ",")}
}

func formatValue(v reflect.Value) string {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v.Interface())
}

// ImmutableFacet marks a type whose instances may not be modified
type ImmutableFacet struct {
	facetapi.Base
	reason string
}

// NewImmutableFacet creates an immutable facet
func NewImmutableFacet(reason string, p facetapi.Precedence, h facetapi.Holder) *ImmutableFacet {
	return &ImmutableFacet{Base: facetapi.NewBase(KindImmutable, p, h), reason: reason}
}

// Reason explains why instances may not be modified
func (f *ImmutableFacet) Reason() string { return f.reason }

func (f *ImmutableFacet) Attributes() map[string]string {
	return map[string]string{"reason": f.reason}
}

// MarkerFacet is a facet without payload, e.g. auditable or key
type MarkerFacet struct {
	facetapi.Base
}

// NewMarkerFacet creates a marker facet of the given kind
func NewMarkerFacet(kind facetapi.Kind, p facetapi.Precedence, h facetapi.Holder) *MarkerFacet {
	return &MarkerFacet{Base: facetapi.NewBase(kind, p, h)}
}

// IntFacet carries a single integer: page size, max length or line count
type IntFacet struct {
	facetapi.Base
	value int
}

// NewIntFacet creates an integer facet of the given kind
func NewIntFacet(kind facetapi.Kind, value int, p facetapi.Precedence, h facetapi.Holder) *IntFacet {
	return &IntFacet{Base: facetapi.NewBase(kind, p, h), value: value}
}

// Value returns the integer
func (f *IntFacet) Value() int { return f.value }

func (f *IntFacet) Attributes() map[string]string {
	return map[string]string{"value": strconv.Itoa(f.value)}
}

// ValueFacet marks a type as a value type rather than a reference to a domain object
type ValueFacet struct {
	facetapi.Base
	typicalLength int
}

// NewValueFacet creates a value facet
func NewValueFacet(typicalLength int, p facetapi.Precedence, h facetapi.Holder) *ValueFacet {
	return &ValueFacet{Base: facetapi.NewBase(KindValue, p, h), typicalLength: typicalLength}
}

// TypicalLength is the typical rendered length of values of the type
func (f *ValueFacet) TypicalLength() int { return f.typicalLength }

func (f *ValueFacet) Attributes() map[string]string {
	return map[string]string{"typicalLength": strconv.Itoa(f.typicalLength)}
}

// ObjectMethodFacet calls a no-argument method on the target that returns a reason
// string. It backs object-level disabling and validation.
type ObjectMethodFacet struct {
	facetapi.Base
	typ    reflect.Type
	method reflect.Method
}

// NewObjectMethodFacet creates a facet backed by a reason-returning method
func NewObjectMethodFacet(kind facetapi.Kind, t reflect.Type, m reflect.Method, h facetapi.Holder) *ObjectMethodFacet {
	return &ObjectMethodFacet{Base: facetapi.NewBase(kind, facetapi.PrecedenceAnnotation, h), typ: t, method: m}
}

// Reason calls the method and returns its reason; an empty reason means allowed
func (f *ObjectMethodFacet) Reason(obj any) (string, error) {
	out, err := call(f.method, f.typ, obj, nil)
	if err != nil {
		return "", err
	}
	v, err := splitResult(out)
	if err != nil {
		return err.Error(), nil
	}
	s, _ := v.(string)
	return s, nil
}

func (f *ObjectMethodFacet) Attributes() map[string]string {
	return map[string]string{"method": f.method.Name}
}

// LifecycleFacet calls a lifecycle callback such as Persisting
type LifecycleFacet struct {
	facetapi.Base
	event  string
	typ    reflect.Type
	method reflect.Method
}

// NewLifecycleFacet creates a lifecycle callback facet
func NewLifecycleFacet(event string, t reflect.Type, m reflect.Method, h facetapi.Holder) *LifecycleFacet {
	return &LifecycleFacet{
		Base:   facetapi.NewBase(LifecycleKind(event), facetapi.PrecedenceAnnotation, h),
		event:  event,
		typ:    t,
		method: m,
	}
}

// Event returns the lifecycle event name
func (f *LifecycleFacet) Event() string { return f.event }

// Invoke calls the callback on the target
func (f *LifecycleFacet) Invoke(obj any) error {
	out, err := call(f.method, f.typ, obj, nil)
	if err != nil {
		return err
	}
	_, err = splitResult(out)
	return err
}

func (f *LifecycleFacet) Attributes() map[string]string {
	return map[string]string{"event": f.event, "method": f.method.Name}
}

// IdentityFacet lists the key properties identifying persistent instances of an entity
type IdentityFacet struct {
	facetapi.Base
	keys []string
}

// NewIdentityFacet creates an identity facet
func NewIdentityFacet(keys []string, h facetapi.Holder) *IdentityFacet {
	k := make([]string, len(keys))
	copy(k, keys)
	return &IdentityFacet{Base: facetapi.NewBase(KindIdentity, facetapi.PrecedenceDerived, h), keys: k}
}

// Keys returns the key property ids
func (f *IdentityFacet) Keys() []string {
	k := make([]string, len(f.keys))
	copy(k, f.keys)
	return k
}

func (f *IdentityFacet) Attributes() map[string]string {
	return map[string]string{"keys": strings.Join(f.keys, ",")}
}
