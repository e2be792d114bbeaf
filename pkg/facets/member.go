package facets

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
)

// AccessorFacet reads and writes a struct field of the target
type AccessorFacet struct {
	facetapi.Base
	field reflect.StructField
}

// NewAccessorFacet creates an accessor for the field
func NewAccessorFacet(field reflect.StructField, h facetapi.Holder) *AccessorFacet {
	return &AccessorFacet{Base: facetapi.NewBase(KindAccessor, facetapi.PrecedenceDerived, h), field: field}
}

// Field returns the accessed struct field
func (f *AccessorFacet) Field() reflect.StructField { return f.field }

// Get returns the field value of obj
func (f *AccessorFacet) Get(obj any) (any, error) {
	v := reflect.Indirect(reflect.ValueOf(obj))
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot read %s from %T", f.field.Name, obj)
	}
	fv, err := v.FieldByIndexErr(f.field.Index)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", f.field.Name, err)
	}
	return fv.Interface(), nil
}

// Set assigns the field of obj, which must be a pointer
func (f *AccessorFacet) Set(obj any, value any) error {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("cannot set %s on non-pointer %T", f.field.Name, obj)
	}
	fv, err := v.Elem().FieldByIndexErr(f.field.Index)
	if err != nil {
		return fmt.Errorf("cannot set %s: %w", f.field.Name, err)
	}
	arg, err := argument(value, f.field.Type)
	if err != nil {
		return fmt.Errorf("cannot set %s: %w", f.field.Name, err)
	}
	fv.Set(arg)
	return nil
}

func (f *AccessorFacet) Attributes() map[string]string {
	return map[string]string{"field": f.field.Name, "type": f.field.Type.String()}
}

// TypeOfFacet records the element type of a collection
type TypeOfFacet struct {
	facetapi.Base
	elem reflect.Type
}

// NewTypeOfFacet creates a typeOf facet
func NewTypeOfFacet(elem reflect.Type, h facetapi.Holder) *TypeOfFacet {
	return &TypeOfFacet{Base: facetapi.NewBase(KindTypeOf, facetapi.PrecedenceDerived, h), elem: elem}
}

// ElementType returns the element type
func (f *TypeOfFacet) ElementType() reflect.Type { return f.elem }

func (f *TypeOfFacet) Attributes() map[string]string {
	return map[string]string{"type": f.elem.String()}
}

// HiddenFacet statically hides a member in some contexts
type HiddenFacet struct {
	facetapi.Base
	where annotation.Where
}

// NewHiddenFacet creates a hidden facet
func NewHiddenFacet(where annotation.Where, p facetapi.Precedence, h facetapi.Holder) *HiddenFacet {
	return &HiddenFacet{Base: facetapi.NewBase(KindHidden, p, h), where: where}
}

// Where returns the contexts the member is hidden in
func (f *HiddenFacet) Where() annotation.Where { return f.where }

// HiddenIn reports whether the member is hidden in the given context
func (f *HiddenFacet) HiddenIn(where annotation.Where) bool {
	switch f.where {
	case annotation.Everywhere:
		return true
	case annotation.Nowhere:
		return false
	default:
		return f.where == where
	}
}

func (f *HiddenFacet) Attributes() map[string]string {
	return map[string]string{"where": f.where.String()}
}

// HideFacet hides a member depending on the state of the target
type HideFacet struct {
	facetapi.Base
	typ    reflect.Type
	method reflect.Method
}

// NewHideFacet creates a facet calling a HideX method
func NewHideFacet(t reflect.Type, m reflect.Method, h facetapi.Holder) *HideFacet {
	return &HideFacet{Base: facetapi.NewBase(KindHide, facetapi.PrecedenceAnnotation, h), typ: t, method: m}
}

// Hides reports whether the member is hidden for obj
func (f *HideFacet) Hides(obj any) (bool, error) {
	out, err := call(f.method, f.typ, obj, nil)
	if err != nil {
		return false, err
	}
	v, err := splitResult(out)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (f *HideFacet) Attributes() map[string]string {
	return map[string]string{"method": f.method.Name}
}

// DisabledFacet statically disables a member
type DisabledFacet struct {
	facetapi.Base
	reason string
}

// NewDisabledFacet creates a disabled facet. An empty reason is replaced by a generic one.
func NewDisabledFacet(reason string, p facetapi.Precedence, h facetapi.Holder) *DisabledFacet {
	if reason == "" {
		reason = "Always disabled"
	}
	return &DisabledFacet{Base: facetapi.NewBase(KindDisabled, p, h), reason: reason}
}

// Reason returns why the member is disabled
func (f *DisabledFacet) Reason() string { return f.reason }

func (f *DisabledFacet) Attributes() map[string]string {
	return map[string]string{"reason": f.reason}
}

// DisableFacet disables a member depending on the state of the target
type DisableFacet struct {
	facetapi.Base
	typ    reflect.Type
	method reflect.Method
}

// NewDisableFacet creates a facet calling a DisableX method
func NewDisableFacet(t reflect.Type, m reflect.Method, h facetapi.Holder) *DisableFacet {
	return &DisableFacet{Base: facetapi.NewBase(KindDisable, facetapi.PrecedenceAnnotation, h), typ: t, method: m}
}

// Disables returns the reason the member is disabled for obj, or "" when usable
func (f *DisableFacet) Disables(obj any) (string, error) {
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

func (f *DisableFacet) Attributes() map[string]string {
	return map[string]string{"method": f.method.Name}
}

// MandatoryFacet records whether a property or parameter requires a value
type MandatoryFacet struct {
	facetapi.Base
	optional bool
}

// NewMandatoryFacet creates a mandatory facet; optional inverts it
func NewMandatoryFacet(optional bool, p facetapi.Precedence, h facetapi.Holder) *MandatoryFacet {
	return &MandatoryFacet{Base: facetapi.NewBase(KindMandatory, p, h), optional: optional}
}

// IsOptional reports whether a value may be omitted
func (f *MandatoryFacet) IsOptional() bool { return f.optional }

// Invalidates returns "Mandatory" when a required value is missing
func (f *MandatoryFacet) Invalidates(v any) string {
	if f.optional {
		return ""
	}
	if isEmpty(v) {
		return "Mandatory"
	}
	return ""
}

func (f *MandatoryFacet) Attributes() map[string]string {
	return map[string]string{"optional": strconv.FormatBool(f.optional)}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	case reflect.String:
		return rv.Len() == 0
	}
	return false
}

// RegexFacet constrains string values to a pattern
type RegexFacet struct {
	facetapi.Base
	re *regexp.Regexp
}

// NewRegexFacet compiles pattern into a regex facet
func NewRegexFacet(pattern string, p facetapi.Precedence, h facetapi.Holder) (*RegexFacet, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexFacet{Base: facetapi.NewBase(KindRegex, p, h), re: re}, nil
}

// Pattern returns the source pattern
func (f *RegexFacet) Pattern() string { return f.re.String() }

// Invalidates returns a reason when s does not match the pattern
func (f *RegexFacet) Invalidates(s string) string {
	if s == "" || f.re.MatchString(s) {
		return ""
	}
	return "Doesn't match pattern"
}

func (f *RegexFacet) Attributes() map[string]string {
	return map[string]string{"pattern": f.re.String()}
}

// MemberOrderFacet positions a member by a dewey-decimal sequence within a group
type MemberOrderFacet struct {
	facetapi.Base
	sequence string
	group    string
}

// NewMemberOrderFacet creates a member order facet
func NewMemberOrderFacet(sequence, group string, p facetapi.Precedence, h facetapi.Holder) *MemberOrderFacet {
	return &MemberOrderFacet{Base: facetapi.NewBase(KindMemberOrder, p, h), sequence: sequence, group: group}
}

// Sequence returns the dewey-decimal sequence, e.g. "1.2"
func (f *MemberOrderFacet) Sequence() string { return f.sequence }

// Group returns the group name
func (f *MemberOrderFacet) Group() string { return f.group }

func (f *MemberOrderFacet) Attributes() map[string]string {
	return map[string]string{"sequence": f.sequence, "group": f.group}
}

// CompareSequence orders dewey-decimal sequences component by component.
// An empty sequence sorts after every non-empty one.
func CompareSequence(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareComponent(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

func compareComponent(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai - bi
	}
	return strings.Compare(a, b)
}

// ChoicesProvider is implemented by facets offering a closed list of values
type ChoicesProvider interface {
	facetapi.Facet
	Choices(obj any) ([]any, error)
}

// ChoicesFromValues offers a fixed list of values
type ChoicesFromValues struct {
	facetapi.Base
	values []any
	source string
}

// NewChoicesFromValues creates a choices facet over fixed values; source describes where they came from
func NewChoicesFromValues(kind facetapi.Kind, values []any, source string, p facetapi.Precedence, h facetapi.Holder) *ChoicesFromValues {
	v := make([]any, len(values))
	copy(v, values)
	return &ChoicesFromValues{Base: facetapi.NewBase(kind, p, h), values: v, source: source}
}

// Choices returns a copy of the values
func (f *ChoicesFromValues) Choices(obj any) ([]any, error) {
	v := make([]any, len(f.values))
	copy(v, f.values)
	return v, nil
}

func (f *ChoicesFromValues) Attributes() map[string]string {
	return map[string]string{"source": f.source, "count": strconv.Itoa(len(f.values))}
}

// ChoicesViaMethod calls a ChoicesX or ChoicesNA method
type ChoicesViaMethod struct {
	facetapi.Base
	typ    reflect.Type
	method reflect.Method
}

// NewChoicesViaMethod creates a choices facet backed by a method
func NewChoicesViaMethod(kind facetapi.Kind, t reflect.Type, m reflect.Method, h facetapi.Holder) *ChoicesViaMethod {
	return &ChoicesViaMethod{Base: facetapi.NewBase(kind, facetapi.PrecedenceAnnotation, h), typ: t, method: m}
}

// Choices calls the method and flattens its result
func (f *ChoicesViaMethod) Choices(obj any) ([]any, error) {
	out, err := call(f.method, f.typ, obj, nil)
	if err != nil {
		return nil, err
	}
	v, err := splitResult(out)
	if err != nil {
		return nil, err
	}
	return toSlice(v), nil
}

func (f *ChoicesViaMethod) Attributes() map[string]string {
	return map[string]string{"method": f.method.Name}
}

// DefaultProvider is implemented by facets supplying a default value
type DefaultProvider interface {
	facetapi.Facet
	Default(obj any) (any, error)
}

// DefaultFromValue supplies a fixed default
type DefaultFromValue struct {
	facetapi.Base
	value any
}

// NewDefaultFromValue creates a default facet with a fixed value
func NewDefaultFromValue(kind facetapi.Kind, value any, p facetapi.Precedence, h facetapi.Holder) *DefaultFromValue {
	return &DefaultFromValue{Base: facetapi.NewBase(kind, p, h), value: value}
}

// Default returns the value
func (f *DefaultFromValue) Default(obj any) (any, error) { return f.value, nil }

func (f *DefaultFromValue) Attributes() map[string]string {
	return map[string]string{"value": fmt.Sprint(f.value)}
}

// DefaultViaMethod calls a DefaultX or DefaultNA method
type DefaultViaMethod struct {
	facetapi.Base
	typ    reflect.Type
	method reflect.Method
}

// NewDefaultViaMethod creates a default facet backed by a method
func NewDefaultViaMethod(kind facetapi.Kind, t reflect.Type, m reflect.Method, h facetapi.Holder) *DefaultViaMethod {
	return &DefaultViaMethod{Base: facetapi.NewBase(kind, facetapi.PrecedenceAnnotation, h), typ: t, method: m}
}

// Default calls the method
func (f *DefaultViaMethod) Default(obj any) (any, error) {
	out, err := call(f.method, f.typ, obj, nil)
	if err != nil {
		return nil, err
	}
	return splitResult(out)
}

func (f *DefaultViaMethod) Attributes() map[string]string {
	return map[string]string{"method": f.method.Name}
}

// AutoCompleteFacet calls an AutoCompleteX or AutoCompleteNA method with a search string
type AutoCompleteFacet struct {
	facetapi.Base
	typ       reflect.Type
	method    reflect.Method
	minLength int
}

// NewAutoCompleteFacet creates an auto-complete facet
func NewAutoCompleteFacet(t reflect.Type, m reflect.Method, minLength int, h facetapi.Holder) *AutoCompleteFacet {
	return &AutoCompleteFacet{
		Base:      facetapi.NewBase(KindAutoComplete, facetapi.PrecedenceAnnotation, h),
		typ:       t,
		method:    m,
		minLength: minLength,
	}
}

// MinLength is the minimum search length before suggestions are offered
func (f *AutoCompleteFacet) MinLength() int { return f.minLength }

// AutoComplete returns the candidates matching search. Searches shorter than
// MinLength yield nothing.
func (f *AutoCompleteFacet) AutoComplete(obj any, search string) ([]any, error) {
	if len(search) < f.minLength {
		return nil, nil
	}
	out, err := call(f.method, f.typ, obj, nil, search)
	if err != nil {
		return nil, err
	}
	v, err := splitResult(out)
	if err != nil {
		return nil, err
	}
	return toSlice(v), nil
}

func (f *AutoCompleteFacet) Attributes() map[string]string {
	return map[string]string{"method": f.method.Name, "minLength": strconv.Itoa(f.minLength)}
}

// ValidateFacet calls a ValidateX, ValidateA or ValidateNA method
type ValidateFacet struct {
	facetapi.Base
	typ    reflect.Type
	method reflect.Method
}

// NewValidateFacet creates a validate facet
func NewValidateFacet(t reflect.Type, m reflect.Method, h facetapi.Holder) *ValidateFacet {
	return &ValidateFacet{Base: facetapi.NewBase(KindValidate, facetapi.PrecedenceAnnotation, h), typ: t, method: m}
}

// Invalidates returns the reason the proposed values are invalid, or "" when valid
func (f *ValidateFacet) Invalidates(obj any, args ...any) (string, error) {
	out, err := call(f.method, f.typ, obj, nil, args...)
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

func (f *ValidateFacet) Attributes() map[string]string {
	return map[string]string{"method": f.method.Name}
}

// InvocationFacet invokes an action method
type InvocationFacet struct {
	facetapi.Base
	typ    reflect.Type
	method reflect.Method
}

// NewInvocationFacet creates an invocation facet
func NewInvocationFacet(t reflect.Type, m reflect.Method, h facetapi.Holder) *InvocationFacet {
	return &InvocationFacet{Base: facetapi.NewBase(KindInvocation, facetapi.PrecedenceDerived, h), typ: t, method: m}
}

// Method returns the action method
func (f *InvocationFacet) Method() reflect.Method { return f.method }

// ReturnType returns the action result type, or nil
func (f *InvocationFacet) ReturnType() reflect.Type { return ReturnType(f.method.Type) }

// ParamTypes returns the action parameter types
func (f *InvocationFacet) ParamTypes() []reflect.Type { return ParamTypes(f.method.Type) }

// Invoke calls the action on obj. A context is passed through when the method accepts one.
func (f *InvocationFacet) Invoke(ctx context.Context, obj any, args ...any) (any, error) {
	out, err := call(f.method, f.typ, obj, ctx, args...)
	if err != nil {
		return nil, err
	}
	return splitResult(out)
}

func (f *InvocationFacet) Attributes() map[string]string {
	attrs := map[string]string{"method": f.method.Name}
	if rt := f.ReturnType(); rt != nil {
		attrs["returns"] = rt.String()
	}
	return attrs
}

// SemanticsFacet describes an action's side effects
type SemanticsFacet struct {
	facetapi.Base
	semantics annotation.Semantics
}

// NewSemanticsFacet creates a semantics facet
func NewSemanticsFacet(s annotation.Semantics, p facetapi.Precedence, h facetapi.Holder) *SemanticsFacet {
	return &SemanticsFacet{Base: facetapi.NewBase(KindSemantics, p, h), semantics: s}
}

// Semantics returns the action semantics
func (f *SemanticsFacet) Semantics() annotation.Semantics { return f.semantics }

func (f *SemanticsFacet) Attributes() map[string]string {
	return map[string]string{"semantics": f.semantics.String()}
}

// AssociatedWithFacet links an action to a collection of its type
type AssociatedWithFacet struct {
	facetapi.Base
	collection string
}

// NewAssociatedWithFacet creates an associatedWith facet
func NewAssociatedWithFacet(collection string, h facetapi.Holder) *AssociatedWithFacet {
	return &AssociatedWithFacet{Base: facetapi.NewBase(KindAssociatedWith, facetapi.PrecedenceAnnotation, h), collection: collection}
}

// Collection returns the associated collection id
func (f *AssociatedWithFacet) Collection() string { return f.collection }

func (f *AssociatedWithFacet) Attributes() map[string]string {
	return map[string]string{"collection": f.collection}
}
