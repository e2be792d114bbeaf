package facets

import (
	"reflect"
	"strconv"

	"github.com/conduit-lang/metamodel/pkg/facetapi"
)

// Supporting method prefixes
const (
	PrefixHide         = "Hide"
	PrefixDisable      = "Disable"
	PrefixValidate     = "Validate"
	PrefixChoices      = "Choices"
	PrefixDefault      = "Default"
	PrefixAutoComplete = "AutoComplete"
)

// Prefixes of supporting methods that are no longer supported.
// They are consumed like supporting methods and reported by the validator.
const (
	PrefixClear  = "Clear"
	PrefixModify = "Modify"
)

// ParameterMethodName returns the name of a per-parameter supporting method, e.g. Choices0Rename
func ParameterMethodName(prefix string, index int, action string) string {
	return prefix + strconv.Itoa(index) + action
}

// findSupporting looks up and consumes a supporting method
func findSupporting(methods *MethodRemover, name string) (reflect.Method, bool) {
	m, ok := methods.Find(name)
	if ok {
		methods.Remove(name)
	}
	return m, ok
}

// HideMethodFactory installs HideX() bool methods
type HideMethodFactory struct {
	factoryBase
}

// NewHideMethodFactory creates the hide method factory
func NewHideMethodFactory() *HideMethodFactory {
	return &HideMethodFactory{factoryBase{name: "HideMethod", features: facetapi.Members}}
}

func (f *HideMethodFactory) Prefixes() []string { return []string{PrefixHide} }

func (f *HideMethodFactory) ProcessMember(ctx *MemberContext) {
	m, ok := findSupporting(ctx.Methods, PrefixHide+ctx.ID)
	if !ok {
		return
	}
	if !checkMethod(m.Type, nil, returns(boolType)) {
		reportSignature(ctx.Failures, ctx.Holder.Identifier(), m, "func() bool")
		return
	}
	ctx.Holder.AddFacet(NewHideFacet(ctx.Type, m, ctx.Holder))
}

// DisableMethodFactory installs DisableX() string methods
type DisableMethodFactory struct {
	factoryBase
}

// NewDisableMethodFactory creates the disable method factory
func NewDisableMethodFactory() *DisableMethodFactory {
	return &DisableMethodFactory{factoryBase{name: "DisableMethod", features: facetapi.Members}}
}

func (f *DisableMethodFactory) Prefixes() []string { return []string{PrefixDisable} }

func (f *DisableMethodFactory) ProcessMember(ctx *MemberContext) {
	m, ok := findSupporting(ctx.Methods, PrefixDisable+ctx.ID)
	if !ok {
		return
	}
	if !checkMethod(m.Type, nil, returns(stringType)) {
		reportSignature(ctx.Failures, ctx.Holder.Identifier(), m, "func() string")
		return
	}
	ctx.Holder.AddFacet(NewDisableFacet(ctx.Type, m, ctx.Holder))
}

// ValidateMethodFactory installs ValidateX(v) string for properties, ValidateA(args...) string
// for actions and ValidateNA(v) string for action parameters
type ValidateMethodFactory struct {
	factoryBase
}

// NewValidateMethodFactory creates the validate method factory
func NewValidateMethodFactory() *ValidateMethodFactory {
	return &ValidateMethodFactory{factoryBase{
		name:     "ValidateMethod",
		features: facetapi.Properties | facetapi.Actions | facetapi.Parameters,
	}}
}

func (f *ValidateMethodFactory) Prefixes() []string { return []string{PrefixValidate} }

func (f *ValidateMethodFactory) ProcessMember(ctx *MemberContext) {
	m, ok := findSupporting(ctx.Methods, PrefixValidate+ctx.ID)
	if !ok {
		return
	}
	var params []reflect.Type
	if ctx.FeatureType == facetapi.Property {
		params = []reflect.Type{ctx.Field.Type}
	} else {
		params = ctx.ParamTypes()
	}
	if !checkMethod(m.Type, params, returns(stringType)) {
		reportSignature(ctx.Failures, ctx.Holder.Identifier(), m, describe(params, "string"))
		return
	}
	ctx.Holder.AddFacet(NewValidateFacet(ctx.Type, m, ctx.Holder))
}

func (f *ValidateMethodFactory) ProcessParameter(ctx *ParameterContext) {
	m, ok := findSupporting(ctx.Methods, ParameterMethodName(PrefixValidate, ctx.Index, ctx.Action.Name))
	if !ok {
		return
	}
	params := []reflect.Type{ctx.ParamType}
	if !checkMethod(m.Type, params, returns(stringType)) {
		reportSignature(ctx.Failures, ctx.Holder.Identifier(), m, describe(params, "string"))
		return
	}
	ctx.Holder.AddFacet(NewValidateFacet(ctx.Type, m, ctx.Holder))
}

// ChoicesMethodFactory installs ChoicesX() []T and ChoicesNA() []T methods
type ChoicesMethodFactory struct {
	factoryBase
}

// NewChoicesMethodFactory creates the choices method factory
func NewChoicesMethodFactory() *ChoicesMethodFactory {
	return &ChoicesMethodFactory{factoryBase{name: "ChoicesMethod", features: facetapi.Properties | facetapi.Parameters}}
}

func (f *ChoicesMethodFactory) Prefixes() []string { return []string{PrefixChoices} }

func (f *ChoicesMethodFactory) ProcessMember(ctx *MemberContext) {
	m, ok := findSupporting(ctx.Methods, PrefixChoices+ctx.ID)
	if !ok {
		return
	}
	t := ctx.Field.Type
	if !checkMethod(m.Type, nil, returnsSliceOf(t)) {
		reportSignature(ctx.Failures, ctx.Holder.Identifier(), m, describe(nil, "[]"+t.String()))
		return
	}
	ctx.Holder.AddFacet(NewChoicesViaMethod(KindPropertyChoices, ctx.Type, m, ctx.Holder))
}

func (f *ChoicesMethodFactory) ProcessParameter(ctx *ParameterContext) {
	m, ok := findSupporting(ctx.Methods, ParameterMethodName(PrefixChoices, ctx.Index, ctx.Action.Name))
	if !ok {
		return
	}
	t := ctx.ParamType
	if !checkMethod(m.Type, nil, returnsSliceOf(t)) {
		reportSignature(ctx.Failures, ctx.Holder.Identifier(), m, describe(nil, "[]"+t.String()))
		return
	}
	ctx.Holder.AddFacet(NewChoicesViaMethod(KindParamChoices, ctx.Type, m, ctx.Holder))
}

// DefaultMethodFactory installs DefaultX() T and DefaultNA() T methods
type DefaultMethodFactory struct {
	factoryBase
}

// NewDefaultMethodFactory creates the default method factory
func NewDefaultMethodFactory() *DefaultMethodFactory {
	return &DefaultMethodFactory{factoryBase{name: "DefaultMethod", features: facetapi.Properties | facetapi.Parameters}}
}

func (f *DefaultMethodFactory) Prefixes() []string { return []string{PrefixDefault} }

func (f *DefaultMethodFactory) ProcessMember(ctx *MemberContext) {
	m, ok := findSupporting(ctx.Methods, PrefixDefault+ctx.ID)
	if !ok {
		return
	}
	t := ctx.Field.Type
	if !checkMethod(m.Type, nil, returnsAssignableTo(t)) {
		reportSignature(ctx.Failures, ctx.Holder.Identifier(), m, describe(nil, t.String()))
		return
	}
	ctx.Holder.AddFacet(NewDefaultViaMethod(KindPropertyDefault, ctx.Type, m, ctx.Holder))
}

func (f *DefaultMethodFactory) ProcessParameter(ctx *ParameterContext) {
	m, ok := findSupporting(ctx.Methods, ParameterMethodName(PrefixDefault, ctx.Index, ctx.Action.Name))
	if !ok {
		return
	}
	t := ctx.ParamType
	if !checkMethod(m.Type, nil, returnsAssignableTo(t)) {
		reportSignature(ctx.Failures, ctx.Holder.Identifier(), m, describe(nil, t.String()))
		return
	}
	ctx.Holder.AddFacet(NewDefaultViaMethod(KindParamDefault, ctx.Type, m, ctx.Holder))
}

// AutoCompleteMethodFactory installs AutoCompleteX(search string) []T and
// AutoCompleteNA(search string) []T methods
type AutoCompleteMethodFactory struct {
	factoryBase
	minLength int
}

// NewAutoCompleteMethodFactory creates the auto-complete method factory
func NewAutoCompleteMethodFactory(cfg Config) *AutoCompleteMethodFactory {
	return &AutoCompleteMethodFactory{
		factoryBase: factoryBase{name: "AutoCompleteMethod", features: facetapi.Properties | facetapi.Parameters},
		minLength:   cfg.AutoCompleteMinLength,
	}
}

func (f *AutoCompleteMethodFactory) Prefixes() []string { return []string{PrefixAutoComplete} }

func (f *AutoCompleteMethodFactory) ProcessMember(ctx *MemberContext) {
	f.process(ctx.Methods, PrefixAutoComplete+ctx.ID, ctx.Type, ctx.Field.Type, ctx.Holder, ctx.Failures)
}

func (f *AutoCompleteMethodFactory) ProcessParameter(ctx *ParameterContext) {
	name := ParameterMethodName(PrefixAutoComplete, ctx.Index, ctx.Action.Name)
	f.process(ctx.Methods, name, ctx.Type, ctx.ParamType, ctx.Holder, ctx.Failures)
}

func (f *AutoCompleteMethodFactory) process(methods *MethodRemover, name string, owner, t reflect.Type, h facetapi.Holder, failures Reporter) {
	m, ok := findSupporting(methods, name)
	if !ok {
		return
	}
	params := []reflect.Type{stringType}
	if !checkMethod(m.Type, params, returnsSliceOf(t)) {
		reportSignature(failures, h.Identifier(), m, describe(params, "[]"+t.String()))
		return
	}
	h.AddFacet(NewAutoCompleteFacet(owner, m, f.minLength, h))
}

func describe(params []reflect.Type, result string) string {
	s := "func("
	for i, p := range params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s + ") " + result
}
