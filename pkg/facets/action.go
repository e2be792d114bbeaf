package facets

import (
	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
)

// ActionInvocationFactory installs the invocation facet of every action
type ActionInvocationFactory struct {
	factoryBase
}

// NewActionInvocationFactory creates the action invocation factory
func NewActionInvocationFactory() *ActionInvocationFactory {
	return &ActionInvocationFactory{factoryBase{name: "ActionInvocation", features: facetapi.Actions}}
}

func (f *ActionInvocationFactory) ProcessMember(ctx *MemberContext) {
	if ctx.Method == nil {
		return
	}
	h := ctx.Holder
	inv := NewInvocationFacet(ctx.Type, *ctx.Method, h)
	h.AddFacet(inv)
	if rt := inv.ReturnType(); IsCollectionType(rt) {
		h.AddFacet(NewTypeOfFacet(ElementType(rt), h))
	}
}

// ActionAnnotationFactory translates the annotation.Action registered for an action into facets
type ActionAnnotationFactory struct {
	factoryBase
}

// NewActionAnnotationFactory creates the action annotation factory
func NewActionAnnotationFactory() *ActionAnnotationFactory {
	return &ActionAnnotationFactory{factoryBase{name: "ActionAnnotation", features: facetapi.Actions}}
}

func (f *ActionAnnotationFactory) ProcessMember(ctx *MemberContext) {
	a, ok := ctx.Registration.Action(ctx.ID)
	if !ok {
		return
	}
	h := ctx.Holder
	annotated := facetapi.PrecedenceAnnotation

	h.AddFacet(NewSemanticsFacet(a.Semantics, annotated, h))
	if a.Hidden != annotation.Nowhere {
		h.AddFacet(NewHiddenFacet(a.Hidden, annotated, h))
	}
	if a.Named != "" {
		h.AddFacet(NewTextFacet(KindNamed, a.Named, annotated, h))
	}
	if a.DescribedAs != "" {
		h.AddFacet(NewTextFacet(KindDescribedAs, a.DescribedAs, annotated, h))
	}
	if a.AssociateWith != "" {
		h.AddFacet(NewAssociatedWithFacet(a.AssociateWith, h))
	}
	if a.Sequence != "" || a.AssociateWith != "" {
		h.AddFacet(NewMemberOrderFacet(a.Sequence, a.AssociateWith, annotated, h))
	}
	if n := len(ctx.ParamTypes()); len(a.Params) > n {
		ctx.Failures.Add(h.Identifier(), "%d parameters declared but the action takes %d", len(a.Params), n)
	}
}

// ParameterAnnotationFactory translates annotation.Parameter metadata into facets
type ParameterAnnotationFactory struct {
	factoryBase
}

// NewParameterAnnotationFactory creates the parameter annotation factory
func NewParameterAnnotationFactory() *ParameterAnnotationFactory {
	return &ParameterAnnotationFactory{factoryBase{name: "ParameterAnnotation", features: facetapi.Parameters}}
}

func (f *ParameterAnnotationFactory) ProcessParameter(ctx *ParameterContext) {
	a, ok := ctx.Registration.Action(ctx.ActionID)
	if !ok || ctx.Index >= len(a.Params) {
		return
	}
	p := a.Params[ctx.Index]
	h := ctx.Holder
	annotated := facetapi.PrecedenceAnnotation

	if p.Named != "" {
		h.AddFacet(NewTextFacet(KindNamed, p.Named, annotated, h))
	}
	if p.DescribedAs != "" {
		h.AddFacet(NewTextFacet(KindDescribedAs, p.DescribedAs, annotated, h))
	}
	if p.Optional {
		h.AddFacet(NewMandatoryFacet(true, annotated, h))
	}
	if p.MaxLength < 0 || p.MultiLine < 0 {
		ctx.Failures.Add(h.Identifier(), "maxLength and multiLine must not be negative")
	}
	if p.MaxLength > 0 {
		h.AddFacet(NewIntFacet(KindMaxLength, p.MaxLength, annotated, h))
	}
	if p.MultiLine > 0 {
		h.AddFacet(NewIntFacet(KindMultiLine, p.MultiLine, annotated, h))
	}
	if p.Regex != "" {
		rf, err := NewRegexFacet(p.Regex, annotated, h)
		if err != nil {
			ctx.Failures.Add(h.Identifier(), "invalid regex %q: %v", p.Regex, err)
		} else {
			h.AddFacet(rf)
		}
	}
}
