package facets

import (
	"reflect"
	"strconv"

	"github.com/conduit-lang/metamodel/pkg/facetapi"

	utilstrings "github.com/conduit-lang/metamodel/internal/util/strings"
)

// TitleFactory installs the title facet. In order of preference the title comes
// from a Title() method, from fields tagged "title" or from a String() method.
type TitleFactory struct {
	factoryBase
}

// NewTitleFactory creates the title factory
func NewTitleFactory() *TitleFactory {
	return &TitleFactory{factoryBase{name: "Title", features: facetapi.Objects}}
}

func (f *TitleFactory) ProcessClass(ctx *ClassContext) {
	h := ctx.Holder
	if m, ok := ctx.Methods.Find("Title"); ok {
		ctx.Methods.Remove(m.Name)
		if checkMethod(m.Type, nil, returns(stringType)) {
			h.AddFacet(NewTitleViaMethod(ctx.Type, m, facetapi.PrecedenceAnnotation, h))
		} else {
			reportSignature(ctx.Failures, h.Identifier(), m, "func() string")
		}
	}

	if !h.ContainsNonFallback(KindTitle) && ctx.Type.Kind() == reflect.Struct {
		if components := titleComponents(ctx); len(components) > 0 {
			h.AddFacet(NewTitleViaFields(components, h))
		}
	}

	if m, ok := ctx.Methods.Find("String"); ok {
		ctx.Methods.Remove(m.Name)
		if checkMethod(m.Type, nil, returns(stringType)) {
			h.AddFacet(NewTitleViaMethod(ctx.Type, m, facetapi.PrecedenceDerived, h))
		}
	}
}

func titleComponents(ctx *ClassContext) []TitleComponent {
	var result []TitleComponent
	for i, field := range reflect.VisibleFields(ctx.Type) {
		if !field.IsExported() || field.Anonymous {
			continue
		}
		tag, err := ParseTag(field)
		if err != nil {
			continue
		}
		e, ok := tag.Lookup("title")
		if !ok {
			continue
		}
		seq := float64(i)
		if e.HasValue {
			v, err := strconv.ParseFloat(e.Value, 64)
			if err != nil {
				ctx.Failures.Add(facetapi.MemberIdentifier(ctx.Holder.Identifier().TypeName, field.Name),
					"invalid title sequence %q", e.Value)
				continue
			}
			seq = v
		}
		result = append(result, TitleComponent{Field: field, Sequence: seq})
	}
	return result
}

// IconAndCssFactory installs icon and css class facets computed by IconName() and CssClass() methods
type IconAndCssFactory struct {
	factoryBase
}

// NewIconAndCssFactory creates the icon and css factory
func NewIconAndCssFactory() *IconAndCssFactory {
	return &IconAndCssFactory{factoryBase{name: "IconAndCss", features: facetapi.Objects}}
}

func (f *IconAndCssFactory) ProcessClass(ctx *ClassContext) {
	h := ctx.Holder
	for _, kind := range []facetapi.Kind{KindIconName, KindCssClass} {
		name := utilstrings.Capitalize(string(kind))
		m, ok := ctx.Methods.Find(name)
		if !ok {
			continue
		}
		ctx.Methods.Remove(name)
		if !checkMethod(m.Type, nil, returns(stringType)) {
			reportSignature(ctx.Failures, h.Identifier(), m, "func() string")
			continue
		}
		h.AddFacet(NewMethodTextFacet(kind, ctx.Type, m, h))
	}
}

// LifecycleFactory installs callbacks for the lifecycle events
type LifecycleFactory struct {
	factoryBase
}

// NewLifecycleFactory creates the lifecycle factory
func NewLifecycleFactory() *LifecycleFactory {
	return &LifecycleFactory{factoryBase{name: "Lifecycle", features: facetapi.Objects}}
}

func (f *LifecycleFactory) ProcessClass(ctx *ClassContext) {
	h := ctx.Holder
	for _, event := range LifecycleEvents {
		m, ok := ctx.Methods.Find(event)
		if !ok {
			continue
		}
		ctx.Methods.Remove(event)
		if !checkMethod(m.Type, nil, nil) {
			reportSignature(ctx.Failures, h.Identifier(), m, "func() or func() error")
			continue
		}
		h.AddFacet(NewLifecycleFacet(event, ctx.Type, m, h))
	}
}

// ObjectValidateAndDisableFactory installs object-level Disabled() and Validate() checks
type ObjectValidateAndDisableFactory struct {
	factoryBase
}

// NewObjectValidateAndDisableFactory creates the object validate and disable factory
func NewObjectValidateAndDisableFactory() *ObjectValidateAndDisableFactory {
	return &ObjectValidateAndDisableFactory{factoryBase{name: "ObjectValidateAndDisable", features: facetapi.Objects}}
}

func (f *ObjectValidateAndDisableFactory) ProcessClass(ctx *ClassContext) {
	h := ctx.Holder
	for _, name := range []string{"Disabled", "Validate"} {
		m, ok := ctx.Methods.Find(name)
		if !ok {
			continue
		}
		ctx.Methods.Remove(name)
		if !checkMethod(m.Type, nil, returns(stringType)) {
			reportSignature(ctx.Failures, h.Identifier(), m, "func() string")
			continue
		}
		kind := KindDisabledObject
		if name == "Validate" {
			kind = KindValidateObject
		}
		h.AddFacet(NewObjectMethodFacet(kind, ctx.Type, m, h))
	}
}
