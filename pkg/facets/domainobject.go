package facets

import (
	"path"
	"reflect"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"

	utilstrings "github.com/conduit-lang/metamodel/internal/util/strings"
)

// ObjectTypeFactory assigns the logical type name. A name declared at
// registration wins; otherwise it is derived as "<package>.<Type>".
type ObjectTypeFactory struct {
	factoryBase
}

// NewObjectTypeFactory creates the object type factory
func NewObjectTypeFactory() *ObjectTypeFactory {
	return &ObjectTypeFactory{factoryBase{name: "ObjectType", features: facetapi.Objects}}
}

func (f *ObjectTypeFactory) ProcessClass(ctx *ClassContext) {
	h := ctx.Holder
	if reg := ctx.Registration; reg != nil && reg.DomainObject.ObjectType != "" {
		h.AddFacet(NewObjectTypeFacet(reg.DomainObject.ObjectType, facetapi.PrecedenceAnnotation, h))
		return
	}
	if h.ContainsNonFallback(KindObjectType) {
		return
	}
	h.AddFacet(NewObjectTypeFacet(DerivedObjectType(ctx.Type), facetapi.PrecedenceDerived, h))
}

// DerivedObjectType returns the logical name of a type without an explicit object type
func DerivedObjectType(t reflect.Type) string {
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return path.Base(t.PkgPath()) + "." + t.Name()
}

// DomainObjectFactory translates the registration's DomainObject metadata into facets
type DomainObjectFactory struct {
	factoryBase
}

// NewDomainObjectFactory creates the domain object factory
func NewDomainObjectFactory() *DomainObjectFactory {
	return &DomainObjectFactory{factoryBase{name: "DomainObject", features: facetapi.Objects}}
}

func (f *DomainObjectFactory) ProcessClass(ctx *ClassContext) {
	reg := ctx.Registration
	if reg == nil {
		return
	}
	h := ctx.Holder
	d := reg.DomainObject
	annotated := facetapi.PrecedenceAnnotation

	if d.Nature != annotation.NatureNotSpecified {
		h.AddFacet(NewNatureFacet(d.Nature, annotated, h))
	}

	if d.Editing == annotation.EditingDisabled {
		h.AddFacet(NewImmutableFacet("Disabled", annotated, h))
	}
	if d.Auditing {
		h.AddFacet(NewMarkerFacet(KindAuditable, annotated, h))
	}
	if d.Named != "" {
		h.AddFacet(NewTextFacet(KindNamed, d.Named, annotated, h))
	}
	if d.Plural != "" {
		h.AddFacet(NewTextFacet(KindPlural, d.Plural, annotated, h))
	} else if d.Named != "" {
		h.AddFacet(NewTextFacet(KindPlural, utilstrings.Pluralize(d.Named), facetapi.PrecedenceDerived, h))
	}
	if d.DescribedAs != "" {
		h.AddFacet(NewTextFacet(KindDescribedAs, d.DescribedAs, annotated, h))
	}
	if d.CssClass != "" {
		h.AddFacet(NewTextFacet(KindCssClass, d.CssClass, annotated, h))
	}
	if d.Paged > 0 {
		h.AddFacet(NewIntFacet(KindPaged, d.Paged, annotated, h))
	} else if d.Paged < 0 {
		ctx.Failures.Add(h.Identifier(), "page size must not be negative, got %d", d.Paged)
	}
	if len(d.Bounded) > 0 {
		values := make([]any, 0, len(d.Bounded))
		for _, v := range d.Bounded {
			if v == nil || reflect.TypeOf(v) != ctx.Type && reflect.TypeOf(v) != reflect.PointerTo(ctx.Type) {
				ctx.Failures.Add(h.Identifier(), "bounded value %v is not a %s", v, ctx.Type)
				continue
			}
			values = append(values, v)
		}
		h.AddFacet(NewChoicesFromValues(KindChoices, values, "bounded", annotated, h))
	}
	if d.Default != nil {
		if reflect.TypeOf(d.Default) != ctx.Type && reflect.TypeOf(d.Default) != reflect.PointerTo(ctx.Type) {
			ctx.Failures.Add(h.Identifier(), "default value %v is not a %s", d.Default, ctx.Type)
		} else {
			h.AddFacet(NewDefaultFromValue(KindDefaulted, d.Default, annotated, h))
		}
	}
}
