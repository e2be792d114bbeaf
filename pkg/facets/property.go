package facets

import (
	"reflect"
	"strconv"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
)

// AccessorFactory installs field accessors for properties and collections,
// plus the element type of collections
type AccessorFactory struct {
	factoryBase
}

// NewAccessorFactory creates the accessor factory
func NewAccessorFactory() *AccessorFactory {
	return &AccessorFactory{factoryBase{name: "Accessor", features: facetapi.Associations}}
}

func (f *AccessorFactory) ProcessMember(ctx *MemberContext) {
	if ctx.Field == nil {
		return
	}
	h := ctx.Holder
	h.AddFacet(NewAccessorFacet(*ctx.Field, h))
	if ctx.FeatureType == facetapi.Collection {
		if elem := ElementType(ctx.Field.Type); elem != nil {
			h.AddFacet(NewTypeOfFacet(elem, h))
		}
	}
}

// Tag keys understood on property and collection fields
var propertyTagKeys = map[string]bool{
	"named": true, "describedAs": true, "cssClass": true,
	"hidden": true, "disabled": true,
	"optional": true, "mandatory": true,
	"maxLength": true, "regex": true, "multiLine": true,
	"sequence": true, "group": true,
	"key": true, "title": true,
}

// Keys that only make sense on single-valued properties
var scalarTagKeys = map[string]bool{
	"optional": true, "mandatory": true,
	"maxLength": true, "regex": true, "multiLine": true,
	"key": true, "title": true,
}

// PropertyAnnotationFactory reads the meta tag of property and collection fields
type PropertyAnnotationFactory struct {
	factoryBase
}

// NewPropertyAnnotationFactory creates the property annotation factory
func NewPropertyAnnotationFactory() *PropertyAnnotationFactory {
	return &PropertyAnnotationFactory{factoryBase{name: "PropertyAnnotation", features: facetapi.Associations}}
}

func (f *PropertyAnnotationFactory) ProcessMember(ctx *MemberContext) {
	if ctx.Field == nil {
		return
	}
	h := ctx.Holder
	id := h.Identifier()
	tag, err := ParseTag(*ctx.Field)
	if err != nil {
		ctx.Failures.Add(id, "%v", err)
		return
	}

	annotated := facetapi.PrecedenceAnnotation
	for _, e := range tag.Entries() {
		if !propertyTagKeys[e.Key] {
			ctx.Failures.Add(id, "unknown meta tag key %q", e.Key)
			continue
		}
		if ctx.FeatureType == facetapi.Collection && scalarTagKeys[e.Key] {
			ctx.Failures.Add(id, "meta tag key %q does not apply to collections", e.Key)
			continue
		}

		switch e.Key {
		case "named", "describedAs", "cssClass":
			if e.Value == "" {
				ctx.Failures.Add(id, "meta tag key %q requires a value", e.Key)
				continue
			}
			h.AddFacet(NewTextFacet(facetapi.Kind(e.Key), e.Value, annotated, h))
		case "hidden":
			where, ok := annotation.ParseWhere(e.Value)
			if !ok {
				ctx.Failures.Add(id, "invalid hidden value %q", e.Value)
				continue
			}
			h.AddFacet(NewHiddenFacet(where, annotated, h))
		case "disabled":
			h.AddFacet(NewDisabledFacet(e.Value, annotated, h))
		case "optional", "mandatory":
			if tag.Has("optional") && tag.Has("mandatory") {
				if e.Key == "mandatory" {
					ctx.Failures.Add(id, "property cannot be both optional and mandatory")
				}
				continue
			}
			h.AddFacet(NewMandatoryFacet(e.Key == "optional", annotated, h))
		case "maxLength", "multiLine":
			n, err := strconv.Atoi(e.Value)
			if err != nil || n <= 0 {
				ctx.Failures.Add(id, "%s must be a positive integer, got %q", e.Key, e.Value)
				continue
			}
			h.AddFacet(NewIntFacet(facetapi.Kind(e.Key), n, annotated, h))
		case "regex":
			rf, err := NewRegexFacet(e.Value, annotated, h)
			if err != nil {
				ctx.Failures.Add(id, "invalid regex %q: %v", e.Value, err)
				continue
			}
			h.AddFacet(rf)
		case "sequence":
			h.AddFacet(NewMemberOrderFacet(e.Value, tagValue(tag, "group"), annotated, h))
		case "group":
			if !tag.Has("sequence") {
				h.AddFacet(NewMemberOrderFacet("", e.Value, annotated, h))
			}
		case "key":
			h.AddFacet(NewMarkerFacet(KindKey, annotated, h))
		}
	}
}

func tagValue(t Tag, key string) string {
	e, _ := t.Lookup(key)
	return e.Value
}

// MandatoryFromTypeFactory makes pointer-typed properties and parameters optional
type MandatoryFromTypeFactory struct {
	factoryBase
}

// NewMandatoryFromTypeFactory creates the mandatory-from-type factory
func NewMandatoryFromTypeFactory() *MandatoryFromTypeFactory {
	return &MandatoryFromTypeFactory{factoryBase{name: "MandatoryFromType", features: facetapi.Properties | facetapi.Parameters}}
}

func (f *MandatoryFromTypeFactory) ProcessMember(ctx *MemberContext) {
	if ctx.Field != nil && ctx.Field.Type.Kind() == reflect.Pointer {
		ctx.Holder.AddFacet(NewMandatoryFacet(true, facetapi.PrecedenceDerived, ctx.Holder))
	}
}

func (f *MandatoryFromTypeFactory) ProcessParameter(ctx *ParameterContext) {
	if ctx.ParamType.Kind() == reflect.Pointer {
		ctx.Holder.AddFacet(NewMandatoryFacet(true, facetapi.PrecedenceDerived, ctx.Holder))
	}
}
