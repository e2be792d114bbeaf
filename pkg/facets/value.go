package facets

import (
	"encoding"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
)

var (
	timeType          = reflect.TypeOf(time.Time{})
	durationType      = reflect.TypeOf(time.Duration(0))
	uuidType          = reflect.TypeOf(uuid.UUID{})
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// IsValueType reports whether t is rendered and stored as a single value rather
// than introspected as a domain object: scalars, time, UUIDs and types that
// marshal themselves to text
func IsValueType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t {
	case timeType, durationType, uuidType:
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	}
	return reflect.PointerTo(t).Implements(textMarshalerType)
}

// TypicalLength returns the typical rendered length of values of t
func TypicalLength(t reflect.Type) int {
	switch t {
	case uuidType:
		return 36
	case timeType:
		return 25
	case durationType:
		return 10
	}
	switch t.Kind() {
	case reflect.Bool:
		return 5
	case reflect.Int8, reflect.Uint8:
		return 3
	case reflect.Int16, reflect.Uint16:
		return 5
	case reflect.Int32, reflect.Uint32:
		return 10
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64, reflect.Float64:
		return 20
	case reflect.Float32:
		return 12
	case reflect.Complex64, reflect.Complex128:
		return 30
	case reflect.String:
		return 25
	}
	return 0
}

// ValueFactory marks value types. Values are immutable unless registered as editable.
type ValueFactory struct {
	factoryBase
}

// NewValueFactory creates the value factory
func NewValueFactory() *ValueFactory {
	return &ValueFactory{factoryBase{name: "Value", features: facetapi.Objects}}
}

func (f *ValueFactory) ProcessClass(ctx *ClassContext) {
	h := ctx.Holder
	reg := ctx.Registration
	declared := reg != nil && reg.DomainObject.Nature == annotation.NatureValue
	// a declared entity, view model or service stays a domain object even when it marshals to text
	derived := (reg == nil || reg.DomainObject.Nature == annotation.NatureNotSpecified) && IsValueType(ctx.Type)

	if !declared && !derived {
		return
	}
	p := facetapi.PrecedenceDerived
	if declared {
		p = facetapi.PrecedenceAnnotation
	}
	h.AddFacet(NewValueFacet(TypicalLength(ctx.Type), p, h))
	if reg == nil || reg.DomainObject.Editing != annotation.EditingEnabled {
		h.AddFacet(NewImmutableFacet("Value types are immutable", facetapi.PrecedenceDerived, h))
	}
	if !h.ContainsFacet(KindNature) {
		h.AddFacet(NewNatureFacet(annotation.NatureValue, facetapi.PrecedenceDerived, h))
	}
}
