// Package facets contains the concrete facet types and the facet factories that
// attach them while a type is being introspected.
package facets

import "github.com/conduit-lang/metamodel/pkg/facetapi"

// Type-level kinds
const (
	KindObjectType     facetapi.Kind = "objectType"
	KindNature         facetapi.Kind = "nature"
	KindTitle          facetapi.Kind = "title"
	KindIconName       facetapi.Kind = "iconName"
	KindCssClass       facetapi.Kind = "cssClass"
	KindPlural         facetapi.Kind = "plural"
	KindImmutable      facetapi.Kind = "immutable"
	KindAuditable      facetapi.Kind = "auditable"
	KindPaged          facetapi.Kind = "paged"
	KindChoices        facetapi.Kind = "choices"
	KindDefaulted      facetapi.Kind = "defaulted"
	KindValue          facetapi.Kind = "value"
	KindDisabledObject facetapi.Kind = "disabledObject"
	KindValidateObject facetapi.Kind = "validateObject"
	KindIdentity       facetapi.Kind = "identity"
)

// Kinds shared by types and members
const (
	KindNamed       facetapi.Kind = "named"
	KindDescribedAs facetapi.Kind = "describedAs"
)

// Member-level kinds
const (
	KindAccessor        facetapi.Kind = "accessor"
	KindTypeOf          facetapi.Kind = "typeOf"
	KindHidden          facetapi.Kind = "hidden"
	KindHide            facetapi.Kind = "hide"
	KindDisabled        facetapi.Kind = "disabled"
	KindDisable         facetapi.Kind = "disable"
	KindMandatory       facetapi.Kind = "mandatory"
	KindMaxLength       facetapi.Kind = "maxLength"
	KindRegex           facetapi.Kind = "regex"
	KindMultiLine       facetapi.Kind = "multiLine"
	KindMemberOrder     facetapi.Kind = "memberOrder"
	KindKey             facetapi.Kind = "key"
	KindPropertyChoices facetapi.Kind = "propertyChoices"
	KindPropertyDefault facetapi.Kind = "propertyDefault"
	KindParamChoices    facetapi.Kind = "paramChoices"
	KindParamDefault    facetapi.Kind = "paramDefault"
	KindAutoComplete    facetapi.Kind = "autoComplete"
	KindValidate        facetapi.Kind = "validate"
	KindInvocation      facetapi.Kind = "invocation"
	KindSemantics       facetapi.Kind = "semantics"
	KindAssociatedWith  facetapi.Kind = "associatedWith"
)

// Lifecycle events with callback methods
var LifecycleEvents = []string{
	"Created", "Loaded",
	"Persisting", "Persisted",
	"Updating", "Updated",
	"Removing", "Removed",
}

// LifecycleKind returns the facet kind of a lifecycle callback
func LifecycleKind(event string) facetapi.Kind {
	return facetapi.Kind("lifecycle:" + event)
}

// ChoicesKind returns the choices kind for a feature type
func ChoicesKind(ft facetapi.FeatureType) facetapi.Kind {
	if ft == facetapi.Parameter {
		return KindParamChoices
	}
	return KindPropertyChoices
}

// DefaultKind returns the default kind for a feature type
func DefaultKind(ft facetapi.FeatureType) facetapi.Kind {
	if ft == facetapi.Parameter {
		return KindParamDefault
	}
	return KindPropertyDefault
}
