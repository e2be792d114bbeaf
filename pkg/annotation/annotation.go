// Package annotation holds the declarative metadata domain packages attach to their
// types when registering them. It plays the role annotations play in languages that
// have them: plain values that the facet factories read.
package annotation

// Nature describes what kind of domain type a registration is
type Nature int

const (
	NatureNotSpecified Nature = iota
	NatureEntity
	NatureViewModel
	NatureService
	NatureValue
)

// String returns the string representation of the nature
func (n Nature) String() string {
	switch n {
	case NatureEntity:
		return "entity"
	case NatureViewModel:
		return "view_model"
	case NatureService:
		return "service"
	case NatureValue:
		return "value"
	default:
		return "not_specified"
	}
}

// Editing controls whether instances of a type may be modified
type Editing int

const (
	EditingAsConfigured Editing = iota
	EditingEnabled
	EditingDisabled
)

// Semantics describes the side effects of invoking an action
type Semantics int

const (
	NonIdempotent Semantics = iota
	Idempotent
	Safe
)

// String returns the string representation of the semantics
func (s Semantics) String() string {
	switch s {
	case Idempotent:
		return "idempotent"
	case Safe:
		return "safe"
	default:
		return "non_idempotent"
	}
}

// ParseSemantics converts a string to Semantics
func ParseSemantics(s string) (Semantics, bool) {
	switch s {
	case "non_idempotent", "":
		return NonIdempotent, true
	case "idempotent":
		return Idempotent, true
	case "safe":
		return Safe, true
	default:
		return NonIdempotent, false
	}
}

// Where names the contexts a member is hidden in
type Where int

const (
	Nowhere Where = iota
	Everywhere
	Tables
	Forms
)

// String returns the string representation of the where
func (w Where) String() string {
	switch w {
	case Everywhere:
		return "everywhere"
	case Tables:
		return "tables"
	case Forms:
		return "forms"
	default:
		return "nowhere"
	}
}

// ParseWhere converts a string to Where. An empty string means everywhere.
func ParseWhere(s string) (Where, bool) {
	switch s {
	case "", "everywhere":
		return Everywhere, true
	case "tables":
		return Tables, true
	case "forms":
		return Forms, true
	case "nowhere":
		return Nowhere, true
	default:
		return Nowhere, false
	}
}

// DomainObject is the type-level metadata of a registered type
type DomainObject struct {
	// ObjectType is the stable logical name of the type, e.g. "crm.Customer".
	// Derived from the Go type name when empty.
	ObjectType  string
	Nature      Nature
	Editing     Editing
	Auditing    bool
	Named       string
	Plural      string
	DescribedAs string
	CssClass    string
	// Paged is the page size for standalone lists of the type; 0 uses the configured default.
	Paged int
	// Bounded lists every instance of a bounded type. Properties and parameters of
	// a bounded type get these as choices.
	Bounded []any
	// Default is the default value for properties and parameters of the type.
	Default any
}

// Action is the metadata of a single action
type Action struct {
	Semantics   Semantics
	Hidden      Where
	Named       string
	DescribedAs string
	// AssociateWith names a collection of the same type the action operates on
	AssociateWith string
	Sequence      string
	Params        []Parameter
}

// Parameter is the metadata of a single action parameter
type Parameter struct {
	Named       string
	DescribedAs string
	Optional    bool
	MaxLength   int
	Regex       string
	MultiLine   int
}
