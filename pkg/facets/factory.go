package facets

import (
	"reflect"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/scan"
)

// Factory inspects program elements and attaches facets to their holders.
// A factory implements one or more of ClassProcessor, MemberProcessor and
// ParameterProcessor; FeatureTypes declares which feature types it is invoked for.
type Factory interface {
	Name() string
	FeatureTypes() facetapi.FeatureSet
}

// ClassProcessor processes a type
type ClassProcessor interface {
	ProcessClass(ctx *ClassContext)
}

// MemberProcessor processes a property, collection or action
type MemberProcessor interface {
	ProcessMember(ctx *MemberContext)
}

// ParameterProcessor processes an action parameter
type ParameterProcessor interface {
	ProcessParameter(ctx *ParameterContext)
}

// PrefixedFactory consumes supporting methods recognized by name prefix.
// Methods carrying one of these prefixes never become actions.
type PrefixedFactory interface {
	Prefixes() []string
}

// Reporter collects metadata problems found while processing.
// They are reported by the validator together with all other failures.
type Reporter interface {
	Add(id facetapi.Identifier, format string, args ...any)
}

// ClassContext is passed to ClassProcessor implementations
type ClassContext struct {
	Type         reflect.Type // Introspected type, never a pointer
	Holder       facetapi.Holder
	Registration *scan.Registration // Nil for types only reached by reference
	Methods      *MethodRemover
	Failures     Reporter
}

// MemberContext is passed to MemberProcessor implementations
type MemberContext struct {
	Type         reflect.Type
	FeatureType  facetapi.FeatureType
	ID           string
	Field        *reflect.StructField // Properties and collections
	Method       *reflect.Method      // Actions
	Holder       facetapi.Holder
	Registration *scan.Registration
	Methods      *MethodRemover
	Failures     Reporter
}

// ValueType returns the field type of a property or collection and the
// return type of an action (nil when the action returns nothing)
func (c *MemberContext) ValueType() reflect.Type {
	if c.Field != nil {
		return c.Field.Type
	}
	if c.Method != nil {
		return ReturnType(c.Method.Type)
	}
	return nil
}

// ParamTypes returns the parameter types of an action, excluding a leading context
func (c *MemberContext) ParamTypes() []reflect.Type {
	if c.Method == nil {
		return nil
	}
	return ParamTypes(c.Method.Type)
}

// ParameterContext is passed to ParameterProcessor implementations
type ParameterContext struct {
	Type         reflect.Type
	ActionID     string
	Action       reflect.Method
	Index        int
	ParamType    reflect.Type
	Holder       facetapi.Holder
	Registration *scan.Registration
	Methods      *MethodRemover
	Failures     Reporter
}

// MethodRemover tracks the exported methods of a type that have not yet been
// consumed. Supporting methods are removed as they are recognized so that only
// genuine actions remain.
type MethodRemover struct {
	methods map[string]reflect.Method
	removed map[string]bool
}

// NewMethodRemover collects the method set of *t
func NewMethodRemover(t reflect.Type) *MethodRemover {
	m := &MethodRemover{
		methods: make(map[string]reflect.Method),
		removed: make(map[string]bool),
	}
	if t == nil {
		return m
	}
	pt := reflect.PointerTo(t)
	for i := 0; i < pt.NumMethod(); i++ {
		method := pt.Method(i)
		m.methods[method.Name] = method
	}
	return m
}

// Find returns the named method if it has not been removed
func (m *MethodRemover) Find(name string) (reflect.Method, bool) {
	if m == nil || m.removed[name] {
		return reflect.Method{}, false
	}
	method, ok := m.methods[name]
	return method, ok
}

// Remove consumes the named method
func (m *MethodRemover) Remove(name string) {
	if m == nil {
		return
	}
	if _, ok := m.methods[name]; ok {
		m.removed[name] = true
	}
}

// IsRemoved reports whether the named method was consumed
func (m *MethodRemover) IsRemoved(name string) bool {
	return m != nil && m.removed[name]
}

// Remaining returns the methods not yet consumed, sorted by name
func (m *MethodRemover) Remaining() []reflect.Method {
	if m == nil {
		return nil
	}
	result := make([]reflect.Method, 0, len(m.methods))
	for name, method := range m.methods {
		if !m.removed[name] {
			result = append(result, method)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// HasPrefix reports whether name is prefix followed by an upper-case letter or a digit,
// which is how supporting methods are named (HideName, Choices0Rename)
func HasPrefix(name, prefix string) bool {
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name[len(prefix):])
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

// factoryBase provides the Factory methods
type factoryBase struct {
	name     string
	features facetapi.FeatureSet
}

func (f factoryBase) Name() string                      { return f.name }
func (f factoryBase) FeatureTypes() facetapi.FeatureSet { return f.features }
