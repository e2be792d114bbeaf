// Package scan discovers the domain types the metamodel is built from.
//
// Domain packages register their types in a Catalog, usually the Default catalog
// from an init function. A Scanner then selects the registrations whose package
// matches the configured patterns.
package scan

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/conduit-lang/metamodel/pkg/annotation"
)

// Registration is one domain type together with its declared metadata
type Registration struct {
	Type         reflect.Type
	DomainObject annotation.DomainObject
	Actions      map[string]annotation.Action
	// Programmatic names exported methods and fields that are not part of the metamodel
	Programmatic map[string]bool
	// Seq is the registration order within the catalog
	Seq int
}

// FullName returns the package-qualified name of the registered type
func (r *Registration) FullName() string {
	return FullName(r.Type)
}

// Action returns the action metadata declared for the method name
func (r *Registration) Action(name string) (annotation.Action, bool) {
	if r == nil || r.Actions == nil {
		return annotation.Action{}, false
	}
	a, ok := r.Actions[name]
	return a, ok
}

// IsProgrammatic reports whether the named member is excluded from the metamodel
func (r *Registration) IsProgrammatic(name string) bool {
	return r != nil && r.Programmatic[name]
}

// Option configures a Registration
type Option func(*Registration)

// WithDomainObject sets the type-level metadata
func WithDomainObject(d annotation.DomainObject) Option {
	return func(r *Registration) {
		r.DomainObject = d
	}
}

// WithAction sets the metadata of one action
func WithAction(name string, a annotation.Action) Option {
	return func(r *Registration) {
		if r.Actions == nil {
			r.Actions = make(map[string]annotation.Action)
		}
		r.Actions[name] = a
	}
}

// Programmatic excludes exported methods or fields from the metamodel
func Programmatic(names ...string) Option {
	return func(r *Registration) {
		if r.Programmatic == nil {
			r.Programmatic = make(map[string]bool)
		}
		for _, n := range names {
			r.Programmatic[n] = true
		}
	}
}

// Catalog is an ordered set of registrations
type Catalog struct {
	mu            sync.RWMutex
	registrations map[reflect.Type]*Registration
	order         []*Registration
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		registrations: make(map[reflect.Type]*Registration),
	}
}

// Default is the catalog domain packages register into from init functions
var Default = NewCatalog()

// Register registers v's type in the Default catalog
func Register(v any, opts ...Option) error {
	return Default.Register(v, opts...)
}

// MustRegister registers v's type in the Default catalog and panics on error
func MustRegister(v any, opts ...Option) {
	if err := Default.Register(v, opts...); err != nil {
		panic(err)
	}
}

// Register adds v's type to the catalog. v may be a value, a pointer or a reflect.Type.
func (c *Catalog) Register(v any, opts ...Option) error {
	t, err := typeOf(v)
	if err != nil {
		return err
	}

	reg := &Registration{Type: t}
	for _, opt := range opts {
		opt(reg)
	}

	if t.Kind() != reflect.Struct {
		d := reg.DomainObject
		if d.Nature != annotation.NatureValue && len(d.Bounded) == 0 {
			return fmt.Errorf("type %s is not a struct; only value or bounded types may be registered", FullName(t))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.registrations[t]; exists {
		return fmt.Errorf("type %s is already registered", FullName(t))
	}
	reg.Seq = len(c.order)
	c.registrations[t] = reg
	c.order = append(c.order, reg)
	return nil
}

// Lookup returns the registration of a type
func (c *Catalog) Lookup(t reflect.Type) (*Registration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, ok := c.registrations[Normalize(t)]
	return reg, ok
}

// All returns the registrations in registration order
func (c *Catalog) All() []*Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]*Registration, len(c.order))
	copy(result, c.order)
	return result
}

// Count returns the number of registrations
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Clear removes all registrations (useful for testing)
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrations = make(map[reflect.Type]*Registration)
	c.order = nil
}

func typeOf(v any) (reflect.Type, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot register nil")
	}
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	t = Normalize(t)
	if t.Name() == "" {
		return nil, fmt.Errorf("cannot register unnamed type %s", t)
	}
	return t, nil
}

// Normalize strips pointer indirections from t
func Normalize(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// FullName returns the package-qualified name of t, e.g. "example.com/crm.Customer".
// Unnamed and predeclared types use their Go syntax, e.g. "string" or "[]int".
func FullName(t reflect.Type) string {
	t = Normalize(t)
	if t == nil {
		return ""
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
