package metadata

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNotInitialized is returned by queries made before a snapshot is registered
var ErrNotInitialized = errors.New("registry not initialized")

// Registry serves indexed, read-only queries over a registered snapshot.
// Snapshots never change once registered, so query results are cached.
type Registry struct {
	mu       sync.RWMutex
	metadata *Metadata

	// Pre-computed indexes (built at registration)
	specsByName map[string]*SpecMetadata // logical and full type names
	facetIndex  map[string][]FacetReference
	memberIndex map[string][]MemberReference // referenced type -> members
	graph       *DependencyGraph

	cache      map[string]any
	cacheMutex sync.RWMutex

	initialized atomic.Bool
}

// FacetReference locates a facet within a snapshot
type FacetReference struct {
	Spec   string // Full type name
	Member string // Empty for the specification itself
	Facet  FacetMetadata
}

// MemberReference locates a property or collection within a snapshot
type MemberReference struct {
	Spec   string
	Member MemberMetadata
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	r := &Registry{}
	r.clear()
	return r
}

func (r *Registry) clear() {
	r.metadata = nil
	r.specsByName = make(map[string]*SpecMetadata)
	r.facetIndex = make(map[string][]FacetReference)
	r.memberIndex = make(map[string][]MemberReference)
	r.graph = BuildDependencyGraph(nil)
	r.cacheMutex.Lock()
	r.cache = make(map[string]any)
	r.cacheMutex.Unlock()
}

var globalRegistry = NewRegistry()

// GetRegistry returns the process-wide registry
func GetRegistry() *Registry {
	return globalRegistry
}

// RegisterMetadata decodes a snapshot and registers it in the process-wide registry
func RegisterMetadata(data []byte) error {
	meta, err := Decode(data)
	if err != nil {
		return err
	}
	return globalRegistry.Register(meta)
}

// Reset clears the process-wide registry (used for testing)
func Reset() {
	globalRegistry.Reset()
}

// Register replaces the registered snapshot and rebuilds the indexes
func (r *Registry) Register(meta *Metadata) error {
	if meta == nil {
		return fmt.Errorf("cannot register nil metadata")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clear()
	r.metadata = meta
	r.buildIndexes()
	r.initialized.Store(true)
	return nil
}

// Reset clears the registry
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clear()
	r.initialized.Store(false)
}

func (r *Registry) buildIndexes() {
	for i := range r.metadata.Specs {
		s := &r.metadata.Specs[i]
		r.specsByName[s.Type] = s
		if _, taken := r.specsByName[s.Name]; !taken {
			r.specsByName[s.Name] = s
		}

		for _, f := range s.Facets {
			r.facetIndex[f.Kind] = append(r.facetIndex[f.Kind], FacetReference{Spec: s.Type, Facet: f})
		}
		members := append(append([]MemberMetadata{}, s.Properties...), s.Collections...)
		for _, a := range s.Actions {
			members = append(members, a.MemberMetadata)
		}
		for _, m := range members {
			for _, f := range m.Facets {
				r.facetIndex[f.Kind] = append(r.facetIndex[f.Kind], FacetReference{Spec: s.Type, Member: m.ID, Facet: f})
			}
			if m.Type != "" {
				r.memberIndex[m.Type] = append(r.memberIndex[m.Type], MemberReference{Spec: s.Type, Member: m})
			}
		}
	}

	if r.metadata.Dependencies != nil {
		r.graph = r.metadata.Dependencies
	} else {
		r.graph = BuildDependencyGraph(r.metadata)
	}
}

func (r *Registry) lookup(name string) (*SpecMetadata, bool) {
	s, ok := r.specsByName[name]
	return s, ok
}

// Metadata returns the registered snapshot, or nil
func (r *Registry) Metadata() *Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metadata
}

// Specs returns a copy of every registered specification
func (r *Registry) Specs() []SpecMetadata {
	meta := r.Metadata()
	if meta == nil {
		return nil
	}
	specs := make([]SpecMetadata, len(meta.Specs))
	copy(specs, meta.Specs)
	return specs
}

// Spec finds a specification by logical or full type name
func (r *Registry) Spec(name string) (*SpecMetadata, error) {
	if !r.initialized.Load() {
		return nil, ErrNotInitialized
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.lookup(name); ok {
		specCopy := *s
		return &specCopy, nil
	}
	return nil, fmt.Errorf("specification not found: %s", name)
}

// SpecsByPattern returns specifications whose full type name or logical name
// matches a doublestar pattern, e.g. "example.com/petclinic.*" or "petclinic.*".
func (r *Registry) SpecsByPattern(pattern string) ([]SpecMetadata, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern: %s", pattern)
	}
	if !r.initialized.Load() {
		return nil, ErrNotInitialized
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cacheKey := "pattern:" + pattern
	if cached := r.getCached(cacheKey); cached != nil {
		return cached.([]SpecMetadata), nil
	}

	result := []SpecMetadata{}
	for _, s := range r.metadata.Specs {
		if matchPattern(s.Type, pattern) || matchPattern(s.Name, pattern) {
			result = append(result, s)
		}
	}

	r.setCached(cacheKey, result)
	return result, nil
}

// FacetsByKind returns every holder carrying a facet of the given kind,
// ordered by specification and member.
func (r *Registry) FacetsByKind(kind string) []FacetReference {
	if !r.initialized.Load() {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := r.facetIndex[kind]
	result := make([]FacetReference, len(refs))
	copy(result, refs)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Spec != result[j].Spec {
			return result[i].Spec < result[j].Spec
		}
		return result[i].Member < result[j].Member
	})
	return result
}

// MembersByType returns the members whose value type is typeName
func (r *Registry) MembersByType(typeName string) []MemberReference {
	if !r.initialized.Load() {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := r.memberIndex[typeName]
	result := make([]MemberReference, len(refs))
	copy(result, refs)
	return result
}

// ReferencesTo returns the edges pointing at a specification (what depends on it)
func (r *Registry) ReferencesTo(name string) ([]DependencyEdge, error) {
	if !r.initialized.Load() {
		return nil, ErrNotInitialized
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("specification not found: %s", name)
	}
	return findIncomingEdges(r.graph, s.Type), nil
}

// Graph returns the full dependency graph of the registered snapshot
func (r *Registry) Graph() *DependencyGraph {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.graph
}

func (r *Registry) getCached(key string) any {
	r.cacheMutex.RLock()
	defer r.cacheMutex.RUnlock()
	return r.cache[key]
}

func (r *Registry) setCached(key string, value any) {
	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()
	r.cache[key] = value
}

// matchPattern reports whether s matches a doublestar pattern; "*" alone matches everything
func matchPattern(s, pattern string) bool {
	if pattern == "*" || pattern == s {
		return true
	}
	ok, err := doublestar.Match(pattern, s)
	return err == nil && ok
}
