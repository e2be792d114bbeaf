package facetapi

// Holder is any program element that owns facets
type Holder interface {
	Identifier() Identifier
	FeatureType() FeatureType

	// Facet returns the facet of the kind, or nil
	Facet(kind Kind) Facet
	ContainsFacet(kind Kind) bool
	// ContainsNonFallback reports whether a facet of the kind exists that is not a fallback
	ContainsNonFallback(kind Kind) bool
	// Facets returns all facets sorted by kind
	Facets() []Facet
	// AddFacet attaches the facet unless a higher-precedence facet of the same kind
	// is already present. It reports whether the facet was attached.
	AddFacet(f Facet) bool
}

// FacetHolder is the standard Holder implementation. Specifications and members embed it.
//
// A FacetHolder is only mutated while the metamodel is being built; afterwards it is
// read concurrently without synchronization.
type FacetHolder struct {
	id          Identifier
	featureType FeatureType
	facets      map[Kind]Facet
}

// NewFacetHolder creates an empty holder
func NewFacetHolder(id Identifier, ft FeatureType) FacetHolder {
	return FacetHolder{
		id:          id,
		featureType: ft,
		facets:      make(map[Kind]Facet),
	}
}

// Identifier returns the holder identifier
func (h *FacetHolder) Identifier() Identifier { return h.id }

// FeatureType returns the holder feature type
func (h *FacetHolder) FeatureType() FeatureType { return h.featureType }

// Facet returns the facet of the kind, or nil
func (h *FacetHolder) Facet(kind Kind) Facet {
	return h.facets[kind]
}

// ContainsFacet reports whether a facet of the kind is present
func (h *FacetHolder) ContainsFacet(kind Kind) bool {
	_, ok := h.facets[kind]
	return ok
}

// ContainsNonFallback reports whether a non-fallback facet of the kind is present
func (h *FacetHolder) ContainsNonFallback(kind Kind) bool {
	f, ok := h.facets[kind]
	return ok && !IsFallback(f)
}

// Facets returns all facets sorted by kind
func (h *FacetHolder) Facets() []Facet {
	result := make([]Facet, 0, len(h.facets))
	for _, f := range h.facets {
		result = append(result, f)
	}
	SortFacets(result)
	return result
}

// AddFacet attaches f unless an existing facet of the same kind outranks it.
// A facet of equal precedence replaces the existing one, so the last factory wins.
func (h *FacetHolder) AddFacet(f Facet) bool {
	if f == nil {
		return false
	}
	if h.facets == nil {
		h.facets = make(map[Kind]Facet)
	}
	if existing, ok := h.facets[f.Kind()]; ok && existing.Precedence() > f.Precedence() {
		return false
	}
	h.facets[f.Kind()] = f
	return true
}

// AddFacets attaches each facet in order and returns how many were attached
func AddFacets(h Holder, facets ...Facet) int {
	n := 0
	for _, f := range facets {
		if h.AddFacet(f) {
			n++
		}
	}
	return n
}
