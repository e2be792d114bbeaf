package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/scan"
	"github.com/conduit-lang/metamodel/pkg/spec"
	"github.com/conduit-lang/metamodel/pkg/validate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// now is replaced in tests
var now = time.Now

// Build captures a sealed metamodel as a snapshot. The source hash covers the
// specifications only, so two builds of the same domain share it while ID and
// Generated differ.
func Build(specs []*spec.ObjectSpecification, failures ...validate.Failure) (*Metadata, error) {
	meta := &Metadata{
		Version:   SchemaVersion,
		ID:        uuid.NewString(),
		Generated: now().UTC(),
		Specs:     make([]SpecMetadata, 0, len(specs)),
	}
	for _, s := range specs {
		meta.Specs = append(meta.Specs, specMetadata(s))
	}
	for _, f := range failures {
		meta.Failures = append(meta.Failures, f.String())
	}

	data, err := json.Marshal(meta.Specs)
	if err != nil {
		return nil, fmt.Errorf("failed to hash specifications: %w", err)
	}
	sum := sha256.Sum256(data)
	meta.SourceHash = hex.EncodeToString(sum[:])
	meta.Dependencies = BuildDependencyGraph(meta)
	return meta, nil
}

// Encode serializes a snapshot to JSON
func Encode(meta *Metadata) ([]byte, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot written by Encode
func Decode(data []byte) (*Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	if meta.Version == "" {
		return nil, fmt.Errorf("metadata has no version")
	}
	return &meta, nil
}

func specMetadata(s *spec.ObjectSpecification) SpecMetadata {
	sm := SpecMetadata{
		Name:        s.LogicalName(),
		Type:        s.FullName(),
		Nature:      s.Nature().String(),
		Singular:    s.SingularName(),
		Plural:      s.PluralName(),
		Description: s.Description(),
		Registered:  s.Registration() != nil,
		Immutable:   s.IsImmutable(),
		Facets:      facetMetadata(s.Facets()),
	}
	if orphans := s.Orphans(); len(orphans) > 0 {
		sm.Orphans = orphans
	}
	if super, ok := s.Superclass(); ok {
		sm.Superclass = super.FullName()
	}
	for _, p := range s.Properties() {
		m := memberMetadata(p)
		m.Optional = p.IsOptional()
		sm.Properties = append(sm.Properties, m)
	}
	for _, c := range s.Collections() {
		sm.Collections = append(sm.Collections, memberMetadata(c))
	}
	for _, a := range s.Actions() {
		am := ActionMetadata{MemberMetadata: memberMetadata(a)}
		for _, p := range a.Parameters() {
			am.Parameters = append(am.Parameters, ParameterMetadata{
				Index:     p.Index(),
				Name:      p.Name(),
				Type:      scan.FullName(p.Type()),
				Reference: reference(p.Spec()),
				Optional:  p.IsOptional(),
				Facets:    facetMetadata(p.Facets()),
			})
		}
		sm.Actions = append(sm.Actions, am)
	}
	return sm
}

func memberMetadata(m spec.Member) MemberMetadata {
	return MemberMetadata{
		ID:        m.ID(),
		Name:      m.Name(),
		Type:      scan.FullName(m.Type()),
		Reference: reference(m.Spec()),
		Sequence:  spec.Sequence(m),
		Facets:    facetMetadata(m.Facets()),
	}
}

// reference names a referenced specification when it is a domain type rather than a builtin
func reference(s *spec.ObjectSpecification, ok bool) string {
	if !ok || s.Type().PkgPath() == "" {
		return ""
	}
	return s.FullName()
}

func facetMetadata(facets []facetapi.Facet) []FacetMetadata {
	if len(facets) == 0 {
		return nil
	}
	result := make([]FacetMetadata, 0, len(facets))
	for _, f := range facets {
		fm := FacetMetadata{Kind: string(f.Kind()), Precedence: f.Precedence().String()}
		if attrs := f.Attributes(); len(attrs) > 0 {
			fm.Attributes = attrs
		}
		result = append(result, fm)
	}
	return result
}
