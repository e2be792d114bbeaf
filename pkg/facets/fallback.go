package facets

import (
	"fmt"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/layout"
	"github.com/conduit-lang/metamodel/pkg/scan"

	utilstrings "github.com/conduit-lang/metamodel/internal/util/strings"
)

// Config holds the settings factories read
type Config struct {
	// PagedStandalone is the page size of standalone lists
	PagedStandalone int
	// PagedParented is the page size of collections
	PagedParented int
	// AutoCompleteMinLength is the minimum search length for auto-complete
	AutoCompleteMinLength int
	// Layouts supplies layout files; nil disables layouts
	Layouts *layout.Reader
}

// DefaultConfig returns the default factory settings
func DefaultConfig() Config {
	return Config{
		PagedStandalone:       25,
		PagedParented:         12,
		AutoCompleteMinLength: 1,
	}
}

// FallbackFactory installs the permissive defaults every holder starts with.
// It runs first so that every later factory can override it.
type FallbackFactory struct {
	factoryBase
	cfg Config
}

// NewFallbackFactory creates the fallback factory
func NewFallbackFactory(cfg Config) *FallbackFactory {
	return &FallbackFactory{
		factoryBase: factoryBase{name: "Fallback", features: facetapi.Everything},
		cfg:         cfg,
	}
}

func (f *FallbackFactory) ProcessClass(ctx *ClassContext) {
	h := ctx.Holder
	name := utilstrings.NaturalName(ctx.Type.Name())
	if name == "" {
		name = ctx.Type.String()
	}
	facetapi.AddFacets(h,
		NewTextFacet(KindNamed, name, facetapi.PrecedenceFallback, h),
		NewTextFacet(KindPlural, utilstrings.Pluralize(name), facetapi.PrecedenceFallback, h),
		NewTextFacet(KindDescribedAs, "", facetapi.PrecedenceFallback, h),
		NewTitleNone(h),
		NewIntFacet(KindPaged, f.cfg.PagedStandalone, facetapi.PrecedenceFallback, h),
	)
}

func (f *FallbackFactory) ProcessMember(ctx *MemberContext) {
	h := ctx.Holder
	facetapi.AddFacets(h,
		NewTextFacet(KindNamed, utilstrings.NaturalName(ctx.ID), facetapi.PrecedenceFallback, h),
		NewTextFacet(KindDescribedAs, "", facetapi.PrecedenceFallback, h),
		NewHiddenFacet(annotation.Nowhere, facetapi.PrecedenceFallback, h),
	)

	switch ctx.FeatureType {
	case facetapi.Property:
		facetapi.AddFacets(h,
			NewMandatoryFacet(false, facetapi.PrecedenceFallback, h),
			NewIntFacet(KindMaxLength, 0, facetapi.PrecedenceFallback, h),
			NewIntFacet(KindMultiLine, 1, facetapi.PrecedenceFallback, h),
		)
	case facetapi.Collection:
		h.AddFacet(NewIntFacet(KindPaged, f.cfg.PagedParented, facetapi.PrecedenceFallback, h))
	case facetapi.Action:
		h.AddFacet(NewSemanticsFacet(annotation.NonIdempotent, facetapi.PrecedenceFallback, h))
	}
}

func (f *FallbackFactory) ProcessParameter(ctx *ParameterContext) {
	h := ctx.Holder
	name := utilstrings.NaturalName(scan.Normalize(ctx.ParamType).Name())
	if name == "" {
		name = fmt.Sprintf("Arg %d", ctx.Index)
	}
	facetapi.AddFacets(h,
		NewTextFacet(KindNamed, name, facetapi.PrecedenceFallback, h),
		NewTextFacet(KindDescribedAs, "", facetapi.PrecedenceFallback, h),
		NewMandatoryFacet(false, facetapi.PrecedenceFallback, h),
		NewIntFacet(KindMaxLength, 0, facetapi.PrecedenceFallback, h),
		NewIntFacet(KindMultiLine, 1, facetapi.PrecedenceFallback, h),
	)
}
