package postprocess_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/facets"
	"github.com/conduit-lang/metamodel/pkg/progmodel"
	"github.com/conduit-lang/metamodel/pkg/scan"
	"github.com/conduit-lang/metamodel/pkg/spec"
	"github.com/conduit-lang/metamodel/pkg/specloader"
)

type Colour string

type Vet struct {
	Name string
}

type Clinic struct {
	Code   string `meta:"key"`
	Colour Colour `meta:"optional"`
	Vets   []Vet
	Tint   Colour
}

func (c *Clinic) ChoicesTint() []Colour { return []Colour{"teal"} }

func (c *Clinic) Dismiss(v Vet, reason string) {}

type Archive struct {
	Clinic string
}

func load(t *testing.T, pm *progmodel.ProgrammingModel) *specloader.Loader {
	t.Helper()
	c := scan.NewCatalog()
	require.NoError(t, c.Register(Clinic{},
		scan.WithDomainObject(annotation.DomainObject{Nature: annotation.NatureEntity}),
		scan.WithAction("Dismiss", annotation.Action{AssociateWith: "Vets"}),
	))
	require.NoError(t, c.Register(Vet{}))
	require.NoError(t, c.Register(Colour(""), scan.WithDomainObject(annotation.DomainObject{
		Nature:  annotation.NatureValue,
		Bounded: []any{Colour("red"), Colour("blue")},
		Default: Colour("red"),
	})))
	require.NoError(t, c.Register(Archive{}, scan.WithDomainObject(annotation.DomainObject{Editing: annotation.EditingDisabled})))

	if pm == nil {
		pm = progmodel.Default(progmodel.DefaultConfig())
	}
	l := specloader.New(specloader.WithCatalog(c), specloader.WithProgrammingModel(pm))
	require.NoError(t, l.Start(context.Background()))
	return l
}

func clinic(t *testing.T, l *specloader.Loader) *spec.ObjectSpecification {
	s, ok := l.SpecificationOf(Clinic{})
	require.True(t, ok)
	return s
}

func TestChoicesAndDefaultFromType(t *testing.T) {
	s := clinic(t, load(t, nil))

	colour, _ := s.Property("Colour")
	choices, err := colour.Choices(nil)
	require.NoError(t, err)
	assert.Equal(t, []any{Colour("red"), Colour("blue")}, choices)
	def, err := colour.Default(nil)
	require.NoError(t, err)
	assert.Equal(t, Colour("red"), def)

	tint, _ := s.Property("Tint")
	choices, err = tint.Choices(&Clinic{})
	require.NoError(t, err)
	assert.Equal(t, []any{Colour("teal")}, choices, "a choices method wins over the bounded type")
}

func TestChoicesAndDefaultFromType_Removed(t *testing.T) {
	pm := progmodel.Default(progmodel.DefaultConfig()).Without("ChoicesFromType", "DefaultFromType")
	s := clinic(t, load(t, pm))
	colour, _ := s.Property("Colour")
	assert.False(t, colour.ContainsFacet(facets.KindPropertyChoices))
	assert.False(t, colour.ContainsFacet(facets.KindPropertyDefault))
}

func TestChoicesFromParentedCollection(t *testing.T) {
	s := clinic(t, load(t, nil))
	dismiss, ok := s.Action("Dismiss")
	require.True(t, ok)

	vet := dismiss.Parameters()[0]
	choices, err := vet.Choices(&Clinic{Vets: []Vet{{Name: "Ann"}, {Name: "Bo"}}})
	require.NoError(t, err)
	assert.Equal(t, []any{Vet{Name: "Ann"}, Vet{Name: "Bo"}}, choices)
	assert.Equal(t, map[string]string{"source": "collection", "collection": "Vets"},
		vet.Facet(facets.KindParamChoices).Attributes())

	assert.False(t, dismiss.Parameters()[1].ContainsFacet(facets.KindParamChoices))
}

func TestDisabledFromImmutable(t *testing.T) {
	l := load(t, nil)
	archive, ok := l.SpecificationOf(Archive{})
	require.True(t, ok)
	p, _ := archive.Property("Clinic")
	f, ok := facetapi.As[*facets.DisabledFacet](p, facets.KindDisabled)
	require.True(t, ok)
	assert.Equal(t, "Disabled", f.Reason())
	assert.Equal(t, facetapi.PrecedenceDerived, f.Precedence())

	code, _ := clinic(t, l).Property("Code")
	assert.False(t, code.ContainsFacet(facets.KindDisabled))
}

func TestIdentityFromKeys(t *testing.T) {
	l := load(t, nil)
	f, ok := facetapi.As[*facets.IdentityFacet](clinic(t, l), facets.KindIdentity)
	require.True(t, ok)
	assert.Equal(t, []string{"Code"}, f.Keys())

	vet, _ := l.SpecificationOf(Vet{})
	assert.False(t, vet.ContainsFacet(facets.KindIdentity))
}
