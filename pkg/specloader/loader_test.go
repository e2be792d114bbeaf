package specloader

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/facets"
	"github.com/conduit-lang/metamodel/pkg/progmodel"
	"github.com/conduit-lang/metamodel/pkg/scan"
	"github.com/conduit-lang/metamodel/pkg/spec"
	"github.com/conduit-lang/metamodel/pkg/validate"
)

type Species string

type Person struct {
	Name string `meta:"title;key"`
}

type Pet struct {
	Name    string `meta:"title"`
	Species Species
}

type Owner struct {
	Person
	Email   *string `meta:"regex=^.+@.+$"`
	Pets    []Pet   `meta:"sequence=1"`
	Visits  int     `meta:"sequence=2"`
	Scratch string  `meta:"-"`
	Notify  func()
	secret  string
}

func (o *Owner) AddPet(name string, species Species) (*Pet, error) {
	if name == "" {
		return nil, errors.New("name required")
	}
	p := Pet{Name: name, Species: species}
	o.Pets = append(o.Pets, p)
	return &o.Pets[len(o.Pets)-1], nil
}
func (o *Owner) Choices0AddPet() []string { return []string{"Rex", "Tom"} }
func (o *Owner) HideVisits() bool         { return o.Visits == 0 }
func (o *Owner) Reset()                   { o.Visits = 0 }
func (o *Owner) Helper() string           { return o.secret }

// Broken carries metadata problems the validator must report
type Broken struct {
	Code string `meta:"key"`
}

func (b *Broken) HideMissing() bool      { return true }
func (b *Broken) ClearCode()             { b.Code = "" }
func (b *Broken) Log(args ...any) string { return "" }

func petclinic(t *testing.T) *scan.Catalog {
	t.Helper()
	c := scan.NewCatalog()
	require.NoError(t, c.Register(Owner{},
		scan.WithDomainObject(annotation.DomainObject{Nature: annotation.NatureEntity, Named: "Owner"}),
		scan.WithAction("AddPet", annotation.Action{Semantics: annotation.Idempotent, AssociateWith: "Pets"}),
		scan.Programmatic("Helper"),
	))
	require.NoError(t, c.Register(Pet{},
		scan.WithDomainObject(annotation.DomainObject{Nature: annotation.NatureEntity}),
	))
	require.NoError(t, c.Register(Species(""),
		scan.WithDomainObject(annotation.DomainObject{
			Nature:  annotation.NatureValue,
			Bounded: []any{Species("dog"), Species("cat")},
			Default: Species("dog"),
		}),
	))
	return c
}

func start(t *testing.T, c *scan.Catalog, opts ...Option) (*Loader, error) {
	t.Helper()
	l := New(append([]Option{WithCatalog(c)}, opts...)...)
	return l, l.Start(context.Background())
}

func TestLoader_Start(t *testing.T) {
	l, err := start(t, petclinic(t))
	require.NoError(t, err)
	assert.True(t, l.IsSealed())

	owner, ok := l.SpecificationOf(&Owner{})
	require.True(t, ok)
	assert.Equal(t, "specloader.Owner", owner.LogicalName())
	assert.True(t, owner.IsEntity())
	assert.Equal(t, "Owners", owner.PluralName())

	t.Run("fields become properties and collections", func(t *testing.T) {
		var names []string
		for _, p := range owner.Properties() {
			names = append(names, p.ID())
		}
		assert.Equal(t, []string{"Visits", "Name", "Email"}, names)
		require.Len(t, owner.Collections(), 1)
		assert.Equal(t, "Pets", owner.Collections()[0].ID())

		_, ok := owner.Member("Scratch")
		assert.False(t, ok, "excluded field")
		_, ok = owner.Member("Notify")
		assert.False(t, ok, "func field")
		_, ok = owner.Member("secret")
		assert.False(t, ok, "unexported field")
	})

	t.Run("remaining methods become actions", func(t *testing.T) {
		var names []string
		for _, a := range owner.Actions() {
			names = append(names, a.ID())
		}
		assert.ElementsMatch(t, []string{"AddPet", "Reset"}, names)
		assert.Empty(t, owner.Orphans())
		_, ok := owner.Action("Helper")
		assert.False(t, ok, "programmatic method")
	})

	t.Run("supporting methods attach to their members", func(t *testing.T) {
		visits, ok := owner.Property("Visits")
		require.True(t, ok)
		assert.True(t, visits.Visibility(&Owner{}, annotation.Forms).IsVetoed())
		assert.False(t, visits.Visibility(&Owner{Visits: 2}, annotation.Forms).IsVetoed())

		addPet, ok := owner.Action("AddPet")
		require.True(t, ok)
		require.Len(t, addPet.Parameters(), 2)
		choices, err := addPet.Parameters()[0].Choices(&Owner{})
		require.NoError(t, err)
		assert.Equal(t, []any{"Rex", "Tom"}, choices)
	})

	t.Run("referenced types get specifications", func(t *testing.T) {
		pet, ok := l.SpecificationFor(reflect.TypeOf(Pet{}))
		require.True(t, ok)
		assert.Len(t, pet.Properties(), 2)

		person, ok := l.SpecificationFor(reflect.TypeOf(&Person{}))
		require.True(t, ok)
		assert.Nil(t, person.Registration())
		assert.Empty(t, person.Members(), "unregistered types are not introspected")

		super, ok := owner.Superclass()
		require.True(t, ok)
		assert.Same(t, person, super)
		assert.Contains(t, person.Subclasses(), owner)
	})

	t.Run("post-processors derive facets from other types", func(t *testing.T) {
		pet, _ := l.SpecificationFor(reflect.TypeOf(Pet{}))
		species, ok := pet.Property("Species")
		require.True(t, ok)
		choices, err := species.Choices(nil)
		require.NoError(t, err)
		assert.Equal(t, []any{Species("dog"), Species("cat")}, choices)
		def, err := species.Default(nil)
		require.NoError(t, err)
		assert.Equal(t, Species("dog"), def)

		addPet, _ := owner.Action("AddPet")
		f, ok := facetapi.As[*facets.IdentityFacet](owner, facets.KindIdentity)
		require.True(t, ok)
		assert.Equal(t, []string{"Name"}, f.Keys())
		assert.True(t, addPet.Parameters()[1].ContainsNonFallback(facets.KindParamChoices))
	})

	t.Run("titles and invocation work end to end", func(t *testing.T) {
		o := &Owner{Person: Person{Name: "Jean"}}
		assert.Equal(t, "Jean", owner.Title(o))

		addPet, _ := owner.Action("AddPet")
		result, err := addPet.Invoke(context.Background(), o, "Rex", Species("dog"))
		require.NoError(t, err)
		assert.Equal(t, "Rex", result.(*Pet).Name)
		assert.Len(t, o.Pets, 1)
	})
}

func TestLoader_Lookups(t *testing.T) {
	l := New(WithCatalog(petclinic(t)))

	_, ok := l.SpecificationFor(reflect.TypeOf(Owner{}))
	assert.False(t, ok, "before start")
	assert.Nil(t, l.Specifications())
	_, ok = l.LookupByLogicalName("specloader.Owner")
	assert.False(t, ok)

	require.NoError(t, l.Start(context.Background()))

	s, ok := l.LookupByLogicalName("specloader.Owner")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(Owner{}), s.Type())

	_, ok = l.SpecificationFor(reflect.TypeOf(struct{ X int }{}))
	assert.False(t, ok, "unnamed types have no specification")
	_, ok = l.SpecificationOf(nil)
	assert.False(t, ok)

	specs := l.Specifications()
	for i := 1; i < len(specs); i++ {
		assert.Less(t, specs[i-1].FullName(), specs[i].FullName())
	}
	specs[0] = nil
	assert.NotNil(t, l.Specifications()[0], "callers get a copy")
}

func TestLoader_StartTwice(t *testing.T) {
	l, err := start(t, petclinic(t))
	require.NoError(t, err)
	assert.ErrorIs(t, l.Start(context.Background()), ErrAlreadyStarted)
}

func TestLoader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := New(WithCatalog(petclinic(t)))
	err := l.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, l.IsSealed())
}

func TestLoader_ValidationFailures(t *testing.T) {
	c := petclinic(t)
	require.NoError(t, c.Register(Broken{}))

	core, logs := observer.New(zap.InfoLevel)
	l, err := start(t, c, WithLogger(zap.New(core)))
	require.Error(t, err)

	var invalid *validate.InvalidError
	require.True(t, errors.As(err, &invalid))
	assert.True(t, l.IsSealed(), "an invalid metamodel is still sealed for inspection")

	messages := invalid.Failures
	has := func(sub string) bool {
		for _, f := range messages {
			if strings.Contains(f.String(), sub) {
				return true
			}
		}
		return false
	}
	assert.True(t, has("HideMissing does not match any member"))
	assert.True(t, has(`ClearCode uses the deprecated "Clear" prefix`))
	assert.True(t, has("variadic method Log"))
	assert.True(t, has("only entities and view models may declare key properties"))

	broken, ok := l.SpecificationOf(Broken{})
	require.True(t, ok)
	assert.Equal(t, []string{"ClearCode", "HideMissing"}, broken.Orphans())

	assert.Equal(t, 1, logs.FilterMessage("metamodel built").Len())
	assert.Equal(t, len(messages), logs.FilterMessage("metamodel validation failure").Len())
}

func TestLoader_AllowDeprecated(t *testing.T) {
	c := scan.NewCatalog()
	require.NoError(t, c.Register(Broken{}, scan.Programmatic("Log", "HideMissing")))

	cfg := progmodel.DefaultConfig()
	cfg.Validation.AllowDeprecated = true
	l, err := start(t, c, WithProgrammingModel(progmodel.Default(cfg)))
	require.Error(t, err, "the key on a non-entity is still reported")
	for _, f := range l.Failures() {
		assert.NotContains(t, f.Message, "deprecated")
	}
}

func TestLoader_WithoutFactories(t *testing.T) {
	pm := progmodel.Default(progmodel.DefaultConfig()).Without("HideMethod", "OrphanedSupportingMethods")
	l, err := start(t, petclinic(t), WithProgrammingModel(pm))
	require.NoError(t, err)

	owner, _ := l.SpecificationOf(Owner{})
	assert.Equal(t, []string{"HideVisits"}, owner.Orphans(), "unconsumed supporting methods never become actions")
}

func TestLoader_ConcurrentReads(t *testing.T) {
	l, err := start(t, petclinic(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, s := range l.Specifications() {
				_ = s.LogicalName()
				for _, m := range s.Members() {
					_ = m.Name()
				}
			}
		}()
	}
	wg.Wait()
}

// Handle is an entity that also renders itself as text
type Handle struct {
	Name  string
	Email string
}

func (h *Handle) MarshalText() ([]byte, error) { return []byte(h.Name), nil }
func (h *Handle) Rename(name string)           { h.Name = name }

func TestLoader_TextMarshalerEntity(t *testing.T) {
	c := scan.NewCatalog()
	require.NoError(t, c.Register(Handle{},
		scan.WithDomainObject(annotation.DomainObject{Nature: annotation.NatureEntity}),
	))
	l, err := start(t, c)
	require.NoError(t, err)

	handle, ok := l.SpecificationOf(Handle{})
	require.True(t, ok)
	assert.True(t, handle.IsEntity())
	assert.False(t, handle.IsValue(), "a declared entity is never a value")
	assert.Len(t, handle.Properties(), 2)
	_, ok = handle.Action("Rename")
	assert.True(t, ok)
	_, ok = handle.Action("MarshalText")
	assert.True(t, ok, "exported methods of an entity are actions")
}

type First struct{ Name string }

type Second struct{ Name string }

func TestLoader_LogicalNameCollision(t *testing.T) {
	c := scan.NewCatalog()
	dup := scan.WithDomainObject(annotation.DomainObject{Nature: annotation.NatureEntity, ObjectType: "specloader.Dup"})
	require.NoError(t, c.Register(Second{}, dup))
	require.NoError(t, c.Register(First{}, dup))

	l, err := start(t, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `object type "specloader.Dup" is used by more than one type`)

	s, ok := l.LookupByLogicalName("specloader.Dup")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(First{}), s.Type(), "the first by full type name is indexed")
}

// lookupRecorder records what the public lookups return while Start runs
type lookupRecorder struct {
	l         *Loader
	found     bool
	listed    int
	resolved  bool
	processed int
}

func (r *lookupRecorder) Name() string { return "LookupRecorder" }

func (r *lookupRecorder) PostProcess(s *spec.ObjectSpecification, _ facets.Reporter) error {
	r.processed++
	if _, ok := r.l.SpecificationFor(s.Type()); ok {
		r.found = true
	}
	r.listed += len(r.l.Specifications())
	if s.Type() == reflect.TypeOf(Owner{}) {
		_, r.resolved = s.Superclass()
	}
	return nil
}

func TestLoader_LookupsDuringStart(t *testing.T) {
	pm := progmodel.Default(progmodel.DefaultConfig())
	l := New(WithCatalog(petclinic(t)), WithProgrammingModel(pm))
	rec := &lookupRecorder{l: l}
	pm.AddPostProcessor(rec)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if s, ok := l.SpecificationFor(reflect.TypeOf(Owner{})); ok {
				_ = s.LogicalName()
			}
			_ = l.Specifications()
		}
	}()

	require.NoError(t, l.Start(context.Background()))
	close(done)
	wg.Wait()

	assert.Positive(t, rec.processed)
	assert.False(t, rec.found, "lookups wait for the seal")
	assert.Zero(t, rec.listed)
	assert.True(t, rec.resolved, "specifications resolve each other while building")

	_, ok := l.SpecificationFor(reflect.TypeOf(Owner{}))
	assert.True(t, ok)
}
