package facets

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/layout"
	"github.com/conduit-lang/metamodel/pkg/scan"
)

type Order struct {
	Number int
}

type Customer struct {
	FirstName string   `meta:"named=Given name;maxLength=40;title=1"`
	LastName  string   `meta:"title=0;regex=^[A-Z]"`
	Nickname  *string  `meta:"sequence=2.1;group=Details"`
	Orders    []Order  `meta:"group=History"`
	Notes     string   `meta:"multiLine=5;optional;mandatory"`
	Secret    string   `meta:"colour=red"`
	Tags      []string `meta:"maxLength=3"`
}

func (c *Customer) HideNickname() bool      { return c.Nickname == nil }
func (c *Customer) HideFirstName() string   { return "" }
func (c *Customer) DisableLastName() string { return "locked" }
func (c *Customer) ValidateFirstName(v string) string {
	if v == "" {
		return "required"
	}
	return ""
}
func (c *Customer) ChoicesFirstName() []string                  { return []string{"Ann", "Bob"} }
func (c *Customer) DefaultFirstName() string                    { return "Ann" }
func (c *Customer) AutoCompleteLastName(search string) []string { return []string{search + "son"} }
func (c *Customer) IconName() string                            { return "customer" }
func (c *Customer) CssClass() int                               { return 0 }
func (c *Customer) Persisting() error                           { return errors.New("read only") }
func (c *Customer) Disabled() string                            { return "" }

func (c *Customer) Rename(ctx context.Context, first, last string) (*Customer, error) {
	if first == "" {
		return nil, errors.New("first name required")
	}
	c.FirstName, c.LastName = first, last
	return c, nil
}
func (c *Customer) Choices0Rename() []string           { return []string{"Ann"} }
func (c *Customer) Validate1Rename(last string) string { return "" }
func (c *Customer) ValidateRename(first string) string { return "" }
func (c *Customer) ListOrders() []Order                { return c.Orders }
func (c *Customer) Explode()                           { panic("boom") }

type recorder struct {
	messages []string
}

func (r *recorder) Add(id facetapi.Identifier, format string, args ...any) {
	r.messages = append(r.messages, id.String()+": "+fmt.Sprintf(format, args...))
}

func (r *recorder) contains(s string) bool {
	for _, m := range r.messages {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}

var customerType = reflect.TypeOf(Customer{})

func newClassContext(t reflect.Type, reg *scan.Registration) (*ClassContext, *recorder) {
	rec := &recorder{}
	h := facetapi.NewFacetHolder(facetapi.TypeIdentifier(scan.FullName(t)), facetapi.Object)
	return &ClassContext{
		Type:         t,
		Holder:       &h,
		Registration: reg,
		Methods:      NewMethodRemover(t),
		Failures:     rec,
	}, rec
}

func newFieldContext(cc *ClassContext, name string) *MemberContext {
	field, _ := cc.Type.FieldByName(name)
	ft := facetapi.Property
	if IsCollectionType(field.Type) {
		ft = facetapi.Collection
	}
	h := facetapi.NewFacetHolder(facetapi.MemberIdentifier(scan.FullName(cc.Type), name), ft)
	return &MemberContext{
		Type:         cc.Type,
		FeatureType:  ft,
		ID:           name,
		Field:        &field,
		Holder:       &h,
		Registration: cc.Registration,
		Methods:      cc.Methods,
		Failures:     cc.Failures,
	}
}

func newActionContext(cc *ClassContext, name string) *MemberContext {
	method, _ := reflect.PointerTo(cc.Type).MethodByName(name)
	h := facetapi.NewFacetHolder(facetapi.MemberIdentifier(scan.FullName(cc.Type), name), facetapi.Action)
	return &MemberContext{
		Type:         cc.Type,
		FeatureType:  facetapi.Action,
		ID:           name,
		Method:       &method,
		Holder:       &h,
		Registration: cc.Registration,
		Methods:      cc.Methods,
		Failures:     cc.Failures,
	}
}

func newParamContext(mc *MemberContext, index int) *ParameterContext {
	h := facetapi.NewFacetHolder(facetapi.ParameterIdentifier(scan.FullName(mc.Type), mc.ID, index), facetapi.Parameter)
	return &ParameterContext{
		Type:         mc.Type,
		ActionID:     mc.ID,
		Action:       *mc.Method,
		Index:        index,
		ParamType:    mc.ParamTypes()[index],
		Holder:       &h,
		Registration: mc.Registration,
		Methods:      mc.Methods,
		Failures:     mc.Failures,
	}
}

func TestFallbackFactory(t *testing.T) {
	cc, _ := newClassContext(customerType, nil)
	f := NewFallbackFactory(DefaultConfig())
	f.ProcessClass(cc)

	named, ok := facetapi.As[*TextFacet](cc.Holder, KindNamed)
	require.True(t, ok)
	assert.Equal(t, "Customer", named.Value())
	assert.True(t, facetapi.IsFallback(named))

	plural, _ := facetapi.As[*TextFacet](cc.Holder, KindPlural)
	assert.Equal(t, "Customers", plural.Value())

	paged, _ := facetapi.As[*IntFacet](cc.Holder, KindPaged)
	assert.Equal(t, 25, paged.Value())

	mc := newFieldContext(cc, "FirstName")
	f.ProcessMember(mc)
	named, _ = facetapi.As[*TextFacet](mc.Holder, KindNamed)
	assert.Equal(t, "First Name", named.Value())
	mandatory, _ := facetapi.As[*MandatoryFacet](mc.Holder, KindMandatory)
	assert.False(t, mandatory.IsOptional())

	ac := newActionContext(cc, "Rename")
	f.ProcessMember(ac)
	sem, _ := facetapi.As[*SemanticsFacet](ac.Holder, KindSemantics)
	assert.Equal(t, annotation.NonIdempotent, sem.Semantics())

	pc := newParamContext(ac, 1)
	f.ProcessParameter(pc)
	named, _ = facetapi.As[*TextFacet](pc.Holder, KindNamed)
	assert.Equal(t, "String", named.Value())
}

func TestObjectTypeFactory(t *testing.T) {
	t.Run("derived", func(t *testing.T) {
		cc, _ := newClassContext(customerType, nil)
		NewObjectTypeFactory().ProcessClass(cc)
		ot, ok := facetapi.As[*ObjectTypeFacet](cc.Holder, KindObjectType)
		require.True(t, ok)
		assert.Equal(t, "facets.Customer", ot.Name())
		assert.Equal(t, facetapi.PrecedenceDerived, ot.Precedence())
	})

	t.Run("declared", func(t *testing.T) {
		reg := &scan.Registration{Type: customerType, DomainObject: annotation.DomainObject{ObjectType: "crm.Customer"}}
		cc, _ := newClassContext(customerType, reg)
		NewObjectTypeFactory().ProcessClass(cc)
		ot, _ := facetapi.As[*ObjectTypeFacet](cc.Holder, KindObjectType)
		assert.Equal(t, "crm.Customer", ot.Name())
	})

	t.Run("does not trample", func(t *testing.T) {
		cc, _ := newClassContext(customerType, nil)
		cc.Holder.AddFacet(NewObjectTypeFacet("custom.Name", facetapi.PrecedenceAnnotation, cc.Holder))
		NewObjectTypeFactory().ProcessClass(cc)
		ot, _ := facetapi.As[*ObjectTypeFacet](cc.Holder, KindObjectType)
		assert.Equal(t, "custom.Name", ot.Name())
	})
}

func TestDomainObjectFactory(t *testing.T) {
	reg := &scan.Registration{Type: customerType, DomainObject: annotation.DomainObject{
		Nature:   annotation.NatureEntity,
		Editing:  annotation.EditingDisabled,
		Auditing: true,
		Named:    "Client",
		Paged:    50,
		Bounded:  []any{Customer{FirstName: "A"}, "not a customer"},
	}}
	cc, rec := newClassContext(customerType, reg)
	NewFallbackFactory(DefaultConfig()).ProcessClass(cc)
	NewDomainObjectFactory().ProcessClass(cc)

	nature, _ := facetapi.As[*NatureFacet](cc.Holder, KindNature)
	assert.Equal(t, annotation.NatureEntity, nature.Nature())
	assert.True(t, cc.Holder.ContainsFacet(KindImmutable))
	assert.True(t, cc.Holder.ContainsFacet(KindAuditable))

	named, _ := facetapi.As[*TextFacet](cc.Holder, KindNamed)
	assert.Equal(t, "Client", named.Value())
	plural, _ := facetapi.As[*TextFacet](cc.Holder, KindPlural)
	assert.Equal(t, "Clients", plural.Value())

	paged, _ := facetapi.As[*IntFacet](cc.Holder, KindPaged)
	assert.Equal(t, 50, paged.Value())

	choices, ok := facetapi.As[*ChoicesFromValues](cc.Holder, KindChoices)
	require.True(t, ok)
	values, err := choices.Choices(nil)
	require.NoError(t, err)
	assert.Len(t, values, 1)
	assert.True(t, rec.contains("not a customer"))
}

func TestValueFactory(t *testing.T) {
	cc, _ := newClassContext(reflect.TypeOf(""), nil)
	NewValueFactory().ProcessClass(cc)
	v, ok := facetapi.As[*ValueFacet](cc.Holder, KindValue)
	require.True(t, ok)
	assert.Equal(t, 25, v.TypicalLength())
	assert.True(t, cc.Holder.ContainsFacet(KindImmutable))

	cc, _ = newClassContext(customerType, nil)
	NewValueFactory().ProcessClass(cc)
	assert.False(t, cc.Holder.ContainsFacet(KindValue))

	t.Run("text marshaler", func(t *testing.T) {
		typ := reflect.TypeOf(Slug{})

		cc, _ := newClassContext(typ, nil)
		NewValueFactory().ProcessClass(cc)
		assert.True(t, cc.Holder.ContainsFacet(KindValue), "unannotated text marshalers are values")

		cc, _ = newClassContext(typ, &scan.Registration{Type: typ})
		NewValueFactory().ProcessClass(cc)
		assert.True(t, cc.Holder.ContainsFacet(KindValue), "nature not specified")

		for _, nature := range []annotation.Nature{annotation.NatureEntity, annotation.NatureViewModel, annotation.NatureService} {
			reg := &scan.Registration{Type: typ, DomainObject: annotation.DomainObject{Nature: nature}}
			cc, _ = newClassContext(typ, reg)
			NewValueFactory().ProcessClass(cc)
			assert.False(t, cc.Holder.ContainsFacet(KindValue), nature.String())
			assert.False(t, cc.Holder.ContainsFacet(KindImmutable), nature.String())
		}
	})
}

// Slug is a domain object that also renders itself as text
type Slug struct {
	Text string
}

func (s *Slug) MarshalText() ([]byte, error) { return []byte(s.Text), nil }

func TestTitleFactory(t *testing.T) {
	cc, _ := newClassContext(customerType, nil)
	NewFallbackFactory(DefaultConfig()).ProcessClass(cc)
	NewTitleFactory().ProcessClass(cc)

	title, ok := facetapi.As[TitleFacet](cc.Holder, KindTitle)
	require.True(t, ok)
	assert.Equal(t, "Smith Ann", title.Title(&Customer{FirstName: "Ann", LastName: "Smith"}))
	assert.Equal(t, "Smith", title.Title(Customer{LastName: "Smith"}))
	assert.Equal(t, "", title.Title(nil))
}

func TestClassMethodFactories(t *testing.T) {
	cc, rec := newClassContext(customerType, nil)
	NewIconAndCssFactory().ProcessClass(cc)
	NewLifecycleFactory().ProcessClass(cc)
	NewObjectValidateAndDisableFactory().ProcessClass(cc)

	icon, ok := facetapi.As[*MethodTextFacet](cc.Holder, KindIconName)
	require.True(t, ok)
	assert.Equal(t, "customer", icon.Text(&Customer{}))

	assert.False(t, cc.Holder.ContainsFacet(KindCssClass))
	assert.True(t, rec.contains("CssClass has signature func() int, expected func() string"))
	assert.True(t, cc.Methods.IsRemoved("CssClass"))

	lc, ok := facetapi.As[*LifecycleFacet](cc.Holder, LifecycleKind("Persisting"))
	require.True(t, ok)
	assert.EqualError(t, lc.Invoke(&Customer{}), "read only")

	disabled, ok := facetapi.As[*ObjectMethodFacet](cc.Holder, KindDisabledObject)
	require.True(t, ok)
	reason, err := disabled.Reason(&Customer{})
	require.NoError(t, err)
	assert.Empty(t, reason)
}

func TestPropertyAnnotationFactory(t *testing.T) {
	cc, rec := newClassContext(customerType, nil)
	f := NewPropertyAnnotationFactory()

	first := newFieldContext(cc, "FirstName")
	f.ProcessMember(first)
	named, _ := facetapi.As[*TextFacet](first.Holder, KindNamed)
	assert.Equal(t, "Given name", named.Value())
	maxLen, _ := facetapi.As[*IntFacet](first.Holder, KindMaxLength)
	assert.Equal(t, 40, maxLen.Value())

	last := newFieldContext(cc, "LastName")
	f.ProcessMember(last)
	re, ok := facetapi.As[*RegexFacet](last.Holder, KindRegex)
	require.True(t, ok)
	assert.Empty(t, re.Invalidates("Smith"))
	assert.NotEmpty(t, re.Invalidates("smith"))

	nick := newFieldContext(cc, "Nickname")
	f.ProcessMember(nick)
	order, _ := facetapi.As[*MemberOrderFacet](nick.Holder, KindMemberOrder)
	assert.Equal(t, "2.1", order.Sequence())
	assert.Equal(t, "Details", order.Group())

	orders := newFieldContext(cc, "Orders")
	f.ProcessMember(orders)
	order, _ = facetapi.As[*MemberOrderFacet](orders.Holder, KindMemberOrder)
	assert.Equal(t, "History", order.Group())

	f.ProcessMember(newFieldContext(cc, "Notes"))
	f.ProcessMember(newFieldContext(cc, "Secret"))
	f.ProcessMember(newFieldContext(cc, "Tags"))

	assert.True(t, rec.contains("both optional and mandatory"))
	assert.True(t, rec.contains(`unknown meta tag key "colour"`))
	assert.True(t, rec.contains(`"maxLength" does not apply to collections`))
}

func TestMandatoryFromTypeFactory(t *testing.T) {
	cc, _ := newClassContext(customerType, nil)
	nick := newFieldContext(cc, "Nickname")
	NewFallbackFactory(DefaultConfig()).ProcessMember(nick)
	NewMandatoryFromTypeFactory().ProcessMember(nick)
	m, _ := facetapi.As[*MandatoryFacet](nick.Holder, KindMandatory)
	assert.True(t, m.IsOptional())
	assert.Empty(t, m.Invalidates(nil))

	first := newFieldContext(cc, "FirstName")
	NewFallbackFactory(DefaultConfig()).ProcessMember(first)
	NewMandatoryFromTypeFactory().ProcessMember(first)
	m, _ = facetapi.As[*MandatoryFacet](first.Holder, KindMandatory)
	assert.False(t, m.IsOptional())
	assert.Equal(t, "Mandatory", m.Invalidates(""))
}

func TestSupportingMethodFactories(t *testing.T) {
	cc, rec := newClassContext(customerType, nil)
	factories := []MemberProcessor{
		NewHideMethodFactory(),
		NewDisableMethodFactory(),
		NewValidateMethodFactory(),
		NewChoicesMethodFactory(),
		NewDefaultMethodFactory(),
		NewAutoCompleteMethodFactory(DefaultConfig()),
	}
	process := func(mc *MemberContext) {
		for _, f := range factories {
			if f.(Factory).FeatureTypes().Has(mc.FeatureType) {
				f.ProcessMember(mc)
			}
		}
	}

	obj := &Customer{LastName: "Smith"}

	first := newFieldContext(cc, "FirstName")
	process(first)
	assert.False(t, first.Holder.ContainsFacet(KindHide))
	assert.True(t, rec.contains("HideFirstName has signature func() string, expected func() bool"))

	validate, ok := facetapi.As[*ValidateFacet](first.Holder, KindValidate)
	require.True(t, ok)
	reason, err := validate.Invalidates(obj, "")
	require.NoError(t, err)
	assert.Equal(t, "required", reason)

	choices, ok := facetapi.As[ChoicesProvider](first.Holder, KindPropertyChoices)
	require.True(t, ok)
	values, err := choices.Choices(obj)
	require.NoError(t, err)
	assert.Equal(t, []any{"Ann", "Bob"}, values)

	def, ok := facetapi.As[DefaultProvider](first.Holder, KindPropertyDefault)
	require.True(t, ok)
	v, err := def.Default(obj)
	require.NoError(t, err)
	assert.Equal(t, "Ann", v)

	last := newFieldContext(cc, "LastName")
	process(last)
	disable, ok := facetapi.As[*DisableFacet](last.Holder, KindDisable)
	require.True(t, ok)
	reason, err = disable.Disables(obj)
	require.NoError(t, err)
	assert.Equal(t, "locked", reason)

	ac, ok := facetapi.As[*AutoCompleteFacet](last.Holder, KindAutoComplete)
	require.True(t, ok)
	values, err = ac.AutoComplete(obj, "John")
	require.NoError(t, err)
	assert.Equal(t, []any{"Johnson"}, values)
	values, err = ac.AutoComplete(obj, "")
	require.NoError(t, err)
	assert.Empty(t, values)

	nick := newFieldContext(cc, "Nickname")
	process(nick)
	hide, ok := facetapi.As[*HideFacet](nick.Holder, KindHide)
	require.True(t, ok)
	hidden, err := hide.Hides(obj)
	require.NoError(t, err)
	assert.True(t, hidden)

	for _, name := range []string{"HideNickname", "HideFirstName", "DisableLastName", "ValidateFirstName",
		"ChoicesFirstName", "DefaultFirstName", "AutoCompleteLastName"} {
		assert.True(t, cc.Methods.IsRemoved(name), name)
	}
}

func TestActionFactories(t *testing.T) {
	reg := &scan.Registration{Type: customerType}
	scan.WithAction("Rename", annotation.Action{
		Semantics:     annotation.Idempotent,
		Sequence:      "3",
		AssociateWith: "Orders",
		Params: []annotation.Parameter{
			{Named: "First", MaxLength: 20},
			{Optional: true, Regex: "["},
			{Named: "Extra"},
		},
	})(reg)
	cc, rec := newClassContext(customerType, reg)

	ac := newActionContext(cc, "Rename")
	NewActionInvocationFactory().ProcessMember(ac)
	NewActionAnnotationFactory().ProcessMember(ac)
	NewValidateMethodFactory().ProcessMember(ac)

	inv, ok := facetapi.As[*InvocationFacet](ac.Holder, KindInvocation)
	require.True(t, ok)
	assert.Len(t, inv.ParamTypes(), 2)

	obj := &Customer{}
	result, err := inv.Invoke(context.Background(), obj, "Ann", "Lee")
	require.NoError(t, err)
	assert.Same(t, obj, result)
	assert.Equal(t, "Lee", obj.LastName)

	_, err = inv.Invoke(context.Background(), obj, "", "Lee")
	assert.EqualError(t, err, "first name required")

	_, err = inv.Invoke(context.Background(), obj, "Ann")
	assert.Error(t, err)

	sem, _ := facetapi.As[*SemanticsFacet](ac.Holder, KindSemantics)
	assert.Equal(t, annotation.Idempotent, sem.Semantics())
	order, _ := facetapi.As[*MemberOrderFacet](ac.Holder, KindMemberOrder)
	assert.Equal(t, "3", order.Sequence())
	assert.Equal(t, "Orders", order.Group())
	assoc, _ := facetapi.As[*AssociatedWithFacet](ac.Holder, KindAssociatedWith)
	assert.Equal(t, "Orders", assoc.Collection())

	assert.True(t, rec.contains("3 parameters declared but the action takes 2"))
	assert.True(t, rec.contains("ValidateRename has signature func(string) string, expected func(string, string) string"))

	p0 := newParamContext(ac, 0)
	NewParameterAnnotationFactory().ProcessParameter(p0)
	NewChoicesMethodFactory().ProcessParameter(p0)
	named, _ := facetapi.As[*TextFacet](p0.Holder, KindNamed)
	assert.Equal(t, "First", named.Value())
	maxLen, _ := facetapi.As[*IntFacet](p0.Holder, KindMaxLength)
	assert.Equal(t, 20, maxLen.Value())
	assert.True(t, p0.Holder.ContainsFacet(KindParamChoices))

	p1 := newParamContext(ac, 1)
	NewParameterAnnotationFactory().ProcessParameter(p1)
	NewValidateMethodFactory().ProcessParameter(p1)
	m, _ := facetapi.As[*MandatoryFacet](p1.Holder, KindMandatory)
	assert.True(t, m.IsOptional())
	assert.True(t, p1.Holder.ContainsFacet(KindValidate))
	assert.True(t, rec.contains(`invalid regex "["`))

	list := newActionContext(cc, "ListOrders")
	NewActionInvocationFactory().ProcessMember(list)
	typeOf, ok := facetapi.As[*TypeOfFacet](list.Holder, KindTypeOf)
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(Order{}), typeOf.ElementType())

	explode := newActionContext(cc, "Explode")
	NewActionInvocationFactory().ProcessMember(explode)
	inv, _ = facetapi.As[*InvocationFacet](explode.Holder, KindInvocation)
	_, err = inv.Invoke(context.Background(), obj)
	assert.ErrorContains(t, err, "panicked: boom")
}

func TestLayoutFactory(t *testing.T) {
	fsys := fstest.MapFS{
		"facets.Customer.layout.yaml": {Data: []byte(`
named: Client
members:
  FirstName:
    named: Forename
    group: Names
  Orders:
    hidden: tables
  Missing:
    named: Nothing
`)},
	}
	cfg := DefaultConfig()
	cfg.Layouts = layout.NewReader(fsys)
	f := NewLayoutFactory(cfg)

	cc, rec := newClassContext(customerType, nil)
	cc.Holder.AddFacet(NewTextFacet(KindNamed, "Customer", facetapi.PrecedenceAnnotation, cc.Holder))
	f.ProcessClass(cc)
	named, _ := facetapi.As[*TextFacet](cc.Holder, KindNamed)
	assert.Equal(t, "Client", named.Value())
	assert.Equal(t, facetapi.PrecedenceLayout, named.Precedence())
	assert.True(t, rec.contains(`unknown member "Missing"`))

	first := newFieldContext(cc, "FirstName")
	NewPropertyAnnotationFactory().ProcessMember(first)
	first.Holder.AddFacet(NewMemberOrderFacet("1", "", facetapi.PrecedenceAnnotation, first.Holder))
	f.ProcessMember(first)
	named, _ = facetapi.As[*TextFacet](first.Holder, KindNamed)
	assert.Equal(t, "Forename", named.Value())
	order, _ := facetapi.As[*MemberOrderFacet](first.Holder, KindMemberOrder)
	assert.Equal(t, "1", order.Sequence())
	assert.Equal(t, "Names", order.Group())

	orders := newFieldContext(cc, "Orders")
	f.ProcessMember(orders)
	hidden, _ := facetapi.As[*HiddenFacet](orders.Holder, KindHidden)
	assert.True(t, hidden.HiddenIn(annotation.Tables))
	assert.False(t, hidden.HiddenIn(annotation.Forms))
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix("HideName", "Hide"))
	assert.True(t, HasPrefix("Choices0Rename", "Choices"))
	assert.False(t, HasPrefix("Hidden", "Hide"))
	assert.False(t, HasPrefix("Hide", "Hide"))
	assert.False(t, HasPrefix("Validate", "Validate"))
}

func TestCompareSequence(t *testing.T) {
	assert.Negative(t, CompareSequence("1", "2"))
	assert.Negative(t, CompareSequence("1.2", "1.10"))
	assert.Negative(t, CompareSequence("1", "1.1"))
	assert.Positive(t, CompareSequence("", "9"))
	assert.Zero(t, CompareSequence("2.1", "2.1"))
}
