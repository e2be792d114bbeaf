package facets

import (
	"reflect"
	"sort"

	"github.com/conduit-lang/metamodel/pkg/annotation"
	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/layout"
)

// LayoutFactory applies layout files. Layout facets outrank everything declared in code.
type LayoutFactory struct {
	factoryBase
	reader *layout.Reader
}

// NewLayoutFactory creates the layout factory
func NewLayoutFactory(cfg Config) *LayoutFactory {
	return &LayoutFactory{
		factoryBase: factoryBase{name: "Layout", features: facetapi.Objects | facetapi.Members},
		reader:      cfg.Layouts,
	}
}

func (f *LayoutFactory) read(t reflect.Type, h facetapi.Holder, failures Reporter) *layout.Layout {
	if t.Name() == "" {
		return nil
	}
	l, err := f.reader.Read(t.PkgPath(), t.Name())
	if err != nil {
		failures.Add(facetapi.TypeIdentifier(h.Identifier().TypeName), "%v", err)
		return nil
	}
	return l
}

func (f *LayoutFactory) ProcessClass(ctx *ClassContext) {
	l := f.read(ctx.Type, ctx.Holder, ctx.Failures)
	if l == nil {
		return
	}
	h := ctx.Holder
	p := facetapi.PrecedenceLayout
	if l.Named != "" {
		h.AddFacet(NewTextFacet(KindNamed, l.Named, p, h))
	}
	if l.DescribedAs != "" {
		h.AddFacet(NewTextFacet(KindDescribedAs, l.DescribedAs, p, h))
	}
	if l.CssClass != "" {
		h.AddFacet(NewTextFacet(KindCssClass, l.CssClass, p, h))
	}

	names := make([]string, 0, len(l.Members))
	for name := range l.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !hasMember(ctx.Type, name) {
			ctx.Failures.Add(h.Identifier(), "layout %s refers to unknown member %q",
				layout.FileName(ctx.Type.PkgPath(), ctx.Type.Name()), name)
		}
	}
}

func (f *LayoutFactory) ProcessMember(ctx *MemberContext) {
	l := f.read(ctx.Type, ctx.Holder, ctx.Failures)
	if l == nil {
		return
	}
	m, ok := l.Members[ctx.ID]
	if !ok {
		return
	}
	h := ctx.Holder
	id := h.Identifier()
	p := facetapi.PrecedenceLayout

	if m.Named != "" {
		h.AddFacet(NewTextFacet(KindNamed, m.Named, p, h))
	}
	if m.DescribedAs != "" {
		h.AddFacet(NewTextFacet(KindDescribedAs, m.DescribedAs, p, h))
	}
	if m.CssClass != "" {
		h.AddFacet(NewTextFacet(KindCssClass, m.CssClass, p, h))
	}
	if m.Sequence != "" || m.Group != "" {
		seq, group := m.Sequence, m.Group
		if existing, ok := facetapi.As[*MemberOrderFacet](h, KindMemberOrder); ok {
			if seq == "" {
				seq = existing.Sequence()
			}
			if group == "" {
				group = existing.Group()
			}
		}
		h.AddFacet(NewMemberOrderFacet(seq, group, p, h))
	}
	if m.Hidden != "" {
		where, ok := annotation.ParseWhere(m.Hidden)
		if !ok {
			ctx.Failures.Add(id, "invalid hidden value %q in layout", m.Hidden)
		} else {
			h.AddFacet(NewHiddenFacet(where, p, h))
		}
	}
	if m.MultiLine > 0 {
		if ctx.FeatureType != facetapi.Property {
			ctx.Failures.Add(id, "multiLine in layout only applies to properties")
		} else {
			h.AddFacet(NewIntFacet(KindMultiLine, m.MultiLine, p, h))
		}
	}
}

// hasMember reports whether t has an exported field or method of the given name
func hasMember(t reflect.Type, name string) bool {
	if t.Kind() == reflect.Struct {
		if field, ok := t.FieldByName(name); ok && field.IsExported() {
			return true
		}
	}
	_, ok := reflect.PointerTo(t).MethodByName(name)
	return ok
}
