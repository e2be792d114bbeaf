// Package specloader builds the metamodel. Start scans the catalog, introspects
// every reachable type through the programming model, post-processes and
// validates the result, then seals it. Once sealed the specifications are never
// modified and may be read from any goroutine.
package specloader

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/pkg/facetapi"
	"github.com/conduit-lang/metamodel/pkg/facets"
	"github.com/conduit-lang/metamodel/pkg/postprocess"
	"github.com/conduit-lang/metamodel/pkg/progmodel"
	"github.com/conduit-lang/metamodel/pkg/scan"
	"github.com/conduit-lang/metamodel/pkg/spec"
	"github.com/conduit-lang/metamodel/pkg/validate"
)

// ErrAlreadyStarted is returned when Start is called twice
var ErrAlreadyStarted = errors.New("specification loader already started")

// Loader builds and caches the object specifications
type Loader struct {
	catalog *scan.Catalog
	scanner *scan.Scanner
	model   *progmodel.ProgrammingModel
	logger  *zap.Logger

	startMu   sync.Mutex
	started   atomic.Bool
	sealed    atomic.Bool
	specs     map[reflect.Type]*spec.ObjectSpecification
	byName    map[string]*spec.ObjectSpecification
	sorted    []*spec.ObjectSpecification
	queue     []*spec.ObjectSpecification
	prefixes  []string
	factories []facets.Factory
	failures  *validate.Failures
}

// Option configures a Loader
type Option func(*Loader)

// WithCatalog sets the catalog to scan (default scan.Default)
func WithCatalog(c *scan.Catalog) Option {
	return func(l *Loader) { l.catalog = c }
}

// WithScanner sets the scanner (default: every registered package)
func WithScanner(s *scan.Scanner) Option {
	return func(l *Loader) { l.scanner = s }
}

// WithProgrammingModel sets the programming model (default progmodel.Default)
func WithProgrammingModel(pm *progmodel.ProgrammingModel) Option {
	return func(l *Loader) { l.model = pm }
}

// WithLogger sets the logger (default: no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a loader
func New(opts ...Option) *Loader {
	l := &Loader{
		catalog:  scan.Default,
		scanner:  &scan.Scanner{},
		logger:   zap.NewNop(),
		specs:    make(map[reflect.Type]*spec.ObjectSpecification),
		byName:   make(map[string]*spec.ObjectSpecification),
		failures: validate.NewFailures(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.model == nil {
		l.model = progmodel.Default(progmodel.DefaultConfig())
	}
	return l
}

// Start builds the metamodel. It returns a *validate.InvalidError listing every
// failure when the metamodel is invalid; the specifications are still available
// for inspection in that case.
func (l *Loader) Start(ctx context.Context) error {
	l.startMu.Lock()
	defer l.startMu.Unlock()

	if l.started.Load() {
		return ErrAlreadyStarted
	}
	l.started.Store(true)
	began := time.Now()

	l.prefixes = l.model.Prefixes()
	l.factories = l.model.Factories()
	registrations := l.scanner.Scan(l.catalog)
	l.logger.Debug("scanned catalog", zap.Int("registrations", len(registrations)))

	for _, reg := range registrations {
		l.specificationFor(reg.Type)
	}
	for len(l.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("metamodel build cancelled: %w", err)
		}
		s := l.queue[0]
		l.queue = l.queue[1:]
		l.introspect(s)
	}

	l.sorted = sortedSpecs(l.specs)
	for _, s := range l.sorted {
		if _, taken := l.byName[s.LogicalName()]; !taken {
			l.byName[s.LogicalName()] = s
		}
	}

	for _, pp := range l.model.PostProcessors() {
		for _, s := range l.sorted {
			l.postProcess(pp, s)
		}
	}

	for _, v := range l.model.Validators() {
		l.runValidator(v)
	}

	l.sealed.Store(true)
	l.logger.Info("metamodel built",
		zap.Int("specifications", len(l.sorted)),
		zap.Int("failures", l.failures.Len()),
		zap.Duration("elapsed", time.Since(began)),
	)

	if err := l.failures.Err(); err != nil {
		for _, f := range l.failures.All() {
			l.logger.Error("metamodel validation failure",
				zap.String("identifier", f.Identifier.String()),
				zap.String("message", f.Message),
			)
		}
		return err
	}
	return nil
}

// IsSealed reports whether Start has completed
func (l *Loader) IsSealed() bool {
	return l.sealed.Load()
}

// SpecificationFor returns the specification of t. Pointer types resolve to their
// element type. Until Start completes, and for types outside the metamodel, it
// returns false.
func (l *Loader) SpecificationFor(t reflect.Type) (*spec.ObjectSpecification, bool) {
	if !l.sealed.Load() {
		return nil, false
	}
	return builder{l}.SpecificationFor(t)
}

// SpecificationOf returns the specification of v's type
func (l *Loader) SpecificationOf(v any) (*spec.ObjectSpecification, bool) {
	if v == nil {
		return nil, false
	}
	return l.SpecificationFor(reflect.TypeOf(v))
}

// LookupByLogicalName returns the specification with the given object type, e.g.
// "petclinic.Owner". When two types share a name the first by full type name wins.
func (l *Loader) LookupByLogicalName(name string) (*spec.ObjectSpecification, bool) {
	if !l.sealed.Load() {
		return nil, false
	}
	s, ok := l.byName[name]
	return s, ok
}

// Specifications returns every specification sorted by full type name, or nil
// until Start completes
func (l *Loader) Specifications() []*spec.ObjectSpecification {
	if !l.sealed.Load() {
		return nil
	}
	return builder{l}.Specifications()
}

// Failures returns the metadata failures found while building
func (l *Loader) Failures() []validate.Failure {
	return l.failures.All()
}

// ProgrammingModel returns the programming model the loader runs
func (l *Loader) ProgrammingModel() *progmodel.ProgrammingModel {
	return l.model
}

// specificationFor returns the cached specification of t, creating and queueing
// it for introspection on first reference. Types that cannot have a
// specification (interfaces, functions, channels, unnamed composites) yield nil.
func (l *Loader) specificationFor(t reflect.Type) *spec.ObjectSpecification {
	t = scan.Normalize(t)
	if !specifiable(t) {
		return nil
	}
	if s, ok := l.specs[t]; ok {
		return s
	}
	reg, _ := l.catalog.Lookup(t)
	s := spec.New(t, reg, builder{l})
	l.specs[t] = s
	l.queue = append(l.queue, s)
	return s
}

// reference creates the specification of a type a member refers to. Collections
// refer to their element type.
func (l *Loader) reference(t reflect.Type) {
	t = scan.Normalize(t)
	if facets.IsCollectionType(t) {
		t = scan.Normalize(facets.ElementType(t))
	}
	l.specificationFor(t)
}

// builder resolves specifications without waiting for the seal. Post-processors
// use it while Start runs; afterwards it only reads the sealed maps.
type builder struct {
	l *Loader
}

func (b builder) SpecificationFor(t reflect.Type) (*spec.ObjectSpecification, bool) {
	if t == nil {
		return nil, false
	}
	s, ok := b.l.specs[scan.Normalize(t)]
	return s, ok
}

func (b builder) Specifications() []*spec.ObjectSpecification {
	if b.l.sorted == nil {
		return sortedSpecs(b.l.specs)
	}
	result := make([]*spec.ObjectSpecification, len(b.l.sorted))
	copy(result, b.l.sorted)
	return result
}

func specifiable(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return false
	}
	return t.Name() != ""
}

func sortedSpecs(specs map[reflect.Type]*spec.ObjectSpecification) []*spec.ObjectSpecification {
	result := make([]*spec.ObjectSpecification, 0, len(specs))
	for _, s := range specs {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FullName() < result[j].FullName()
	})
	return result
}

func (l *Loader) postProcess(pp postprocess.PostProcessor, s *spec.ObjectSpecification) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("post-processor panicked",
				zap.String("postProcessor", pp.Name()),
				zap.String("spec", s.FullName()),
				zap.Any("panic", r),
			)
			l.failures.Add(s.Identifier(), "post-processor %s panicked: %v", pp.Name(), r)
		}
	}()
	if err := pp.PostProcess(s, l.failures); err != nil {
		l.logger.Warn("post-processor failed",
			zap.String("postProcessor", pp.Name()),
			zap.String("spec", s.FullName()),
			zap.Error(err),
		)
		l.failures.Add(s.Identifier(), "post-processor %s failed: %v", pp.Name(), err)
	}
}

func (l *Loader) runValidator(v validate.Validator) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("validator panicked", zap.String("validator", v.Name()), zap.Any("panic", r))
			l.failures.Add(facetapi.TypeIdentifier("metamodel"), "validator %s panicked: %v", v.Name(), r)
		}
	}()
	v.Validate(l.sorted, l.failures)
}
