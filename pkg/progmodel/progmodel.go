// Package progmodel assembles the programming model: the ordered facet factories,
// the post-processors and the validators the specification loader runs.
package progmodel

import (
	"sort"

	"github.com/conduit-lang/metamodel/pkg/facets"
	"github.com/conduit-lang/metamodel/pkg/postprocess"
	"github.com/conduit-lang/metamodel/pkg/validate"
)

// Step groups factories. Factories run step by step and, within a step, in the
// order they were added.
type Step int

const (
	StepFallback Step = iota
	StepObject
	StepMembers
	StepSupporting
	StepActions
	StepLayout
)

// Config configures the default programming model
type Config struct {
	Facets     facets.Config
	Validation validate.Config
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Facets:     facets.DefaultConfig(),
		Validation: validate.DefaultConfig(),
	}
}

type entry struct {
	step    Step
	seq     int
	factory facets.Factory
}

// ProgrammingModel is the set of factories, post-processors and validators
type ProgrammingModel struct {
	entries        []entry
	postProcessors []postprocess.PostProcessor
	validators     []validate.Validator
	// prefixes of factories removed by Without; their methods still never become actions
	reserved []string
}

// New creates an empty programming model
func New() *ProgrammingModel {
	return &ProgrammingModel{}
}

// Default creates the standard programming model
func Default(cfg Config) *ProgrammingModel {
	pm := New()

	pm.AddFactory(StepFallback, facets.NewFallbackFactory(cfg.Facets))

	pm.AddFactory(StepObject, facets.NewObjectTypeFactory())
	pm.AddFactory(StepObject, facets.NewDomainObjectFactory())
	pm.AddFactory(StepObject, facets.NewValueFactory())
	pm.AddFactory(StepObject, facets.NewTitleFactory())
	pm.AddFactory(StepObject, facets.NewIconAndCssFactory())
	pm.AddFactory(StepObject, facets.NewLifecycleFactory())
	pm.AddFactory(StepObject, facets.NewObjectValidateAndDisableFactory())

	pm.AddFactory(StepMembers, facets.NewAccessorFactory())
	pm.AddFactory(StepMembers, facets.NewPropertyAnnotationFactory())
	pm.AddFactory(StepMembers, facets.NewMandatoryFromTypeFactory())

	pm.AddFactory(StepSupporting, facets.NewHideMethodFactory())
	pm.AddFactory(StepSupporting, facets.NewDisableMethodFactory())
	pm.AddFactory(StepSupporting, facets.NewValidateMethodFactory())
	pm.AddFactory(StepSupporting, facets.NewChoicesMethodFactory())
	pm.AddFactory(StepSupporting, facets.NewDefaultMethodFactory())
	pm.AddFactory(StepSupporting, facets.NewAutoCompleteMethodFactory(cfg.Facets))

	pm.AddFactory(StepActions, facets.NewActionInvocationFactory())
	pm.AddFactory(StepActions, facets.NewActionAnnotationFactory())
	pm.AddFactory(StepActions, facets.NewParameterAnnotationFactory())

	pm.AddFactory(StepLayout, facets.NewLayoutFactory(cfg.Facets))

	pm.AddPostProcessor(postprocess.ChoicesFromType{})
	pm.AddPostProcessor(postprocess.DefaultFromType{})
	pm.AddPostProcessor(postprocess.ChoicesFromParentedCollection{})
	pm.AddPostProcessor(postprocess.DisabledFromImmutable{})
	pm.AddPostProcessor(postprocess.IdentityFromKeys{})

	v := cfg.Validation
	if v.CheckOrphans {
		pm.AddValidator(validate.OrphanedSupportingMethods{AllowDeprecated: v.AllowDeprecated})
	}
	pm.AddValidator(validate.ObjectTypeValidator{Explicit: v.ExplicitObjectType})
	pm.AddValidator(validate.IdentityValidator{})
	pm.AddValidator(validate.ChoicesAndAutoCompleteValidator{})
	pm.AddValidator(validate.AssociatedWithValidator{})
	if v.CheckUnknownTypes {
		pm.AddValidator(validate.UnknownTypesValidator{})
	}
	pm.AddValidator(validate.ValueConstraintsValidator{})

	return pm
}

// AddFactory appends a factory to a step
func (pm *ProgrammingModel) AddFactory(step Step, f facets.Factory) {
	pm.entries = append(pm.entries, entry{step: step, seq: len(pm.entries), factory: f})
}

// AddPostProcessor appends a post-processor
func (pm *ProgrammingModel) AddPostProcessor(p postprocess.PostProcessor) {
	pm.postProcessors = append(pm.postProcessors, p)
}

// AddValidator appends a validator
func (pm *ProgrammingModel) AddValidator(v validate.Validator) {
	pm.validators = append(pm.validators, v)
}

// Factories returns the factories in processing order
func (pm *ProgrammingModel) Factories() []facets.Factory {
	sorted := make([]entry, len(pm.entries))
	copy(sorted, pm.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].step != sorted[j].step {
			return sorted[i].step < sorted[j].step
		}
		return sorted[i].seq < sorted[j].seq
	})
	result := make([]facets.Factory, len(sorted))
	for i, e := range sorted {
		result[i] = e.factory
	}
	return result
}

// PostProcessors returns the post-processors in order
func (pm *ProgrammingModel) PostProcessors() []postprocess.PostProcessor {
	return append([]postprocess.PostProcessor(nil), pm.postProcessors...)
}

// Validators returns the validators in order
func (pm *ProgrammingModel) Validators() []validate.Validator {
	return append([]validate.Validator(nil), pm.validators...)
}

// Prefixes returns every supporting method prefix, including deprecated ones
func (pm *ProgrammingModel) Prefixes() []string {
	seen := make(map[string]bool)
	var result []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	for _, f := range pm.Factories() {
		if pf, ok := f.(facets.PrefixedFactory); ok {
			for _, p := range pf.Prefixes() {
				add(p)
			}
		}
	}
	for _, p := range pm.reserved {
		add(p)
	}
	add(facets.PrefixClear)
	add(facets.PrefixModify)
	return result
}

// Without returns a copy of the model without the named factories,
// post-processors and validators. The prefixes of removed factories stay
// reserved, so their methods are reported as orphans instead of becoming actions.
func (pm *ProgrammingModel) Without(names ...string) *ProgrammingModel {
	excluded := make(map[string]bool, len(names))
	for _, n := range names {
		excluded[n] = true
	}

	result := New()
	result.reserved = append(result.reserved, pm.reserved...)
	for _, e := range pm.entries {
		if !excluded[e.factory.Name()] {
			result.entries = append(result.entries, e)
			continue
		}
		if pf, ok := e.factory.(facets.PrefixedFactory); ok {
			result.reserved = append(result.reserved, pf.Prefixes()...)
		}
	}
	for _, p := range pm.postProcessors {
		if !excluded[p.Name()] {
			result.postProcessors = append(result.postProcessors, p)
		}
	}
	for _, v := range pm.validators {
		if !excluded[v.Name()] {
			result.validators = append(result.validators, v)
		}
	}
	return result
}

// Names lists the names of all factories, post-processors and validators in order
func (pm *ProgrammingModel) Names() []string {
	var names []string
	for _, f := range pm.Factories() {
		names = append(names, f.Name())
	}
	for _, p := range pm.postProcessors {
		names = append(names, p.Name())
	}
	for _, v := range pm.validators {
		names = append(names, v.Name())
	}
	return names
}
