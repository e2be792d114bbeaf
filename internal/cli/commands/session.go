package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/cli/config"
	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/pkg/scan"
	"github.com/conduit-lang/metamodel/pkg/specloader"
	"github.com/conduit-lang/metamodel/pkg/validate"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

// catalog is the catalog the CLI builds from. Domain packages linked into the
// binary register themselves in scan.Default.
var catalog = scan.Default

// session is a built metamodel plus the configuration it was built with
type session struct {
	config   *config.Config
	logger   *zap.Logger
	loader   *specloader.Loader
	snapshot *metadata.Metadata
	registry *metadata.Registry
	// invalid is set when the metamodel has validation failures
	invalid *validate.InvalidError
}

// open loads the configuration and builds the metamodel. Validation failures
// do not fail open; callers decide whether an invalid metamodel is acceptable.
func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), nil, o.noColor))
		return nil, fmt.Errorf("invalid configuration")
	}
	logger, err := cfg.Logger(o.verbose)
	if err != nil {
		return nil, err
	}
	scanner, err := cfg.Scanner()
	if err != nil {
		return nil, err
	}

	loader := specloader.New(
		specloader.WithCatalog(catalog),
		specloader.WithScanner(scanner),
		specloader.WithProgrammingModel(cfg.BuildProgrammingModel()),
		specloader.WithLogger(logger.Named("loader")),
	)

	s := &session{config: cfg, logger: logger, loader: loader}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := loader.Start(ctx); err != nil && !errors.As(err, &s.invalid) {
		return nil, err
	}

	s.snapshot, err = metadata.Build(loader.Specifications(), loader.Failures()...)
	if err != nil {
		return nil, err
	}
	s.registry = metadata.NewRegistry()
	if err := s.registry.Register(s.snapshot); err != nil {
		return nil, err
	}
	return s, nil
}

// names returns the logical names of every specification, sorted
func (s *session) names() []string {
	names := make([]string, 0, len(s.snapshot.Specs))
	for _, spec := range s.snapshot.Specs {
		names = append(names, spec.Name)
	}
	sort.Strings(names)
	return names
}

// kinds returns every facet kind installed anywhere in the snapshot, sorted
func (s *session) kinds() []string {
	seen := make(map[string]bool)
	add := func(facets []metadata.FacetMetadata) {
		for _, f := range facets {
			seen[f.Kind] = true
		}
	}
	for _, spec := range s.snapshot.Specs {
		add(spec.Facets)
		for _, m := range spec.Properties {
			add(m.Facets)
		}
		for _, m := range spec.Collections {
			add(m.Facets)
		}
		for _, a := range spec.Actions {
			add(a.Facets)
			for _, p := range a.Parameters {
				add(p.Facets)
			}
		}
	}
	kinds := make([]string, 0, len(seen))
	for kind := range seen {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// spec resolves a specification by logical or full type name, writing a
// not-found block with suggestions when it does not exist.
func (s *session) spec(cmd *cobra.Command, name string, noColor bool) (*metadata.SpecMetadata, error) {
	spec, err := s.registry.Spec(name)
	if err != nil {
		suggestions := ui.FindSimilar(name, s.names(), nil)
		fmt.Fprint(cmd.ErrOrStderr(), ui.SpecNotFoundError(name, suggestions, noColor))
		return nil, err
	}
	return spec, nil
}

// close flushes the logger
func (s *session) close() {
	_ = s.logger.Sync()
}
