package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

// askOne is replaced in tests
var askOne = survey.AskOne

func newSpecsCommand(opts *rootOptions) *cobra.Command {
	var nature string
	var all bool

	cmd := &cobra.Command{
		Use:   "specs [pattern]",
		Short: "List object specifications",
		Long: `List the object specifications of the metamodel.

The optional pattern is a glob matched against logical names, for example
"petclinic.*" or "*.Owner". Only registered domain types are listed unless --all
is given.`,
		Example: `  metamodel specs
  metamodel specs 'petclinic.*' --nature entity
  metamodel specs --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			pattern := "**"
			if len(args) == 1 {
				pattern = args[0]
			}
			specs, err := s.registry.SpecsByPattern(pattern)
			if err != nil {
				return err
			}

			table := ui.NewTable(cmd.OutOrStdout(),
				[]string{"NAME", "NATURE", "PROPERTIES", "COLLECTIONS", "ACTIONS", "TYPE"},
				&ui.TableOptions{NoColor: opts.noColor})
			for _, spec := range specs {
				if !all && !spec.Registered {
					continue
				}
				if nature != "" && spec.Nature != nature {
					continue
				}
				table.AddRow(spec.Name, spec.Nature,
					strconv.Itoa(len(spec.Properties)),
					strconv.Itoa(len(spec.Collections)),
					strconv.Itoa(len(spec.Actions)),
					spec.Type)
			}
			if table.Len() == 0 {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(fmt.Sprintf("No specifications match '%s'.", pattern), nil, opts.noColor))
				return nil
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&nature, "nature", "", "Only list specifications of this nature (entity, view_model, value, ...)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include value and builtin types that were not registered")
	return cmd
}

func newSpecCommand(opts *rootOptions) *cobra.Command {
	var interactive bool
	var member string

	cmd := &cobra.Command{
		Use:   "spec [name]",
		Short: "Show one object specification with its members and facets",
		Example: `  metamodel spec petclinic.Owner
  metamodel spec petclinic.Owner --member AddPet
  metamodel spec --interactive`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			var name string
			switch {
			case len(args) == 1:
				name = args[0]
			case interactive:
				prompt := &survey.Select{
					Message: "Select a specification:",
					Options: s.names(),
				}
				if err := askOne(prompt, &name); err != nil {
					return err
				}
			default:
				return fmt.Errorf("specification name required (or use --interactive)")
			}

			spec, err := s.spec(cmd, name, opts.noColor)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if member != "" {
				return writeMember(cmd, spec, member, opts.noColor)
			}
			writeSpec(out, spec, opts.noColor)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Pick the specification from a list")
	cmd.Flags().StringVarP(&member, "member", "m", "", "Show the facets of one member")
	return cmd
}

func writeSpec(w io.Writer, spec *metadata.SpecMetadata, noColor bool) {
	ui.Header(w, spec.Name, noColor)

	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Type", spec.Type)
	kv.AddRow("Nature", spec.Nature)
	kv.AddRow("Singular", spec.Singular)
	kv.AddRow("Plural", spec.Plural)
	if spec.Description != "" {
		kv.AddRow("Description", spec.Description)
	}
	if spec.Superclass != "" {
		kv.AddRow("Superclass", spec.Superclass)
	}
	if spec.Immutable {
		kv.AddRow("Immutable", "yes")
	}
	kv.Render()
	fmt.Fprintln(w)

	facets := ui.NewSection(w, "Facets", noColor)
	for _, f := range spec.Facets {
		facets.AddLine("%s", formatFacet(f))
	}
	facets.Render()

	properties := ui.NewSection(w, "Properties", noColor)
	for _, p := range spec.Properties {
		properties.AddLine("%s", formatMember(p))
	}
	properties.Render()

	collections := ui.NewSection(w, "Collections", noColor)
	for _, c := range spec.Collections {
		collections.AddLine("%s", formatMember(c))
	}
	collections.Render()

	actions := ui.NewSection(w, "Actions", noColor)
	for _, a := range spec.Actions {
		params := make([]string, len(a.Parameters))
		for i, p := range a.Parameters {
			params[i] = p.Name + " " + typeLabel(p.Type, p.Reference, p.Optional)
		}
		actions.AddLine("%s(%s) %s", a.ID, strings.Join(params, ", "), typeLabel(a.Type, a.Reference, false))
	}
	actions.Render()

	if len(spec.Orphans) > 0 {
		orphans := ui.NewSection(w, "Orphaned supporting methods", noColor)
		for _, o := range spec.Orphans {
			orphans.AddLine("%s", o)
		}
		orphans.Render()
	}
}

func writeMember(cmd *cobra.Command, spec *metadata.SpecMetadata, id string, noColor bool) error {
	var found *metadata.MemberMetadata
	var params []metadata.ParameterMetadata
	var ids []string
	for i := range spec.Properties {
		ids = append(ids, spec.Properties[i].ID)
		if spec.Properties[i].ID == id {
			found = &spec.Properties[i]
		}
	}
	for i := range spec.Collections {
		ids = append(ids, spec.Collections[i].ID)
		if spec.Collections[i].ID == id {
			found = &spec.Collections[i]
		}
	}
	for i := range spec.Actions {
		ids = append(ids, spec.Actions[i].ID)
		if spec.Actions[i].ID == id {
			found = &spec.Actions[i].MemberMetadata
			params = spec.Actions[i].Parameters
		}
	}
	if found == nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.MemberNotFoundError(spec.Name, id, ui.FindSimilar(id, ids, nil), noColor))
		return fmt.Errorf("member not found: %s#%s", spec.Name, id)
	}

	w := cmd.OutOrStdout()
	ui.Header(w, spec.Name+"#"+found.ID, noColor)
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Name", found.Name)
	kv.AddRow("Type", typeLabel(found.Type, found.Reference, found.Optional))
	if found.Sequence != "" {
		kv.AddRow("Sequence", found.Sequence)
	}
	kv.Render()
	fmt.Fprintln(w)

	table := ui.NewTable(w, []string{"FACET", "PRECEDENCE", "ATTRIBUTES"}, &ui.TableOptions{NoColor: noColor})
	for _, f := range found.Facets {
		table.AddRow(f.Kind, f.Precedence, formatAttributes(f.Attributes))
	}
	table.Render()

	for _, p := range params {
		fmt.Fprintln(w)
		section := ui.NewSection(w, fmt.Sprintf("Parameter %d: %s %s", p.Index, p.Name, typeLabel(p.Type, p.Reference, p.Optional)), noColor)
		for _, f := range p.Facets {
			section.AddLine("%s", formatFacet(f))
		}
		section.Render()
	}
	return nil
}

func formatMember(m metadata.MemberMetadata) string {
	label := m.ID + " " + typeLabel(m.Type, m.Reference, m.Optional)
	if m.Name != m.ID {
		label += fmt.Sprintf(" %q", m.Name)
	}
	if m.Sequence != "" {
		label += " @" + m.Sequence
	}
	return label
}

func typeLabel(typeName, reference string, optional bool) string {
	label := typeName
	if reference != "" && reference != typeName {
		label += " -> " + reference
	}
	if optional {
		label += "?"
	}
	return label
}

func formatFacet(f metadata.FacetMetadata) string {
	s := f.Kind + " [" + f.Precedence + "]"
	if attrs := formatAttributes(f.Attributes); attrs != "" {
		s += " " + attrs
	}
	return s
}

func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return strings.Join(parts, " ")
}
