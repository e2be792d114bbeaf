package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

func newDepsCommand(opts *rootOptions) *cobra.Command {
	var depth int
	var reverse bool
	var types []string
	var cycles bool

	cmd := &cobra.Command{
		Use:   "deps [name]",
		Short: "Show the references between specifications",
		Long: `Show what a specification references through its properties, collections,
action parameters and return types, or with --reverse what references it.

With --cycles, report every reference cycle in the metamodel instead.`,
		Example: `  metamodel deps petclinic.Owner
  metamodel deps petclinic.Vet --reverse
  metamodel deps petclinic.Owner --depth 1 --type property,collection
  metamodel deps --cycles`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cycles && len(args) == 0 {
				return fmt.Errorf("specification name required (or use --cycles)")
			}
			for _, t := range types {
				if !validRelationship(t) {
					return fmt.Errorf("unknown relationship %q", t)
				}
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			out := cmd.OutOrStdout()
			graph := s.registry.Graph()
			if cycles {
				found := metadata.DetectCycles(graph)
				if len(found) == 0 {
					ui.WriteSuccess(out, "No reference cycles", opts.noColor)
					return nil
				}
				section := ui.NewSection(out, "Reference cycles", opts.noColor)
				for _, cycle := range found {
					names := make([]string, len(cycle))
					for i, id := range cycle {
						names[i] = nodeName(graph, id)
					}
					section.AddLine("%s", strings.Join(names, " -> "))
				}
				section.Render()
				return nil
			}

			spec, err := s.spec(cmd, args[0], opts.noColor)
			if err != nil {
				return err
			}
			sub, err := s.registry.Dependencies(spec.Type, metadata.DependencyOptions{
				Depth:   depth,
				Reverse: reverse,
				Types:   types,
			})
			if err != nil {
				return err
			}

			edges := append([]metadata.DependencyEdge{}, sub.Edges...)
			sort.SliceStable(edges, func(i, j int) bool {
				if edges[i].From != edges[j].From {
					return edges[i].From < edges[j].From
				}
				return edges[i].To < edges[j].To
			})

			table := ui.NewTable(out, []string{"FROM", "RELATIONSHIP", "VIA", "TO"}, &ui.TableOptions{NoColor: opts.noColor})
			for _, e := range edges {
				table.AddRow(nodeName(graph, e.From), e.Relationship, e.Via, nodeName(graph, e.To))
			}
			if table.Len() == 0 {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(fmt.Sprintf("%s has no matching references.", spec.Name), nil, opts.noColor))
				return nil
			}
			table.Render()

			if !reverse {
				d, err := s.registry.DependencyDepth(spec.Type)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nDepth: %d\n", d)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "Maximum traversal depth (0 = unlimited)")
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "Show what references the specification")
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Only follow these relationships (property, collection, returns, parameter, extends)")
	cmd.Flags().BoolVar(&cycles, "cycles", false, "Report reference cycles")
	return cmd
}

func validRelationship(rel string) bool {
	switch rel {
	case metadata.RelProperty, metadata.RelCollection, metadata.RelReturns, metadata.RelParameter, metadata.RelExtends:
		return true
	}
	return false
}

func nodeName(graph *metadata.DependencyGraph, id string) string {
	if n, ok := graph.Nodes[id]; ok && n.Name != "" {
		return n.Name
	}
	return id
}
