package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metamodel/internal/cli/ui"
)

func newFacetsCommand(opts *rootOptions) *cobra.Command {
	var specName string

	cmd := &cobra.Command{
		Use:   "facets <kind>",
		Short: "List every holder carrying a facet of one kind",
		Example: `  metamodel facets maxLength
  metamodel facets named --spec petclinic.Owner`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			filter := ""
			if specName != "" {
				spec, err := s.spec(cmd, specName, opts.noColor)
				if err != nil {
					return err
				}
				filter = spec.Type
			}

			refs := s.registry.FacetsByKind(args[0])
			table := ui.NewTable(cmd.OutOrStdout(),
				[]string{"SPECIFICATION", "MEMBER", "PRECEDENCE", "ATTRIBUTES"},
				&ui.TableOptions{NoColor: opts.noColor})
			for _, ref := range refs {
				if filter != "" && ref.Spec != filter {
					continue
				}
				name := ref.Spec
				if spec, err := s.registry.Spec(ref.Spec); err == nil {
					name = spec.Name
				}
				member := ref.Member
				if member == "" {
					member = "-"
				}
				table.AddRow(name, member, ref.Facet.Precedence, formatAttributes(ref.Facet.Attributes))
			}

			if table.Len() == 0 {
				var suggestions []string
				if best := ui.FindBestMatch(args[0], s.kinds(), nil); best != "" && best != args[0] {
					suggestions = []string{best}
				}
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning(fmt.Sprintf("No facets of kind '%s'.", args[0]), suggestions, opts.noColor))
				return nil
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&specName, "spec", "s", "", "Only list facets of this specification")
	return cmd
}
