package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metamodel/internal/cli/ui"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Build the metamodel and report validation failures",
		Long: `Build the metamodel from every registered domain type and run the validators.

Exits non-zero when any validation failure is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if s.invalid != nil {
				messages := make([]string, len(s.invalid.Failures))
				for i, f := range s.invalid.Failures {
					messages[i] = f.String()
				}
				fmt.Fprint(cmd.ErrOrStderr(), ui.ValidationError(messages, opts.noColor))
				return fmt.Errorf("metamodel is invalid: %d failure(s)", len(messages))
			}

			ui.WriteSuccess(cmd.OutOrStdout(),
				fmt.Sprintf("Metamodel is valid: %d specifications", len(s.snapshot.Specs)), opts.noColor)
			return nil
		},
	}
}
