package commands

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// rootOptions holds the persistent flags shared by every subcommand
type rootOptions struct {
	configPath string
	noColor    bool
	verbose    bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "metamodel",
		Short: "Build, validate and inspect the metamodel of a Go domain",
		Long: color.CyanString(`metamodel - facet-based domain metamodel

Builds an object specification for every registered domain type, decorates
its properties, collections and actions with facets, validates the result and
exports snapshots for other processes.

Configuration is read from metamodel.yaml and METAMODEL_* environment variables.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default ./metamodel.yaml)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newValidateCommand(opts))
	rootCmd.AddCommand(newSpecsCommand(opts))
	rootCmd.AddCommand(newSpecCommand(opts))
	rootCmd.AddCommand(newFacetsCommand(opts))
	rootCmd.AddCommand(newDepsCommand(opts))
	rootCmd.AddCommand(newExportCommand(opts))
	rootCmd.AddCommand(newSnapshotsCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the metamodel version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			for _, row := range [][2]string{
				{"Metamodel version", Version},
				{"Git commit", GitCommit},
				{"Build date", BuildDate},
				{"Go version", goVer},
			} {
				titleColor.Fprintf(out, "%s: ", row[0])
				fmt.Fprintln(out, row[1])
			}
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
