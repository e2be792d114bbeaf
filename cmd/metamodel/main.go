// Command metamodel builds, validates and exports the metamodel of the domain
// packages linked into it. Domain packages register their types in an init
// function, so a project builds its own copy of this command importing them.
package main

import (
	"os"

	"github.com/conduit-lang/metamodel/internal/cli/commands"

	_ "github.com/conduit-lang/metamodel/examples/petclinic"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
