// Command sealed runs commands inside fresh, private working directories
// prepared from a declarative sandbox configuration.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sealed/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
