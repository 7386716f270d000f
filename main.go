// Brandlens - Graph-powered competitive intelligence engine.
//
// Brandlens builds a knowledge graph from per-query brand analysis
// records, surfacing opportunity gaps, contested topics, and a ranked
// list of improvement actions.
package main

import (
	"fmt"
	"os"

	"github.com/brandlens/brandlens-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
