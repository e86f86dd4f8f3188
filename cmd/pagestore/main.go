// Command pagestore is an introspection tool for kv-backed page-storage
// datasets, mirroring the teacher's tool/tool.go pattern of a cobra root
// command wrapping a small set of subcommands. It is a caller of the
// pagestore engine, not part of it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "pagestore",
		Short: "introspection tools for kv-backed page-storage datasets",
	}
	root.AddCommand(newInspectCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
