package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			skipSetupAnnotation: "true",
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "orion %s (%s, %s)\n", version, commit, runtime.Version())
		},
	}
}
