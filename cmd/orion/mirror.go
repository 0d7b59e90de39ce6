package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neg-0/orion/internal/logging"
	"github.com/neg-0/orion/internal/workspace"
)

var mirrorBindings = flagBindings{
	"root":       "workspace.root",
	"extensions": "workspace.extensions",
}

func newMirrorCommand(a *app) *cobra.Command {
	var clean bool

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Write .txt shadow copies of workspace source files",
		Long: `Copy every workspace file with an allow-listed extension to <file>.txt so
text-only ingestion can read it. With --clean, remove shadow files instead,
including stale ones whose source is gone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.flushMetrics()

			wsCfg := a.workspaceConfig()
			if clean {
				removed, err := workspace.Clean(cmd.Context(), wsCfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "removed %d shadow files under %s\n", removed, wsCfg.Root)
				return nil
			}

			stats, err := workspace.Mirror(cmd.Context(), wsCfg)
			if err != nil {
				return fmt.Errorf("mirror workspace: %w", err)
			}
			a.metrics.AddMirrored(len(stats.Shadows), stats.Bytes)
			fmt.Fprintf(a.out, "%s %d files (%d bytes) under %s\n", green("mirrored"), len(stats.Shadows), stats.Bytes, wsCfg.Root)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clean, "clean", false, "remove shadow files instead of writing them")
	cmd.Flags().String("root", "", "workspace root (default workspace)")
	cmd.Flags().StringSlice("extensions", nil, "extensions to mirror, in order")
	return cmd
}

func (a *app) workspaceConfig() workspace.Config {
	return workspace.Config{
		Root:       a.cfg.Workspace.Root,
		Extensions: a.cfg.Workspace.Extensions,
		Logger:     logging.NewComponentLogger("workspace"),
	}
}
