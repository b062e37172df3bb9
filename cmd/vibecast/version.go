package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is stamped by the release build; source builds fall back to module
// build info.
var version = "dev"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the vibecast version",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			annotationSkipConfig: "true",
		},
		Run: func(cmd *cobra.Command, _ []string) {
			resolved := version
			if resolved == "dev" {
				if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
					resolved = info.Main.Version
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vibecast %s\n", resolved)
		},
	}
}
