package main

import (
	"github.com/spf13/cobra"
)

const annotationSkipConfig = "skipConfigLoad"

// Execute runs the vibecast CLI.
func Execute() error {
	cmdCtx := &commandContext{}
	root := newRootCommand(cmdCtx)
	return root.Execute()
}

func newRootCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vibecast",
		Short:         "Turn podcast scripts into narrated videos",
		Long:          "vibecast renders a structured podcast script into a narrated video: visuals are rendered in a headless browser, dialogue is synthesized, and ffmpeg assembles the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cmdCtx.ensureConfig()
			return err
		},
	}

	cmd.PersistentFlags().StringVarP(&cmdCtx.configFlag, "config", "c", "", "path to the configuration file")

	cmd.AddCommand(
		newGenerateCommand(cmdCtx),
		newServeCommand(cmdCtx),
		newDepsCommand(cmdCtx),
		newPresetsCommand(),
		newConfigCommand(cmdCtx),
		newVersionCommand(),
	)
	return cmd
}

// shouldSkipConfig walks up the command chain looking for the skip annotation
// so subcommands of annotated groups inherit it.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for current := cmd; current != nil; current = current.Parent() {
		if current.Annotations[annotationSkipConfig] == "true" {
			return true
		}
	}
	return false
}
