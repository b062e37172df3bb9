package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vibecast/internal/compose"
)

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List quality presets",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			annotationSkipConfig: "true",
		},
		Run: func(cmd *cobra.Command, _ []string) {
			rows := make([][]string, 0, 3)
			for _, preset := range compose.Presets() {
				rows = append(rows, []string{
					preset.Name,
					fmt.Sprintf("%dx%d", preset.Width, preset.Height),
					fmt.Sprintf("%d", preset.FPS),
					preset.VideoBitrate,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Preset", "Resolution", "FPS", "Bitrate"}, rows))
		},
	}
}
