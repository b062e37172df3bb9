package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vibecast/internal/deps"
	"vibecast/internal/tools"
)

func newDepsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(tools.ExecRunner{}, deps.Requirements(cfg))
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = "missing"
					if status.Optional {
						state = "missing (optional)"
					}
				}
				detail := status.Command
				if status.Detail != "" {
					detail = status.Detail
				}
				rows = append(rows, []string{status.Name, state, detail, status.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tool", "Status", "Path", "Used For"}, rows))

			if !deps.AllRequiredAvailable(statuses) {
				return fmt.Errorf("required tools are missing")
			}
			return nil
		},
	}
}
