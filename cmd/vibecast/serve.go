package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vibecast/internal/api"
)

func newServeCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Serve the generation API: POST /video/generate accepts a script, GET /video/progress/{id} streams server-sent events, GET /video/status/{id} and /video/tasks report task state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.logger()
			if err != nil {
				return err
			}

			rt, err := buildRuntime(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			server := api.NewServer(api.Options{
				Logger:    logger,
				Observer:  rt.observer,
				Generator: rt.generator,
				Journal:   rt.journal,
			})

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return server.ListenAndServe(ctx, cfg.Paths.APIBind)
		},
	}
}
