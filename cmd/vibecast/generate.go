package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vibecast/internal/pipeline"
	"vibecast/internal/podcast"
)

func newGenerateCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		quality    string
		outputName string
	)

	cmd := &cobra.Command{
		Use:   "generate <document.json>",
		Short: "Generate a video from a podcast script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.logger()
			if err != nil {
				return err
			}

			doc, err := podcast.Read(args[0])
			if err != nil {
				return err
			}

			rt, err := buildRuntime(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			name := strings.TrimSpace(outputName)
			if name == "" {
				name = defaultOutputName(doc)
			}

			started := time.Now()
			result, err := rt.generator.Run(ctx, pipeline.Request{
				Document:   doc,
				TaskID:     uuid.NewString(),
				Quality:    quality,
				OutputName: name,
			})
			if err != nil {
				return err
			}

			rows := [][]string{{"Video", result.VideoPath}}
			if result.AudioPath != "" {
				rows = append(rows, []string{"Audio", result.AudioPath})
			}
			rows = append(rows,
				[]string{"Clips", fmt.Sprintf("%d", result.Clips)},
				[]string{"Duration", fmt.Sprintf("%.1fs", result.Duration)},
				[]string{"Elapsed", time.Since(started).Round(time.Second).String()},
			)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&quality, "quality", "q", "", "quality preset (fast, balanced, maximum)")
	cmd.Flags().StringVarP(&outputName, "output", "o", "", "output file name without extension")
	return cmd
}

// defaultOutputName derives a filesystem-safe name from the document title,
// falling back to a timestamp.
func defaultOutputName(doc *podcast.Document) string {
	title := strings.TrimSpace(doc.Metadata.Title)
	if title == "" {
		return "vibecast-" + time.Now().UTC().Format("20060102-150405")
	}
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "vibecast-" + time.Now().UTC().Format("20060102-150405")
	}
	return name
}
