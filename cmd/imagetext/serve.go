package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mholler/imagetext/internal/observability"
	"github.com/mholler/imagetext/internal/server"
)

// newServeCmd builds the serve command, which runs the HTTP API until
// interrupted.
func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP extraction API",
		Long: `Runs the extraction service: upload endpoints for single images and
batches, plus health and info routes. The service drains in-flight requests
on SIGINT/SIGTERM before exiting.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			log := observability.NewLogger(observability.LogConfig{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				ServiceName: "imagetext",
			})

			pipeline, err := buildPipeline(cfg, log)
			if err != nil {
				return err
			}

			log.Info().
				Str("version", server.Version).
				Strs("languages", cfg.OCR.Languages).
				Float64("min_confidence", cfg.OCR.MinConfidence).
				Int("max_dimension", cfg.Pipeline.MaxDimension).
				Msg("starting extraction service")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, pipeline, log).Run(ctx)
		},
	}
}
