package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mholler/imagetext/internal/config"
	"github.com/mholler/imagetext/internal/extract"
	"github.com/mholler/imagetext/internal/observability"
	"github.com/mholler/imagetext/internal/ocr"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// rootOptions carries the persistent flag values shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	// A missing .env file is fine; real env vars and flags still apply.
	_ = godotenv.Load()

	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "imagetext",
		Short:        "Extract text from photographed scenes",
		Long: `imagetext recovers readable text from photographs of signs, storefronts,
labels and other scene text. It sweeps each image with multiple OCR engines
and preprocessing variants, then cleans and reconstructs the fragments into
sentences.

Run it as an HTTP service (serve) or over local files (extract).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Override log format (json, console)")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newExtractCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig resolves the effective configuration: defaults, then the config
// file and environment, then command line overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	return cfg, nil
}

// buildPipeline wires the recognition engines and the extraction pipeline
// from the resolved configuration. A missing native Tesseract stack is fatal
// here, before any work is accepted.
func buildPipeline(cfg *config.Config, log *observability.Logger) (*extract.Pipeline, error) {
	tess := ocr.NewTesseract(ocr.TesseractConfig{
		TessdataPrefix: cfg.OCR.TessdataPrefix,
		Languages:      cfg.OCR.Languages,
		MinConfidence:  cfg.OCR.MinConfidence,
	})
	if err := tess.Available(); err != nil {
		return nil, fmt.Errorf("tesseract not available: %w", err)
	}

	neural := ocr.NewNeural(ocr.NeuralConfig{
		Endpoint:      cfg.OCR.Neural.Endpoint,
		Timeout:       cfg.OCR.Neural.Timeout,
		Languages:     cfg.OCR.Neural.Languages,
		MinConfidence: cfg.OCR.MinConfidence,
	})
	if neural.Enabled() {
		log.Info().Msgf("neural sidecar at %s", cfg.OCR.Neural.Endpoint)
	}

	pipeline := extract.New(extract.Config{
		MaxDimension:      cfg.Pipeline.MaxDimension,
		Workers:           cfg.Pipeline.Workers,
		Deadline:          cfg.Pipeline.Deadline,
		PassTimeout:       cfg.Pipeline.PassTimeout,
		MinFragmentLength: cfg.Pipeline.MinFragmentLength,
		OutputDir:         cfg.Pipeline.OutputDir,
	}, tess, neural, log)

	return pipeline, nil
}
