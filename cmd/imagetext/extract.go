package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/mholler/imagetext/internal/extract"
	"github.com/mholler/imagetext/internal/observability"
	"github.com/mholler/imagetext/internal/ocr"
)

// summaryFileName is the batch summary written next to the reports.
const summaryFileName = "extraction_summary.json"

// imageExtensions are the file suffixes picked up when scanning directories.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".gif":  true,
}

// summaryEntry is one image's outcome in the batch summary.
type summaryEntry struct {
	Image           string         `json:"image"`
	TextLength      int            `json:"text_length"`
	WordCount       int            `json:"word_count"`
	UniqueWords     int            `json:"unique_words"`
	SentenceCount   int            `json:"sentence_count"`
	HasText         bool           `json:"has_text"`
	OutputFile      string         `json:"output_file,omitempty"`
	EngineFragments map[string]int `json:"engine_fragments,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// extractionSummary aggregates a whole batch run.
type extractionSummary struct {
	TotalImages           int            `json:"total_images"`
	SuccessfulExtractions int            `json:"successful_extractions"`
	TotalWords            int            `json:"total_words"`
	TotalSentences        int            `json:"total_sentences"`
	Results               []summaryEntry `json:"results"`
	Timestamp             string         `json:"timestamp"`
}

// newExtractCmd builds the extract command, the batch driver for local files.
func newExtractCmd(opts *rootOptions) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "extract <path>...",
		Short: "Extract text from image files or directories",
		Long: `Extracts text from the given images. Directory arguments are scanned for
common image files (jpg, jpeg, png, bmp, tiff, tif, gif).

Each image gets an individual extraction report; the whole run is summarized
in ` + summaryFileName + ` alongside the reports.`,
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.Pipeline.OutputDir = outputDir
			}

			// Logs go to stderr so stdout stays readable progress output.
			log := observability.NewLogger(observability.LogConfig{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				Output:      os.Stderr,
				ServiceName: "imagetext",
			})

			pipeline, err := buildPipeline(cfg, log)
			if err != nil {
				return err
			}

			files, err := collectImages(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no image files found")
			}

			fmt.Printf("Found %d image files\n", len(files))
			fmt.Println(strings.Repeat("-", 60))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary := runBatch(ctx, pipeline, files)

			summaryPath := filepath.Join(cfg.Pipeline.OutputDir, summaryFileName)
			if err := writeSummary(summaryPath, summary); err != nil {
				return err
			}

			printSummary(summary, cfg.Pipeline.OutputDir, summaryPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for reports and the summary (overrides config)")

	return cmd
}

// collectImages expands the path arguments into a flat list of image files.
// Directories contribute their image entries in name order; named files must
// have a recognized image extension.
func collectImages(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if !imageExtensions[strings.ToLower(filepath.Ext(arg))] {
				return nil, fmt.Errorf("%s: not a recognized image type", arg)
			}
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				files = append(files, filepath.Join(arg, entry.Name()))
			}
		}
	}

	return files, nil
}

// runBatch extracts every file in order, printing per-image progress, and
// aggregates the outcomes.
func runBatch(ctx context.Context, pipeline *extract.Pipeline, files []string) *extractionSummary {
	summary := &extractionSummary{
		TotalImages: len(files),
		Results:     make([]summaryEntry, 0, len(files)),
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	for i, path := range files {
		fmt.Printf("Processing %d/%d: %s\n", i+1, len(files), filepath.Base(path))

		entry := extractOne(ctx, pipeline, path)
		summary.Results = append(summary.Results, entry)

		switch {
		case entry.Error != "":
			color.Red.Printf("  ✗ %s\n", entry.Error)
		case entry.HasText:
			color.Green.Printf("  ✓ %d sentences, %d words\n", entry.SentenceCount, entry.WordCount)
			fmt.Printf("    neural: %d fragments, tesseract: %d fragments\n",
				entry.EngineFragments[ocr.EngineNeural], entry.EngineFragments[ocr.EngineTesseract])
			summary.SuccessfulExtractions++
			summary.TotalWords += entry.WordCount
			summary.TotalSentences += entry.SentenceCount
		default:
			color.Yellow.Println("  - no text reconstructed")
		}
	}

	return summary
}

// extractOne runs the pipeline over a single file, folding any failure into
// the entry so one bad image never stops the batch.
func extractOne(ctx context.Context, pipeline *extract.Pipeline, path string) summaryEntry {
	entry := summaryEntry{Image: filepath.Base(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}

	result, err := pipeline.Extract(ctx, path, data)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}

	entry.TextLength = result.Metrics.TextLength
	entry.WordCount = result.Metrics.WordCount
	entry.UniqueWords = result.Metrics.UniqueWords
	entry.SentenceCount = result.Metrics.SentenceCount
	entry.HasText = result.Metrics.HasText
	entry.EngineFragments = result.Metrics.EngineFragments
	if result.ReportPath != "" {
		entry.OutputFile = filepath.Base(result.ReportPath)
	}

	return entry
}

// writeSummary persists the batch summary as indented JSON.
func writeSummary(path string, summary *extractionSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// printSummary prints the closing totals in the report style.
func printSummary(summary *extractionSummary, outputDir, summaryPath string) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("EXTRACTION SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total images processed: %d\n", summary.TotalImages)
	fmt.Printf("Successful extractions: %d\n", summary.SuccessfulExtractions)
	fmt.Printf("Total words extracted: %d\n", summary.TotalWords)
	fmt.Printf("Total sentences: %d\n", summary.TotalSentences)
	fmt.Printf("\nResults saved to: %s\n", outputDir)
	fmt.Printf("Summary saved to: %s\n", summaryPath)
}
