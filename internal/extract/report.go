package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mholler/imagetext/internal/ocr"
)

// reportTimeFormat is the timestamp layout used in report headers.
const reportTimeFormat = "2006-01-02 15:04:05"

// Metrics summarizes one extraction.
type Metrics struct {
	// TextLength is the rune count of all sentences joined with spaces.
	TextLength int `json:"text_length"`

	// WordCount is the number of whitespace separated tokens.
	WordCount int `json:"word_count"`

	// UniqueWords counts distinct tokens, compared case insensitively.
	UniqueWords int `json:"unique_words"`

	// SentenceCount is the number of reconstructed sentences.
	SentenceCount int `json:"sentence_count"`

	// HasText reports whether any text survived cleaning.
	HasText bool `json:"has_text"`

	// EngineFragments counts surviving raw fragments per engine name.
	EngineFragments map[string]int `json:"engine_fragments"`

	// ProcessingTime is the wall clock duration of the extraction.
	ProcessingTime time.Duration `json:"processing_time"`
}

// BuildMetrics derives summary metrics from reconstructed sentences and the
// surviving fragments of every engine.
func BuildMetrics(sentences []string, fragments []ocr.Fragment, elapsed time.Duration) Metrics {
	totalText := strings.Join(sentences, " ")

	words := strings.Fields(totalText)
	unique := make(map[string]struct{}, len(words))
	for _, word := range words {
		unique[strings.ToLower(word)] = struct{}{}
	}

	engines := make(map[string]int)
	for _, frag := range fragments {
		engines[frag.Engine]++
	}

	return Metrics{
		TextLength:      utf8.RuneCountInString(totalText),
		WordCount:       len(words),
		UniqueWords:     len(unique),
		SentenceCount:   len(sentences),
		HasText:         strings.TrimSpace(totalText) != "",
		EngineFragments: engines,
		ProcessingTime:  elapsed,
	}
}

// ReportFileName derives the report name from the source image name:
// photo.png becomes photo_extraction.txt.
func ReportFileName(source string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "_extraction.txt"
}

// WriteReport renders the extraction report and writes it under dir,
// creating the directory if needed. It returns the full report path.
func WriteReport(dir, source string, sentences []string, fragments []ocr.Fragment, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, ReportFileName(source))
	report := RenderReport(source, sentences, fragments, now)
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

// RenderReport builds the report text: a header identifying the source image
// and extraction time, the numbered reconstructed sentences, and one raw
// results section per engine showing every surviving fragment with its
// confidence.
func RenderReport(source string, sentences []string, fragments []ocr.Fragment, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Source Image: %s\n", filepath.Base(source))
	fmt.Fprintf(&b, "Extraction Date: %s\n", now.Format(reportTimeFormat))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString("RECONSTRUCTED TEXT:\n")
	b.WriteString(strings.Repeat("-", 30) + "\n")
	for i, sentence := range sentences {
		fmt.Fprintf(&b, "%d. %s\n", i+1, sentence)
	}

	writeEngineSection(&b, "RAW NEURAL RESULTS", fragments, ocr.EngineNeural)
	writeEngineSection(&b, "RAW TESSERACT RESULTS", fragments, ocr.EngineTesseract)

	return b.String()
}

// writeEngineSection appends one engine's raw fragments, numbered from 1
// within the section.
func writeEngineSection(b *strings.Builder, title string, fragments []ocr.Fragment, engine string) {
	fmt.Fprintf(b, "\n%s:\n", title)
	b.WriteString(strings.Repeat("-", 30) + "\n")

	n := 0
	for _, frag := range fragments {
		if frag.Engine != engine {
			continue
		}
		n++
		fmt.Fprintf(b, "%d. %s (conf: %.2f)\n", n, frag.Text, frag.Confidence)
	}
}
