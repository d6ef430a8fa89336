package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// SegMode selects how Tesseract segments the page before recognition.
//
// Scene text rarely looks like a clean document page, so the recognizer runs
// every preprocessing variant through several segmentation assumptions and
// merges whatever each pass finds.
type SegMode int

const (
	// SegUniformBlock assumes a single uniform block of text (PSM 6).
	SegUniformBlock SegMode = iota

	// SegSingleLine treats the image as one text line (PSM 7).
	SegSingleLine

	// SegSingleWord treats the image as a single word (PSM 8).
	SegSingleWord

	// SegRawLine treats the image as a raw line, bypassing Tesseract's
	// layout hacks (PSM 13).
	SegRawLine
)

// AllSegModes lists every segmentation mode in sweep order.
var AllSegModes = []SegMode{SegUniformBlock, SegSingleLine, SegSingleWord, SegRawLine}

// String returns the mode name used in provenance tags and logs.
func (m SegMode) String() string {
	switch m {
	case SegUniformBlock:
		return "uniform_block"
	case SegSingleLine:
		return "single_line"
	case SegSingleWord:
		return "single_word"
	case SegRawLine:
		return "raw_line"
	}
	return "unknown"
}

// pageSegMode maps the mode onto Tesseract's PSM constant.
func (m SegMode) pageSegMode() gosseract.PageSegMode {
	switch m {
	case SegUniformBlock:
		return gosseract.PSM_SINGLE_BLOCK
	case SegSingleLine:
		return gosseract.PSM_SINGLE_LINE
	case SegSingleWord:
		return gosseract.PSM_SINGLE_WORD
	case SegRawLine:
		return gosseract.PSM_RAW_LINE
	}
	return gosseract.PSM_SINGLE_BLOCK
}

// TesseractConfig holds the explicit engine settings. The values are
// resolved once at process start and passed down unchanged; the engine never
// probes the filesystem on its own.
type TesseractConfig struct {
	// TessdataPrefix points at the directory holding trained language
	// data. Empty means the library's compiled-in default.
	TessdataPrefix string

	// Languages lists Tesseract language codes (e.g., "eng"). Defaults to
	// English.
	Languages []string

	// MinConfidence is the word confidence floor, 0.0-1.0. Words scoring
	// below it are discarded at creation; a score exactly at the floor is
	// kept. Defaults to DefaultMinConfidence.
	MinConfidence float64
}

// Tesseract is the classical recognition engine. It is stateless between
// passes: every Recognize call uses a fresh client, so concurrent passes
// never share native handles.
type Tesseract struct {
	cfg TesseractConfig
}

// NewTesseract creates the engine with defaults applied to unset fields.
func NewTesseract(cfg TesseractConfig) *Tesseract {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	return &Tesseract{cfg: cfg}
}

// Recognize performs one OCR pass over an image with the given segmentation
// mode.
//
// Parameters:
//   - ctx: Checked before the native call starts and after it returns. The
//     call itself cannot be interrupted once handed to the library.
//   - img: The image to recognize, typically one preprocessing variant of
//     the normalized input.
//   - mode: The segmentation assumption for this pass.
//
// Returns:
//   - []Fragment: One fragment per recognized word, tagged with the engine
//     name and mode, carrying the word's bounding box and its confidence
//     normalized to 0.0-1.0. Words below the configured confidence floor
//     are absent. The slice may be empty when the pass finds nothing.
//   - error: Non-nil if encoding, client setup, or recognition fails.
//
// # Word-Level Results
//
// Results come from Tesseract's RIL_WORD iterator level, which matches the
// granularity the downstream cleaner expects: confusion fixes and length
// filtering both operate on word-sized pieces.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, mode SegMode) ([]Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	client, err := t.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	if err := client.SetPageSegMode(mode.pageSegMode()); err != nil {
		return nil, fmt.Errorf("failed to set segmentation mode: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fragmentsFromBoxes(boxes, mode, t.cfg.MinConfidence), nil
}

// Available verifies that the native library and the configured language
// data can actually serve recognition. Called once at process start; a
// failure here is fatal for the process, unlike per-pass errors which are
// absorbed.
func (t *Tesseract) Available() error {
	client, err := t.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if client.Version() == "" {
		return fmt.Errorf("tesseract library not detected")
	}
	return nil
}

// Version reports the linked Tesseract library version, or an empty string
// when it cannot be determined.
func (t *Tesseract) Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

// newClient creates a configured gosseract client. The caller owns the
// client and must Close it.
func (t *Tesseract) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if t.cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(t.cfg.Languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	return client, nil
}

// fragmentsFromBoxes converts word bounding boxes into fragments, dropping
// empty words and words below the confidence floor. The floor is inclusive:
// a word at exactly minConfidence survives.
func fragmentsFromBoxes(boxes []gosseract.BoundingBox, mode SegMode, minConfidence float64) []Fragment {
	fragments := make([]Fragment, 0, len(boxes))
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}

		confidence := box.Confidence / 100.0
		if confidence < minConfidence {
			continue
		}

		fragments = append(fragments, Fragment{
			Text:       word,
			Confidence: confidence,
			Engine:     EngineTesseract,
			Mode:       mode.String(),
			Bounds: &Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}
	return fragments
}
