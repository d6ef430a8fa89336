package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// Engine names used in fragment provenance, report sections, and metrics.
const (
	EngineTesseract = "tesseract"
	EngineNeural    = "neural"
)

// DefaultMinConfidence is the confidence floor applied by both engines when
// the configuration does not override it. Fragments scoring exactly the
// floor are kept; only strictly lower scores are discarded.
const DefaultMinConfidence = 0.30

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Fragment is a single piece of recognized text together with the engine's
// confidence and the provenance of the pass that produced it.
//
// Fragments are the unit of exchange between the recognition engines and the
// extraction pipeline: engines emit them, the pipeline merges, cleans, and
// deduplicates them.
type Fragment struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the engine's confidence score, normalized to 0.0-1.0.
	// Higher values indicate more certain recognition.
	Confidence float64 `json:"confidence"`

	// Engine identifies the engine that produced the fragment
	// (EngineTesseract or EngineNeural).
	Engine string `json:"engine"`

	// Variant names the preprocessing treatment the recognition ran on.
	// Empty for engines that always read the unmodified normalized image.
	Variant string `json:"variant,omitempty"`

	// Mode names the segmentation mode of the pass, where the engine has
	// one.
	Mode string `json:"mode,omitempty"`

	// Bounds is the bounding box around the text in the image, when the
	// engine reports one.
	Bounds *Bounds `json:"bounds,omitempty"`
}

// encodePNG renders an image to PNG bytes for engines that consume encoded
// input.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
