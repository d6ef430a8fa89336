package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"time"
)

// NeuralConfig holds the connection settings for the neural recognition
// sidecar. Like the classical engine, the values are resolved once at
// process start.
type NeuralConfig struct {
	// Endpoint is the sidecar base URL (e.g., "http://127.0.0.1:8501").
	// Empty disables the engine: its pass is skipped, not failed.
	Endpoint string

	// Timeout bounds a single recognition request. Defaults to 30s.
	Timeout time.Duration

	// Languages lists the sidecar's language codes (e.g., "en"). Defaults
	// to English.
	Languages []string

	// MinConfidence is the region confidence floor, 0.0-1.0, inclusive at
	// the floor. Defaults to DefaultMinConfidence.
	MinConfidence float64
}

// Neural is the detector-plus-recognizer engine backed by an HTTP sidecar.
//
// Unlike the classical engine it runs a single pass over the unmodified
// normalized image: the model performs its own text detection, so feeding it
// the preprocessing variants adds cost without adding recall.
type Neural struct {
	cfg    NeuralConfig
	client *http.Client
}

// NewNeural creates the engine with defaults applied to unset fields.
func NewNeural(cfg NeuralConfig) *Neural {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"en"}
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	return &Neural{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether a sidecar endpoint is configured.
func (n *Neural) Enabled() bool {
	return n.cfg.Endpoint != ""
}

// neuralRequest is the JSON body sent to the sidecar's /recognize route.
type neuralRequest struct {
	ImageB64  string   `json:"image_base64"`
	Languages []string `json:"languages"`
}

// neuralRegion is one detected text region in the sidecar's response.
type neuralRegion struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Box        *Bounds `json:"box,omitempty"`
}

// neuralResponse is the sidecar's JSON reply.
type neuralResponse struct {
	Regions []neuralRegion `json:"regions"`
	Error   string         `json:"error,omitempty"`
}

// Recognize sends the image to the sidecar and converts the detected
// regions into fragments.
//
// Parameters:
//   - ctx: Cancels the HTTP request when the pass deadline expires.
//   - img: The normalized image. The sidecar locates text itself.
//
// Returns:
//   - []Fragment: One fragment per detected region, tagged with the engine
//     name and carrying the region's box and confidence. Regions below the
//     configured confidence floor are absent; a region at exactly the floor
//     survives.
//   - error: Non-nil if the engine is not configured, the request fails,
//     the sidecar reports an error, or the response cannot be decoded.
func (n *Neural) Recognize(ctx context.Context, img image.Image) ([]Fragment, error) {
	if !n.Enabled() {
		return nil, fmt.Errorf("neural engine not configured")
	}

	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(neuralRequest{
		ImageB64:  base64.StdEncoding.EncodeToString(data),
		Languages: n.cfg.Languages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.cfg.Endpoint+"/recognize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("neural engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("neural engine returned status %d", resp.StatusCode)
	}

	var decoded neuralResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode neural response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("neural engine error: %s", decoded.Error)
	}

	fragments := make([]Fragment, 0, len(decoded.Regions))
	for _, region := range decoded.Regions {
		if region.Text == "" {
			continue
		}
		if region.Confidence < n.cfg.MinConfidence {
			continue
		}
		fragments = append(fragments, Fragment{
			Text:       region.Text,
			Confidence: region.Confidence,
			Engine:     EngineNeural,
			Bounds:     region.Box,
		})
	}
	return fragments, nil
}
