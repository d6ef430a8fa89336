package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mholler/imagetext/internal/imaging"
	"github.com/mholler/imagetext/internal/observability"
	"github.com/mholler/imagetext/internal/ocr"
)

func TestPipeline_NeuralOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/recognize" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"regions":[
			{"text":"ASHWI","confidence":0.95},
			{"text":"FURNITURE","confidence":0.88},
			{"text":"ASHWI","confidence":0.91},
			{"text":"ab","confidence":0.99},
			{"text":"dust","confidence":0.05}
		]}`)
	}))
	defer srv.Close()

	outputDir := t.TempDir()
	neural := ocr.NewNeural(ocr.NeuralConfig{Endpoint: srv.URL})
	p := New(Config{OutputDir: outputDir}, nil, neural, testLogger())

	result, err := p.Extract(context.Background(), "sign.png", grayPNG(t, 64, 64))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Four regions clear the confidence floor; "dust" at 0.05 does not.
	if len(result.Fragments) != 4 {
		t.Fatalf("fragments = %d, want 4", len(result.Fragments))
	}
	for i, frag := range result.Fragments {
		if frag.Engine != ocr.EngineNeural {
			t.Errorf("fragment %d engine = %q, want neural", i, frag.Engine)
		}
		if frag.Variant != imaging.VariantOriginal {
			t.Errorf("fragment %d variant = %q, want original", i, frag.Variant)
		}
	}

	// Cleaning drops the duplicate ASHWI and the short "ab".
	wantSentences := []string{"ASHWI FURNITURE"}
	if len(result.Sentences) != 1 || result.Sentences[0] != wantSentences[0] {
		t.Errorf("sentences = %q, want %q", result.Sentences, wantSentences)
	}

	m := result.Metrics
	if m.WordCount != 2 || m.UniqueWords != 2 || m.SentenceCount != 1 {
		t.Errorf("metrics = %+v, want 2 words, 2 unique, 1 sentence", m)
	}
	if m.TextLength != 15 {
		t.Errorf("TextLength = %d, want 15", m.TextLength)
	}
	if !m.HasText {
		t.Error("HasText = false, want true")
	}
	if m.EngineFragments[ocr.EngineNeural] != 4 {
		t.Errorf("neural fragment count = %d, want 4", m.EngineFragments[ocr.EngineNeural])
	}
	if m.ProcessingTime <= 0 {
		t.Error("ProcessingTime not recorded")
	}

	wantPath := filepath.Join(outputDir, "sign_extraction.txt")
	if result.ReportPath != wantPath {
		t.Errorf("report path = %q, want %q", result.ReportPath, wantPath)
	}
	report, err := os.ReadFile(result.ReportPath)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !strings.Contains(string(report), "1. ASHWI (conf: 0.95)") {
		t.Error("report missing raw neural fragment")
	}
	if !strings.Contains(string(report), "RAW TESSERACT RESULTS:") {
		t.Error("report missing tesseract section")
	}
}

func TestPipeline_NoEngines(t *testing.T) {
	p := New(Config{}, nil, nil, testLogger())

	result, err := p.Extract(context.Background(), "blank.png", grayPNG(t, 32, 32))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Metrics.HasText {
		t.Error("HasText = true with no engines")
	}
	if len(result.Fragments) != 0 {
		t.Errorf("fragments = %d, want 0", len(result.Fragments))
	}
	if len(result.Sentences) != 0 {
		t.Errorf("sentences = %d, want 0", len(result.Sentences))
	}
	if result.ReportPath != "" {
		t.Errorf("report path = %q, want empty with no output dir", result.ReportPath)
	}
}

func TestPipeline_RejectsUndecodableInput(t *testing.T) {
	p := New(Config{}, nil, nil, testLogger())

	for _, data := range [][]byte{nil, []byte("not an image")} {
		_, err := p.Extract(context.Background(), "bad.png", data)
		if !errors.Is(err, imaging.ErrDecode) {
			t.Errorf("Extract(%q) error = %v, want ErrDecode", data, err)
		}
	}
}

func TestPipeline_ReportWriteFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create blocker file: %v", err)
	}

	p := New(Config{OutputDir: blocker}, nil, nil, testLogger())

	if _, err := p.Extract(context.Background(), "sign.png", grayPNG(t, 32, 32)); err == nil {
		t.Error("expected error when report directory is unusable")
	}
}

func TestSweep_MergesInScheduleOrder(t *testing.T) {
	p := New(Config{Workers: 4}, nil, nil, testLogger())

	const count = 8
	passes := make([]pass, count)
	for i := 0; i < count; i++ {
		text := fmt.Sprintf("frag-%02d", i)
		// Later passes finish first so worker timing cannot hide an
		// ordering bug.
		delay := time.Duration(count-i) * time.Millisecond
		passes[i] = pass{
			engine:  "stub",
			variant: fmt.Sprintf("v%d", i),
			run: func(ctx context.Context) ([]ocr.Fragment, error) {
				time.Sleep(delay)
				return []ocr.Fragment{{Text: text, Engine: "stub"}}, nil
			},
		}
	}

	merged := p.sweep(context.Background(), passes)

	if len(merged) != count {
		t.Fatalf("merged fragments = %d, want %d", len(merged), count)
	}
	for i, frag := range merged {
		if want := fmt.Sprintf("frag-%02d", i); frag.Text != want {
			t.Errorf("fragment %d = %q, want %q", i, frag.Text, want)
		}
		if want := fmt.Sprintf("v%d", i); frag.Variant != want {
			t.Errorf("fragment %d variant = %q, want %q", i, frag.Variant, want)
		}
	}
}

func TestSweep_AbsorbsFailedPasses(t *testing.T) {
	p := New(Config{Workers: 1}, nil, nil, testLogger())

	passes := []pass{
		{engine: "stub", variant: "a", run: func(ctx context.Context) ([]ocr.Fragment, error) {
			return []ocr.Fragment{{Text: "first", Engine: "stub"}}, nil
		}},
		{engine: "stub", variant: "b", run: func(ctx context.Context) ([]ocr.Fragment, error) {
			panic("engine crashed")
		}},
		{engine: "stub", variant: "c", run: func(ctx context.Context) ([]ocr.Fragment, error) {
			return nil, fmt.Errorf("engine unavailable")
		}},
		{engine: "stub", variant: "d", run: func(ctx context.Context) ([]ocr.Fragment, error) {
			return []ocr.Fragment{{Text: "last", Engine: "stub"}}, nil
		}},
	}

	merged := p.sweep(context.Background(), passes)

	if len(merged) != 2 {
		t.Fatalf("merged fragments = %d, want 2", len(merged))
	}
	if merged[0].Text != "first" || merged[1].Text != "last" {
		t.Errorf("merged = [%q, %q], want [first, last]", merged[0].Text, merged[1].Text)
	}
}

func TestSweep_HonorsPassTimeout(t *testing.T) {
	p := New(Config{Workers: 2, PassTimeout: 15 * time.Millisecond}, nil, nil, testLogger())

	passes := []pass{
		{engine: "stub", variant: "slow", run: func(ctx context.Context) ([]ocr.Fragment, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
		{engine: "stub", variant: "fast", run: func(ctx context.Context) ([]ocr.Fragment, error) {
			return []ocr.Fragment{{Text: "quick", Engine: "stub"}}, nil
		}},
	}

	done := make(chan []ocr.Fragment, 1)
	go func() { done <- p.sweep(context.Background(), passes) }()

	select {
	case merged := <-done:
		if len(merged) != 1 || merged[0].Text != "quick" {
			t.Errorf("merged = %v, want only the fast pass", merged)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not finish; pass timeout not applied")
	}
}

func TestBuildPasses_Schedule(t *testing.T) {
	tess := ocr.NewTesseract(ocr.TesseractConfig{})
	neural := ocr.NewNeural(ocr.NeuralConfig{Endpoint: "http://sidecar:9090"})
	p := New(Config{}, tess, neural, testLogger())

	normalized := image.NewGray(image.Rect(0, 0, 64, 64))
	variants, variantErrs := imaging.Variants(normalized)
	if len(variantErrs) != 0 {
		t.Fatalf("variant generation failed: %v", variantErrs)
	}

	passes := p.buildPasses(normalized, variants)

	want := 1 + len(variants)*len(ocr.AllSegModes)
	if len(passes) != want {
		t.Fatalf("passes = %d, want %d", len(passes), want)
	}

	if passes[0].engine != ocr.EngineNeural || passes[0].variant != imaging.VariantOriginal {
		t.Errorf("first pass = %s/%s, want neural over original", passes[0].engine, passes[0].variant)
	}
	if passes[1].engine != ocr.EngineTesseract || passes[1].variant != imaging.VariantOriginal ||
		passes[1].mode != ocr.SegUniformBlock {
		t.Errorf("second pass = %s/%s/%s, unexpected schedule", passes[1].engine, passes[1].variant, passes[1].mode)
	}

	last := passes[len(passes)-1]
	if last.variant != imaging.VariantClosed || last.mode != ocr.SegRawLine {
		t.Errorf("last pass = %s/%s, want closed with raw line mode", last.variant, last.mode)
	}
}

func TestBuildPasses_EnginesOptional(t *testing.T) {
	normalized := image.NewGray(image.Rect(0, 0, 64, 64))
	variants, _ := imaging.Variants(normalized)

	tessOnly := New(Config{}, ocr.NewTesseract(ocr.TesseractConfig{}), nil, testLogger())
	if got := len(tessOnly.buildPasses(normalized, variants)); got != len(variants)*len(ocr.AllSegModes) {
		t.Errorf("tesseract-only passes = %d, want %d", got, len(variants)*len(ocr.AllSegModes))
	}

	disabled := New(Config{}, nil, ocr.NewNeural(ocr.NeuralConfig{}), testLogger())
	if got := len(disabled.buildPasses(normalized, variants)); got != 0 {
		t.Errorf("disabled-engine passes = %d, want 0", got)
	}
}

func TestPipeline_EndToEndTesseract(t *testing.T) {
	tess := ocr.NewTesseract(ocr.TesseractConfig{})
	if err := tess.Available(); err != nil {
		t.Skip("Tesseract not available")
	}

	p := New(Config{OutputDir: t.TempDir(), Workers: 2}, tess, nil, testLogger())

	result, err := p.Extract(context.Background(), "hello.png", textPNG(t, "HELLO WORLD TEST"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Metrics.SentenceCount != len(result.Sentences) {
		t.Errorf("SentenceCount = %d, sentences = %d", result.Metrics.SentenceCount, len(result.Sentences))
	}
	joined := strings.Join(result.Sentences, " ")
	if got := len(strings.Fields(joined)); got != result.Metrics.WordCount {
		t.Errorf("WordCount = %d, joined text has %d", result.Metrics.WordCount, got)
	}
	if _, err := os.Stat(result.ReportPath); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

// Helper functions

// testLogger returns a silenced logger for pipeline tests.
func testLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:  "error",
		Format: "json",
		Output: io.Discard,
	})
}

// grayPNG encodes a uniform gray image as PNG bytes.
func grayPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 200
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// textPNG renders black text on a white background and encodes it as PNG.
func textPNG(t *testing.T, text string) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 400, 60))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(20, 30),
	}
	d.DrawString(text)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}
