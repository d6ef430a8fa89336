package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mholler/imagetext/internal/ocr"
)

func TestBuildMetrics(t *testing.T) {
	sentences := []string{"ASHWI FURNITURE.", "Call 9876543210 today."}
	fragments := []ocr.Fragment{
		{Text: "ASHWI FURNITURE.", Confidence: 0.93, Engine: ocr.EngineNeural},
		{Text: "Call 9876543210 today.", Confidence: 0.88, Engine: ocr.EngineNeural},
		{Text: "ASHWI", Confidence: 0.91, Engine: ocr.EngineTesseract},
		{Text: "FURNITURE", Confidence: 0.85, Engine: ocr.EngineTesseract},
		{Text: "Call", Confidence: 0.80, Engine: ocr.EngineTesseract},
	}

	m := BuildMetrics(sentences, fragments, 1500*time.Millisecond)

	if m.TextLength != 39 {
		t.Errorf("TextLength = %d, want 39", m.TextLength)
	}
	if m.WordCount != 5 {
		t.Errorf("WordCount = %d, want 5", m.WordCount)
	}
	if m.UniqueWords != 5 {
		t.Errorf("UniqueWords = %d, want 5", m.UniqueWords)
	}
	if m.SentenceCount != 2 {
		t.Errorf("SentenceCount = %d, want 2", m.SentenceCount)
	}
	if !m.HasText {
		t.Error("HasText = false, want true")
	}
	if m.EngineFragments[ocr.EngineNeural] != 2 {
		t.Errorf("neural fragments = %d, want 2", m.EngineFragments[ocr.EngineNeural])
	}
	if m.EngineFragments[ocr.EngineTesseract] != 3 {
		t.Errorf("tesseract fragments = %d, want 3", m.EngineFragments[ocr.EngineTesseract])
	}
	if m.ProcessingTime != 1500*time.Millisecond {
		t.Errorf("ProcessingTime = %v, want 1.5s", m.ProcessingTime)
	}
}

func TestBuildMetrics_UniqueWordsFoldCase(t *testing.T) {
	m := BuildMetrics([]string{"Sale SALE sale."}, nil, 0)

	if m.WordCount != 3 {
		t.Errorf("WordCount = %d, want 3", m.WordCount)
	}
	// "sale" and "sale." remain distinct after folding.
	if m.UniqueWords != 2 {
		t.Errorf("UniqueWords = %d, want 2", m.UniqueWords)
	}
}

func TestBuildMetrics_CountsRunes(t *testing.T) {
	m := BuildMetrics([]string{"héllo."}, nil, 0)
	if m.TextLength != 6 {
		t.Errorf("TextLength = %d, want 6 runes", m.TextLength)
	}
}

func TestBuildMetrics_Empty(t *testing.T) {
	m := BuildMetrics(nil, nil, 0)

	if m.TextLength != 0 || m.WordCount != 0 || m.UniqueWords != 0 || m.SentenceCount != 0 {
		t.Errorf("empty metrics not zeroed: %+v", m)
	}
	if m.HasText {
		t.Error("HasText = true for empty extraction")
	}
	if len(m.EngineFragments) != 0 {
		t.Errorf("EngineFragments = %v, want empty", m.EngineFragments)
	}
}

func TestRenderReport(t *testing.T) {
	when := time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)
	sentences := []string{"BIG SALE.", "Call now"}
	fragments := []ocr.Fragment{
		{Text: "BIG SALE.", Confidence: 0.91, Engine: ocr.EngineNeural},
		{Text: "BIG", Confidence: 0.84, Engine: ocr.EngineTesseract},
		{Text: "SALE", Confidence: 0.77, Engine: ocr.EngineTesseract},
	}

	got := RenderReport("/images/storefront.png", sentences, fragments, when)

	want := strings.Join([]string{
		"Source Image: storefront.png",
		"Extraction Date: 2025-03-14 09:26:53",
		strings.Repeat("=", 60),
		"",
		"RECONSTRUCTED TEXT:",
		strings.Repeat("-", 30),
		"1. BIG SALE.",
		"2. Call now",
		"",
		"RAW NEURAL RESULTS:",
		strings.Repeat("-", 30),
		"1. BIG SALE. (conf: 0.91)",
		"",
		"RAW TESSERACT RESULTS:",
		strings.Repeat("-", 30),
		"1. BIG (conf: 0.84)",
		"2. SALE (conf: 0.77)",
		"",
	}, "\n")

	if got != want {
		t.Errorf("report mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestRenderReport_EmptyExtraction(t *testing.T) {
	when := time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)

	got := RenderReport("blank.jpg", nil, nil, when)

	want := strings.Join([]string{
		"Source Image: blank.jpg",
		"Extraction Date: 2025-03-14 09:26:53",
		strings.Repeat("=", 60),
		"",
		"RECONSTRUCTED TEXT:",
		strings.Repeat("-", 30),
		"",
		"RAW NEURAL RESULTS:",
		strings.Repeat("-", 30),
		"",
		"RAW TESSERACT RESULTS:",
		strings.Repeat("-", 30),
		"",
	}, "\n")

	if got != want {
		t.Errorf("report mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestReportFileName(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"photo.png", "photo_extraction.txt"},
		{"/tmp/scans/invoice.jpeg", "invoice_extraction.txt"},
		{"noext", "noext_extraction.txt"},
		{"archive.tar.gz", "archive.tar_extraction.txt"},
	}

	for _, tt := range tests {
		if got := ReportFileName(tt.source); got != tt.want {
			t.Errorf("ReportFileName(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "nested")

	path, err := WriteReport(dir, "sign.png", []string{"OPEN."}, nil, time.Now())
	if err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	if want := filepath.Join(dir, "sign_extraction.txt"); path != want {
		t.Errorf("report path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !strings.HasPrefix(string(data), "Source Image: sign.png\n") {
		t.Errorf("unexpected report head: %q", string(data)[:40])
	}
	if !strings.Contains(string(data), "1. OPEN.\n") {
		t.Error("report missing reconstructed sentence")
	}
}

func TestWriteReport_DirectoryBlocked(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create blocker file: %v", err)
	}

	if _, err := WriteReport(blocker, "sign.png", nil, nil, time.Now()); err == nil {
		t.Error("expected error when report directory is a file")
	}
}
