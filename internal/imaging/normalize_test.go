package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestDecode_Formats(t *testing.T) {
	src := createInMemoryGray(40, 30, 200)

	tests := []struct {
		name       string
		encode     func(*bytes.Buffer) error
		wantFormat string
	}{
		{"png", func(buf *bytes.Buffer) error { return png.Encode(buf, src) }, "png"},
		{"jpeg", func(buf *bytes.Buffer) error { return jpeg.Encode(buf, src, nil) }, "jpeg"},
		{"gif", func(buf *bytes.Buffer) error { return gif.Encode(buf, src, nil) }, "gif"},
		{"bmp", func(buf *bytes.Buffer) error { return bmp.Encode(buf, src) }, "bmp"},
		{"tiff", func(buf *bytes.Buffer) error { return tiff.Encode(buf, src, nil) }, "tiff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf); err != nil {
				t.Fatalf("failed to encode test image: %v", err)
			}

			img, format, err := Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if format != tt.wantFormat {
				t.Errorf("format: got %s, want %s", format, tt.wantFormat)
			}
			if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
				t.Errorf("dimensions: got %dx%d, want 40x30",
					img.Bounds().Dx(), img.Bounds().Dy())
			}
		})
	}
}

func TestDecode_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("this is not an image at all")},
		{"truncated png", []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.data)
			if err == nil {
				t.Fatal("Decode should fail for invalid input")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("error should wrap ErrDecode, got: %v", err)
			}
		})
	}
}

func TestNormalize_NeverUpscales(t *testing.T) {
	// Below the recommended resolution: dimensions must pass through.
	img := createInMemoryGray(320, 240, 128)

	got := Normalize(img, MaxDimension)

	if got.Bounds().Dx() != 320 || got.Bounds().Dy() != 240 {
		t.Errorf("small image was resized: got %dx%d, want 320x240",
			got.Bounds().Dx(), got.Bounds().Dy())
	}
}

func TestNormalize_DownscalesLargeImages(t *testing.T) {
	img := createInMemoryGray(2400, 1200, 128)

	got := Normalize(img, MaxDimension)

	if LongerSide(got) != MaxDimension {
		t.Errorf("longer side: got %d, want %d", LongerSide(got), MaxDimension)
	}
	// Aspect ratio 2:1 must survive the resize.
	if got.Bounds().Dy() != MaxDimension/2 {
		t.Errorf("height: got %d, want %d", got.Bounds().Dy(), MaxDimension/2)
	}
}

func TestNormalize_DefaultMaxDimension(t *testing.T) {
	img := createInMemoryGray(1500, 500, 128)

	// Zero falls back to MaxDimension.
	got := Normalize(img, 0)

	if LongerSide(got) != MaxDimension {
		t.Errorf("longer side: got %d, want %d", LongerSide(got), MaxDimension)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	img := createPatternGray(200, 150)

	first := Normalize(img, MaxDimension)
	second := Normalize(img, MaxDimension)

	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("normalizing the same image twice produced different pixels")
	}
}

func TestNormalize_ColorInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: 100, B: uint8(y * 6), A: 255})
		}
	}

	got := Normalize(img, MaxDimension)

	if got.Bounds().Min != (image.Point{}) {
		t.Errorf("bounds not zero-origin: %v", got.Bounds())
	}
	if got.Bounds().Dx() != 60 || got.Bounds().Dy() != 40 {
		t.Errorf("dimensions: got %dx%d, want 60x40", got.Bounds().Dx(), got.Bounds().Dy())
	}
}

func TestLongerSide(t *testing.T) {
	tests := []struct {
		w, h, want int
	}{
		{100, 50, 100},
		{50, 100, 100},
		{80, 80, 80},
	}

	for _, tt := range tests {
		got := LongerSide(createInMemoryGray(tt.w, tt.h, 0))
		if got != tt.want {
			t.Errorf("LongerSide(%dx%d): got %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestToGray_PassesThroughGray(t *testing.T) {
	img := createInMemoryGray(10, 10, 77)
	if toGray(img) != img {
		t.Error("zero-origin grayscale image should be returned as-is")
	}
}

func TestToGray_OffsetBounds(t *testing.T) {
	img := image.NewGray(image.Rect(5, 5, 15, 25))
	got := toGray(img)

	if got.Bounds().Min != (image.Point{}) {
		t.Errorf("bounds not zero-origin: %v", got.Bounds())
	}
	if got.Bounds().Dx() != 10 || got.Bounds().Dy() != 20 {
		t.Errorf("dimensions: got %dx%d, want 10x20", got.Bounds().Dx(), got.Bounds().Dy())
	}
}

// Helper functions

// createInMemoryGray creates a grayscale image filled with a single value.
func createInMemoryGray(width, height int, fill uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = fill
	}
	return img
}

// createPatternGray creates a grayscale image with a deterministic gradient
// pattern so resampling and enhancement have real structure to work on.
func createPatternGray(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*13) % 256)})
		}
	}
	return img
}
