package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// ErrDecode indicates that the supplied bytes are not a decodable image.
// Callers can detect it with errors.Is to distinguish bad input from
// processing failures.
var ErrDecode = errors.New("cannot decode image data")

// Resolution bounds for recognition input.
//
// Images whose longer side exceeds MaxDimension are scaled down before
// recognition; small images are never scaled up, because interpolated pixels
// add no information for the recognizers. MinRecommendedDimension marks the
// point below which recognition quality degrades noticeably.
const (
	MaxDimension            = 1200
	MinRecommendedDimension = 600
)

// Enhancement parameters applied after resizing. Values are fixed so the
// same input bytes always produce the same normalized raster.
const (
	contrastBoost = 30.0 // percentage passed to imaging.AdjustContrast
	sharpenSigma  = 1.0
)

// Decode parses raw image bytes into an image.Image.
//
// Parameters:
//   - data: Raw image file contents. Supported formats are PNG, JPEG, GIF,
//     BMP, and TIFF.
//
// Returns:
//   - image.Image: The decoded image. The concrete type depends on the image
//     format and color model (e.g., *image.RGBA, *image.NRGBA, *image.YCbCr).
//   - string: The detected format name ("png", "jpeg", "gif", "bmp", "tiff").
//   - error: Non-nil if the bytes are empty or not a valid image in any
//     registered format. The error wraps ErrDecode.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecode)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

// Normalize converts an image into the canonical form used by all
// recognition passes: 8-bit grayscale, bounded resolution, enhanced contrast
// and edge sharpness.
//
// Parameters:
//   - img: Source image (color or grayscale, any registered format).
//   - maxDimension: Upper bound for the longer side in pixels. Values <= 0
//     fall back to MaxDimension.
//
// Returns:
//   - *image.Gray: The normalized grayscale image.
//
// # Processing Steps
//
//  1. Grayscale conversion using standard luminance weights.
//
//  2. Bounded resize: if the longer side exceeds maxDimension, the image is
//     scaled down with Lanczos resampling, preserving aspect ratio. Images
//     within bounds pass through at their original size; upscaling is never
//     performed.
//
//  3. Contrast boost and mild sharpening to separate glyph strokes from
//     noisy backgrounds before the preprocessing variants are derived.
//
// The operation is deterministic: identical input pixels always yield an
// identical normalized raster.
func Normalize(img image.Image, maxDimension int) *image.Gray {
	if maxDimension <= 0 {
		maxDimension = MaxDimension
	}

	gray := imaging.Grayscale(img)

	// Fit only ever scales down; small images pass through untouched.
	bounds := gray.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		gray = imaging.Fit(gray, maxDimension, maxDimension, imaging.Lanczos)
	}

	gray = imaging.AdjustContrast(gray, contrastBoost)
	gray = imaging.Sharpen(gray, sharpenSigma)

	return toGray(gray)
}

// LongerSide returns the larger of an image's width and height.
func LongerSide(img image.Image) int {
	bounds := img.Bounds()
	if bounds.Dx() > bounds.Dy() {
		return bounds.Dx()
	}
	return bounds.Dy()
}

// toGray materializes any image as *image.Gray with a zero-origin bounds.
// Images that are already *image.Gray at the origin are returned as-is.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}

	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			out.Set(x, y, color.GrayModel.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)))
		}
	}
	return out
}
