// Package imaging prepares photographs for text recognition.
//
// This package implements the first two stages of the extraction pipeline:
// normalization of arbitrary input images into a canonical grayscale form,
// and derivation of the fixed set of preprocessing variants that the
// recognition sweep consumes. All operations work with standard Go
// image.Image types; normalized output and every variant are *image.Gray
// with zero-origin bounds.
//
// # Normalization
//
// Decode accepts PNG, JPEG, GIF, BMP, and TIFF bytes. Normalize converts the
// decoded image to 8-bit grayscale, scales it down when its longer side
// exceeds the configured bound (never up), and applies a fixed contrast and
// sharpening treatment. Identical input bytes always produce an identical
// normalized raster.
//
// # Variants
//
// Variants derives five treatments in a fixed order: original, denoised,
// equalized, thresholded, closed. The order is part of the package contract;
// downstream merging depends on it for deterministic results. A treatment
// that fails is skipped and reported without aborting the others, except
// that closed is built from thresholded and is skipped when thresholded is
// unavailable.
//
// # Error Handling
//
// Decode wraps ErrDecode for any input that is not a decodable image, which
// lets callers separate bad uploads from processing failures with errors.Is.
// Variant failures are values, not errors: Variants returns the treatments
// it could build plus a VariantError per treatment it could not.
//
// # Performance Considerations
//
// Adaptive thresholding uses summed-area tables, so its cost is independent
// of the threshold window size. Variant generation allocates one full-size
// grayscale raster per treatment; at the default 1200px bound that is about
// 1.4MB each.
package imaging
