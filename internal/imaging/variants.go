package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/effect"
)

// Variant names in generation order. The order is fixed: downstream merging
// relies on it for deterministic output, and reports identify passes by
// these names.
const (
	VariantOriginal    = "original"
	VariantDenoised    = "denoised"
	VariantEqualized   = "equalized"
	VariantThresholded = "thresholded"
	VariantClosed      = "closed"
)

// Filter parameters for variant generation. Fixed values keep the variant
// set deterministic for identical normalized input.
const (
	medianSize    = 3.0 // neighborhood size for the denoising median filter
	equalizeTiles = 8   // CLAHE tile grid (8x8)
	equalizeClip  = 3.0 // CLAHE clip limit, relative to the mean bin height
	sauvolaK      = 0.2
	sauvolaWindow = 25
	closingRadius = 1.0
)

// Variant pairs a preprocessing treatment name with the derived image.
type Variant struct {
	Name  string
	Image *image.Gray
}

// VariantError records a preprocessing treatment that could not be built.
type VariantError struct {
	Name string
	Err  error
}

func (e VariantError) Error() string {
	return fmt.Sprintf("variant %s: %v", e.Name, e.Err)
}

// Variants derives the fixed set of preprocessing treatments from a
// normalized grayscale image. Each treatment targets a different failure
// mode of scene-text recognition:
//
//  1. original — the normalized image, unmodified.
//
//  2. denoised — median filter; removes salt-and-pepper noise from
//     photographed surfaces.
//
//  3. equalized — contrast-limited adaptive histogram equalization; lifts
//     faint text out of unevenly lit regions.
//
//  4. thresholded — adaptive binarization from local mean and deviation
//     (Sauvola); separates glyphs from textured backgrounds.
//
//  5. closed — morphological closing of the thresholded image's dark
//     strokes; reconnects glyphs broken by thresholding.
//
// A treatment whose filter fails or panics is skipped and reported in the
// second return value; the remaining treatments are still produced. Variant
// generation therefore never fails as a whole: at minimum the original
// variant is returned.
func Variants(src *image.Gray) ([]Variant, []VariantError) {
	variants := make([]Variant, 0, 5)
	var failures []VariantError

	add := func(name string, build func() (*image.Gray, error)) *image.Gray {
		img, err := buildVariant(build)
		if err != nil {
			failures = append(failures, VariantError{Name: name, Err: err})
			return nil
		}
		variants = append(variants, Variant{Name: name, Image: img})
		return img
	}

	add(VariantOriginal, func() (*image.Gray, error) {
		return src, nil
	})
	add(VariantDenoised, func() (*image.Gray, error) {
		return toGray(effect.Median(src, medianSize)), nil
	})
	add(VariantEqualized, func() (*image.Gray, error) {
		return equalizeLocal(src, equalizeTiles, equalizeClip), nil
	})
	thresholded := add(VariantThresholded, func() (*image.Gray, error) {
		return binarize(src, sauvolaK, sauvolaWindow), nil
	})
	add(VariantClosed, func() (*image.Gray, error) {
		if thresholded == nil {
			return nil, fmt.Errorf("thresholded variant unavailable")
		}
		return closeStrokes(thresholded), nil
	})

	return variants, failures
}

// buildVariant runs a single treatment builder, converting panics inside
// filter code into errors so one bad treatment cannot abort the rest.
func buildVariant(build func() (*image.Gray, error)) (img *image.Gray, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("filter panicked: %v", r)
		}
	}()

	img, err = build()
	if err == nil && img == nil {
		err = fmt.Errorf("filter produced no image")
	}
	return img, err
}

// binarize applies Sauvola adaptive thresholding, classifying each pixel
// against a threshold computed from the mean and standard deviation of its
// local window:
//
//	threshold = mean * (1 + k*((stdDev/128) - 1))
//
// Pixels darker than the local threshold become black (0), all others white
// (255). Summed-area tables keep the per-pixel cost constant in the window
// size.
func binarize(img *image.Gray, k float64, window int) *image.Gray {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))

	it := newIntegral(img)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mean, stdDev := it.meanStdDev(x, y, window)
			threshold := mean * (1 + k*((stdDev/128)-1))
			if float64(img.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y) < threshold {
				out.SetGray(x, y, color.Gray{Y: 0})
			} else {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// closeStrokes performs morphological closing on the dark strokes of a
// binary image. Text is dark on a light background, so closing runs as a
// minimum filter (strokes grow, small gaps fuse) followed by a maximum
// filter (stroke weight is restored).
func closeStrokes(img *image.Gray) *image.Gray {
	eroded := effect.Erode(img, closingRadius)
	return toGray(effect.Dilate(eroded, closingRadius))
}

// equalizeLocal performs contrast-limited adaptive histogram equalization
// (CLAHE) over a grid of tiles.
//
// # Algorithm
//
//  1. Partition the image into a tiles x tiles grid.
//
//  2. For each tile, build its intensity histogram and clip every bin at
//     clip times the mean bin height. The clipped excess is redistributed
//     evenly across all bins, which limits the contrast amplification that
//     plain histogram equalization applies to near-uniform regions.
//
//  3. Turn each clipped histogram into an intensity lookup table via its
//     cumulative distribution.
//
//  4. Map every pixel through the lookup tables of the four nearest tile
//     centers, blending bilinearly by the pixel's distance to each. The
//     blending removes the visible tile seams that per-tile equalization
//     would otherwise produce.
func equalizeLocal(img *image.Gray, tiles int, clip float64) *image.Gray {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return img
	}

	tileW := (width + tiles - 1) / tiles
	tileH := (height + tiles - 1) / tiles
	cols := (width + tileW - 1) / tileW
	rows := (height + tileH - 1) / tileH

	// Per-tile lookup tables from clipped histograms.
	luts := make([][256]uint8, cols*rows)
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			x0 := tx * tileW
			y0 := ty * tileH
			x1 := x0 + tileW
			if x1 > width {
				x1 = width
			}
			y1 := y0 + tileH
			if y1 > height {
				y1 = height
			}

			var hist [256]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[img.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y]++
				}
			}

			area := (x1 - x0) * (y1 - y0)
			limit := int(clip * float64(area) / 256.0)
			if limit < 1 {
				limit = 1
			}

			// Clip bins and spread the excess evenly.
			excess := 0
			for i := range hist {
				if hist[i] > limit {
					excess += hist[i] - limit
					hist[i] = limit
				}
			}
			share := excess / 256
			remainder := excess % 256
			for i := range hist {
				hist[i] += share
				if i < remainder {
					hist[i]++
				}
			}

			// Cumulative distribution -> lookup table.
			scale := 255.0 / float64(area)
			cum := 0
			lut := &luts[ty*cols+tx]
			for i := 0; i < 256; i++ {
				cum += hist[i]
				lut[i] = uint8(clamp(int(math.Round(float64(cum)*scale)), 0, 255))
			}
		}
	}

	// Bilinear blend between the four surrounding tile lookup tables.
	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0 := int(math.Floor(fy))
		wy := fy - float64(ty0)
		ty1 := clamp(ty0+1, 0, rows-1)
		ty0 = clamp(ty0, 0, rows-1)

		for x := 0; x < width; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0 := int(math.Floor(fx))
			wx := fx - float64(tx0)
			tx1 := clamp(tx0+1, 0, cols-1)
			tx0 = clamp(tx0, 0, cols-1)

			v := img.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y
			v00 := float64(luts[ty0*cols+tx0][v])
			v10 := float64(luts[ty0*cols+tx1][v])
			v01 := float64(luts[ty1*cols+tx0][v])
			v11 := float64(luts[ty1*cols+tx1][v])

			top := (1-wx)*v00 + wx*v10
			bottom := (1-wx)*v01 + wx*v11
			blended := (1-wy)*top + wy*bottom
			out.SetGray(x, y, color.Gray{Y: uint8(clamp(int(math.Round(blended)), 0, 255))})
		}
	}

	return out
}

// clamp constrains val to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
