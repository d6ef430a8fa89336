package imaging

import (
	"image"
	"math"
)

// integral holds summed-area tables over a grayscale image. The tables are
// padded with a zero row and column so window sums need no border special
// cases. Once built, the mean and standard deviation of any rectangular
// window can be read in constant time regardless of window size.
type integral struct {
	sum    [][]uint64 // sum[y+1][x+1] covers pixels [0,x] x [0,y]
	sqSum  [][]uint64 // same layout, squared pixel values
	width  int
	height int
}

// newIntegral builds both summed-area tables in a single pass over the image.
func newIntegral(img *image.Gray) *integral {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	sum := make([][]uint64, height+1)
	sqSum := make([][]uint64, height+1)
	sum[0] = make([]uint64, width+1)
	sqSum[0] = make([]uint64, width+1)

	for y := 0; y < height; y++ {
		sum[y+1] = make([]uint64, width+1)
		sqSum[y+1] = make([]uint64, width+1)
		for x := 0; x < width; x++ {
			pixel := uint64(img.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y)
			sum[y+1][x+1] = pixel + sum[y][x+1] + sum[y+1][x] - sum[y][x]
			sqSum[y+1][x+1] = pixel*pixel + sqSum[y][x+1] + sqSum[y+1][x] - sqSum[y][x]
		}
	}

	return &integral{sum: sum, sqSum: sqSum, width: width, height: height}
}

// meanStdDev returns the mean and standard deviation of the pixel window of
// the given size centered on (x, y). Windows extending past the image edge
// are clamped, so border statistics come from the visible portion only.
func (it *integral) meanStdDev(x, y, size int) (mean, stdDev float64) {
	step := size / 2

	x0 := x - step
	if x0 < 0 {
		x0 = 0
	}
	y0 := y - step
	if y0 < 0 {
		y0 = 0
	}
	x1 := x + step + 1
	if x1 > it.width {
		x1 = it.width
	}
	y1 := y + step + 1
	if y1 > it.height {
		y1 = it.height
	}

	area := float64((x1 - x0) * (y1 - y0))
	total := float64(it.sum[y1][x1] - it.sum[y0][x1] - it.sum[y1][x0] + it.sum[y0][x0])
	sqTotal := float64(it.sqSum[y1][x1] - it.sqSum[y0][x1] - it.sqSum[y1][x0] + it.sqSum[y0][x0])

	mean = total / area
	variance := sqTotal/area - mean*mean
	if variance < 0 {
		// Guard against a tiny negative from float rounding.
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
