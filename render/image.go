package render

import (
	"image"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"

	"github.com/twpayne/go-demview"
)

// Range returns the range of values to use to render grid: the minimum and
// maximum finite samples, widened if they are equal.
func Range(grid *demview.Grid) (float64, float64) {
	lo, hi := grid.Range()
	switch {
	case math.IsNaN(lo):
		return 0, 1
	case lo == hi:
		return lo - 0.5, hi + 0.5
	default:
		return lo, hi
	}
}

// Image returns grid rendered with colormap, with lo and hi mapped to the
// ends of colormap. Missing samples are transparent.
func Image(grid *demview.Grid, colormap Colormap, lo, hi float64) *image.RGBA {
	cols, rows := grid.Dims()
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	scale := 1 / (hi - lo)
	for row := range rows {
		for col, sample := range grid.Row(row) {
			if math.IsNaN(sample) {
				continue
			}
			img.SetRGBA(col, row, colormap.At((sample-lo)*scale))
		}
	}
	return img
}

// Scale returns src scaled to width by height pixels. Nearest neighbor
// sampling is used so that each output pixel shows a single sample.
func Scale(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// ScaleToWidth returns src scaled to width pixels wide, preserving its
// aspect ratio.
func ScaleToWidth(src image.Image, width int) *image.RGBA {
	bounds := src.Bounds()
	height := max(1, int(math.Round(float64(width)*float64(bounds.Dy())/float64(bounds.Dx()))))
	return Scale(src, width, height)
}

// EncodePNG writes img to w as a PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	encoder := png.Encoder{
		CompressionLevel: png.BestSpeed,
	}
	return encoder.Encode(w, img)
}
