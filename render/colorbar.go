package render

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/fogleman/gg"
)

const colorbarMargin = 8

// Colorbar returns a vertical legend for colormap over [lo, hi], with hi at
// the top.
func Colorbar(colormap Colormap, lo, hi float64, width, height int) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	barWidth := max(1, width/3)
	barTop, barBottom := colorbarMargin, max(colorbarMargin+1, height-colorbarMargin)
	barHeight := barBottom - barTop
	for y := barTop; y < barBottom; y++ {
		t := 1 - float64(y-barTop)/float64(max(1, barHeight-1))
		dc.SetColor(colormap.At(t))
		dc.DrawRectangle(colorbarMargin, float64(y), float64(barWidth), 1)
		dc.Fill()
	}
	dc.SetColor(color.Black)
	dc.SetLineWidth(1)
	dc.DrawRectangle(colorbarMargin, float64(barTop), float64(barWidth), float64(barHeight))
	dc.Stroke()

	labelX := float64(colorbarMargin + barWidth + 4)
	for _, tick := range []struct {
		value float64
		y     float64
	}{
		{hi, float64(barTop)},
		{(lo + hi) / 2, float64(barTop+barBottom) / 2},
		{lo, float64(barBottom)},
	} {
		dc.DrawLine(float64(colorbarMargin+barWidth), tick.y, labelX-1, tick.y)
		dc.Stroke()
		dc.DrawStringAnchored(formatValue(tick.value), labelX, tick.y, 0, 0.35)
	}
	return dc.Image()
}

func formatValue(value float64) string {
	return strconv.FormatFloat(math.Round(10*value)/10, 'f', -1, 64)
}
