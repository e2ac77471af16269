package main

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// A tileImage displays a rendered tile and reports taps as fractional pixel
// coordinates in the tile.
type tileImage struct {
	widget.BaseWidget
	image    *canvas.Image
	cols     int
	rows     int
	onTapped func(col, row float64)
}

func newTileImage(img image.Image, cols, rows int, minSize fyne.Size, onTapped func(col, row float64)) *tileImage {
	t := &tileImage{
		image:    canvas.NewImageFromImage(img),
		cols:     cols,
		rows:     rows,
		onTapped: onTapped,
	}
	t.image.FillMode = canvas.ImageFillStretch
	t.image.ScaleMode = canvas.ImageScalePixels
	t.image.SetMinSize(minSize)
	t.ExtendBaseWidget(t)
	return t
}

func (t *tileImage) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.image)
}

func (t *tileImage) Tapped(event *fyne.PointEvent) {
	col, row, ok := tapToPixel(event.Position, t.Size(), t.cols, t.rows)
	if ok && t.onTapped != nil {
		t.onTapped(col, row)
	}
}

// tapToPixel converts a position in a widget of the given size showing a
// cols by rows tile to a fractional pixel coordinate.
func tapToPixel(position fyne.Position, size fyne.Size, cols, rows int) (float64, float64, bool) {
	if size.Width <= 0 || size.Height <= 0 {
		return 0, 0, false
	}
	col := float64(position.X) / float64(size.Width) * float64(cols)
	row := float64(position.Y) / float64(size.Height) * float64(rows)
	return col, row, true
}
