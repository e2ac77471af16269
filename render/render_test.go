package render_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-demview"
	"github.com/twpayne/go-demview/render"
)

func TestGradient_At(t *testing.T) {
	for _, tc := range []struct {
		name     string
		t        float64
		expected color.RGBA
	}{
		{name: "below", t: -1, expected: color.RGBA{0x00, 0x00, 0x00, 0xff}},
		{name: "start", t: 0, expected: color.RGBA{0x00, 0x00, 0x00, 0xff}},
		{name: "middle", t: 0.5, expected: color.RGBA{0x80, 0x80, 0x80, 0xff}},
		{name: "end", t: 1, expected: color.RGBA{0xff, 0xff, 0xff, 0xff}},
		{name: "above", t: 2, expected: color.RGBA{0xff, 0xff, 0xff, 0xff}},
		{name: "nan", t: math.NaN(), expected: color.RGBA{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, render.Gray.At(tc.t))
		})
	}
}

func TestEarth_At(t *testing.T) {
	assert.Equal(t, color.RGBA{0x48, 0x91, 0x59, 0xff}, render.Earth.At(0.4))
	assert.Equal(t, color.RGBA{0xfd, 0xfa, 0xfa, 0xff}, render.Earth.At(1))
}

func TestNewGradient(t *testing.T) {
	stops := []render.Stop{
		{T: 0, Color: color.RGBA{0x00, 0x00, 0x00, 0xff}},
		{T: 0.5, Color: color.RGBA{0xc8, 0x64, 0x00, 0xff}},
		{T: 1, Color: color.RGBA{0xc8, 0x64, 0xc8, 0xff}},
	}
	gradient, err := render.NewGradient(stops...)
	assert.NoError(t, err)
	stops[1].Color = color.RGBA{}

	var colormap render.Colormap = gradient
	assert.Equal(t, color.RGBA{0x64, 0x32, 0x00, 0xff}, colormap.At(0.25))
	assert.Equal(t, color.RGBA{0xc8, 0x64, 0x00, 0xff}, colormap.At(0.5))
	assert.Equal(t, color.RGBA{0xc8, 0x64, 0x64, 0xff}, colormap.At(0.75))
	assert.Equal(t, color.RGBA{0xc8, 0x64, 0xc8, 0xff}, colormap.At(1))
}

func TestNewGradient_Errors(t *testing.T) {
	for _, tc := range []struct {
		name          string
		stops         []render.Stop
		expectedError string
	}{
		{
			name:          "empty",
			expectedError: "0 stops: need at least 2",
		},
		{
			name:          "single",
			stops:         []render.Stop{{T: 0}},
			expectedError: "1 stops: need at least 2",
		},
		{
			name:          "decreasing",
			stops:         []render.Stop{{T: 0.5}, {T: 0.25}},
			expectedError: "stop 1: position 0.25 is not greater than 0.5",
		},
		{
			name:          "duplicate",
			stops:         []render.Stop{{T: 0}, {T: 0}},
			expectedError: "stop 1: position 0 is not greater than 0",
		},
		{
			name:          "nan",
			stops:         []render.Stop{{T: math.NaN()}, {T: 1}},
			expectedError: "stop 0: position NaN is not finite",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := render.NewGradient(tc.stops...)
			assert.EqualError(t, err, tc.expectedError)
		})
	}
}

func TestLookupColormap(t *testing.T) {
	colormap, err := render.LookupColormap("")
	assert.NoError(t, err)
	assert.Equal(t, render.Colormap(render.Earth), colormap)

	colormap, err = render.LookupColormap("Gray")
	assert.NoError(t, err)
	assert.Equal(t, render.Colormap(render.Gray), colormap)

	_, err = render.LookupColormap("viridis")
	assert.EqualError(t, err, "viridis: unknown colormap")

	assert.Equal(t, []string{"earth", "gray", "terrain"}, render.ColormapNames())
}

func newTestGrid(t *testing.T) *demview.Grid {
	t.Helper()
	grid, err := demview.NewGridFromRows([][]float64{
		{0, 50, 100},
		{25, math.NaN(), 75},
	})
	assert.NoError(t, err)
	return grid
}

func TestRange(t *testing.T) {
	lo, hi := render.Range(newTestGrid(t))
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 100.0, hi)

	flat, err := demview.NewGridFromRows([][]float64{{7, 7}})
	assert.NoError(t, err)
	lo, hi = render.Range(flat)
	assert.Equal(t, 6.5, lo)
	assert.Equal(t, 7.5, hi)

	empty, err := demview.NewGridFromRows([][]float64{{math.NaN()}})
	assert.NoError(t, err)
	lo, hi = render.Range(empty)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestImage(t *testing.T) {
	img := render.Image(newTestGrid(t), render.Gray, 0, 100)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	assert.Equal(t, color.RGBA{0x00, 0x00, 0x00, 0xff}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0x80, 0x80, 0x80, 0xff}, img.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, img.RGBAAt(2, 0))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(1, 1))
}

func TestScale(t *testing.T) {
	img := render.Image(newTestGrid(t), render.Gray, 0, 100)

	scaled := render.Scale(img, 6, 4)
	assert.Equal(t, image.Rect(0, 0, 6, 4), scaled.Bounds())
	assert.Equal(t, img.RGBAAt(2, 0), scaled.RGBAAt(5, 1))
	assert.Equal(t, img.RGBAAt(1, 1), scaled.RGBAAt(3, 3))

	scaled = render.ScaleToWidth(img, 30)
	assert.Equal(t, image.Rect(0, 0, 30, 20), scaled.Bounds())
}

func TestColorbar(t *testing.T) {
	img := render.Colorbar(render.Gray, 0, 100, 90, 200)
	assert.Equal(t, image.Rect(0, 0, 90, 200), img.Bounds())

	// Inside the bar, light at the top and dark at the bottom.
	top := color.RGBAModel.Convert(img.At(20, 20)).(color.RGBA)
	bottom := color.RGBAModel.Convert(img.At(20, 180)).(color.RGBA)
	assert.True(t, top.R > 200, "top %v", top)
	assert.True(t, bottom.R < 50, "bottom %v", bottom)
}

func TestEncodePNG(t *testing.T) {
	img := render.Image(newTestGrid(t), render.Earth, 0, 100)
	var buf bytes.Buffer
	assert.NoError(t, render.EncodePNG(&buf, img))

	decoded, err := png.Decode(&buf)
	assert.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}
