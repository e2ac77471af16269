package demview_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-demview"
)

func TestTransform_PixelToGeo(t *testing.T) {
	for _, tc := range []struct {
		name      string
		transform demview.Transform
		col, row  float64
		expectedX float64
		expectedY float64
	}{
		{
			name:      "origin",
			transform: demview.Transform{X0: 11, DX: 0.25, Y0: 48, DY: -0.25},
			expectedX: 11,
			expectedY: 48,
		},
		{
			name:      "axis_aligned",
			transform: demview.Transform{X0: 11, DX: 0.25, Y0: 48, DY: -0.25},
			col:       2,
			row:       4,
			expectedX: 11.5,
			expectedY: 47,
		},
		{
			name:      "rotated",
			transform: demview.Transform{X0: 500, DX: 10, RowRot: 1, Y0: 1000, ColRot: 2, DY: -10},
			col:       3,
			row:       5,
			expectedX: 535,
			expectedY: 956,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.transform.PixelToGeo(tc.col, tc.row)
			assert.Equal(t, tc.expectedX, x)
			assert.Equal(t, tc.expectedY, y)
		})
	}
}

func TestTransform_GeoToPixel(t *testing.T) {
	transform := demview.Transform{X0: 0, DX: 1, Y0: 10, DY: -1}
	for _, tc := range []struct {
		x, y        float64
		expectedCol int
		expectedRow int
	}{
		{x: 1.4, y: 8.6, expectedCol: 1, expectedRow: 1},
		{x: 0, y: 10, expectedCol: 0, expectedRow: 0},
		{x: 0.5, y: 9.5, expectedCol: 1, expectedRow: 1},
		{x: -0.5, y: 10.5, expectedCol: -1, expectedRow: -1},
		{x: 2.49, y: 7.51, expectedCol: 2, expectedRow: 2},
	} {
		col, row, err := transform.GeoToPixel(tc.x, tc.y)
		assert.NoError(t, err)
		assert.Equal(t, tc.expectedCol, col)
		assert.Equal(t, tc.expectedRow, row)
	}
}

func TestTransform_GeoToPixelRotated(t *testing.T) {
	transform := demview.Transform{X0: 500, DX: 10, RowRot: 1, Y0: 1000, ColRot: 2, DY: -10}
	for col := range 8 {
		for row := range 8 {
			x, y := transform.PixelToGeo(float64(col), float64(row))
			actualCol, actualRow, err := transform.GeoToPixel(x, y)
			assert.NoError(t, err)
			assert.Equal(t, col, actualCol)
			assert.Equal(t, row, actualRow)
		}
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(0, 0))
	for range 1024 {
		transform := demview.Transform{
			X0: 360*r.Float64() - 180,
			DX: r.Float64() + 1e-6,
			Y0: 180*r.Float64() - 90,
			DY: -r.Float64() - 1e-6,
		}
		col, row := r.IntN(3601), r.IntN(3601)
		x, y := transform.PixelToGeo(float64(col), float64(row))
		actualCol, actualRow, err := transform.GeoToPixel(x, y)
		assert.NoError(t, err)
		assert.Equal(t, col, actualCol)
		assert.Equal(t, row, actualRow)
	}
}

func TestTransform_InvalidTransform(t *testing.T) {
	for _, tc := range []struct {
		name      string
		transform demview.Transform
	}{
		{
			name:      "zero_dx",
			transform: demview.Transform{X0: 0, DX: 0, Y0: 10, DY: -1},
		},
		{
			name:      "zero_dy",
			transform: demview.Transform{X0: 0, DX: 1, Y0: 10, DY: 0},
		},
		{
			name:      "zero_determinant",
			transform: demview.Transform{DX: 1, RowRot: 2, ColRot: 3, DY: 6},
		},
		{
			name:      "nan",
			transform: demview.Transform{X0: math.NaN(), DX: 1, DY: -1},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := tc.transform.GeoToPixel(1, 1)
			assert.IsError(t, err, demview.ErrInvalidTransform)
		})
	}
}

func TestTransform_GeoToPixelUnrepresentable(t *testing.T) {
	transform := demview.Transform{X0: 11, DX: 0.25, Y0: 48, DY: -0.5}
	for _, tc := range []struct {
		name string
		x, y float64
	}{
		{name: "huge", x: 1e300, y: -1e300},
		{name: "huge_row", x: 11, y: 1e20},
		{name: "inf", x: math.Inf(1), y: 48},
		{name: "neg_inf", x: 11, y: math.Inf(-1)},
		{name: "nan", x: math.NaN(), y: 48},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := transform.GeoToPixel(tc.x, tc.y)
			assert.IsError(t, err, demview.ErrOutOfBounds)
		})
	}
}

func TestNewTransform(t *testing.T) {
	coefficients := [6]float64{10.999861111111111, 0.000277777777778, 0, 48.000138888888891, 0, -0.000277777777778}
	transform := demview.NewTransform(coefficients)
	assert.Equal(t, demview.Transform{
		X0: 10.999861111111111,
		DX: 0.000277777777778,
		Y0: 48.000138888888891,
		DY: -0.000277777777778,
	}, transform)
	assert.Equal(t, coefficients, transform.Coefficients())
	assert.True(t, transform.AxisAligned())
}
