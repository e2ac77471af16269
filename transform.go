package demview

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTransform is returned when a Transform cannot be inverted.
var ErrInvalidTransform = errors.New("invalid transform")

// A Transform is an affine transform from pixel coordinates to geographic
// coordinates. Its fields are in the same order as a GDAL GeoTransform:
//
//	x = X0 + DX*col + RowRot*row
//	y = Y0 + ColRot*col + DY*row
type Transform struct {
	X0     float64
	DX     float64
	RowRot float64
	Y0     float64
	ColRot float64
	DY     float64
}

// NewTransform returns a new Transform from the six coefficients of a GDAL
// GeoTransform.
func NewTransform(coefficients [6]float64) Transform {
	return Transform{
		X0:     coefficients[0],
		DX:     coefficients[1],
		RowRot: coefficients[2],
		Y0:     coefficients[3],
		ColRot: coefficients[4],
		DY:     coefficients[5],
	}
}

// Coefficients returns t's coefficients in GDAL GeoTransform order.
func (t Transform) Coefficients() [6]float64 {
	return [6]float64{t.X0, t.DX, t.RowRot, t.Y0, t.ColRot, t.DY}
}

// Determinant returns the determinant of t's linear part.
func (t Transform) Determinant() float64 {
	return t.DX*t.DY - t.RowRot*t.ColRot
}

// AxisAligned returns whether t has no rotation terms.
func (t Transform) AxisAligned() bool {
	return t.RowRot == 0 && t.ColRot == 0
}

// Validate returns ErrInvalidTransform if t cannot be inverted.
func (t Transform) Validate() error {
	for _, c := range t.Coefficients() {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: non-finite coefficient", ErrInvalidTransform)
		}
	}
	if det := t.Determinant(); det == 0 || math.IsInf(det, 0) {
		return fmt.Errorf("%w: determinant is %g", ErrInvalidTransform, det)
	}
	return nil
}

// PixelToGeo returns the geographic coordinate of the pixel coordinate (col,
// row). Integer arguments address the pixel's upper left corner.
func (t Transform) PixelToGeo(col, row float64) (float64, float64) {
	x := t.X0 + t.DX*col + t.RowRot*row
	y := t.Y0 + t.ColRot*col + t.DY*row
	return x, y
}

// GeoToPixelFloat returns the fractional pixel coordinate of the geographic
// coordinate (x, y).
func (t Transform) GeoToPixelFloat(x, y float64) (float64, float64, error) {
	if err := t.Validate(); err != nil {
		return 0, 0, err
	}
	u, v := x-t.X0, y-t.Y0
	if t.AxisAligned() {
		return u / t.DX, v / t.DY, nil
	}
	det := t.Determinant()
	col := (t.DY*u - t.RowRot*v) / det
	row := (t.DX*v - t.ColRot*u) / det
	return col, row, nil
}

// GeoToPixel returns the pixel coordinate nearest to the geographic
// coordinate (x, y). Halfway cases round away from zero. Coordinates that map
// to a non-finite or unrepresentable pixel return ErrOutOfBounds.
func (t Transform) GeoToPixel(x, y float64) (int, int, error) {
	col, row, err := t.GeoToPixelFloat(x, y)
	if err != nil {
		return 0, 0, err
	}
	if !inIndexRange(col) || !inIndexRange(row) {
		return 0, 0, fmt.Errorf("pixel (%g, %g): %w", col, row, ErrOutOfBounds)
	}
	return roundIndex(col), roundIndex(row), nil
}

// inIndexRange returns whether f is finite and small enough to round to an
// int without overflow.
func inIndexRange(f float64) bool {
	return math.Abs(f) < 1<<53
}

func roundIndex(f float64) int {
	return int(math.Round(f))
}
