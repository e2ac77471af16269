package demview

import (
	"errors"
	"fmt"
	"math"
)

// A Result is the result of a point query.
type Result struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Col   int     `json:"col"`
	Row   int     `json:"row"`
	Value float64 `json:"value"`
}

// A Mapper maps geographic coordinates to samples in a Grid.
type Mapper struct {
	grid      *Grid
	transform Transform
}

// NewMapper returns a new Mapper.
func NewMapper(grid *Grid, transform Transform) (*Mapper, error) {
	if grid == nil {
		return nil, errors.New("nil grid")
	}
	if err := transform.Validate(); err != nil {
		return nil, err
	}
	return &Mapper{
		grid:      grid,
		transform: transform,
	}, nil
}

// Grid returns m's grid.
func (m *Mapper) Grid() *Grid {
	return m.grid
}

// Transform returns m's transform.
func (m *Mapper) Transform() Transform {
	return m.transform
}

// PixelToGeo returns the geographic coordinate of (col, row).
func (m *Mapper) PixelToGeo(col, row float64) (float64, float64) {
	return m.transform.PixelToGeo(col, row)
}

// GeoToPixel returns the pixel nearest to (x, y). The result may lie outside
// m's grid.
func (m *Mapper) GeoToPixel(x, y float64) (int, int, error) {
	return m.transform.GeoToPixel(x, y)
}

// SampleAt returns the sample at (col, row).
func (m *Mapper) SampleAt(col, row int) (float64, error) {
	return m.grid.SampleAt(col, row)
}

// Extent returns the bounding box of m's grid in geographic coordinates.
func (m *Mapper) Extent() (minX, minY, maxX, maxY float64) {
	cols, rows := m.grid.Dims()
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, corner := range [][2]float64{
		{0, 0},
		{float64(cols), 0},
		{0, float64(rows)},
		{float64(cols), float64(rows)},
	} {
		x, y := m.transform.PixelToGeo(corner[0], corner[1])
		minX, minY = min(minX, x), min(minY, y)
		maxX, maxY = max(maxX, x), max(maxY, y)
	}
	return
}

// Query returns the sample under the geographic coordinate (x, y).
//
// The grid covers the half-open pixel range [0, cols) x [0, rows): a point
// on the origin edge is inside, a point on the far edge is outside. Inside
// the grid the pixel coordinate is rounded to the nearest pixel, halfway
// cases away from zero, and clamped so that the last half pixel maps to the
// last column or row.
func (m *Mapper) Query(x, y float64) (Result, error) {
	fcol, frow, err := m.transform.GeoToPixelFloat(x, y)
	if err != nil {
		return Result{}, err
	}
	col, row, err := m.pixel(fcol, frow)
	if err != nil {
		return Result{}, fmt.Errorf("(%g, %g): %w", x, y, err)
	}
	value, err := m.grid.SampleAt(col, row)
	if err != nil {
		return Result{}, err
	}
	return Result{
		X:     x,
		Y:     y,
		Col:   col,
		Row:   row,
		Value: value,
	}, nil
}

// Interpolate returns the bilinear interpolation of the four samples
// surrounding the geographic coordinate (x, y). Samples are located at
// integer pixel coordinates. If any contributing sample is missing then the
// value is NaN.
func (m *Mapper) Interpolate(x, y float64) (Result, error) {
	fcol, frow, err := m.transform.GeoToPixelFloat(x, y)
	if err != nil {
		return Result{}, err
	}
	col, row, err := m.pixel(fcol, frow)
	if err != nil {
		return Result{}, fmt.Errorf("(%g, %g): %w", x, y, err)
	}

	cols, rows := m.grid.Dims()
	c0 := min(int(math.Floor(fcol)), cols-1)
	r0 := min(int(math.Floor(frow)), rows-1)
	c1 := min(c0+1, cols-1)
	r1 := min(r0+1, rows-1)
	dx := fcol - float64(c0)
	dy := frow - float64(r0)
	if c1 == c0 {
		dx = 0
	}
	if r1 == r0 {
		dy = 0
	}

	return Result{
		X:   x,
		Y:   y,
		Col: col,
		Row: row,
		Value: InterpolateBilinear(
			m.grid.at(c0, r0), m.grid.at(c1, r0),
			m.grid.at(c0, r1), m.grid.at(c1, r1),
			dx, dy,
		),
	}, nil
}

// pixel returns the pixel containing the fractional pixel coordinate (fcol,
// frow).
func (m *Mapper) pixel(fcol, frow float64) (int, int, error) {
	cols, rows := m.grid.Dims()
	if !(0 <= fcol && fcol < float64(cols) && 0 <= frow && frow < float64(rows)) {
		return 0, 0, fmt.Errorf("pixel (%g, %g) outside %dx%d grid: %w", fcol, frow, cols, rows, ErrOutOfBounds)
	}
	col := min(roundIndex(fcol), cols-1)
	row := min(roundIndex(frow), rows-1)
	return col, row, nil
}
