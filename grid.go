package demview

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfBounds is returned when a coordinate lies outside a grid.
var ErrOutOfBounds = errors.New("out of bounds")

// A Grid is an immutable row-major grid of samples. Missing samples are
// represented by NaNs.
type Grid struct {
	cols    int
	rows    int
	samples []float64
}

// NewGrid returns a new Grid with the given dimensions. samples is retained,
// callers must not modify it afterwards.
func NewGrid(cols, rows int, samples []float64) (*Grid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%d", cols, rows)
	}
	if len(samples) != cols*rows {
		return nil, fmt.Errorf("got %d samples, expected %d", len(samples), cols*rows)
	}
	return &Grid{
		cols:    cols,
		rows:    rows,
		samples: samples,
	}, nil
}

// NewGridFromRows returns a new Grid from a slice of rows.
func NewGridFromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return nil, errors.New("no rows")
	}
	cols := len(rows[0])
	samples := make([]float64, 0, cols*len(rows))
	for r, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d: got %d columns, expected %d", r, len(row), cols)
		}
		samples = append(samples, row...)
	}
	return NewGrid(cols, len(rows), samples)
}

// Dims returns the number of columns and rows in g.
func (g *Grid) Dims() (int, int) {
	return g.cols, g.rows
}

// Contains returns whether (col, row) is inside g.
func (g *Grid) Contains(col, row int) bool {
	return 0 <= col && col < g.cols && 0 <= row && row < g.rows
}

// SampleAt returns the sample at (col, row).
func (g *Grid) SampleAt(col, row int) (float64, error) {
	if !g.Contains(col, row) {
		return 0, fmt.Errorf("pixel (%d, %d) outside %dx%d grid: %w", col, row, g.cols, g.rows, ErrOutOfBounds)
	}
	return g.samples[col+row*g.cols], nil
}

// Row returns the samples in row. The returned slice shares g's storage and
// must not be modified.
func (g *Grid) Row(row int) []float64 {
	return g.samples[row*g.cols : (row+1)*g.cols : (row+1)*g.cols]
}

// Range returns the minimum and maximum finite samples in g. If g has no
// finite samples then both are NaN.
func (g *Grid) Range() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, sample := range g.samples {
		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			continue
		}
		lo = min(lo, sample)
		hi = max(hi, sample)
	}
	if lo > hi {
		return math.NaN(), math.NaN()
	}
	return lo, hi
}

// at returns the sample at (col, row) without bounds checking.
func (g *Grid) at(col, row int) float64 {
	return g.samples[col+row*g.cols]
}
