package demview_test

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-demview"
)

func newTestMapper(t *testing.T) *demview.Mapper {
	t.Helper()
	grid, err := demview.NewGridFromRows([][]float64{
		{0, 1, 2},
		{10, 11, 12},
		{20, 21, math.NaN()},
	})
	assert.NoError(t, err)
	mapper, err := demview.NewMapper(grid, demview.Transform{X0: 0, DX: 1, Y0: 10, DY: -1})
	assert.NoError(t, err)
	return mapper
}

func TestMapper_Query(t *testing.T) {
	mapper := newTestMapper(t)
	for _, tc := range []struct {
		name     string
		x, y     float64
		expected demview.Result
	}{
		{
			name:     "example",
			x:        1.4,
			y:        8.6,
			expected: demview.Result{X: 1.4, Y: 8.6, Col: 1, Row: 1, Value: 11},
		},
		{
			name:     "origin",
			x:        0,
			y:        10,
			expected: demview.Result{X: 0, Y: 10, Col: 0, Row: 0, Value: 0},
		},
		{
			name:     "round_half_away_from_zero",
			x:        1.5,
			y:        9.5,
			expected: demview.Result{X: 1.5, Y: 9.5, Col: 2, Row: 1, Value: 12},
		},
		{
			name:     "last_half_pixel",
			x:        2.9,
			y:        7.1,
			expected: demview.Result{X: 2.9, Y: 7.1, Col: 2, Row: 2, Value: math.NaN()},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := mapper.Query(tc.x, tc.y)
			assert.NoError(t, err)
			if math.IsNaN(tc.expected.Value) {
				assert.True(t, math.IsNaN(actual.Value))
				actual.Value, tc.expected.Value = 0, 0
			}
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestMapper_QueryOutOfBounds(t *testing.T) {
	mapper := newTestMapper(t)
	for _, tc := range []struct {
		name string
		x, y float64
	}{
		{name: "west", x: -0.01, y: 9},
		{name: "east_edge", x: 3, y: 9},
		{name: "east", x: 3.5, y: 9},
		{name: "north", x: 1, y: 10.01},
		{name: "south_edge", x: 1, y: 7},
		{name: "nan", x: math.NaN(), y: 9},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mapper.Query(tc.x, tc.y)
			assert.IsError(t, err, demview.ErrOutOfBounds)
		})
	}
}

func TestMapper_SampleAt(t *testing.T) {
	mapper := newTestMapper(t)
	for col := range 3 {
		for row := range 2 {
			actual, err := mapper.SampleAt(col, row)
			assert.NoError(t, err)
			assert.Equal(t, float64(10*row+col), actual)
		}
	}

	for _, pixel := range [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 3}} {
		_, err := mapper.SampleAt(pixel[0], pixel[1])
		assert.IsError(t, err, demview.ErrOutOfBounds)
	}
}

func TestMapper_Interpolate(t *testing.T) {
	mapper := newTestMapper(t)
	for _, tc := range []struct {
		x, y     float64
		expected float64
	}{
		{x: 0, y: 10, expected: 0},
		{x: 1, y: 9, expected: 11},
		{x: 0.5, y: 10, expected: 0.5},
		{x: 0, y: 9.5, expected: 5},
		{x: 0.5, y: 9.5, expected: 5.5},
		{x: 2.5, y: 9.5, expected: 7},
		{x: 0.5, y: 8.5, expected: 15.5},
		{x: 1.5, y: 7.5, expected: math.NaN()},
	} {
		actual, err := mapper.Interpolate(tc.x, tc.y)
		assert.NoError(t, err)
		if math.IsNaN(tc.expected) {
			assert.True(t, math.IsNaN(actual.Value))
		} else {
			assert.Equal(t, tc.expected, actual.Value)
		}
	}

	_, err := mapper.Interpolate(-1, 9)
	assert.IsError(t, err, demview.ErrOutOfBounds)
}

func TestMapper_Extent(t *testing.T) {
	mapper := newTestMapper(t)
	minX, minY, maxX, maxY := mapper.Extent()
	assert.Equal(t, [4]float64{0, 7, 3, 10}, [4]float64{minX, minY, maxX, maxY})
}

func TestNewMapper_InvalidTransform(t *testing.T) {
	grid, err := demview.NewGrid(1, 1, []float64{0})
	assert.NoError(t, err)
	_, err = demview.NewMapper(grid, demview.Transform{DX: 0, DY: -1})
	assert.IsError(t, err, demview.ErrInvalidTransform)
}

func TestNewGrid(t *testing.T) {
	_, err := demview.NewGrid(2, 2, []float64{1, 2, 3})
	assert.Error(t, err)
	_, err = demview.NewGrid(0, 2, nil)
	assert.Error(t, err)
	_, err = demview.NewGridFromRows([][]float64{{1, 2}, {3}})
	assert.Error(t, err)

	grid, err := demview.NewGridFromRows([][]float64{{math.NaN(), -5}, {7, math.Inf(1)}})
	assert.NoError(t, err)
	lo, hi := grid.Range()
	assert.Equal(t, -5.0, lo)
	assert.Equal(t, 7.0, hi)
}
