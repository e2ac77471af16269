package demview_test

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-demview"
)

func TestASTERTileFilename(t *testing.T) {
	for _, tc := range []struct {
		lon      float64
		lat      float64
		expected string
	}{
		{lon: 11.5, lat: 47.5, expected: "ASTGTM2_N47E011_dem.tif"},
		{lon: 0.5, lat: 0.5, expected: "ASTGTM2_N00E000_dem.tif"},
		{lon: -0.5, lat: -0.5, expected: "ASTGTM2_S01W001_dem.tif"},
		{lon: -179.5, lat: 89.5, expected: "ASTGTM2_N89W180_dem.tif"},
		{lon: 179.5, lat: -89.5, expected: "ASTGTM2_S90E179_dem.tif"},
	} {
		t.Run(tc.expected, func(t *testing.T) {
			tileCoord, ok := demview.DegreeTileCoord(tc.lon, tc.lat)
			assert.True(t, ok)
			assert.Equal(t, tc.expected, demview.ASTERTileFilename(tileCoord))
		})
	}
}

func TestDegreeTileCoord(t *testing.T) {
	for _, tc := range []struct {
		name     string
		lon      float64
		lat      float64
		expected demview.TileCoord
		ok       bool
	}{
		{name: "origin", expected: demview.TileCoord{}, ok: true},
		{name: "south_west", lon: -0.25, lat: -0.25, expected: demview.TileCoord{Lat: -1, Lon: -1}, ok: true},
		{name: "north_pole", lat: 90},
		{name: "antimeridian", lon: 180},
		{name: "nan", lon: 0, lat: math.NaN()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, ok := demview.DegreeTileCoord(tc.lon, tc.lat)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, actual)
		})
	}
}
