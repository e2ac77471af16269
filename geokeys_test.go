package demview

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseGeoKeys(t *testing.T) {
	// GeoKeys of an ASTER GDEM v2 tile.
	directory := []uint16{
		1, 1, 0, 4,
		1024, 0, 1, 2,
		1025, 0, 1, 2,
		2048, 0, 1, 4326,
		2049, 34737, 7, 0,
	}
	asciiParams := []byte("WGS 84|")

	actual, err := ParseGeoKeys(directory, nil, asciiParams)
	assert.NoError(t, err)
	assert.Equal(t, &ParsedGeoKeys{
		Params: map[GeoKey]int{
			GeoKeyGTModelType:  ModelTypeGeographic,
			GeoKeyGTRasterType: rasterPixelIsPoint,
			GeoKeyGeodeticCRS:  4326,
		},
		DoubleParams: map[GeoKey]float64{},
		ASCIIParams: map[GeoKey]string{
			GeoKeyGeogCitation: "WGS 84|",
		},
	}, actual)
	assert.Equal(t, 4326, actual.EPSG())
}

func TestParseGeoKeys_DoubleParams(t *testing.T) {
	directory := []uint16{
		1, 1, 0, 3,
		1024, 0, 1, 1,
		3072, 0, 1, 32767,
		3082, 34736, 1, 1,
	}
	doubleParams := []float64{52, 4321000}

	actual, err := ParseGeoKeys(directory, doubleParams, nil)
	assert.NoError(t, err)
	assert.Equal(t, map[GeoKey]float64{3082: 4321000}, actual.DoubleParams)
	assert.Equal(t, 0, actual.EPSG())
}

func TestParseGeoKeys_Errors(t *testing.T) {
	for _, tc := range []struct {
		name         string
		directory    []uint16
		doubleParams []float64
		asciiParams  []byte
	}{
		{
			name:      "short",
			directory: []uint16{1, 1, 0},
		},
		{
			name:      "version",
			directory: []uint16{2, 1, 0, 0},
		},
		{
			name:      "truncated",
			directory: []uint16{1, 1, 0, 2, 1024, 0, 1, 1},
		},
		{
			name:         "double_index",
			directory:    []uint16{1, 1, 0, 1, 3082, 34736, 1, 4},
			doubleParams: []float64{0},
		},
		{
			name:        "ascii_range",
			directory:   []uint16{1, 1, 0, 1, 1026, 34737, 10, 0},
			asciiParams: []byte("short|"),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseGeoKeys(tc.directory, tc.doubleParams, tc.asciiParams)
			assert.IsError(t, err, errParse)
		})
	}
}

func TestParsedGeoKeys_EPSG(t *testing.T) {
	var nilGeoKeys *ParsedGeoKeys
	assert.Equal(t, 0, nilGeoKeys.EPSG())

	projected := &ParsedGeoKeys{
		Params: map[GeoKey]int{
			GeoKeyGTModelType:  ModelTypeProjected,
			GeoKeyProjectedCRS: 3035,
			GeoKeyGeodeticCRS:  4258,
		},
	}
	assert.Equal(t, 3035, projected.EPSG())
}
