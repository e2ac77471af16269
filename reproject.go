package demview

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-proj/v10"
)

// EPSGWGS84 is the EPSG code of WGS 84 longitude/latitude.
const EPSGWGS84 = 4326

// A Reprojector converts coordinates in a tile's CRS to WGS 84 longitudes and
// latitudes.
type Reprojector struct {
	epsg int
	pj   *proj.PJ
}

// NewReprojector returns a new Reprojector from the CRS with EPSG code epsg.
func NewReprojector(epsg int) (*Reprojector, error) {
	switch {
	case epsg <= 0:
		return nil, errors.New("unknown CRS")
	case epsg == EPSGWGS84:
		return &Reprojector{
			epsg: epsg,
		}, nil
	}
	pj, err := proj.NewCRSToCRS(fmt.Sprintf("epsg:%d", epsg), fmt.Sprintf("epsg:%d", EPSGWGS84), nil)
	if err != nil {
		return nil, fmt.Errorf("epsg:%d: %w", epsg, err)
	}
	// Always easting, northing in and longitude, latitude out.
	normalizedPJ, err := pj.NormalizeForVisualization()
	if err != nil {
		return nil, fmt.Errorf("epsg:%d: %w", epsg, err)
	}
	return &Reprojector{
		epsg: epsg,
		pj:   normalizedPJ,
	}, nil
}

// EPSG returns the EPSG code of r's source CRS.
func (r *Reprojector) EPSG() int {
	return r.epsg
}

// ToWGS84 returns the longitude and latitude of (x, y).
func (r *Reprojector) ToWGS84(x, y float64) (float64, float64, error) {
	lonLats, err := r.ToWGS84Slices([][]float64{{x, y}})
	if err != nil {
		return 0, 0, err
	}
	return lonLats[0][0], lonLats[0][1], nil
}

// ToWGS84Slices returns the longitudes and latitudes of coords. coords is not
// modified.
func (r *Reprojector) ToWGS84Slices(coords [][]float64) ([][]float64, error) {
	lonLats := cloneCoords(coords)
	if r.pj == nil {
		return lonLats, nil
	}
	if err := r.pj.ForwardFloat64Slices(lonLats); err != nil {
		return nil, err
	}
	return lonLats, nil
}

func cloneCoords(coords [][]float64) [][]float64 {
	clonedCoordsFlat := make([]float64, 2*len(coords))
	clonedCoords := make([][]float64, len(coords))
	for i, coord := range coords {
		copy(clonedCoordsFlat[2*i:2*i+2], coord)
		clonedCoords[i] = clonedCoordsFlat[2*i : 2*i+2]
	}
	return clonedCoords
}
