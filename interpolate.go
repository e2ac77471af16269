package demview

import "math"

// InterpolateBilinear interpolates between the four samples at the corners
// of a unit square. s00 is at (0, 0), s10 at (1, 0), s01 at (0, 1), and s11
// at (1, 1). Samples with zero weight are ignored, otherwise a NaN sample
// makes the result NaN.
func InterpolateBilinear(s00, s10, s01, s11, dx, dy float64) float64 {
	result := 0.0
	for _, term := range [4][2]float64{
		{s00, (1 - dx) * (1 - dy)},
		{s10, dx * (1 - dy)},
		{s01, (1 - dx) * dy},
		{s11, dx * dy},
	} {
		sample, weight := term[0], term[1]
		if weight == 0 {
			continue
		}
		if math.IsNaN(sample) {
			return math.NaN()
		}
		result += weight * sample
	}
	return result
}
