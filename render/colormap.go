// Package render renders elevation grids as images.
package render

import (
	"cmp"
	"fmt"
	"image/color"
	"math"
	"slices"
	"strings"
)

// A Colormap maps values in [0, 1] to colors.
type Colormap interface {
	At(t float64) color.RGBA
}

// A Stop is a color at a position in a Gradient.
type Stop struct {
	T     float64
	Color color.RGBA
}

// A Gradient is a piecewise linear Colormap. Its stops are sorted by strictly
// increasing T.
type Gradient []Stop

var (
	// Earth runs from deep blue through green and brown to white, like
	// matplotlib's gist_earth.
	Earth = Gradient{
		{0.00, color.RGBA{0x00, 0x00, 0x00, 0xff}},
		{0.10, color.RGBA{0x1b, 0x3c, 0x79, 0xff}},
		{0.25, color.RGBA{0x37, 0x76, 0x82, 0xff}},
		{0.40, color.RGBA{0x48, 0x91, 0x59, 0xff}},
		{0.55, color.RGBA{0x83, 0xa3, 0x57, 0xff}},
		{0.70, color.RGBA{0xb4, 0xaa, 0x69, 0xff}},
		{0.85, color.RGBA{0xd4, 0xb5, 0x99, 0xff}},
		{1.00, color.RGBA{0xfd, 0xfa, 0xfa, 0xff}},
	}

	// Gray runs from black to white.
	Gray = Gradient{
		{0, color.RGBA{0x00, 0x00, 0x00, 0xff}},
		{1, color.RGBA{0xff, 0xff, 0xff, 0xff}},
	}

	// Terrain runs from sea blue through green and brown to white.
	Terrain = Gradient{
		{0.00, color.RGBA{0x33, 0x33, 0x99, 0xff}},
		{0.15, color.RGBA{0x00, 0x99, 0xff, 0xff}},
		{0.25, color.RGBA{0x00, 0xcc, 0x66, 0xff}},
		{0.50, color.RGBA{0xff, 0xff, 0x99, 0xff}},
		{0.75, color.RGBA{0x80, 0x5c, 0x54, 0xff}},
		{1.00, color.RGBA{0xff, 0xff, 0xff, 0xff}},
	}
)

var colormaps = map[string]Colormap{
	"earth":   Earth,
	"gray":    Gray,
	"terrain": Terrain,
}

// DefaultColormapName is the name of the default colormap.
const DefaultColormapName = "earth"

// ColormapNames returns the names of all colormaps, sorted.
func ColormapNames() []string {
	names := make([]string, 0, len(colormaps))
	for name := range colormaps {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LookupColormap returns the colormap with the given name. The empty name
// returns the default colormap.
func LookupColormap(name string) (Colormap, error) {
	if name == "" {
		name = DefaultColormapName
	}
	colormap, ok := colormaps[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%s: unknown colormap", name)
	}
	return colormap, nil
}

// NewGradient returns a Gradient with the given stops, which must number at
// least two and have strictly increasing, finite positions.
func NewGradient(stops ...Stop) (Gradient, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("%d stops: need at least 2", len(stops))
	}
	for i, s := range stops {
		switch {
		case math.IsNaN(s.T) || math.IsInf(s.T, 0):
			return nil, fmt.Errorf("stop %d: position %g is not finite", i, s.T)
		case i > 0 && s.T <= stops[i-1].T:
			return nil, fmt.Errorf("stop %d: position %g is not greater than %g", i, s.T, stops[i-1].T)
		}
	}
	return slices.Clone(Gradient(stops)), nil
}

// At returns the color at t. t is clamped to [0, 1].
func (g Gradient) At(t float64) color.RGBA {
	switch {
	case math.IsNaN(t):
		return color.RGBA{}
	case t <= g[0].T:
		return g[0].Color
	case t >= g[len(g)-1].T:
		return g[len(g)-1].Color
	}
	i, found := slices.BinarySearchFunc(g, t, func(s Stop, t float64) int {
		return cmp.Compare(s.T, t)
	})
	if found {
		return g[i].Color
	}
	s0, s1 := g[i-1], g[i]
	f := (t - s0.T) / (s1.T - s0.T)
	return color.RGBA{
		R: lerp(s0.Color.R, s1.Color.R, f),
		G: lerp(s0.Color.G, s1.Color.G, f),
		B: lerp(s0.Color.B, s1.Color.B, f),
		A: lerp(s0.Color.A, s1.Color.A, f),
	}
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + f*(float64(b)-float64(a))))
}
