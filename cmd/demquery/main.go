package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/twpayne/go-demview"
	"github.com/twpayne/go-demview/internal/config"
)

func run(args []string, stdout io.Writer) error {
	cfg := config.FromEnv()

	flagSet := flag.NewFlagSet("demquery", flag.ContinueOnError)
	tilePath := flagSet.String("tile", cfg.Tile, "path to GeoTIFF tile")
	asterDir := flagSet.String("aster-dir", cfg.ASTERDir, "path to ASTER GDEM v2 tiles")
	interpolate := flagSet.Bool("interpolate", false, "interpolate between samples")
	missingReport := flagSet.Bool("missing-report", false, "report missing ASTER tiles")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if flagSet.NArg() == 0 || flagSet.NArg()%2 != 0 {
		return errors.New("syntax: demquery (-tile file x y | -aster-dir dir latitude longitude)...")
	}
	coords := make([][2]float64, 0, flagSet.NArg()/2)
	for i := 0; i < flagSet.NArg(); i += 2 {
		a, err := strconv.ParseFloat(flagSet.Arg(i), 64)
		if err != nil {
			return err
		}
		b, err := strconv.ParseFloat(flagSet.Arg(i+1), 64)
		if err != nil {
			return err
		}
		coords = append(coords, [2]float64{a, b})
	}

	switch {
	case *tilePath != "":
		return queryTile(stdout, *tilePath, coords, *interpolate)
	case *asterDir != "":
		return queryASTER(stdout, *asterDir, coords, *missingReport, cfg.TileCacheSize)
	default:
		return errors.New("one of -tile or -aster-dir is required")
	}
}

func queryTile(w io.Writer, path string, coords [][2]float64, interpolate bool) error {
	tile, err := demview.OpenGeoTIFFFile(path)
	if err != nil {
		return err
	}
	queryFunc := tile.Query
	if interpolate {
		queryFunc = tile.Interpolate
	}
	for _, coord := range coords {
		x, y := coord[0], coord[1]
		fmt.Fprintf(w, "Position: %g,%g\n", x, y)
		switch result, err := queryFunc(x, y); {
		case errors.Is(err, demview.ErrOutOfBounds):
			fmt.Fprintln(w, "Outside tile")
		case err != nil:
			return err
		default:
			fmt.Fprintf(w, "Pixel: %d,%d\n", result.Col, result.Row)
			fmt.Fprintf(w, "Elevation: %s\n", formatElevation(result.Value))
		}
	}
	return nil
}

func queryASTER(w io.Writer, dir string, coords [][2]float64, missingReport bool, cacheSize int) error {
	tileSet, err := demview.NewASTER(os.DirFS(dir), demview.WithCacheSize(cacheSize))
	if err != nil {
		return err
	}
	lonLats := make([][]float64, 0, len(coords))
	for _, coord := range coords {
		lonLats = append(lonLats, []float64{coord[1], coord[0]})
	}
	elevations, err := tileSet.Elevations(context.Background(), lonLats)
	if err != nil {
		return err
	}
	for i, elevation := range elevations {
		fmt.Fprintf(w, "%g %g %s\n", coords[i][0], coords[i][1], formatElevation(elevation))
	}
	if missingReport {
		return tileSet.WriteMissingTilesReport(w)
	}
	return nil
}

func formatElevation(elevation float64) string {
	if math.IsNaN(elevation) {
		return "no data"
	}
	return strconv.FormatFloat(elevation, 'f', -1, 64)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
