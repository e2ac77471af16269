package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/twpayne/go-demview"
	"github.com/twpayne/go-demview/internal/config"
	"github.com/twpayne/go-demview/internal/logger"
	"github.com/twpayne/go-demview/render"
)

const colorbarWidth, colorbarHeight = 90, 300

// A viewer reports clicks on a tile.
type viewer struct {
	mapper      *demview.Mapper
	reprojector *demview.Reprojector
	interpolate bool
	stdout      io.Writer
	logger      *zerolog.Logger
}

// click reports the tile sample at the fractional pixel (col, row) and
// returns the report.
func (v *viewer) click(col, row float64) string {
	x, y := v.mapper.PixelToGeo(col, row)
	queryFunc := v.mapper.Query
	if v.interpolate {
		queryFunc = v.mapper.Interpolate
	}
	result, err := queryFunc(x, y)
	report := v.describe(x, y, result, err)
	fmt.Fprintln(v.stdout, report)
	if err != nil && !errors.Is(err, demview.ErrOutOfBounds) {
		v.logger.Error().Err(err).Float64("x", x).Float64("y", y).Msg("query")
	}
	return report
}

func (v *viewer) describe(x, y float64, result demview.Result, err error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Position: %g,%g\n", x, y)
	if v.reprojector != nil {
		if lon, lat, err := v.reprojector.ToWGS84(x, y); err == nil {
			fmt.Fprintf(&sb, "Longitude, latitude: %.6f,%.6f\n", lon, lat)
		}
	}
	switch {
	case errors.Is(err, demview.ErrOutOfBounds):
		sb.WriteString("Outside tile")
	case err != nil:
		fmt.Fprintf(&sb, "Error: %v", err)
	case math.IsNaN(result.Value):
		sb.WriteString("Elevation: no data")
	default:
		fmt.Fprintf(&sb, "Elevation: %g", result.Value)
	}
	return sb.String()
}

// displaySize returns the size at which to display a cols by rows tile with
// the given width.
func displaySize(cols, rows, width int) fyne.Size {
	height := float32(width) * float32(rows) / float32(cols)
	return fyne.NewSize(float32(width), height)
}

func run() error {
	cfg := config.FromEnv()

	tilePath := flag.String("tile", cfg.Tile, "path to GeoTIFF tile")
	colormapName := flag.String("cmap", cfg.Colormap, "colormap")
	width := flag.Int("width", cfg.DisplayWidth, "display width")
	interpolate := flag.Bool("interpolate", false, "interpolate between samples")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level")
	flag.Parse()

	if *tilePath == "" && flag.NArg() == 1 {
		*tilePath = flag.Arg(0)
	}
	if *tilePath == "" {
		return errors.New("syntax: demview [flags] tile.tif")
	}

	zl := logger.Build(logger.Config{
		Level:     *logLevel,
		Console:   true,
		Component: "demview",
	}, os.Stderr)

	colormap, err := render.LookupColormap(*colormapName)
	if err != nil {
		return err
	}
	tile, err := demview.OpenGeoTIFFFile(*tilePath)
	if err != nil {
		return err
	}

	v := &viewer{
		mapper:      tile.Mapper,
		interpolate: *interpolate,
		stdout:      os.Stdout,
		logger:      &zl,
	}
	if epsg := tile.EPSG(); epsg != 0 {
		if v.reprojector, err = demview.NewReprojector(epsg); err != nil {
			zl.Warn().Err(err).Int("epsg", epsg).Msg("no reprojection to WGS 84")
		}
	}

	grid := tile.Grid()
	cols, rows := grid.Dims()
	lo, hi := render.Range(grid)
	var img image.Image = render.Image(grid, colormap, lo, hi)
	size := displaySize(cols, rows, *width)
	if cols > *width {
		img = render.ScaleToWidth(img, *width)
	}

	a := app.New()
	w := a.NewWindow(filepath.Base(*tilePath))

	status := widget.NewLabel("Click on the tile")
	tileImage := newTileImage(img, cols, rows, size, func(col, row float64) {
		status.SetText(v.click(col, row))
	})
	colorbar := canvas.NewImageFromImage(render.Colorbar(colormap, lo, hi, colorbarWidth, colorbarHeight))
	colorbar.FillMode = canvas.ImageFillOriginal

	w.SetContent(container.NewBorder(nil, status, nil, container.NewVBox(colorbar), tileImage))
	w.Resize(fyne.NewSize(size.Width+colorbarWidth, size.Height+status.MinSize().Height))
	w.ShowAndRun()
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
