package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/twpayne/go-demview"
	"github.com/twpayne/go-demview/internal/config"
	"github.com/twpayne/go-demview/internal/logger"
	"github.com/twpayne/go-demview/internal/server"
)

func run() error {
	cfg := config.FromEnv()

	tilePath := flag.String("tile", cfg.Tile, "path to GeoTIFF tile")
	addr := flag.String("addr", cfg.Addr, "listen address")
	colormap := flag.String("cmap", cfg.Colormap, "default colormap")
	width := flag.Int("width", cfg.DisplayWidth, "default display width")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level")
	logConsole := flag.Bool("log-console", cfg.LogConsole, "log human readable output")
	flag.Parse()

	if *tilePath == "" && flag.NArg() == 1 {
		*tilePath = flag.Arg(0)
	}
	if *tilePath == "" {
		return errors.New("syntax: demserve [flags] tile.tif")
	}

	zl := logger.Build(logger.Config{
		Level:     *logLevel,
		Console:   *logConsole,
		Component: "demserve",
	}, os.Stderr)

	tile, err := demview.OpenGeoTIFFFile(*tilePath)
	if err != nil {
		return err
	}
	cols, rows := tile.Grid().Dims()
	zl.Info().
		Str("tile", *tilePath).
		Int("cols", cols).
		Int("rows", rows).
		Int("epsg", tile.EPSG()).
		Msg("tile loaded")

	options := []server.Option{
		server.WithName(filepath.Base(*tilePath)),
		server.WithEPSG(tile.EPSG()),
		server.WithColormap(*colormap),
		server.WithWidth(*width),
		server.WithPNGCacheSize(cfg.PNGCacheSize),
		server.WithLogger(&zl),
	}
	if epsg := tile.EPSG(); epsg != 0 {
		if reprojector, err := demview.NewReprojector(epsg); err != nil {
			zl.Warn().Err(err).Int("epsg", epsg).Msg("no reprojection to WGS 84")
		} else {
			options = append(options, server.WithReprojector(reprojector))
		}
	}
	s, err := server.New(tile.Mapper, options...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, *addr, s.Handler(), cfg.ShutdownTimeout, &zl); err != nil {
		return err
	}
	zl.Info().Msg("server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
