// Package config reads configuration from DEMVIEW_* environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const prefix = "DEMVIEW_"

type Config struct {
	Addr            string
	LogLevel        string
	LogConsole      bool
	Tile            string
	ASTERDir        string
	Colormap        string
	DisplayWidth    int
	PNGCacheSize    int
	TileCacheSize   int
	ShutdownTimeout time.Duration
}

func FromEnv() Config {
	displayWidth := getint("DISPLAY_WIDTH", 800)
	if displayWidth <= 0 {
		displayWidth = 800
	}
	return Config{
		Addr:            getenv("ADDR", ":8080"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogConsole:      getbool("LOG_CONSOLE", false),
		Tile:            getenv("TILE", ""),
		ASTERDir:        getenv("ASTER_DIR", ""),
		Colormap:        getenv("COLORMAP", "earth"),
		DisplayWidth:    displayWidth,
		PNGCacheSize:    getint("PNG_CACHE_SIZE", 64),
		TileCacheSize:   getint("TILE_CACHE_SIZE", 8),
		ShutdownTimeout: getduration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(prefix + k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(prefix + k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(prefix + k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(prefix + k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
