package demview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	missingTileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demview_missing_tile_cache_hits_total",
		Help: "The total number of hits on the missing tile cache",
	})
	missingTileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demview_missing_tile_cache_misses_total",
		Help: "The total number of misses on the missing tile cache",
	})
	tileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demview_tile_cache_hits_total",
		Help: "The total number of hits on the tile cache",
	})
	tileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demview_tile_cache_misses_total",
		Help: "The total number of misses on the tile cache",
	})
	tileCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demview_tile_cache_evictions_total",
		Help: "The total number of evictions from the tile cache",
	})
	tileDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demview_tile_decode_errors_total",
		Help: "The total number of tiles that exist but could not be decoded",
	})
)

// A TileCoord identifies a tile by the latitude and longitude of its south
// west corner.
type TileCoord struct {
	Lat int
	Lon int
}

// A TileCoordFunc returns the tile coordinate for a longitude and latitude.
type TileCoordFunc func(lon, lat float64) (TileCoord, bool)

// A TileFilenameFunc returns the tile filename for a tile coordinate.
type TileFilenameFunc func(TileCoord) string

// A MissingTile is a tile that could not be found or could not be decoded.
// Err is nil if the tile does not exist.
type MissingTile struct {
	TileCoord
	Filename string
	Err      error
}

// A TileSet is a set of GeoTIFF tiles covering a geographic area.
type TileSet struct {
	mutex            sync.Mutex
	fsys             fs.FS
	tileCoordFunc    TileCoordFunc
	tileFilenameFunc TileFilenameFunc
	missingTiles     sync.Map
	tileOptions      []TileOption
	cacheSize        int
	tileCache        *lru.Cache[TileCoord, *Tile]
}

// A TileSetOption sets an option on a TileSet.
type TileSetOption func(*TileSet)

// NewTileSet returns a new TileSet with the given options.
func NewTileSet(options ...TileSetOption) (*TileSet, error) {
	s := &TileSet{
		tileCoordFunc: DegreeTileCoord,
		cacheSize:     8,
	}
	for _, option := range options {
		option(s)
	}
	if s.fsys == nil {
		return nil, errors.New("no filesystem")
	}
	if s.tileFilenameFunc == nil {
		return nil, errors.New("no tile filename function")
	}

	var err error
	s.tileCache, err = lru.New[TileCoord, *Tile](s.cacheSize)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WithCacheSize sets the maximum number of open tiles.
func WithCacheSize(cacheSize int) TileSetOption {
	return func(s *TileSet) {
		s.cacheSize = cacheSize
	}
}

// WithFS sets the filesystem containing the tiles.
func WithFS(fsys fs.FS) TileSetOption {
	return func(s *TileSet) {
		s.fsys = fsys
	}
}

// WithTileOptions sets the options used when opening each tile.
func WithTileOptions(tileOptions ...TileOption) TileSetOption {
	return func(s *TileSet) {
		s.tileOptions = tileOptions
	}
}

// WithTileCoordFunc sets the function that maps coordinates to tiles.
func WithTileCoordFunc(tileCoordFunc TileCoordFunc) TileSetOption {
	return func(s *TileSet) {
		s.tileCoordFunc = tileCoordFunc
	}
}

// WithTileFilenameFunc sets the function that maps tiles to filenames.
func WithTileFilenameFunc(tileFilenameFunc TileFilenameFunc) TileSetOption {
	return func(s *TileSet) {
		s.tileFilenameFunc = tileFilenameFunc
	}
}

// DegreeTileCoord returns the one degree tile containing lon, lat.
func DegreeTileCoord(lon, lat float64) (TileCoord, bool) {
	if !(-90 <= lat && lat < 90 && -180 <= lon && lon < 180) {
		return TileCoord{}, false
	}
	return TileCoord{
		Lat: int(math.Floor(lat)),
		Lon: int(math.Floor(lon)),
	}, true
}

// Elevation returns the interpolated elevation at lon, lat. Missing
// elevations are represented by NaN.
func (s *TileSet) Elevation(ctx context.Context, lon, lat float64) (float64, error) {
	elevations, err := s.Elevations(ctx, [][]float64{{lon, lat}})
	if err != nil {
		return 0, err
	}
	return elevations[0], nil
}

// Elevations returns the interpolated elevations at coords, each of which is
// a longitude and latitude. Missing elevations are represented by NaNs.
func (s *TileSet) Elevations(ctx context.Context, coords [][]float64) ([]float64, error) {
	elevations := make([]float64, len(coords))

	// Group indexes by tile coord.
	indexesByTileCoord := make(map[TileCoord][]int)
	for index, coord := range coords {
		tileCoord, ok := s.tileCoordFunc(coord[0], coord[1])
		if !ok {
			elevations[index] = math.NaN()
			continue
		}
		indexesByTileCoord[tileCoord] = append(indexesByTileCoord[tileCoord], index)
	}

	// Populate elevations one tile at a time.
	for tileCoord, indexes := range indexesByTileCoord {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tile := s.getTileCached(tileCoord)
		for _, index := range indexes {
			if tile == nil {
				elevations[index] = math.NaN()
				continue
			}
			switch result, err := tile.Interpolate(coords[index][0], coords[index][1]); {
			case errors.Is(err, ErrOutOfBounds):
				elevations[index] = math.NaN()
			case err != nil:
				return nil, err
			default:
				elevations[index] = result.Value
			}
		}
	}

	return elevations, nil
}

// MissingTiles returns the tiles that have been found to be missing, sorted
// by latitude and longitude.
func (s *TileSet) MissingTiles() []MissingTile {
	var missingTiles []MissingTile
	s.missingTiles.Range(func(key, value any) bool {
		missingTile := value.(MissingTile)
		missingTile.TileCoord = key.(TileCoord)
		missingTiles = append(missingTiles, missingTile)
		return true
	})
	slices.SortFunc(missingTiles, func(a, b MissingTile) int {
		if a.Lat != b.Lat {
			return b.Lat - a.Lat
		}
		return a.Lon - b.Lon
	})
	return missingTiles
}

// WriteMissingTilesReport writes a report of the missing tiles to w,
// including the smallest box of tiles that would cover them all.
func (s *TileSet) WriteMissingTilesReport(w io.Writer) error {
	missingTiles := s.MissingTiles()
	if len(missingTiles) == 0 {
		_, err := fmt.Fprintln(w, "There are no missing tiles.")
		return err
	}

	if _, err := fmt.Fprintf(w, "There are %d missing tiles:\n", len(missingTiles)); err != nil {
		return err
	}
	minLat, maxLat := missingTiles[0].Lat, missingTiles[0].Lat
	minLon, maxLon := missingTiles[0].Lon, missingTiles[0].Lon
	for _, missingTile := range missingTiles {
		if _, err := fmt.Fprintf(w, "\t%s\t%s, %s", missingTile.Filename, formatLat(missingTile.Lat), formatLon(missingTile.Lon)); err != nil {
			return err
		}
		if missingTile.Err != nil {
			if _, err := fmt.Fprintf(w, "\t(unreadable: %v)", missingTile.Err); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		minLat, maxLat = min(minLat, missingTile.Lat), max(maxLat, missingTile.Lat)
		minLon, maxLon = min(minLon, missingTile.Lon), max(maxLon, missingTile.Lon)
	}
	unnecessary := (maxLat+1-minLat)*(maxLon+1-minLon) - len(missingTiles)
	_, err := fmt.Fprintf(w, "To cover them all, download all tiles from %s/%s to %s/%s.\nThis would include %d unnecessary tiles.\n",
		formatLat(maxLat+1), formatLon(minLon), formatLat(minLat), formatLon(maxLon+1), unnecessary)
	return err
}

// getTile returns the tile at tileCoord, or nil if it does not exist or
// cannot be decoded. Such tiles are recorded as missing.
func (s *TileSet) getTile(tileCoord TileCoord) *Tile {
	filename := s.tileFilenameFunc(tileCoord)
	switch tile, err := OpenGeoTIFF(s.fsys, filename, s.tileOptions...); {
	case errors.Is(err, fs.ErrNotExist):
		s.missingTiles.Store(tileCoord, MissingTile{Filename: filename})
		missingTileCacheMisses.Inc()
		return nil
	case err != nil:
		s.missingTiles.Store(tileCoord, MissingTile{Filename: filename, Err: err})
		missingTileCacheMisses.Inc()
		tileDecodeErrors.Inc()
		return nil
	default:
		return tile
	}
}

// getTileCached returns the tile at tileCoord, using the cache if possible.
func (s *TileSet) getTileCached(tileCoord TileCoord) *Tile {
	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil
	}

	if tile, ok := s.tileCache.Get(tileCoord); ok {
		tileCacheHits.Inc()
		return tile
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil
	}

	if tile, ok := s.tileCache.Get(tileCoord); ok {
		tileCacheHits.Inc()
		return tile
	}

	tileCacheMisses.Inc()

	tile := s.getTile(tileCoord)
	if tile == nil {
		return nil
	}

	if eviction := s.tileCache.Add(tileCoord, tile); eviction {
		tileCacheEvictions.Inc()
	}

	return tile
}

func formatLat(lat int) string {
	if lat < 0 {
		return fmt.Sprintf("%dS", -lat)
	}
	return fmt.Sprintf("%dN", lat)
}

func formatLon(lon int) string {
	if lon < 0 {
		return fmt.Sprintf("%dW", -lon)
	}
	return fmt.Sprintf("%dE", lon)
}
