package demview

import (
	"fmt"
	"io/fs"
	"slices"
)

// ASTERNoData is the value of void samples in ASTER GDEM tiles.
const ASTERNoData = -9999

// ASTERTileFilename returns the filename of the ASTER GDEM v2 tile at
// tileCoord, for example ASTGTM2_N47E011_dem.tif.
func ASTERTileFilename(tileCoord TileCoord) string {
	northSouth, lat := "N", tileCoord.Lat
	if lat < 0 {
		northSouth, lat = "S", -lat
	}
	eastWest, lon := "E", tileCoord.Lon
	if lon < 0 {
		eastWest, lon = "W", -lon
	}
	return fmt.Sprintf("ASTGTM2_%s%02d%s%03d_dem.tif", northSouth, lat, eastWest, lon)
}

// NewASTER returns a new TileSet of ASTER GDEM v2 tiles in fsys.
func NewASTER(fsys fs.FS, options ...TileSetOption) (*TileSet, error) {
	return NewTileSet(slices.Concat(
		[]TileSetOption{
			WithFS(fsys),
			WithTileCoordFunc(DegreeTileCoord),
			WithTileFilenameFunc(ASTERTileFilename),
			WithTileOptions(WithNoData(ASTERNoData)),
		},
		options,
	)...)
}
