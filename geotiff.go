package demview

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"
)

const (
	compressionNone        = 1
	compressionLZW         = 5
	compressionDeflate     = 8
	compressionDeflateOld  = 32946
	predictorNone          = 1
	predictorHorizontal    = 2
	sampleFormatUint       = 1
	sampleFormatInt        = 2
	sampleFormatIEEEFP     = 3
	rasterPixelIsPoint     = 2
	userDefinedGeoKeyValue = 32767

	maxSampleCount = 1 << 28
)

var errShortRead = errors.New("short read")

// A Tile is a decoded raster tile: band 1 of a GeoTIFF file with its
// georeferencing.
type Tile struct {
	*Mapper
	epsg      int
	noData    float64
	hasNoData bool
}

type tileOptions struct {
	noData    float64
	hasNoData bool
}

// A TileOption sets an option on a Tile.
type TileOption func(*tileOptions)

// WithNoData sets the no-data value, overriding any GDAL_NODATA tag.
func WithNoData(noData float64) TileOption {
	return func(o *tileOptions) {
		o.noData = noData
		o.hasNoData = true
	}
}

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD. Absent tags are left as zero values.
type geoTIFFIFD struct {
	ImageWidth                uint32    `tiff:"field,tag=256"`
	ImageLength               uint32    `tiff:"field,tag=257"`
	BitsPerSample             uint16    `tiff:"field,tag=258"`
	Compression               uint16    `tiff:"field,tag=259"`
	PhotometricInterpretation uint16    `tiff:"field,tag=262"`
	StripOffsets              []uint64  `tiff:"field,tag=273"`
	SamplesPerPixel           uint16    `tiff:"field,tag=277"`
	RowsPerStrip              uint32    `tiff:"field,tag=278"`
	StripByteCounts           []uint64  `tiff:"field,tag=279"`
	PlanarConfiguration       uint16    `tiff:"field,tag=284"`
	Predictor                 uint16    `tiff:"field,tag=317"`
	TileWidth                 uint32    `tiff:"field,tag=322"`
	TileLength                uint32    `tiff:"field,tag=323"`
	TileOffsets               []uint64  `tiff:"field,tag=324"`
	TileByteCounts            []uint64  `tiff:"field,tag=325"`
	SampleFormat              uint16    `tiff:"field,tag=339"`
	ModelPixelScaleTag        []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag          []float64 `tiff:"field,tag=33922"`
	ModelTransformationTag    []float64 `tiff:"field,tag=34264"`
	GeoKeyDirectoryTag        []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag        []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag         string    `tiff:"field,tag=34737"`
	GDALNoData                string    `tiff:"field,tag=42113"`
}

// A blockLayout describes how samples are split into strips or tiles.
type blockLayout struct {
	width        int
	length       int
	blockWidth   int
	blockLength  int
	blocksAcross int
	strips       bool
	offsets      []uint64
	byteCounts   []uint64
}

type readAtSeeker interface {
	io.ReaderAt
	io.ReadSeeker
}

// OpenGeoTIFF opens filename in fsys and decodes its first band.
func OpenGeoTIFF(fsys fs.FS, filename string, options ...TileOption) (*Tile, error) {
	file, err := fsys.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r, ok := file.(readAtSeeker)
	if !ok {
		return nil, fmt.Errorf("%s: %w", filename, errors.ErrUnsupported)
	}
	tile, err := ReadGeoTIFF(r, options...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return tile, nil
}

// OpenGeoTIFFFile opens the GeoTIFF file at path and decodes its first band.
func OpenGeoTIFFFile(path string, options ...TileOption) (*Tile, error) {
	return OpenGeoTIFF(os.DirFS(filepath.Dir(path)), filepath.Base(path), options...)
}

// ReadGeoTIFF decodes the first band of the GeoTIFF in r.
func ReadGeoTIFF(r readAtSeeker, options ...TileOption) (*Tile, error) {
	var o tileOptions
	for _, option := range options {
		option(&o)
	}

	byteOrder, err := readByteOrder(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	tiffTIFF, err := tiff.Parse(r, tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, err
	}
	if len(tiffTIFF.IFDs()) == 0 {
		return nil, errors.New("no IFDs")
	}

	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, err
	}

	decodeSample, err := sampleDecoder(ifd.SampleFormat, ifd.BitsPerSample)
	if err != nil {
		return nil, err
	}
	switch {
	case ifd.SamplesPerPixel > 1 && ifd.PlanarConfiguration != 2:
		return nil, fmt.Errorf("%d samples per pixel: %w", ifd.SamplesPerPixel, errors.ErrUnsupported)
	case ifd.Predictor > predictorHorizontal:
		return nil, fmt.Errorf("predictor %d: %w", ifd.Predictor, errors.ErrUnsupported)
	case ifd.Predictor == predictorHorizontal && ifd.SampleFormat == sampleFormatIEEEFP:
		return nil, fmt.Errorf("horizontal predictor with floating point samples: %w", errors.ErrUnsupported)
	}

	layout, err := newBlockLayout(&ifd)
	if err != nil {
		return nil, err
	}

	noData, hasNoData := o.noData, o.hasNoData
	if !hasNoData {
		if s := strings.Trim(ifd.GDALNoData, "\x00 "); s != "" {
			noData, err = strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("GDAL_NODATA: %w", err)
			}
			hasNoData = true
		}
	}

	samples := make([]float64, layout.width*layout.length)
	bytesPerSample := int(ifd.BitsPerSample) / 8
	for block := range layout.offsets {
		col0, row0, blockRows := layout.blockOrigin(block)
		data, err := readBlock(r, layout.offsets[block], layout.byteCounts[block], ifd.Compression,
			layout.blockWidth*blockRows*bytesPerSample)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", block, err)
		}
		raw := decodeRaw(data, byteOrder, bytesPerSample)
		if ifd.Predictor == predictorHorizontal {
			undoHorizontalPredictor(raw, layout.blockWidth, ifd.BitsPerSample)
		}
		for dr := range blockRows {
			row := row0 + dr
			if row >= layout.length {
				break
			}
			for c := range layout.blockWidth {
				col := col0 + c
				if col >= layout.width {
					break
				}
				sample := decodeSample(raw[c+dr*layout.blockWidth])
				if hasNoData && sample == noData {
					sample = math.NaN()
				}
				samples[col+row*layout.width] = sample
			}
		}
	}

	grid, err := NewGrid(layout.width, layout.length, samples)
	if err != nil {
		return nil, err
	}

	var geoKeys *ParsedGeoKeys
	if len(ifd.GeoKeyDirectoryTag) != 0 {
		geoKeys, err = ParseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, []byte(ifd.GeoASCIIParamsTag))
		if err != nil {
			return nil, err
		}
	}

	transform, err := geoTransform(&ifd, geoKeys)
	if err != nil {
		return nil, err
	}
	mapper, err := NewMapper(grid, transform)
	if err != nil {
		return nil, err
	}

	return &Tile{
		Mapper:    mapper,
		epsg:      geoKeys.EPSG(),
		noData:    noData,
		hasNoData: hasNoData,
	}, nil
}

// EPSG returns t's EPSG code, or zero if it is not known.
func (t *Tile) EPSG() int {
	return t.epsg
}

// NoData returns t's no-data value and whether it has one.
func (t *Tile) NoData() (float64, bool) {
	return t.noData, t.hasNoData
}

func newBlockLayout(ifd *geoTIFFIFD) (*blockLayout, error) {
	l := &blockLayout{
		width:  int(ifd.ImageWidth),
		length: int(ifd.ImageLength),
	}
	if l.width <= 0 || l.length <= 0 || l.width*l.length > maxSampleCount {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", l.width, l.length)
	}

	switch {
	case len(ifd.TileOffsets) != 0:
		l.blockWidth = int(ifd.TileWidth)
		l.blockLength = int(ifd.TileLength)
		if l.blockWidth <= 0 || l.blockLength <= 0 {
			return nil, fmt.Errorf("invalid tile dimensions %dx%d", l.blockWidth, l.blockLength)
		}
		l.blocksAcross = (l.width + l.blockWidth - 1) / l.blockWidth
		l.offsets = ifd.TileOffsets
		l.byteCounts = ifd.TileByteCounts
	case len(ifd.StripOffsets) != 0:
		l.blockWidth = l.width
		l.blockLength = int(ifd.RowsPerStrip)
		if l.blockLength <= 0 || l.blockLength > l.length {
			l.blockLength = l.length
		}
		l.blocksAcross = 1
		l.strips = true
		l.offsets = ifd.StripOffsets
		l.byteCounts = ifd.StripByteCounts
	default:
		return nil, errors.New("no strip or tile offsets")
	}

	blocksDown := (l.length + l.blockLength - 1) / l.blockLength
	blocks := l.blocksAcross * blocksDown
	if ifd.SamplesPerPixel > 1 {
		// Planar configuration 2: band 1 is the first plane.
		if len(l.offsets) < blocks {
			return nil, errors.New("incorrect number of byte counts or offsets")
		}
		l.offsets = l.offsets[:blocks]
	}
	if len(l.offsets) != blocks || len(l.byteCounts) < blocks {
		return nil, errors.New("incorrect number of byte counts or offsets")
	}
	l.byteCounts = l.byteCounts[:blocks]
	return l, nil
}

// blockOrigin returns the column and row of the upper left sample of block,
// and the number of rows stored in it.
func (l *blockLayout) blockOrigin(block int) (int, int, int) {
	col := (block % l.blocksAcross) * l.blockWidth
	row := (block / l.blocksAcross) * l.blockLength
	rows := l.blockLength
	if l.strips {
		// The last strip may be truncated.
		rows = min(rows, l.length-row)
	}
	return col, row, rows
}

// readBlock reads and decompresses a single strip or tile.
func readBlock(r io.ReaderAt, offset, byteCount uint64, compression uint16, size int) ([]byte, error) {
	compressedData := make([]byte, byteCount)
	switch n, err := r.ReadAt(compressedData, int64(offset)); {
	case err != nil && !(errors.Is(err, io.EOF) && n == len(compressedData)):
		return nil, err
	case n != len(compressedData):
		return nil, errShortRead
	}

	var rc io.ReadCloser
	switch compression {
	case 0, compressionNone:
		if len(compressedData) < size {
			return nil, errShortRead
		}
		return compressedData[:size], nil
	case compressionLZW:
		rc = lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
	case compressionDeflate, compressionDeflateOld:
		var err error
		rc, err = zlib.NewReader(bytes.NewReader(compressedData))
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("compression %d: %w", compression, errors.ErrUnsupported)
	}
	defer rc.Close()

	data := make([]byte, size)
	if _, err := io.ReadFull(rc, data); err != nil {
		return nil, err
	}
	return data, nil
}

// readByteOrder returns the byte order from the TIFF header in r.
func readByteOrder(r io.ReaderAt) (binary.ByteOrder, error) {
	header := make([]byte, 2)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, err
	}
	switch string(header) {
	case "II":
		return binary.LittleEndian, nil
	case "MM":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("invalid byte order %q", header)
	}
}

// decodeRaw splits data into raw unsigned samples.
func decodeRaw(data []byte, byteOrder binary.ByteOrder, bytesPerSample int) []uint64 {
	raw := make([]uint64, len(data)/bytesPerSample)
	for i := range raw {
		b := data[i*bytesPerSample : (i+1)*bytesPerSample]
		switch bytesPerSample {
		case 1:
			raw[i] = uint64(b[0])
		case 2:
			raw[i] = uint64(byteOrder.Uint16(b))
		case 4:
			raw[i] = uint64(byteOrder.Uint32(b))
		case 8:
			raw[i] = byteOrder.Uint64(b)
		}
	}
	return raw
}

// undoHorizontalPredictor reverses TIFF predictor 2 in place.
func undoHorizontalPredictor(raw []uint64, rowWidth int, bitsPerSample uint16) {
	mask := uint64(math.MaxUint64)
	if bitsPerSample < 64 {
		mask = 1<<bitsPerSample - 1
	}
	for start := 0; start+rowWidth <= len(raw); start += rowWidth {
		for i := start + 1; i < start+rowWidth; i++ {
			raw[i] = (raw[i] + raw[i-1]) & mask
		}
	}
}

// sampleDecoder returns a function that converts raw samples to float64s.
func sampleDecoder(sampleFormat, bitsPerSample uint16) (func(uint64) float64, error) {
	if sampleFormat == 0 {
		sampleFormat = sampleFormatUint
	}
	switch {
	case sampleFormat == sampleFormatUint && bitsPerSample == 8,
		sampleFormat == sampleFormatUint && bitsPerSample == 16,
		sampleFormat == sampleFormatUint && bitsPerSample == 32:
		return func(u uint64) float64 { return float64(u) }, nil
	case sampleFormat == sampleFormatInt && bitsPerSample == 8:
		return func(u uint64) float64 { return float64(int8(u)) }, nil
	case sampleFormat == sampleFormatInt && bitsPerSample == 16:
		return func(u uint64) float64 { return float64(int16(u)) }, nil
	case sampleFormat == sampleFormatInt && bitsPerSample == 32:
		return func(u uint64) float64 { return float64(int32(u)) }, nil
	case sampleFormat == sampleFormatIEEEFP && bitsPerSample == 32:
		return func(u uint64) float64 { return float64(math.Float32frombits(uint32(u))) }, nil
	case sampleFormat == sampleFormatIEEEFP && bitsPerSample == 64:
		return math.Float64frombits, nil
	default:
		return nil, fmt.Errorf("sample format %d with %d bits per sample: %w", sampleFormat, bitsPerSample, errors.ErrUnsupported)
	}
}

// geoTransform returns the affine transform described by ifd.
func geoTransform(ifd *geoTIFFIFD, geoKeys *ParsedGeoKeys) (Transform, error) {
	var t Transform
	switch {
	case len(ifd.ModelTransformationTag) == 16:
		m := ifd.ModelTransformationTag
		t = Transform{
			X0:     m[3],
			DX:     m[0],
			RowRot: m[1],
			Y0:     m[7],
			ColRot: m[4],
			DY:     m[5],
		}
	case len(ifd.ModelPixelScaleTag) >= 2 && len(ifd.ModelTiepointTag) >= 6:
		scaleX, scaleY := ifd.ModelPixelScaleTag[0], ifd.ModelPixelScaleTag[1]
		i, j := ifd.ModelTiepointTag[0], ifd.ModelTiepointTag[1]
		x, y := ifd.ModelTiepointTag[3], ifd.ModelTiepointTag[4]
		t = Transform{
			X0: x - i*scaleX,
			DX: scaleX,
			Y0: y + j*scaleY,
			DY: -scaleY,
		}
	default:
		return Transform{}, errors.New("missing georeferencing")
	}

	if geoKeys != nil && geoKeys.Params[GeoKeyGTRasterType] == rasterPixelIsPoint {
		t.X0 -= 0.5*t.DX + 0.5*t.RowRot
		t.Y0 -= 0.5*t.ColRot + 0.5*t.DY
	}
	return t, t.Validate()
}
