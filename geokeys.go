package demview

import (
	"errors"
	"fmt"
)

var errParse = errors.New("parse error")

// A GeoKey is a GeoTIFF GeoKey identifier.
type GeoKey uint16

const (
	GeoKeyGTModelType  GeoKey = 1024
	GeoKeyGTRasterType GeoKey = 1025
	GeoKeyGTCitation   GeoKey = 1026

	GeoKeyGeodeticCRS   GeoKey = 2048
	GeoKeyGeogCitation  GeoKey = 2049
	GeoKeyGeodeticDatum GeoKey = 2050
	GeoKeyPrimeMeridian GeoKey = 2051
	GeoKeyAngularUnits  GeoKey = 2054
	GeoKeyEllipsoid     GeoKey = 2056

	GeoKeyProjectedCRS GeoKey = 3072
	GeoKeyPCSCitation  GeoKey = 3073
	GeoKeyProjection   GeoKey = 3074
	GeoKeyProjMethod   GeoKey = 3075
	GeoKeyLinearUnits2 GeoKey = 3076

	GeoKeyVertical      GeoKey = 4096
	GeoKeyVerticalUnits GeoKey = 4099
)

// Model types.
const (
	ModelTypeProjected  = 1
	ModelTypeGeographic = 2
)

// ParsedGeoKeys are the values of a GeoKeyDirectoryTag.
type ParsedGeoKeys struct {
	Params       map[GeoKey]int
	DoubleParams map[GeoKey]float64
	ASCIIParams  map[GeoKey]string
}

// ParseGeoKeys parses a GeoKeyDirectoryTag and its associated double and
// ASCII parameters.
func ParseGeoKeys(directory []uint16, doubleParams []float64, asciiParams []byte) (*ParsedGeoKeys, error) {
	if len(directory) < 4 {
		return nil, errParse
	}

	if keyDirectoryVersion := int(directory[0]); keyDirectoryVersion != 1 {
		return nil, fmt.Errorf("key directory version %d: %w", keyDirectoryVersion, errParse)
	}
	if keyRevision := int(directory[1]); keyRevision != 1 {
		return nil, fmt.Errorf("key revision %d: %w", keyRevision, errParse)
	}
	if minorRevision := int(directory[2]); minorRevision != 0 && minorRevision != 1 {
		return nil, fmt.Errorf("minor revision %d: %w", minorRevision, errParse)
	}
	numberOfKeys := int(directory[3])
	if len(directory) < 4+4*numberOfKeys {
		return nil, fmt.Errorf("%d keys in %d entries: %w", numberOfKeys, len(directory), errParse)
	}

	parsedGeoKeys := &ParsedGeoKeys{
		Params:       make(map[GeoKey]int),
		DoubleParams: make(map[GeoKey]float64),
		ASCIIParams:  make(map[GeoKey]string),
	}
	for i := range numberOfKeys {
		keyValues := directory[4+4*i : 4+4*(i+1)]
		key := GeoKey(keyValues[0])
		tiffTagLocation := int(keyValues[1])
		count := int(keyValues[2])
		valueOffset := int(keyValues[3])
		switch tiffTagLocation {
		case 0:
			if count != 1 {
				return nil, fmt.Errorf("key %d: %w", key, errParse)
			}
			parsedGeoKeys.Params[key] = valueOffset
		case 34736: // GeoDoubleParamsTag
			if count != 1 || valueOffset >= len(doubleParams) {
				return nil, fmt.Errorf("key %d: %w", key, errParse)
			}
			parsedGeoKeys.DoubleParams[key] = doubleParams[valueOffset]
		case 34737: // GeoASCIIParamsTag
			if valueOffset+count > len(asciiParams) {
				return nil, fmt.Errorf("key %d: %w", key, errParse)
			}
			parsedGeoKeys.ASCIIParams[key] = string(asciiParams[valueOffset : valueOffset+count])
		default:
			// Values stored in other tags are not needed.
		}
	}
	return parsedGeoKeys, nil
}

// EPSG returns the EPSG code of the coordinate reference system, or zero if
// it is not known or user defined.
func (k *ParsedGeoKeys) EPSG() int {
	if k == nil {
		return 0
	}
	keys := []GeoKey{GeoKeyProjectedCRS, GeoKeyGeodeticCRS}
	if k.Params[GeoKeyGTModelType] == ModelTypeGeographic {
		keys = []GeoKey{GeoKeyGeodeticCRS}
	}
	for _, key := range keys {
		if code, ok := k.Params[key]; ok && code != 0 && code != userDefinedGeoKeyValue {
			return code
		}
	}
	return 0
}
