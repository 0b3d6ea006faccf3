package tiger

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// EncodeWKB converts a feature geometry to a MultiPolygon EWKB with SRID
// 4326, the form PostGIS accepts over COPY. Returns nil, nil for nil or
// non-polygonal geometries. The input geometry is not modified.
func EncodeWKB(g geom.T) ([]byte, error) {
	var mp *geom.MultiPolygon

	switch t := g.(type) {
	case *geom.Polygon:
		mp = geom.NewMultiPolygon(t.Layout()).SetSRID(4326)
		if err := mp.Push(t); err != nil {
			return nil, eris.Wrap(err, "tiger: promote polygon")
		}
	case *geom.MultiPolygon:
		mp = geom.NewMultiPolygonFlat(t.Layout(), t.FlatCoords(), t.Endss()).SetSRID(4326)
	default:
		return nil, nil
	}

	data, err := ewkb.Marshal(mp, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "tiger: encode WKB")
	}

	return data, nil
}

// DecodeWKB parses EWKB produced by EncodeWKB. Empty input decodes to nil.
func DecodeWKB(data []byte) (geom.T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "tiger: decode WKB")
	}
	return g, nil
}
