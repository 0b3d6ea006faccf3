package tiger

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/census-choropleth/internal/model"
)

// ReadShapefile reads polygon features from a shapefile. Records with a
// null or non-polygon shape are skipped.
func ReadShapefile(shpPath string, fields Fields) ([]model.GeoFeature, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	dbf := reader.Fields()
	fieldIdx := make(map[string]int, len(dbf))
	for i, f := range dbf {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	geoIdx, ok := fieldIdx[strings.ToLower(fields.GeoID)]
	if !ok {
		return nil, eris.Errorf("tiger: shapefile %s has no %s field", shpPath, fields.GeoID)
	}
	jurIdx, hasJur := fieldIdx[strings.ToLower(fields.Jurisdiction)]
	nameIdx, hasName := fieldIdx[strings.ToLower(fields.Name)]

	attr := func(idx int) string {
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}

	var features []model.GeoFeature
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		f := model.GeoFeature{GeoID: attr(geoIdx), Geometry: g}
		if hasJur {
			f.Jurisdiction = attr(jurIdx)
		}
		if hasName {
			f.Name = attr(nameIdx)
		}
		features = append(features, f)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "tiger: read shapefile %s", shpPath)
	}

	if skipped > 0 {
		zap.L().Debug("tiger: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return features, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Shapefile outer rings wind clockwise and holes counter-clockwise; each hole
// is attached to the outer ring that precedes it.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var polys [][][]geom.Coord
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}
		if end-start < 4 {
			zap.L().Debug("tiger: skipping degenerate ring", zap.Int32("part", i))
			continue
		}

		ring := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}

		if signedArea(ring) <= 0 || len(polys) == 0 {
			polys = append(polys, [][]geom.Coord{ring})
			continue
		}
		last := len(polys) - 1
		polys[last] = append(polys[last], ring)
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i, rings := range polys {
		poly, err := geom.NewPolygon(geom.XY).SetCoords(rings)
		if err != nil {
			zap.L().Debug("tiger: skipping malformed polygon part", zap.Int("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("tiger: skipping malformed polygon part", zap.Int("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea returns the shoelace area of a ring: positive for
// counter-clockwise winding, negative for clockwise.
func signedArea(ring []geom.Coord) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return sum / 2
}
