package tiger

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/census-choropleth/internal/model"
)

// ReadGeoJSON reads Polygon and MultiPolygon features from a GeoJSON
// FeatureCollection. Property names are matched case-insensitively.
func ReadGeoJSON(path string, fields Fields) ([]model.GeoFeature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "tiger: decode %s", path)
	}

	var features []model.GeoFeature
	var skipped int
	for i, f := range fc.Features {
		switch f.Geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			skipped++
			continue
		}

		raw, ok := property(f.Properties, fields.GeoID)
		if !ok {
			return nil, eris.Errorf("tiger: %s feature %d has no %s property", path, i, fields.GeoID)
		}
		id, ok := raw.(string)
		if !ok {
			return nil, eris.Errorf("tiger: %s feature %d: %s is %T, want a string (numeric codes lose leading zeros)",
				path, i, fields.GeoID, raw)
		}
		jur := propertyString(f.Properties, fields.Jurisdiction)
		name := propertyString(f.Properties, fields.Name)

		features = append(features, model.GeoFeature{
			GeoID:        strings.TrimSpace(id),
			Jurisdiction: jur,
			Name:         name,
			Geometry:     f.Geometry,
		})
	}

	if skipped > 0 {
		zap.L().Debug("tiger: skipped non-polygon features",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return features, nil
}

func property(props map[string]any, name string) (any, bool) {
	if name == "" {
		return nil, false
	}
	for k, v := range props {
		if strings.EqualFold(k, name) && v != nil {
			return v, true
		}
	}
	return nil, false
}

// propertyString renders a property as text. Integral numbers print without
// an exponent; a numeric state code like 1 is padded later by the filter.
func propertyString(props map[string]any, name string) string {
	v, ok := property(props, name)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
