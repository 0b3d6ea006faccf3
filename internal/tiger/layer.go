// Package tiger reads Census TIGER/Line boundary layers (shapefiles, zipped
// shapefiles, GeoJSON) into GeoFeatures.
package tiger

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/census-choropleth/internal/fetcher"
	"github.com/sells-group/census-choropleth/internal/model"
)

// Fields names the attribute columns that carry the GeoFeature keys.
type Fields struct {
	GeoID        string `yaml:"geoid" mapstructure:"geoid"`
	Jurisdiction string `yaml:"jurisdiction" mapstructure:"jurisdiction"`
	Name         string `yaml:"name" mapstructure:"name"`
}

// DefaultFields returns the TIGER/Line county attribute names.
func DefaultFields() Fields {
	return Fields{GeoID: "GEOID", Jurisdiction: "STATEFP", Name: "NAMELSAD"}
}

// ReadLayer loads every polygon feature from a .shp, .zip (one shapefile
// bundle) or .geojson/.json file. Files are fully read and closed before
// returning.
func ReadLayer(path string, fields Fields) ([]model.GeoFeature, error) {
	var (
		features []model.GeoFeature
		err      error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		features, err = ReadShapefile(path, fields)
	case ".zip":
		features, err = readZippedShapefile(path, fields)
	case ".geojson", ".json":
		features, err = ReadGeoJSON(path, fields)
	default:
		return nil, eris.Errorf("tiger: unsupported geometry format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	zap.L().Debug("tiger: layer loaded",
		zap.String("path", path),
		zap.Int("features", len(features)),
	)
	return features, nil
}

func readZippedShapefile(zipPath string, fields Fields) ([]model.GeoFeature, error) {
	tempDir, err := os.MkdirTemp("", "tiger-*")
	if err != nil {
		return nil, eris.Wrap(err, "tiger: create temp dir")
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	files, err := fetcher.ExtractZIP(zipPath, tempDir, fetcher.ShapefileExts...)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: extract %s", zipPath)
	}
	shpPath, err := fetcher.FindByExt(files, ".shp")
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: %s", zipPath)
	}
	return ReadShapefile(shpPath, fields)
}
