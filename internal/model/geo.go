package model

import "github.com/twpayne/go-geom"

// GeoFeature is one boundary polygon from a geometry layer.
type GeoFeature struct {
	GeoID        string `json:"geoid"`
	Jurisdiction string `json:"jurisdiction"` // e.g. state FIPS
	Name         string `json:"name"`
	Geometry     geom.T `json:"-"` // *geom.Polygon or *geom.MultiPolygon, owned by the layer
}

// MergedRecord is one polygon after the left join. Value is nil when no
// demographic record matched the polygon, which is distinct from a zero value.
type MergedRecord struct {
	GeoID     string   `json:"geoid"`
	Name      string   `json:"name"`
	Geometry  geom.T   `json:"-"`
	Value     *float64 `json:"value"`
	MatchedID string   `json:"matched_id,omitempty"`
}

// HasValue reports whether the record joined to a demographic row.
func (m MergedRecord) HasValue() bool {
	return m.Value != nil
}
