// Package join merges a boundary layer with canonical demographic records on
// a normalized geographic identifier.
package join

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/census-choropleth/internal/geoid"
	"github.com/sells-group/census-choropleth/internal/model"
)

// Predicate selects the features that take part in a join.
type Predicate func(model.GeoFeature) bool

// All accepts every feature.
func All() Predicate {
	return func(model.GeoFeature) bool { return true }
}

// ByJurisdiction accepts features whose jurisdiction code equals fips after
// state FIPS normalization.
func ByJurisdiction(fips string) Predicate {
	want := geoid.NormalizeStateFIPS(fips)
	return func(f model.GeoFeature) bool {
		return geoid.NormalizeStateFIPS(f.Jurisdiction) == want
	}
}

// Options configures LeftJoin.
type Options struct {
	Filter     Predicate // nil means All
	Field      string    // CanonicalRecord value field carried onto each polygon
	Normalizer geoid.Normalizer
}

// Result is the output of LeftJoin.
type Result struct {
	Records   []model.MergedRecord
	Matched   int
	Unmatched int
}

// LeftJoin filters features, then emits exactly one MergedRecord per
// surviving feature in feature order. A feature matched by more than one
// record is a NonUniqueJoinKey error; a feature with no record gets a nil
// Value.
func LeftJoin(features []model.GeoFeature, records []model.CanonicalRecord, opts Options) (*Result, error) {
	filter := opts.Filter
	if filter == nil {
		filter = All()
	}
	log := zap.L().With(zap.String("component", "join"), zap.String("field", opts.Field))

	filtered := make([]model.GeoFeature, 0, len(features))
	for _, f := range features {
		if filter(f) {
			filtered = append(filtered, f)
		}
	}

	index := make(map[string][]int, len(records))
	for i, r := range records {
		key, err := opts.Normalizer.Normalize(r.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "join: record %q", r.AreaName)
		}
		index[key] = append(index[key], i)
	}

	res := &Result{Records: make([]model.MergedRecord, 0, len(filtered))}
	var unmatched []string
	for _, f := range filtered {
		key, err := opts.Normalizer.Normalize(f.GeoID)
		if err != nil {
			return nil, eris.Wrapf(err, "join: feature %q", f.Name)
		}

		merged := model.MergedRecord{GeoID: f.GeoID, Name: f.Name, Geometry: f.Geometry}
		switch matches := index[key]; len(matches) {
		case 0:
			res.Unmatched++
			unmatched = append(unmatched, f.GeoID)
		case 1:
			rec := records[matches[0]]
			v, err := rec.Value(opts.Field)
			if err != nil {
				return nil, eris.Wrap(err, "join: value field")
			}
			merged.Value = &v
			merged.MatchedID = rec.ID
			res.Matched++
		default:
			ids := make([]string, len(matches))
			for i, m := range matches {
				ids[i] = records[m].ID
			}
			return nil, model.NewValidationError(model.NonUniqueJoinKey, f.GeoID,
				"key %s matches %d records %v", key, len(matches), ids)
		}
		res.Records = append(res.Records, merged)
	}

	log.Info("join complete",
		zap.Int("features", len(features)),
		zap.Int("filtered", len(filtered)),
		zap.Int("records", len(records)),
		zap.Int("matched", res.Matched),
		zap.Int("unmatched", res.Unmatched),
	)
	if len(unmatched) > 0 {
		log.Debug("features without demographic data", zap.Strings("geoids", unmatched))
	}

	return res, nil
}
