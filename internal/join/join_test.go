package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/census-choropleth/internal/geoid"
	"github.com/sells-group/census-choropleth/internal/model"
)

func square(x, y float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{x, y}, {x, y + 1}, {x + 1, y + 1}, {x + 1, y}, {x, y}},
	})
}

func layer() []model.GeoFeature {
	return []model.GeoFeature{
		{GeoID: "13001", Jurisdiction: "13", Name: "Appling County", Geometry: square(0, 0)},
		{GeoID: "12001", Jurisdiction: "12", Name: "Alachua County", Geometry: square(0, -2)},
		{GeoID: "13003", Jurisdiction: "13", Name: "Atkinson County", Geometry: square(1, 0)},
		{GeoID: "13005", Jurisdiction: "13", Name: "Bacon County", Geometry: square(2, 0)},
	}
}

func records() []model.CanonicalRecord {
	return []model.CanonicalRecord{
		{AreaName: "Appling County, Georgia", ID: "0500000US13001", Total: 100, White: 40, Black: 30, Hispanic: 10, Asian: 10, Mixed: 5, Others: 5},
		{AreaName: "Atkinson County, Georgia", ID: "0500000US13003", Total: 0},
		{AreaName: "Alachua County, Florida", ID: "0500000US12001", Total: 10, White: 10},
	}
}

func opts() Options {
	return Options{Filter: ByJurisdiction("13"), Field: "White", Normalizer: geoid.NewNormalizer(geoid.CountyWidth)}
}

func TestLeftJoin(t *testing.T) {
	res, err := LeftJoin(layer(), records(), opts())
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 1, res.Unmatched)

	appling := res.Records[0]
	assert.Equal(t, "13001", appling.GeoID)
	assert.Equal(t, "Appling County", appling.Name)
	require.NotNil(t, appling.Value)
	assert.InDelta(t, 40.0, *appling.Value, 1e-9)
	assert.Equal(t, "0500000US13001", appling.MatchedID)

	atkinson := res.Records[1]
	require.NotNil(t, atkinson.Value, "zero population is data, not missing data")
	assert.Zero(t, *atkinson.Value)

	bacon := res.Records[2]
	assert.Equal(t, "13005", bacon.GeoID)
	assert.Nil(t, bacon.Value)
	assert.False(t, bacon.HasValue())
	assert.NotNil(t, bacon.Geometry)
}

func TestLeftJoin_CompletenessIndependentOfMatches(t *testing.T) {
	features := layer()
	for _, recs := range [][]model.CanonicalRecord{nil, records()[:1], records()} {
		res, err := LeftJoin(features, recs, opts())
		require.NoError(t, err)
		assert.Len(t, res.Records, 3)

		seen := make(map[string]int)
		for _, r := range res.Records {
			seen[r.GeoID]++
		}
		for _, f := range features {
			if f.Jurisdiction == "13" {
				assert.Equal(t, 1, seen[f.GeoID], f.GeoID)
			}
		}
	}
}

func TestLeftJoin_FilterRunsBeforeJoin(t *testing.T) {
	features := layer()
	features = append(features, model.GeoFeature{GeoID: "0500000US13001", Jurisdiction: "12", Name: "Collision"})

	res, err := LeftJoin(features, records(), opts())
	require.NoError(t, err)
	for _, r := range res.Records {
		assert.NotEqual(t, "Collision", r.Name)
	}
}

func TestLeftJoin_GeometryBorrowed(t *testing.T) {
	features := layer()
	res, err := LeftJoin(features, records(), opts())
	require.NoError(t, err)
	assert.Same(t, features[0].Geometry, res.Records[0].Geometry)
}

func TestLeftJoin_PrefixedGeometryID(t *testing.T) {
	features := []model.GeoFeature{{GeoID: "GEO_ID0500000US13001", Jurisdiction: "13"}}
	res, err := LeftJoin(features, records(), opts())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "GEO_ID0500000US13001", res.Records[0].GeoID)
	require.NotNil(t, res.Records[0].Value)
}

func TestLeftJoin_NonUniqueKey(t *testing.T) {
	recs := append(records(), model.CanonicalRecord{AreaName: "Appling duplicate", ID: "9900000US13001"})

	_, err := LeftJoin(layer(), recs, opts())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.NonUniqueJoinKey))
	assert.Contains(t, err.Error(), "13001")
}

func TestLeftJoin_DuplicateOutsideFilterIsFine(t *testing.T) {
	recs := append(records(), model.CanonicalRecord{ID: "9900000US12001", Total: 1, White: 1})

	res, err := LeftJoin(layer(), recs, opts())
	require.NoError(t, err)
	assert.Len(t, res.Records, 3)
}

func TestLeftJoin_MalformedIdentifier(t *testing.T) {
	recs := append(records(), model.CanonicalRecord{AreaName: "Broken", ID: "130"})
	_, err := LeftJoin(layer(), recs, opts())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.MalformedIdentifier))

	features := append(layer(), model.GeoFeature{GeoID: "13X", Jurisdiction: "13"})
	_, err = LeftJoin(features, records(), opts())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.MalformedIdentifier))
}

func TestLeftJoin_UnknownField(t *testing.T) {
	o := opts()
	o.Field = "P1_003N"
	_, err := LeftJoin(layer(), records(), o)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.UnknownField))
}

func TestLeftJoin_PercentField(t *testing.T) {
	o := opts()
	o.Field = "Black%"
	res, err := LeftJoin(layer(), records(), o)
	require.NoError(t, err)
	require.NotNil(t, res.Records[0].Value)
	assert.InDelta(t, 30.0, *res.Records[0].Value, 1e-9)
}

func TestLeftJoin_NilFilterKeepsAll(t *testing.T) {
	o := opts()
	o.Filter = nil
	res, err := LeftJoin(layer(), records(), o)
	require.NoError(t, err)
	assert.Len(t, res.Records, 4)
	assert.Equal(t, 3, res.Matched)
}

func TestByJurisdiction(t *testing.T) {
	p := ByJurisdiction("1")
	assert.True(t, p(model.GeoFeature{Jurisdiction: "01"}))
	assert.True(t, p(model.GeoFeature{Jurisdiction: "1"}))
	assert.False(t, p(model.GeoFeature{Jurisdiction: "13"}))
	assert.True(t, All()(model.GeoFeature{}))
}
