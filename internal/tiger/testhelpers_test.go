package tiger

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

type testCounty struct {
	geoid, statefp, name string
	rings                [][]shp.Point
}

// square returns a clockwise ring (shapefile outer-ring winding).
func square(x, y, size float64) []shp.Point {
	return []shp.Point{
		{X: x, Y: y},
		{X: x, Y: y + size},
		{X: x + size, Y: y + size},
		{X: x + size, Y: y},
		{X: x, Y: y},
	}
}

// reversed returns the ring with opposite winding (a hole).
func reversed(ring []shp.Point) []shp.Point {
	out := make([]shp.Point, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}

func writeTestShapefile(t *testing.T, dir string, counties []testCounty) string {
	t.Helper()
	path := filepath.Join(dir, "tl_2020_us_county.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("STATEFP", 2),
		shp.StringField("GEOID", 5),
		shp.StringField("NAMELSAD", 100),
	}))

	for i, c := range counties {
		poly := shp.Polygon(*shp.NewPolyLine(c.rings))
		w.Write(&poly)
		require.NoError(t, w.WriteAttribute(i, 0, c.statefp))
		require.NoError(t, w.WriteAttribute(i, 1, c.geoid))
		require.NoError(t, w.WriteAttribute(i, 2, c.name))
	}
	w.Close()
	return path
}

func georgiaAndFlorida() []testCounty {
	return []testCounty{
		{"13001", "13", "Appling County", [][]shp.Point{square(-82.5, 31.6, 0.5)}},
		{"13003", "13", "Atkinson County", [][]shp.Point{square(-83.0, 31.2, 0.4), reversed(square(-82.9, 31.3, 0.1))}},
		{"12001", "12", "Alachua County", [][]shp.Point{square(-82.6, 29.4, 0.6), square(-81.0, 29.0, 0.1)}},
	}
}
