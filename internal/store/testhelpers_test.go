package store

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/census-choropleth/internal/model"
)

func georgiaTotal() model.CanonicalRecord {
	return model.CanonicalRecord{
		AreaName: "Georgia", ID: "0400000US13",
		Total: 1000, Hispanic: 100, White: 500, Black: 300, Asian: 50, Mixed: 30, Others: 20,
	}
}

func georgiaCounties() []model.CanonicalRecord {
	return []model.CanonicalRecord{
		{AreaName: "Appling County, Georgia", ID: "0500000US13001", Total: 600, Hispanic: 60, White: 300, Black: 180, Asian: 30, Mixed: 18, Others: 12},
		{AreaName: "Atkinson County, Georgia", ID: "0500000US13003", Total: 400, Hispanic: 40, White: 200, Black: 120, Asian: 20, Mixed: 12, Others: 8},
	}
}

func fptr(v float64) *float64 { return &v }

func mergedRows() []model.MergedRecord {
	sq := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{-82, 31}, {-82, 32}, {-81, 32}, {-81, 31}, {-82, 31}},
	})
	return []model.MergedRecord{
		{GeoID: "13001", Name: "Appling County", Geometry: sq, Value: fptr(50), MatchedID: "13001"},
		{GeoID: "13003", Name: "Atkinson County", Geometry: sq},
	}
}
