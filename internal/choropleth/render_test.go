package choropleth

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/census-choropleth/internal/model"
)

func ptr(v float64) *float64 { return &v }

// box builds a closed clockwise rectangle ring.
func box(x0, y0, x1, y1 float64) []geom.Coord {
	return []geom.Coord{{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}, {x0, y0}}
}

func polygon(rings ...[]geom.Coord) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords(rings)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Width = 600
	opts.Height = 400
	opts.Title = "White Choropleth Map"
	opts.LineWidth = 0
	return opts
}

// twoCounties lays out a left feature at value 100 and a right feature with
// no data, side by side on the equator.
func twoCounties() []model.MergedRecord {
	return []model.MergedRecord{
		{GeoID: "13001", Name: "Left", Geometry: polygon(box(0, 0, 1, 1)), Value: ptr(100), MatchedID: "13001"},
		{GeoID: "13003", Name: "Right", Geometry: polygon(box(1, 0, 2, 1))},
	}
}

func pixelAt(t *testing.T, img image.Image, opts Options, x, y float64) color.RGBA {
	t.Helper()
	mapArea := image.Rect(margin, titleBand, opts.Width-legendBand, opts.Height-margin)
	b := geom.NewBounds(geom.XY).Set(0, 0, 2, 1)
	proj, err := newProjection(b, mapArea)
	require.NoError(t, err)
	px, py := proj.point(x, y)
	return color.RGBAModel.Convert(img.At(int(px), int(py))).(color.RGBA)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		errMsg string
	}{
		{"defaults", func(*Options) {}, ""},
		{"min equals max", func(o *Options) { o.Min, o.Max = 5, 5 }, "must be less than"},
		{"min above max", func(o *Options) { o.Min, o.Max = 10, 0 }, "must be less than"},
		{"unknown scale", func(o *Options) { o.Scale = "Rainbow" }, "unknown color scale"},
		{"tiny canvas", func(o *Options) { o.Width = 10 }, "smaller than"},
		{"bad edge color", func(o *Options) { o.EdgeColor = "grey" }, "color"},
		{"negative line width", func(o *Options) { o.LineWidth = -1 }, "line width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPNGRenderer_Render(t *testing.T) {
	opts := testOptions()
	img, err := NewPNGRenderer().Render(twoCounties(), opts)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 600, 400), img.Bounds())

	scale, err := Scale(opts.Scale)
	require.NoError(t, err)

	assert.Equal(t, scale.At(1), pixelAt(t, img, opts, 0.5, 0.5), "matched feature uses the top of the ramp")

	hatch, err := newHatch()
	require.NoError(t, err)
	c := pixelAt(t, img, opts, 1.5, 0.5)
	assert.True(t, c == hatch.bg || c == hatch.fg, "no-data feature is hatched, got %v", c)
}

func TestPNGRenderer_ClampsValues(t *testing.T) {
	opts := testOptions()
	opts.Min, opts.Max = 10, 20
	records := []model.MergedRecord{
		{GeoID: "1", Geometry: polygon(box(0, 0, 1, 1)), Value: ptr(-50)},
		{GeoID: "2", Geometry: polygon(box(1, 0, 2, 1)), Value: ptr(500)},
	}

	img, err := NewPNGRenderer().Render(records, opts)
	require.NoError(t, err)

	scale, err := Scale(opts.Scale)
	require.NoError(t, err)
	assert.Equal(t, scale.At(0), pixelAt(t, img, opts, 0.5, 0.5))
	assert.Equal(t, scale.At(1), pixelAt(t, img, opts, 1.5, 0.5))
}

func TestPNGRenderer_ZeroIsNotNoData(t *testing.T) {
	opts := testOptions()
	records := []model.MergedRecord{
		{GeoID: "1", Geometry: polygon(box(0, 0, 1, 1)), Value: ptr(0)},
		{GeoID: "2", Geometry: polygon(box(1, 0, 2, 1))},
	}

	img, err := NewPNGRenderer().Render(records, opts)
	require.NoError(t, err)

	scale, err := Scale(opts.Scale)
	require.NoError(t, err)
	assert.Equal(t, scale.At(0), pixelAt(t, img, opts, 0.5, 0.5))
}

func TestPNGRenderer_HoleLeftUnfilled(t *testing.T) {
	opts := testOptions()
	hole := []geom.Coord{{0.25, 0.25}, {0.75, 0.25}, {0.75, 0.75}, {0.25, 0.75}, {0.25, 0.25}}
	records := []model.MergedRecord{
		{GeoID: "1", Geometry: polygon(box(0, 0, 1, 1), hole), Value: ptr(100)},
		{GeoID: "2", Geometry: polygon(box(1, 0, 2, 1)), Value: ptr(100)},
	}

	img, err := NewPNGRenderer().Render(records, opts)
	require.NoError(t, err)

	scale, err := Scale(opts.Scale)
	require.NoError(t, err)
	assert.Equal(t, scale.At(1), pixelAt(t, img, opts, 0.1, 0.1))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, pixelAt(t, img, opts, 0.5, 0.5), "hole shows background")
}

func TestPNGRenderer_MultiPolygon(t *testing.T) {
	opts := testOptions()
	mp := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{box(0, 0, 0.5, 1)},
		{box(1.5, 0, 2, 1)},
	})
	records := []model.MergedRecord{{GeoID: "1", Geometry: mp, Value: ptr(100)}}

	img, err := NewPNGRenderer().Render(records, opts)
	require.NoError(t, err)

	scale, err := Scale(opts.Scale)
	require.NoError(t, err)
	assert.Equal(t, scale.At(1), pixelAt(t, img, opts, 0.25, 0.5))
	assert.Equal(t, scale.At(1), pixelAt(t, img, opts, 1.75, 0.5))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, pixelAt(t, img, opts, 1.0, 0.5))
}

func TestPNGRenderer_StrokesEdges(t *testing.T) {
	opts := testOptions()
	opts.LineWidth = 3
	opts.EdgeColor = "#ff0000"

	img, err := NewPNGRenderer().Render(twoCounties(), opts)
	require.NoError(t, err)

	c := pixelAt(t, img, opts, 1.0, 0.5)
	assert.Equal(t, uint8(0xff), c.R)
	assert.Equal(t, uint8(0x00), c.G)
	assert.Equal(t, uint8(0x00), c.B)
}

func TestPNGRenderer_Errors(t *testing.T) {
	r := NewPNGRenderer()

	_, err := r.Render(nil, testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no records")

	bad := testOptions()
	bad.Min, bad.Max = 100, 0
	_, err = r.Render(twoCounties(), bad)
	require.Error(t, err)

	_, err = r.Render([]model.MergedRecord{{GeoID: "1"}}, testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no geometry")
}

func TestFormatTick(t *testing.T) {
	assert.Equal(t, "25", formatTick(25, 100))
	assert.Equal(t, "0.25", formatTick(0.25, 1))
}

func TestWritePNG(t *testing.T) {
	img, err := NewPNGRenderer().Render(twoCounties(), testOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "map.png")
	require.NoError(t, WritePNG(path, img))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 600, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}
