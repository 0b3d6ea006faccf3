// Package choropleth renders merged geo records as a color-coded map with a
// legend.
package choropleth

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/image/vector"

	"github.com/sells-group/census-choropleth/internal/model"
)

// Renderer draws a choropleth of merged records.
type Renderer interface {
	Render(records []model.MergedRecord, opts Options) (image.Image, error)
}

// Options controls a single render.
type Options struct {
	Field     string
	Title     string
	Min       float64
	Max       float64
	Scale     string
	Width     int
	Height    int
	EdgeColor string
	LineWidth float64
}

// DefaultOptions returns the render defaults.
func DefaultOptions() Options {
	return Options{
		Field:     "White",
		Min:       0,
		Max:       100,
		Scale:     "Blues",
		Width:     1500,
		Height:    1000,
		EdgeColor: "#cccccc",
		LineWidth: 0.8,
	}
}

const (
	minCanvas = 200

	margin      = 20
	titleBand   = 60
	legendBand  = 160
	hatchStep   = 6
	noDataFill  = "#f0f0f0"
	noDataHatch = "#a0a0a0"
)

// Validate checks the options for a render.
func (o Options) Validate() error {
	if math.IsNaN(o.Min) || math.IsNaN(o.Max) || o.Min >= o.Max {
		return eris.Errorf("choropleth: min (%g) must be less than max (%g)", o.Min, o.Max)
	}
	if o.Width < minCanvas || o.Height < minCanvas {
		return eris.Errorf("choropleth: canvas %dx%d is smaller than %dx%d", o.Width, o.Height, minCanvas, minCanvas)
	}
	if o.LineWidth < 0 {
		return eris.Errorf("choropleth: negative line width %g", o.LineWidth)
	}
	if _, err := Scale(o.Scale); err != nil {
		return err
	}
	if _, err := parseHex(o.EdgeColor); err != nil {
		return err
	}
	return nil
}

// PNGRenderer rasterizes records into an RGBA image.
type PNGRenderer struct{}

// NewPNGRenderer creates a PNGRenderer.
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{}
}

// Render draws every record: a fill per feature colored by its clamped value
// (or the no-data hatch), edges, the title and the legend.
func (r *PNGRenderer) Render(records []model.MergedRecord, opts Options) (image.Image, error) {
	log := zap.L().With(zap.String("component", "choropleth"))

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, eris.New("choropleth: no records to render")
	}

	scale, err := Scale(opts.Scale)
	if err != nil {
		return nil, err
	}
	edge, err := parseHex(opts.EdgeColor)
	if err != nil {
		return nil, err
	}
	hatch, err := newHatch()
	if err != nil {
		return nil, err
	}

	bounds := geom.NewBounds(geom.XY)
	for _, rec := range records {
		if rec.Geometry != nil {
			bounds.Extend(rec.Geometry)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	mapArea := image.Rect(margin, titleBand, opts.Width-legendBand, opts.Height-margin)
	proj, err := newProjection(bounds, mapArea)
	if err != nil {
		return nil, eris.Wrap(err, "choropleth: records carry no geometry")
	}

	ras := vector.NewRasterizer(0, 0)
	var drawn, noData int
	for _, rec := range records {
		rings := proj.rings(rec.Geometry)
		if len(rings) == 0 {
			log.Debug("skipping record without polygon geometry", zap.String("geoid", rec.GeoID))
			continue
		}

		var src image.Image
		if rec.HasValue() {
			src = image.NewUniform(scale.At(Normalize(*rec.Value, opts.Min, opts.Max)))
		} else {
			src = hatch
			noData++
		}
		fillRings(ras, img, rings, src)
		if opts.LineWidth > 0 {
			strokeRings(ras, img, rings, float32(opts.LineWidth), edge)
		}
		drawn++
	}

	drawTitle(img, opts.Title, opts.Width)
	drawLegend(img, scale, hatch, opts)

	log.Info("rendered choropleth",
		zap.String("field", opts.Field),
		zap.Int("features", drawn),
		zap.Int("no_data", noData),
	)
	return img, nil
}

// fillRings fills all rings of one feature in a single nonzero pass so holes
// stay empty.
func fillRings(ras *vector.Rasterizer, dst *image.RGBA, rings [][][2]float32, src image.Image) {
	box, ok := ringBounds(rings, 0, dst.Bounds())
	if !ok {
		return
	}
	ras.Reset(box.Dx(), box.Dy())
	ox, oy := float32(box.Min.X), float32(box.Min.Y)
	for _, ring := range rings {
		ras.MoveTo(ring[0][0]-ox, ring[0][1]-oy)
		for _, p := range ring[1:] {
			ras.LineTo(p[0]-ox, p[1]-oy)
		}
		ras.ClosePath()
	}
	drawMasked(ras, dst, box, src)
}

// strokeRings draws every ring edge as a quad of the given width.
func strokeRings(ras *vector.Rasterizer, dst *image.RGBA, rings [][][2]float32, width float32, c color.Color) {
	half := width / 2
	if half < 0.5 {
		half = 0.5
	}
	box, ok := ringBounds(rings, int(math.Ceil(float64(half)))+1, dst.Bounds())
	if !ok {
		return
	}
	ras.Reset(box.Dx(), box.Dy())
	ox, oy := float32(box.Min.X), float32(box.Min.Y)

	for _, ring := range rings {
		for i := range ring {
			a, b := ring[i], ring[(i+1)%len(ring)]
			dx, dy := b[0]-a[0], b[1]-a[1]
			length := float32(math.Hypot(float64(dx), float64(dy)))
			if length == 0 {
				continue
			}
			nx, ny := -dy/length*half, dx/length*half
			ras.MoveTo(a[0]+nx-ox, a[1]+ny-oy)
			ras.LineTo(b[0]+nx-ox, b[1]+ny-oy)
			ras.LineTo(b[0]-nx-ox, b[1]-ny-oy)
			ras.LineTo(a[0]-nx-ox, a[1]-ny-oy)
			ras.ClosePath()
		}
	}
	drawMasked(ras, dst, box, image.NewUniform(c))
}

func drawMasked(ras *vector.Rasterizer, dst *image.RGBA, box image.Rectangle, src image.Image) {
	mask := image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	ras.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(dst, box, src, box.Min, mask, image.Point{}, draw.Over)
}

// ringBounds returns the pixel box covering rings, padded and clipped to clip.
func ringBounds(rings [][][2]float32, pad int, clip image.Rectangle) (image.Rectangle, bool) {
	minX, minY := float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxX, maxY := float32(-math.MaxFloat32), float32(-math.MaxFloat32)
	for _, ring := range rings {
		for _, p := range ring {
			minX = min(minX, p[0])
			minY = min(minY, p[1])
			maxX = max(maxX, p[0])
			maxY = max(maxY, p[1])
		}
	}
	box := image.Rect(
		int(math.Floor(float64(minX)))-pad,
		int(math.Floor(float64(minY)))-pad,
		int(math.Ceil(float64(maxX)))+pad+1,
		int(math.Ceil(float64(maxY)))+pad+1,
	).Intersect(clip)
	return box, !box.Empty()
}

// hatchImage is an infinite diagonal hatch pattern.
type hatchImage struct {
	bg, fg color.RGBA
}

func newHatch() (*hatchImage, error) {
	bg, err := parseHex(noDataFill)
	if err != nil {
		return nil, err
	}
	fg, err := parseHex(noDataHatch)
	if err != nil {
		return nil, err
	}
	return &hatchImage{bg: bg, fg: fg}, nil
}

func (h *hatchImage) ColorModel() color.Model { return color.RGBAModel }

func (h *hatchImage) Bounds() image.Rectangle {
	return image.Rect(-1e9, -1e9, 1e9, 1e9)
}

func (h *hatchImage) At(x, y int) color.Color {
	if ((x+y)%hatchStep+hatchStep)%hatchStep == 0 {
		return h.fg
	}
	return h.bg
}
