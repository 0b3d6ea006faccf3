package choropleth

import (
	"image"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// projection maps lon/lat onto pixels inside a target rectangle with an
// equirectangular fit. It is a display transform only.
type projection struct {
	minX, maxY float64
	kx         float64 // cos(mid latitude)
	scale      float64
	offX, offY float64
}

func newProjection(b *geom.Bounds, area image.Rectangle) (*projection, error) {
	if b == nil || b.IsEmpty() {
		return nil, eris.New("choropleth: nothing to project")
	}
	minX, minY := b.Min(0), b.Min(1)
	maxX, maxY := b.Max(0), b.Max(1)

	kx := math.Cos((minY + maxY) / 2 * math.Pi / 180)
	if kx <= 0 {
		kx = 1
	}
	dataW := (maxX - minX) * kx
	dataH := maxY - minY

	areaW, areaH := float64(area.Dx()), float64(area.Dy())
	var scale float64
	switch {
	case dataW == 0 && dataH == 0:
		scale = 1
	case dataW == 0:
		scale = areaH / dataH
	case dataH == 0:
		scale = areaW / dataW
	default:
		scale = math.Min(areaW/dataW, areaH/dataH)
	}

	return &projection{
		minX:  minX,
		maxY:  maxY,
		kx:    kx,
		scale: scale,
		offX:  float64(area.Min.X) + (areaW-dataW*scale)/2,
		offY:  float64(area.Min.Y) + (areaH-dataH*scale)/2,
	}, nil
}

func (p *projection) point(x, y float64) (float32, float32) {
	px := p.offX + (x-p.minX)*p.kx*p.scale
	py := p.offY + (p.maxY-y)*p.scale
	return float32(px), float32(py)
}

// rings returns every linear ring of a polygonal geometry in pixel space.
func (p *projection) rings(g geom.T) [][][2]float32 {
	var out [][][2]float32
	add := func(poly *geom.Polygon) {
		for i := 0; i < poly.NumLinearRings(); i++ {
			lr := poly.LinearRing(i)
			stride := lr.Stride()
			flat := lr.FlatCoords()
			ring := make([][2]float32, 0, len(flat)/stride)
			for j := 0; j+1 < len(flat); j += stride {
				x, y := p.point(flat[j], flat[j+1])
				ring = append(ring, [2]float32{x, y})
			}
			if len(ring) >= 3 {
				out = append(out, ring)
			}
		}
	}

	switch t := g.(type) {
	case *geom.Polygon:
		add(t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			add(t.Polygon(i))
		}
	}
	return out
}
