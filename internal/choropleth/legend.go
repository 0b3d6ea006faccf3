package choropleth

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	tickCount   = 5
	barWidth    = 24
	swatchSize  = 24
	titleFactor = 2
)

var (
	inkColor    = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	borderColor = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
)

// drawTitle centers the title above the map at twice the base font size.
func drawTitle(dst *image.RGBA, title string, width int) {
	if title == "" {
		return
	}
	face := basicfont.Face7x13
	w := font.MeasureString(face, title).Ceil()
	h := face.Metrics().Height.Ceil()

	small := image.NewRGBA(image.Rect(0, 0, w, h))
	drawText(small, title, 0, face.Metrics().Ascent.Ceil(), inkColor)

	sw, sh := w*titleFactor, h*titleFactor
	x := (width - sw) / 2
	if x < margin {
		x = margin
	}
	y := (titleBand - sh) / 2
	xdraw.NearestNeighbor.Scale(dst, image.Rect(x, y, x+sw, y+sh), small, small.Bounds(), xdraw.Over, nil)
}

// drawLegend draws the vertical colorbar with tick labels, the field name and
// the no-data swatch in the right-hand band.
func drawLegend(dst *image.RGBA, scale *ColorScale, noData image.Image, opts Options) {
	x0 := opts.Width - legendBand + margin
	top := titleBand + margin
	bottom := opts.Height - margin - swatchSize - 3*margin
	if bottom-top < tickCount {
		bottom = top + tickCount
	}

	if opts.Field != "" {
		drawText(dst, opts.Field, x0, top-6, inkColor)
	}

	span := bottom - top
	for y := top; y <= bottom; y++ {
		t := 1 - float64(y-top)/float64(span)
		c := scale.At(t)
		for x := x0; x < x0+barWidth; x++ {
			dst.SetRGBA(x, y, c)
		}
	}
	drawRect(dst, image.Rect(x0, top, x0+barWidth, bottom+1), borderColor)

	for i := 0; i < tickCount; i++ {
		frac := float64(i) / float64(tickCount-1)
		v := opts.Min + frac*(opts.Max-opts.Min)
		y := bottom - int(frac*float64(span)+0.5)
		for x := x0 + barWidth; x < x0+barWidth+4; x++ {
			dst.SetRGBA(x, y, borderColor)
		}
		drawText(dst, formatTick(v, opts.Max-opts.Min), x0+barWidth+7, y+4, inkColor)
	}

	sy := bottom + 2*margin
	swatch := image.Rect(x0, sy, x0+swatchSize, sy+swatchSize)
	draw.Draw(dst, swatch, noData, swatch.Min, draw.Src)
	drawRect(dst, swatch, borderColor)
	drawText(dst, "No data", x0+swatchSize+7, sy+swatchSize/2+4, inkColor)
}

func drawText(dst draw.Image, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func drawRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		dst.SetRGBA(x, r.Min.Y, c)
		dst.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dst.SetRGBA(r.Min.X, y, c)
		dst.SetRGBA(r.Max.X-1, y, c)
	}
}

// formatTick prints whole numbers for wide ranges and a few significant
// digits otherwise.
func formatTick(v, span float64) string {
	if span >= 10 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', 3, 64)
}
