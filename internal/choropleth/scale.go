package choropleth

import (
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// ColorBrewer 9-class sequential ramps, light to dark.
var ramps = map[string][]string{
	"Blues":   {"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b"},
	"Greens":  {"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b"},
	"Reds":    {"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d"},
	"Greys":   {"#ffffff", "#f0f0f0", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525", "#000000"},
	"Oranges": {"#fff5eb", "#fee6ce", "#fdd0a2", "#fdae6b", "#fd8d3c", "#f16913", "#d94801", "#a63603", "#7f2704"},
	"Purples": {"#fcfbfd", "#efedf5", "#dadaeb", "#bcbddc", "#9e9ac8", "#807dba", "#6a51a3", "#54278f", "#3f007d"},
}

// ColorScale maps a normalized value in [0, 1] onto a color ramp.
type ColorScale struct {
	Name  string
	stops []colorful.Color
}

// Scale returns the named color scale. Names are case-insensitive.
func Scale(name string) (*ColorScale, error) {
	for key, hexes := range ramps {
		if !strings.EqualFold(key, strings.TrimSpace(name)) {
			continue
		}
		stops := make([]colorful.Color, len(hexes))
		for i, h := range hexes {
			c, err := colorful.Hex(h)
			if err != nil {
				return nil, eris.Wrapf(err, "choropleth: scale %s stop %d", key, i)
			}
			stops[i] = c
		}
		return &ColorScale{Name: key, stops: stops}, nil
	}
	return nil, eris.Errorf("choropleth: unknown color scale %q (have %s)", name, strings.Join(ScaleNames(), ", "))
}

// ScaleNames lists the available color scales.
func ScaleNames() []string {
	names := make([]string, 0, len(ramps))
	for k := range ramps {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// At returns the ramp color at t, interpolating in CIE-Lab. t is clamped to [0, 1].
func (s *ColorScale) At(t float64) color.RGBA {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	pos := t * float64(len(s.stops)-1)
	i := int(math.Floor(pos))
	if i >= len(s.stops)-1 {
		return toRGBA(s.stops[len(s.stops)-1])
	}
	if frac := pos - float64(i); frac == 0 {
		return toRGBA(s.stops[i])
	}
	return toRGBA(s.stops[i].BlendLab(s.stops[i+1], pos-float64(i)).Clamped())
}

// Normalize clamps v into [min, max] and maps it to [0, 1].
func Normalize(v, min, max float64) float64 {
	if v <= min {
		return 0
	}
	if v >= max {
		return 1
	}
	return (v - min) / (max - min)
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func parseHex(s string) (color.RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, eris.Wrapf(err, "choropleth: color %q", s)
	}
	return toRGBA(c), nil
}
