package choropleth

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	geojson "github.com/paulmach/go.geojson"
)

// ColorScale is a threshold scale: n breakpoints split the value axis into n+1 colours.
type ColorScale struct {
	Breakpoints []float64
	Colors      []color.RGBA
	Fallback    color.RGBA
}

// LightGray is the colour used for countries without data.
var LightGray = color.RGBA{0xd3, 0xd3, 0xd3, 0xff}

// DefaultScale is the primary energy consumption scale.
var DefaultScale = ColorScale{
	Breakpoints: []float64{10.61, 69.34, 345.49, 44275.91},
	Colors: []color.RGBA{
		{0xf7, 0xfb, 0xff, 0xff},
		{0xde, 0xeb, 0xf7, 0xff},
		{0xc6, 0xdb, 0xef, 0xff},
		{0x9e, 0xca, 0xe1, 0xff},
		{0x6b, 0xae, 0xd6, 0xff},
	},
	Fallback: LightGray,
}

// Bucket returns the index of the colour for v: the number of breakpoints less than or equal
// to v.
func (s ColorScale) Bucket(v float64) int {
	return sort.Search(len(s.Breakpoints), func(i int) bool { return s.Breakpoints[i] > v })
}

// ColorFor maps a value to its colour. Absent or NaN values get the fallback colour.
func (s ColorScale) ColorFor(v float64, ok bool) color.RGBA {
	if !ok || math.IsNaN(v) {
		return s.Fallback
	}
	b := s.Bucket(v)
	if b >= len(s.Colors) {
		b = len(s.Colors) - 1
	}
	return s.Colors[b]
}

// FeatureColor is ColorFor applied to the joined value of f.
func (s ColorScale) FeatureColor(f *geojson.Feature) color.RGBA {
	return s.ColorFor(Energy(f))
}

// Fills returns the colour of every feature, in feature order.
func (s ColorScale) Fills(features []*geojson.Feature) []color.RGBA {
	fills := make([]color.RGBA, len(features))
	for i, f := range features {
		fills[i] = s.FeatureColor(f)
	}
	return fills
}

type LegendEntry struct {
	Label string
	Color color.RGBA
}

// Legend describes each bucket, plus the fallback colour last.
func (s ColorScale) Legend() []LegendEntry {
	entries := make([]LegendEntry, 0, len(s.Colors)+1)
	for i, c := range s.Colors {
		var label string
		switch {
		case len(s.Breakpoints) == 0:
			label = "all"
		case i == 0:
			label = fmt.Sprintf("< %g", s.Breakpoints[0])
		case i >= len(s.Breakpoints):
			label = fmt.Sprintf(">= %g", s.Breakpoints[len(s.Breakpoints)-1])
		default:
			label = fmt.Sprintf("%g - %g", s.Breakpoints[i-1], s.Breakpoints[i])
		}
		entries = append(entries, LegendEntry{Label: label, Color: c})
	}
	return append(entries, LegendEntry{Label: "no data", Color: s.Fallback})
}

// Hex formats c as a CSS colour.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
