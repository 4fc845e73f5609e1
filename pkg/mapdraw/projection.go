// Package mapdraw projects country geometry onto the map canvas and turns it into pixels or
// SVG path data.
package mapdraw

import "math"

const (
	Width  = 960
	Height = 600
)

// Projection is the Natural Earth I projection scaled and centred on a canvas.
type Projection struct {
	Width, Height int
	Scale         float64
	CenterX       float64
	CenterY       float64
}

// NewProjection fits the whole world across width: scale width/2/pi, centred.
func NewProjection(width, height int) Projection {
	return Projection{
		Width:   width,
		Height:  height,
		Scale:   float64(width) / 2 / math.Pi,
		CenterX: float64(width) / 2,
		CenterY: float64(height) / 2,
	}
}

// Project maps a longitude/latitude pair in degrees to canvas coordinates.
func (p Projection) Project(lng, lat float64) (x, y float64) {
	if lat > 90 {
		lat = 90
	}
	if lat < -90 {
		lat = -90
	}
	lambda, phi := lng*math.Pi/180, lat*math.Pi/180
	phi2 := phi * phi
	phi4 := phi2 * phi2
	px := lambda * (0.8707 - 0.131979*phi2 + phi4*(-0.013791+phi4*(0.003971*phi2-0.001529*phi4)))
	py := phi * (1.007226 + phi2*(0.015085+phi4*(-0.044475+0.028874*phi2-0.005916*phi4)))
	return p.CenterX + p.Scale*px, p.CenterY - p.Scale*py
}

type point struct{ x, y float64 }

// projectRing projects a GeoJSON ring ([lng, lat] positions). Positions with fewer than two
// coordinates are dropped.
func (p Projection) projectRing(ring [][]float64) []point {
	out := make([]point, 0, len(ring))
	for _, c := range ring {
		if len(c) < 2 {
			continue
		}
		x, y := p.Project(c[0], c[1])
		out = append(out, point{x, y})
	}
	return out
}
