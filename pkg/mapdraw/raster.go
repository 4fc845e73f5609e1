package mapdraw

import (
	"image"
	"image/color"
	"math"
	"sort"

	geojson "github.com/paulmach/go.geojson"
)

const noFeature = -1

// Raster records which feature covers each pixel of the canvas, plus the country outlines.
// It is built once per feature set; repainting for a new year only needs the fills.
type Raster struct {
	Width, Height int
	owner         []int32
	outline       []bool
}

// Style holds the colours that do not depend on the data.
type Style struct {
	Background color.RGBA
	Outline    color.RGBA
}

var DefaultStyle = Style{
	Background: color.RGBA{0xff, 0xff, 0xff, 0xff},
	Outline:    color.RGBA{0x9a, 0xa4, 0xb0, 0xff},
}

// Polygons returns the polygons of a Polygon or MultiPolygon geometry. Other geometry types
// have no area and yield nothing.
func Polygons(g *geojson.Geometry) [][][][]float64 {
	switch {
	case g == nil:
		return nil
	case g.IsPolygon():
		return [][][][]float64{g.Polygon}
	case g.IsMultiPolygon():
		return g.MultiPolygon
	}
	return nil
}

// NewRaster rasterises features in order; later features win where shapes overlap.
func NewRaster(p Projection, features []*geojson.Feature) *Raster {
	r := &Raster{
		Width:   p.Width,
		Height:  p.Height,
		owner:   make([]int32, p.Width*p.Height),
		outline: make([]bool, p.Width*p.Height),
	}
	for i := range r.owner {
		r.owner[i] = noFeature
	}
	for idx, f := range features {
		for _, poly := range Polygons(f.Geometry) {
			rings := make([][]point, 0, len(poly))
			for _, ring := range poly {
				rings = append(rings, p.projectRing(ring))
			}
			r.fillPolygon(rings, int32(idx))
			for _, ring := range rings {
				r.drawRing(ring)
			}
		}
	}
	return r
}

// FeatureAt returns the index of the feature covering (x, y), or -1 for sea.
func (r *Raster) FeatureAt(x, y int) int {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return noFeature
	}
	return int(r.owner[y*r.Width+x])
}

// Paint writes the map into an RGBA pixel buffer laid out with the given stride. fills is
// indexed by feature; features without a fill keep the background.
func (r *Raster) Paint(pix []byte, stride int, fills []color.RGBA, style Style) {
	for y := 0; y < r.Height; y++ {
		row := pix[y*stride:]
		for x := 0; x < r.Width; x++ {
			i := y*r.Width + x
			c := style.Background
			if r.outline[i] {
				c = style.Outline
			} else if o := r.owner[i]; o != noFeature && int(o) < len(fills) {
				c = fills[o]
			}
			off := x * 4
			row[off], row[off+1], row[off+2], row[off+3] = c.R, c.G, c.B, c.A
		}
	}
}

// Image paints the map into a new image.
func (r *Raster) Image(fills []color.RGBA, style Style) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	r.Paint(img.Pix, img.Stride, fills, style)
	return img
}

// fillPolygon is an even-odd scanline fill sampling each row at its pixel centre, so holes
// in the polygon stay unfilled.
func (r *Raster) fillPolygon(rings [][]point, idx int32) {
	if len(rings) == 0 {
		return
	}
	minY, maxY := float64(r.Height), 0.0
	for _, ring := range rings {
		for _, pt := range ring {
			minY = math.Min(minY, pt.y)
			maxY = math.Max(maxY, pt.y)
		}
	}
	var nodes []float64
	for y := int(math.Max(0, minY)); y <= int(maxY) && y < r.Height; y++ {
		nodes = nodes[:0]
		fy := float64(y) + 0.5
		for _, ring := range rings {
			for i := 0; i < len(ring); i++ {
				a, b := ring[i], ring[(i+1)%len(ring)]
				if (a.y < fy && b.y >= fy) || (b.y < fy && a.y >= fy) {
					nodes = append(nodes, a.x+(fy-a.y)/(b.y-a.y)*(b.x-a.x))
				}
			}
		}
		sort.Float64s(nodes)
		for i := 0; i+1 < len(nodes); i += 2 {
			xs := int(math.Ceil(nodes[i] - 0.5))
			xe := int(math.Ceil(nodes[i+1] - 0.5))
			if xs < 0 {
				xs = 0
			}
			if xe > r.Width {
				xe = r.Width
			}
			for x := xs; x < xe; x++ {
				r.owner[y*r.Width+x] = idx
			}
		}
	}
}

func (r *Raster) drawRing(ring []point) {
	for i := 0; i+1 < len(ring); i++ {
		a, b := ring[i], ring[i+1]
		// Edges that wrap around the antimeridian would streak across the whole map.
		if math.Abs(a.x-b.x) > float64(r.Width)/2 {
			continue
		}
		r.drawLine(int(a.x), int(a.y), int(b.x), int(b.y))
	}
}

// drawLine is Bresenham's line algorithm.
func (r *Raster) drawLine(x1, y1, x2, y2 int) {
	dx, dy := abs(x2-x1), abs(y2-y1)
	sx, sy := -1, -1
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}
	err := dx - dy
	for {
		if x1 >= 0 && x1 < r.Width && y1 >= 0 && y1 < r.Height {
			r.outline[y1*r.Width+x1] = true
		}
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
