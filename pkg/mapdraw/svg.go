package mapdraw

import (
	"math"
	"strconv"

	geojson "github.com/paulmach/go.geojson"
)

// SVGPath returns SVG path data for a feature's polygons, one closed subpath per ring.
// Features without area return "".
func (p Projection) SVGPath(f *geojson.Feature) string {
	var buf []byte
	for _, poly := range Polygons(f.Geometry) {
		for _, ring := range poly {
			pts := p.projectRing(ring)
			if len(pts) < 3 {
				continue
			}
			for i, pt := range pts {
				if i == 0 {
					buf = append(buf, 'M')
				} else {
					buf = append(buf, 'L')
				}
				buf = strconv.AppendFloat(buf, round1(pt.x), 'f', -1, 64)
				buf = append(buf, ',')
				buf = strconv.AppendFloat(buf, round1(pt.y), 'f', -1, 64)
			}
			buf = append(buf, 'Z')
		}
	}
	return string(buf)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
