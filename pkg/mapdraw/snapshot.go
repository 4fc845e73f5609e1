package mapdraw

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/sudorandom/energy-map/pkg/choropleth"
)

var textColor = color.RGBA{0x33, 0x33, 0x33, 0xff}

// NewFace returns the Go Regular font at size points.
func NewFace(size float64) (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, eris.Wrap(err, "parse font")
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, eris.Wrap(err, "create font face")
	}
	return face, nil
}

// RenderSnapshot paints a finished frame: the map, the year in the top-left corner and the
// legend in the bottom-left corner.
func RenderSnapshot(r *Raster, fills []color.RGBA, year int, legend []choropleth.LegendEntry, style Style) (*image.RGBA, error) {
	img := r.Image(fills, style)

	yearFace, err := NewFace(32)
	if err != nil {
		return nil, err
	}
	defer yearFace.Close()
	labelFace, err := NewFace(12)
	if err != nil {
		return nil, err
	}
	defer labelFace.Close()

	drawText(img, yearFace, strconv.Itoa(year), 20, 44)

	const swatch, spacing, margin = 12, 18, 20
	top := r.Height - margin - len(legend)*spacing
	for i, entry := range legend {
		y := top + i*spacing
		rect := image.Rect(margin, y, margin+swatch, y+swatch)
		draw.Draw(img, rect, &image.Uniform{C: style.Outline}, image.Point{}, draw.Src)
		draw.Draw(img, rect.Inset(1), &image.Uniform{C: entry.Color}, image.Point{}, draw.Src)
		drawText(img, labelFace, entry.Label, margin+swatch+8, y+swatch-1)
	}
	return img, nil
}

func drawText(dst draw.Image, face font.Face, s string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return eris.Wrap(err, "encode png")
	}
	return nil
}
