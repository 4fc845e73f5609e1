// Package viewer is the desktop choropleth viewer: an ebiten game that draws the map,
// animates fill changes and turns slider input into year changes.
package viewer

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"strconv"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/sudorandom/energy-map/pkg/choropleth"
	"github.com/sudorandom/energy-map/pkg/mapdraw"
)

const sliderAreaHeight = 70

var (
	ColorText   = color.RGBA{0x33, 0x33, 0x33, 0xff}
	ColorTrack  = color.RGBA{0xc6, 0xdb, 0xef, 0xff}
	ColorHandle = color.RGBA{0x31, 0x82, 0xbd, 0xff}
	ColorPanel  = color.RGBA{0xf4, 0xf4, 0xf4, 0xff}
)

type loadResult struct {
	data *choropleth.Dataset
	err  error
}

// Engine implements ebiten.Game and choropleth.Renderer. All methods run on the ebiten
// update goroutine, except Render which may also be called before the game starts.
type Engine struct {
	Width, Height   int
	Style           mapdraw.Style
	FrameCaptureDir string
	InitialYear     int

	controller *choropleth.Controller
	proj       mapdraw.Projection
	raster     *mapdraw.Raster
	features   []*geojson.Feature
	current    []color.RGBA
	anim       *transition
	year       int
	matched    int
	dirty      bool
	captured   bool

	pix        []byte
	mapImage   *ebiten.Image
	fontSource *text.GoTextFaceSource
	slider     Slider
	legend     []choropleth.LegendEntry

	loadCh  chan loadResult
	loadErr error
	now     func() time.Time
	log     *zap.Logger
}

func NewEngine(width, height int) *Engine {
	s, _ := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))

	e := &Engine{
		Width:       width,
		Height:      height,
		Style:       mapdraw.DefaultStyle,
		InitialYear: choropleth.DefaultYear,
		proj:        mapdraw.NewProjection(width, height),
		fontSource:  s,
		legend:      choropleth.DefaultScale.Legend(),
		now:         time.Now,
		log:         zap.L().Named("viewer"),
	}
	e.slider = Slider{
		Min: choropleth.DefaultYear, Max: choropleth.DefaultYear, Value: choropleth.DefaultYear,
		X: 140, Y: float64(height) + sliderAreaHeight/2 - 4, W: float64(width) - 280, H: 8,
	}
	e.controller = choropleth.NewController(e)
	return e
}

// Controller returns the controller that owns the engine's dataset.
func (e *Engine) Controller() *choropleth.Controller { return e.controller }

// StartLoading fetches the dataset in the background. The engine stays uninitialized, with
// slider input rejected by the controller, until Update picks up the result.
func (e *Engine) StartLoading(ctx context.Context, load choropleth.LoadFunc) {
	e.loadCh = make(chan loadResult, 1)
	go func() {
		data, err := load(ctx)
		e.loadCh <- loadResult{data: data, err: err}
	}()
}

func (e *Engine) pollLoad() {
	if e.loadCh == nil {
		return
	}
	select {
	case res := <-e.loadCh:
		e.loadCh = nil
		if res.err != nil {
			e.loadErr = res.err
			e.log.Error("error loading map data", zap.Error(res.err))
			return
		}
		year := res.data.ClampYear(e.InitialYear)
		lo, hi, ok := res.data.YearRange()
		if !ok {
			lo, hi = year, year
		}
		e.slider.SetRange(lo, hi)
		e.slider.Value = year
		e.controller.Attach(res.data, year)
	default:
	}
}

// Render receives a joined frame from the controller. The first frame, and any frame whose
// feature set differs from the previous one, rebuilds the raster.
func (e *Engine) Render(f choropleth.Frame) {
	if e.raster == nil || !sameFeatures(e.features, f.Features) {
		e.raster = mapdraw.NewRaster(e.proj, f.Features)
		e.features = append(e.features[:0:0], f.Features...)
		e.current = make([]color.RGBA, len(f.Fills))
		copy(e.current, f.Fills)
		e.anim = nil
	}

	to := make([]color.RGBA, len(f.Fills))
	copy(to, f.Fills)
	if f.Initial || f.Transition <= 0 {
		copy(e.current, to)
		e.anim = nil
	} else {
		from := make([]color.RGBA, len(e.current))
		copy(from, e.current)
		e.anim = &transition{from: from, to: to, start: e.now(), duration: f.Transition}
	}
	e.year, e.matched = f.Year, f.Matched
	e.dirty = true
	e.captured = false
}

func sameFeatures(a, b []*geojson.Feature) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// selectYear forwards a slider change to the controller.
func (e *Engine) selectYear(year int) {
	if err := e.controller.SetYear(year); err != nil {
		e.log.Debug("year change ignored", zap.Int("year", year), zap.Error(err))
	}
}

func (e *Engine) Update() error {
	e.pollLoad()
	e.handleInput()

	if e.anim != nil {
		if done := e.anim.apply(e.current, e.now()); done {
			e.anim = nil
		}
		e.dirty = true
	}
	if e.anim == nil && e.raster != nil && !e.captured {
		e.captured = true
		e.captureFrame()
	}
	return nil
}

func (e *Engine) handleInput() {
	cx, cy := ebiten.CursorPosition()
	x, y := float64(cx), float64(cy)

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		if v, changed := e.slider.Press(x, y); changed {
			e.selectYear(v)
		}
	} else if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if v, changed := e.slider.Drag(x); changed {
			e.selectYear(v)
		}
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		e.slider.Release()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
		if v, changed := e.slider.Step(-1); changed {
			e.selectYear(v)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		if v, changed := e.slider.Step(1); changed {
			e.selectYear(v)
		}
	}
}

func (e *Engine) Draw(screen *ebiten.Image) {
	screen.Fill(e.Style.Background)

	if e.raster != nil {
		if e.mapImage == nil {
			e.mapImage = ebiten.NewImage(e.Width, e.Height)
			e.pix = make([]byte, e.Width*e.Height*4)
		}
		if e.dirty {
			e.raster.Paint(e.pix, e.Width*4, e.current, e.Style)
			e.mapImage.WritePixels(e.pix)
			e.dirty = false
		}
		screen.DrawImage(e.mapImage, nil)
		e.drawLegend(screen)
	}

	e.drawStatus(screen)
	e.drawSlider(screen)
}

func (e *Engine) face(size float64) *text.GoTextFace {
	return &text.GoTextFace{Source: e.fontSource, Size: size}
}

func (e *Engine) drawText(screen *ebiten.Image, s string, size, x, y float64) {
	if e.fontSource == nil {
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(ColorText)
	text.Draw(screen, s, e.face(size), op)
}

func (e *Engine) drawLegend(screen *ebiten.Image) {
	const margin, swatch, spacing, fontSize = 20.0, 12.0, 18.0, 12.0
	top := float64(e.Height) - margin - float64(len(e.legend))*spacing
	for i, it := range e.legend {
		y := top + float64(i)*spacing
		vector.DrawFilledRect(screen, float32(margin), float32(y), swatch, swatch, it.Color, false)
		vector.StrokeRect(screen, float32(margin), float32(y), swatch, swatch, 1, e.Style.Outline, false)
		e.drawText(screen, it.Label, fontSize, margin+swatch+8, y-1)
	}
}

func (e *Engine) drawStatus(screen *ebiten.Image) {
	switch {
	case e.loadErr != nil:
		e.drawText(screen, "Failed to load map data", 20, 20, 20)
	case e.controller.State() != choropleth.Ready:
		e.drawText(screen, "Loading map data...", 20, 20, 20)
	default:
		e.drawText(screen, strconv.Itoa(e.year), 32, 20, 12)
		e.drawText(screen, fmt.Sprintf("%d of %d countries with data", e.matched, len(e.features)), 12, 22, 52)
	}
}

func (e *Engine) drawSlider(screen *ebiten.Image) {
	vector.DrawFilledRect(screen, 0, float32(e.Height), float32(e.Width), sliderAreaHeight, ColorPanel, false)

	s := &e.slider
	vector.DrawFilledRect(screen, float32(s.X), float32(s.Y), float32(s.W), float32(s.H), ColorTrack, false)
	vector.DrawFilledCircle(screen, float32(s.HandleX()), float32(s.Y+s.H/2), float32(s.H*1.2), ColorHandle, true)

	e.drawText(screen, strconv.Itoa(s.Min), 14, s.X-60, s.Y-6)
	e.drawText(screen, strconv.Itoa(s.Max), 14, s.X+s.W+20, s.Y-6)
}

// Layout reserves a strip under the map for the slider.
func (e *Engine) Layout(w, h int) (int, int) { return e.Width, e.Height + sliderAreaHeight }
