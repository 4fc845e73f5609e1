package choropleth

import (
	"context"
	"errors"
	"image/color"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"
)

const (
	// DefaultYear is rendered as soon as the data is loaded.
	DefaultYear = 2022
	// TransitionDuration is how long a fill change animates after the first render.
	TransitionDuration = 500 * time.Millisecond
)

// ErrNotReady is returned when a year is selected before the dataset has been loaded.
var ErrNotReady = errors.New("geo data is not yet loaded")

type State int

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}

// Frame is one render request. Features and Fills are index aligned. Features belong to the
// controller and are only valid until the next call into it.
type Frame struct {
	Year       int
	Features   []*geojson.Feature
	Fills      []color.RGBA
	Matched    int
	Initial    bool
	Transition time.Duration
}

// Renderer draws frames. Render must not block on user input.
type Renderer interface {
	Render(Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Frame)

func (f RendererFunc) Render(fr Frame) { f(fr) }

// LoadFunc produces the dataset a controller will own.
type LoadFunc func(ctx context.Context) (*Dataset, error)

// Controller owns a dataset and re-joins and re-renders it whenever the year changes.
// It is not safe for concurrent use.
type Controller struct {
	Scale    ColorScale
	renderer Renderer
	data     *Dataset
	state    State
	year     int
	log      *zap.Logger
}

func NewController(r Renderer) *Controller {
	return &Controller{
		Scale:    DefaultScale,
		renderer: r,
		log:      zap.L().Named("controller"),
	}
}

// Load fetches the dataset and draws the initial frame for year. On failure the controller
// stays uninitialized.
func (c *Controller) Load(ctx context.Context, load LoadFunc, year int) error {
	data, err := load(ctx)
	if err != nil {
		c.log.Error("error loading map data", zap.Error(err))
		return err
	}
	c.Attach(data, year)
	return nil
}

// Attach takes ownership of an already loaded dataset and draws the initial frame for year.
func (c *Controller) Attach(data *Dataset, year int) {
	c.data = data
	c.state = Ready
	c.render(year, true)
}

// SetYear joins the records for year and renders the result. Every call renders; there is no
// coalescing of rapid changes.
func (c *Controller) SetYear(year int) error {
	if c.state != Ready || c.data == nil {
		c.log.Error("geo data is not yet loaded", zap.Int("year", year))
		return ErrNotReady
	}
	c.render(year, false)
	return nil
}

// SetYearText parses a raw slider value and calls SetYear.
func (c *Controller) SetYearText(s string) error {
	year, err := ParseYear(s)
	if err != nil {
		c.log.Warn("ignoring slider value", zap.String("value", s), zap.Error(err))
		return err
	}
	return c.SetYear(year)
}

func (c *Controller) render(year int, initial bool) {
	matched := JoinYear(year, c.data.Features, c.data.Records)
	c.year = year
	frame := Frame{
		Year:     year,
		Features: c.data.Features,
		Fills:    c.Scale.Fills(c.data.Features),
		Matched:  matched,
		Initial:  initial,
	}
	if !initial {
		frame.Transition = TransitionDuration
	}
	c.log.Debug("rendering year",
		zap.Int("year", year),
		zap.Int("matched", matched),
		zap.Int("features", len(c.data.Features)),
		zap.Bool("initial", initial),
	)
	if c.renderer != nil {
		c.renderer.Render(frame)
	}
}

func (c *Controller) State() State { return c.state }

// Year is the last rendered year, or 0 before the first render.
func (c *Controller) Year() int { return c.year }

// Dataset returns the owned dataset, nil until loaded.
func (c *Controller) Dataset() *Dataset { return c.data }
