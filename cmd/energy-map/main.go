package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sudorandom/energy-map/pkg/choropleth"
	"github.com/sudorandom/energy-map/pkg/mapdraw"
	"github.com/sudorandom/energy-map/pkg/sources"
	"github.com/sudorandom/energy-map/pkg/viewer"
	"github.com/sudorandom/energy-map/pkg/webmap"
)

type Globals struct {
	Geo       string `help:"GeoJSON source (path or URL). Upstream: ${geo_url}" default:"${geo}" env:"ENERGY_MAP_GEO"`
	Energy    string `help:"Energy CSV source (path or URL). Upstream: ${energy_url}" default:"${energy}" env:"ENERGY_MAP_ENERGY"`
	CacheDir  string `help:"Directory for cached downloads; empty disables caching." env:"ENERGY_MAP_CACHE_DIR"`
	LogLevel  string `help:"Log level." default:"info" env:"ENERGY_MAP_LOG_LEVEL"`
	LogFormat string `help:"Log format." default:"console" enum:"console,json" env:"ENERGY_MAP_LOG_FORMAT"`
}

func (g *Globals) sourceConfig() sources.Config {
	return sources.Config{GeoSource: g.Geo, EnergySource: g.Energy, CacheDir: g.CacheDir}
}

type ViewCmd struct {
	Year         int    `help:"Year shown first." default:"${year}"`
	CaptureDir   string `help:"Write a PNG of every settled frame into this directory." env:"ENERGY_MAP_CAPTURE_DIR"`
	WindowWidth  int    `help:"Initial window width." default:"960"`
	WindowHeight int    `help:"Initial window height." default:"670"`
}

func (c *ViewCmd) Run(g *Globals) error {
	engine := viewer.NewEngine(mapdraw.Width, mapdraw.Height)
	engine.InitialYear = c.Year
	engine.FrameCaptureDir = c.CaptureDir
	engine.StartLoading(context.Background(), g.sourceConfig().LoadFunc())

	ebiten.SetWindowSize(c.WindowWidth, c.WindowHeight)
	ebiten.SetWindowTitle("Primary Energy Consumption")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(engine)
}

type ServeCmd struct {
	Addr string `help:"Listen address." default:":8080" env:"ENERGY_MAP_ADDR"`
}

func (c *ServeCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := sources.Load(ctx, g.sourceConfig())
	if err != nil {
		return err
	}
	return webmap.NewServer(data).ListenAndServe(ctx, c.Addr)
}

type SnapshotCmd struct {
	Year int    `help:"Year to render." default:"${year}"`
	Out  string `help:"Output PNG path." short:"o" default:"energy.png"`
}

func (c *SnapshotCmd) Run(g *Globals) error {
	ctx := context.Background()

	var frame choropleth.Frame
	ctrl := choropleth.NewController(choropleth.RendererFunc(func(f choropleth.Frame) { frame = f }))
	if err := ctrl.Load(ctx, g.sourceConfig().LoadFunc(), c.Year); err != nil {
		return err
	}

	raster := mapdraw.NewRaster(mapdraw.NewProjection(mapdraw.Width, mapdraw.Height), frame.Features)
	img, err := mapdraw.RenderSnapshot(raster, frame.Fills, frame.Year, ctrl.Scale.Legend(), mapdraw.DefaultStyle)
	if err != nil {
		return err
	}

	f, err := os.Create(c.Out)
	if err != nil {
		return eris.Wrapf(err, "create %s", c.Out)
	}
	if err := mapdraw.WritePNG(f, img); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", c.Out)
	}
	zap.L().Info("wrote snapshot",
		zap.String("path", c.Out),
		zap.Int("year", frame.Year),
		zap.Int("matched", frame.Matched),
		zap.Int("features", len(frame.Features)))
	return nil
}

type CLI struct {
	Globals

	View     ViewCmd     `cmd:"" default:"1" help:"Open the interactive map window."`
	Serve    ServeCmd    `cmd:"" help:"Serve the map to browsers."`
	Snapshot SnapshotCmd `cmd:"" help:"Render one year to a PNG file."`
}

// initLogger installs the global zap logger.
func initLogger(level, format string) error {
	var zapCfg zap.Config
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return eris.Wrap(err, "parse log level")
	}
	zapCfg.Level.SetLevel(lvl)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}

func parserOptions() []kong.Option {
	return []kong.Option{
		kong.Name("energy-map"),
		kong.Description("World map of primary energy consumption by year."),
		kong.UsageOnError(),
		kong.Vars{
			"geo":        sources.DefaultGeoSource,
			"energy":     sources.DefaultEnergySource,
			"geo_url":    sources.WorldGeoJSONURL,
			"energy_url": sources.OWIDEnergyURL,
			"year":       "2022",
		},
	}
}

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	var cli CLI
	parser := kong.Must(&cli, parserOptions()...)
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := initLogger(cli.LogLevel, cli.LogFormat); err != nil {
		ctx.FatalIfErrorf(err)
	}
	defer func() { _ = zap.L().Sync() }()

	if err := ctx.Run(&cli.Globals); err != nil {
		zap.L().Error("command failed", zap.String("command", ctx.Command()), zap.Error(err))
		_ = zap.L().Sync()
		os.Exit(1)
	}
}
