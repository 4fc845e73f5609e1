// Package sources loads the country boundaries and the energy table from local files or URLs.
package sources

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sudorandom/energy-map/pkg/choropleth"
	"github.com/sudorandom/energy-map/pkg/utils"
)

// Config names the two inputs. Sources starting with http:// or https:// are downloaded,
// through CacheDir when it is set; anything else is a local path.
type Config struct {
	GeoSource    string
	EnergySource string
	CacheDir     string
}

func DefaultConfig() Config {
	return Config{GeoSource: DefaultGeoSource, EnergySource: DefaultEnergySource}
}

// Load fetches both datasets concurrently. Both must succeed; there are no retries.
func Load(ctx context.Context, cfg Config) (*choropleth.Dataset, error) {
	var data choropleth.Dataset
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		features, err := LoadGeo(ctx, cfg.GeoSource, cfg.CacheDir)
		if err != nil {
			return eris.Wrap(err, "error loading the GeoJSON data")
		}
		data.Features = features
		return nil
	})
	g.Go(func() error {
		records, err := LoadEnergy(ctx, cfg.EnergySource, cfg.CacheDir)
		if err != nil {
			return eris.Wrap(err, "error loading the CSV data")
		}
		data.Records = records
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	zap.L().Info("map data loaded",
		zap.Int("features", len(data.Features)),
		zap.Int("records", len(data.Records)),
	)
	return &data, nil
}

// LoadFunc binds cfg for use with choropleth.Controller.Load.
func (cfg Config) LoadFunc() choropleth.LoadFunc {
	return func(ctx context.Context) (*choropleth.Dataset, error) {
		return Load(ctx, cfg)
	}
}

func read(ctx context.Context, src, cacheDir, logPrefix string, parse func(io.Reader) error) error {
	r, err := utils.Open(ctx, src, cacheDir, logPrefix)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			zap.L().Warn("error closing source", zap.String("source", src), zap.Error(err))
		}
	}()
	return parse(r)
}
