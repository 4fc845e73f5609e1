package sources

import (
	"context"
	"io"

	geojson "github.com/paulmach/go.geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LoadGeo reads a GeoJSON feature collection whose features carry a "name" property.
func LoadGeo(ctx context.Context, src, cacheDir string) ([]*geojson.Feature, error) {
	var features []*geojson.Feature
	err := read(ctx, src, cacheDir, "[GEO]", func(r io.Reader) error {
		var err error
		features, err = ParseGeo(r)
		return err
	})
	return features, err
}

func ParseGeo(r io.Reader) ([]*geojson.Feature, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read geojson")
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, eris.Wrap(err, "decode geojson")
	}

	unnamed := 0
	for _, f := range fc.Features {
		if f.Properties == nil {
			f.Properties = make(map[string]interface{})
		}
		if _, ok := f.Properties["name"].(string); !ok {
			unnamed++
		}
	}
	if unnamed > 0 {
		zap.L().Warn("features without a name will never match energy data", zap.Int("count", unnamed))
	}
	return fc.Features, nil
}
