package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sudorandom/energy-map/pkg/choropleth"
)

type energyRow struct {
	Country                  string `csv:"country"`
	Year                     string `csv:"year"`
	TotalEnergy              string `csv:"total_energy"`
	PrimaryEnergyConsumption string `csv:"primary_energy_consumption"`
}

// LoadEnergy reads the per-country, per-year energy table.
func LoadEnergy(ctx context.Context, src, cacheDir string) ([]choropleth.Record, error) {
	var records []choropleth.Record
	err := read(ctx, src, cacheDir, "[ENERGY]", func(r io.Reader) error {
		var err error
		records, err = ParseEnergy(r)
		return err
	})
	return records, err
}

// ParseEnergy decodes the energy CSV. Rows whose year cannot be read are skipped; numeric
// cells that are empty or not numbers become nil.
func ParseEnergy(r io.Reader) ([]choropleth.Record, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if errors.Is(err, io.EOF) {
		return nil, eris.New("energy table is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "read energy header")
	}
	for _, col := range []string{"country", "year"} {
		if !slices.Contains(dec.Header(), col) {
			return nil, eris.Errorf("energy table has no %q column", col)
		}
	}
	if !slices.Contains(dec.Header(), "primary_energy_consumption") {
		zap.L().Warn("energy table has no primary_energy_consumption column; every country will show as no data")
	}

	var records []choropleth.Record
	skipped := 0
	for {
		var row energyRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "decode energy row %d", len(records)+skipped+1)
		}
		year, err := choropleth.ParseYear(row.Year)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, choropleth.Record{
			Country:                  row.Country,
			Year:                     year,
			TotalEnergy:              parseNumber(row.TotalEnergy),
			PrimaryEnergyConsumption: parseNumber(row.PrimaryEnergyConsumption),
		})
	}
	if skipped > 0 {
		zap.L().Debug("skipped energy rows without a usable year", zap.Int("count", skipped))
	}
	return records, nil
}

func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
