package choropleth

import (
	"strconv"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/rotisserie/eris"
)

const (
	NameProperty   = "name"
	EnergyProperty = "energy"
)

// YearLookup maps a country name to its record for one year.
type YearLookup map[string]Record

// NewYearLookup keeps the records whose year equals year exactly. When a country has several
// records for the same year the last one wins.
func NewYearLookup(year int, records []Record) YearLookup {
	lookup := make(YearLookup)
	for _, r := range records {
		if r.Year == year {
			lookup[r.Country] = r
		}
	}
	return lookup
}

// JoinYear annotates every feature with the primary energy consumption of its country for
// year, or removes the annotation when there is no value. Features are mutated in place.
// It returns the number of annotated features.
func JoinYear(year int, features []*geojson.Feature, records []Record) int {
	lookup := NewYearLookup(year, records)
	matched := 0
	for _, f := range features {
		if f.Properties == nil {
			f.Properties = make(map[string]interface{})
		}
		rec, ok := lookup[FeatureName(f)]
		if ok && rec.PrimaryEnergyConsumption != nil {
			f.Properties[EnergyProperty] = *rec.PrimaryEnergyConsumption
			matched++
			continue
		}
		delete(f.Properties, EnergyProperty)
	}
	return matched
}

// FeatureName returns the feature's name property, or "" when it is missing or not a string.
func FeatureName(f *geojson.Feature) string {
	name, _ := f.Properties[NameProperty].(string)
	return name
}

// Energy returns the joined value of a feature.
func Energy(f *geojson.Feature) (float64, bool) {
	v, ok := f.Properties[EnergyProperty].(float64)
	return v, ok
}

// ParseYear reads a year the way a slider value is read: surrounding whitespace is ignored
// and parsing stops at the first character that is not a digit.
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, eris.Errorf("invalid year %q", s)
	}
	year, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, eris.Wrapf(err, "invalid year %q", s)
	}
	return year, nil
}
