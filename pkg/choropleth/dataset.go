// Package choropleth joins per-country energy records onto country features for a selected
// year, maps the joined values to colours, and drives re-rendering when the year changes.
package choropleth

import (
	"maps"
	"sort"

	geojson "github.com/paulmach/go.geojson"
)

// Record is one row of the energy table. Numeric cells that were empty or not numbers are nil.
type Record struct {
	Country                  string
	Year                     int
	TotalEnergy              *float64
	PrimaryEnergyConsumption *float64
}

// Dataset is the loaded feature collection plus the full energy table.
//
// Features are mutated in place by JoinYear. A Dataset must have a single owner at a time;
// use Clone to hand an independent copy to another owner.
type Dataset struct {
	Features []*geojson.Feature
	Records  []Record
}

// Clone returns a dataset whose features have their own property maps. Geometry and records
// are shared and must be treated as read-only.
func (d *Dataset) Clone() *Dataset {
	features := make([]*geojson.Feature, len(d.Features))
	for i, f := range d.Features {
		cp := *f
		cp.Properties = maps.Clone(f.Properties)
		if cp.Properties == nil {
			cp.Properties = make(map[string]interface{})
		}
		features[i] = &cp
	}
	return &Dataset{Features: features, Records: d.Records}
}

// Years returns the distinct years present in the records, ascending.
func (d *Dataset) Years() []int {
	seen := make(map[int]struct{})
	var years []int
	for _, r := range d.Records {
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		years = append(years, r.Year)
	}
	sort.Ints(years)
	return years
}

// YearRange returns the smallest and largest year in the records. ok is false when there are
// no records.
func (d *Dataset) YearRange() (lo, hi int, ok bool) {
	years := d.Years()
	if len(years) == 0 {
		return 0, 0, false
	}
	return years[0], years[len(years)-1], true
}

// ClampYear moves year into the records' year range. With no records it returns year as is.
func (d *Dataset) ClampYear(year int) int {
	lo, hi, ok := d.YearRange()
	switch {
	case !ok:
		return year
	case year < lo:
		return lo
	case year > hi:
		return hi
	}
	return year
}
