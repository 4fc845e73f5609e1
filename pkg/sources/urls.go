package sources

const (
	DefaultGeoSource    = "static/custom.geo.json"
	DefaultEnergySource = "static/energy_filtered.csv"

	// Upstream locations, usable as sources directly.
	WorldGeoJSONURL = "https://raw.githubusercontent.com/datasets/geo-countries/master/data/countries.geojson"
	OWIDEnergyURL   = "https://raw.githubusercontent.com/owid/energy-data/master/owid-energy-data.csv"
)
