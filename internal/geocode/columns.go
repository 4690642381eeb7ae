package geocode

import "strings"

// Exact header names, in preference order, for each reference ZIP column.
var (
	exactZIP = []string{"zip", "postal code", "postal_code", "postalcode"}
	exactLat = []string{"latitude", "lat"}
	exactLon = []string{"longitude", "lon", "lng"}
)

// Columns names the header cells holding the postal code, latitude and longitude.
type Columns struct {
	ZIP string
	Lat string
	Lon string
}

// Complete reports whether all three columns were found.
func (c Columns) Complete() bool {
	return c.ZIP != "" && c.Lat != "" && c.Lon != ""
}

// ResolveColumns finds the ZIP, latitude and longitude columns of a header.
// Exact case-insensitive names are tried first; substring matching only
// fills the columns the exact pass left empty.
func ResolveColumns(header []string) Columns {
	c := matchExact(header)
	if !c.Complete() {
		c = matchSubstring(header, c)
	}
	return c
}

func matchExact(header []string) Columns {
	lower := make(map[string]string, len(header))
	for _, h := range header {
		k := strings.ToLower(h)
		if _, ok := lower[k]; !ok {
			lower[k] = h
		}
	}
	pick := func(names []string) string {
		for _, n := range names {
			if h, ok := lower[n]; ok {
				return h
			}
		}
		return ""
	}
	return Columns{
		ZIP: pick(exactZIP),
		Lat: pick(exactLat),
		Lon: pick(exactLon),
	}
}

func matchSubstring(header []string, c Columns) Columns {
	for _, h := range header {
		k := strings.ToLower(h)
		if c.ZIP == "" && strings.Contains(k, "zip") {
			c.ZIP = h
		}
		if c.Lat == "" && strings.Contains(k, "lat") {
			c.Lat = h
		}
		if c.Lon == "" && (strings.Contains(k, "lon") || strings.Contains(k, "lng")) {
			c.Lon = h
		}
	}
	return c
}
