package config

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Policy holds the geocoding and aggregation constants: which cities are
// summed into a single feature, and the coordinates pinned by hand.
// Coordinates are [longitude, latitude] pairs.
type Policy struct {
	State                string               `yaml:"state"`
	AggregateCities      []string             `yaml:"aggregate_cities"`
	CityOverrides        map[string][]float64 `yaml:"city_overrides"`
	ManualPlaceOverrides map[string][]float64 `yaml:"manual_place_overrides"`
	PlaceAliases         map[string]string    `yaml:"place_aliases"`
	PlaceholderColumns   []string             `yaml:"placeholder_columns"`
}

var defaultPlaceholderColumns = []string{"ZIP", "EMPLOYER", "ADDRESS", "PHONE"}

// DefaultPolicy returns the built-in Montana policy.
func DefaultPolicy() *Policy {
	return &Policy{
		State:           "MT",
		AggregateCities: []string{"bozeman", "livingston", "missoula"},
		CityOverrides: map[string][]float64{
			"bozeman":    {-111.0640, 45.6903},
			"missoula":   {-113.9957, 46.8729},
			"livingston": {-110.5600, 45.6556},
		},
		ManualPlaceOverrides: map[string][]float64{
			"butte":    {-112.5393, 45.9987},
			"anaconda": {-112.9438, 46.1243},
		},
		PlaceAliases: map[string]string{
			"butte-silver bow":           "butte",
			"anaconda-deer lodge county": "anaconda",
		},
		PlaceholderColumns: append([]string(nil), defaultPlaceholderColumns...),
	}
}

// LoadPolicy reads a policy from a YAML file with a top-level "policy" key.
// An empty path returns DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read policy %s", path)
	}

	var wrapper struct {
		Policy Policy `yaml:"policy"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "config: parse policy")
	}

	p := &wrapper.Policy
	if p.PlaceholderColumns == nil {
		p.PlaceholderColumns = append([]string(nil), defaultPlaceholderColumns...)
	}
	p.normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that every pinned coordinate is a [lon, lat] pair.
func (p *Policy) Validate() error {
	for name, c := range p.CityOverrides {
		if len(c) != 2 {
			return eris.Errorf("config: city_overrides[%s] must be [lon, lat]", name)
		}
	}
	for name, c := range p.ManualPlaceOverrides {
		if len(c) != 2 {
			return eris.Errorf("config: manual_place_overrides[%s] must be [lon, lat]", name)
		}
	}
	return nil
}

// IsAggregate reports whether a city is summed rather than plotted per
// record. Comparison ignores case and surrounding space.
func (p *Policy) IsAggregate(city string) bool {
	city = strings.TrimSpace(city)
	for _, c := range p.AggregateCities {
		if strings.EqualFold(strings.TrimSpace(c), city) {
			return true
		}
	}
	return false
}

// normalize lower-cases and trims every city key so lookups against
// normalized record fields succeed.
func (p *Policy) normalize() {
	p.State = strings.ToUpper(strings.TrimSpace(p.State))

	seen := make(map[string]bool, len(p.AggregateCities))
	cities := p.AggregateCities[:0]
	for _, c := range p.AggregateCities {
		c = normalizeKey(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cities = append(cities, c)
	}
	sort.Strings(cities)
	p.AggregateCities = cities

	p.CityOverrides = normalizeCoords(p.CityOverrides)
	p.ManualPlaceOverrides = normalizeCoords(p.ManualPlaceOverrides)

	aliases := make(map[string]string, len(p.PlaceAliases))
	for k, v := range p.PlaceAliases {
		aliases[normalizeKey(k)] = normalizeKey(v)
	}
	p.PlaceAliases = aliases
}

func normalizeCoords(in map[string][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(in))
	for k, v := range in {
		out[normalizeKey(k)] = v
	}
	return out
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
