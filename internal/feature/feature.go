// Package feature assembles and writes GeoJSON point feature collections.
package feature

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/donormap/internal/geocode"
)

// NewPoint returns a point feature at c with the given properties.
// A nil property map is encoded as an empty object.
func NewPoint(c geocode.Coordinate, props map[string]interface{}) *geojson.Feature {
	if props == nil {
		props = map[string]interface{}{}
	}
	return &geojson.Feature{
		Geometry:   geom.NewPointFlat(geom.XY, c.Flat()),
		Properties: props,
	}
}

// Collection wraps features in a FeatureCollection. The result always holds
// a non-nil slice so an empty collection encodes "features": [].
func Collection(features []*geojson.Feature) *geojson.FeatureCollection {
	if features == nil {
		features = []*geojson.Feature{}
	}
	return &geojson.FeatureCollection{Features: features}
}

// Write encodes fc as indented GeoJSON at path, creating parent directories.
func Write(path string, fc *geojson.FeatureCollection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "feature: create dir for %s", path)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "feature: marshal collection")
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "feature: write %s", path)
	}
	return nil
}
