package geocode

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/donormap/internal/fetcher"
)

// nameProperty is the boundary attribute holding the municipality name.
const nameProperty = "NAME"

// LoadBoundaries reads municipality boundaries and indexes one
// representative point per name. The path may be GeoJSON, a Shapefile
// (.shp), or a ZIP archive holding a Shapefile as the Census publishes them.
func LoadBoundaries(b *Builder, path string) (LoadStats, error) {
	var (
		stats LoadStats
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		stats, err = loadShapefile(b, path)
	case ".zip":
		stats, err = loadShapefileArchive(b, path)
	default:
		stats, err = loadGeoJSON(b, path)
	}
	if err != nil {
		return stats, err
	}

	zap.L().Info("loaded municipality boundaries",
		zap.String("component", "geocode.boundaries"),
		zap.String("path", path),
		zap.Int("features", stats.Rows),
		zap.Int("loaded", stats.Loaded),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

func loadShapefileArchive(b *Builder, path string) (LoadStats, error) {
	dir, err := os.MkdirTemp("", "donormap-boundaries-*")
	if err != nil {
		return LoadStats{}, eris.Wrap(err, "geocode: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	files, err := fetcher.ExtractZIP(path, dir)
	if err != nil {
		return LoadStats{}, eris.Wrapf(err, "geocode: extract boundaries %s", path)
	}
	shpPath, ok := fetcher.FindByExt(files, ".shp")
	if !ok {
		return LoadStats{}, eris.Errorf("geocode: no shapefile in %s", path)
	}
	return loadShapefile(b, shpPath)
}

func loadGeoJSON(b *Builder, path string) (LoadStats, error) {
	var stats LoadStats

	data, err := os.ReadFile(path)
	if err != nil {
		return stats, eris.Wrapf(err, "geocode: read boundaries %s", path)
	}

	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(data); err != nil {
		return stats, eris.Wrapf(err, "geocode: decode boundaries %s", path)
	}

	for _, f := range fc.Features {
		stats.Rows++
		name, _ := f.Properties[nameProperty].(string)
		c, ok := FirstVertex(f.Geometry)
		if !ok || !b.AddPlace(name, c) {
			stats.Skipped++
			continue
		}
		stats.Loaded++
	}
	return stats, nil
}

// FirstVertex returns the first vertex of the first ring of a Polygon, or of
// the first polygon of a MultiPolygon. Other geometry types have none.
func FirstVertex(g geom.T) (Coordinate, bool) {
	var ring *geom.LinearRing
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return Coordinate{}, false
		}
		ring = t.LinearRing(0)
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 || t.Polygon(0).NumLinearRings() == 0 {
			return Coordinate{}, false
		}
		ring = t.Polygon(0).LinearRing(0)
	default:
		return Coordinate{}, false
	}
	if ring.NumCoords() == 0 {
		return Coordinate{}, false
	}
	c := ring.Coord(0)
	return Coordinate{Lon: c.X(), Lat: c.Y()}, true
}

func loadShapefile(b *Builder, path string) (LoadStats, error) {
	var stats LoadStats

	reader, err := shp.Open(path)
	if err != nil {
		return stats, eris.Wrapf(err, "geocode: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, nameProperty)
	if nameIdx < 0 {
		return stats, eris.Errorf("geocode: shapefile %s has no %s field", path, nameProperty)
	}

	for reader.Next() {
		stats.Rows++
		_, shape := reader.Shape()
		name := strings.TrimRight(reader.Attribute(nameIdx), "\x00")

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly.NumParts == 0 || len(poly.Points) == 0 {
			stats.Skipped++
			continue
		}
		first := poly.Points[poly.Parts[0]]
		if !b.AddPlace(name, Coordinate{Lon: first.X, Lat: first.Y}) {
			stats.Skipped++
			continue
		}
		stats.Loaded++
	}
	return stats, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
