package geocode

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/donormap/internal/fetcher"
	"github.com/sells-group/donormap/internal/model"
)

// LoadStats counts rows read from a reference source.
type LoadStats struct {
	Rows    int
	Loaded  int
	Skipped int
}

// FindZIPTable returns primary when it exists, otherwise the first CSV or
// XLSX file in searchDir whose name contains "zip". Returns "" when neither
// is available.
func FindZIPTable(primary, searchDir string) string {
	if primary != "" {
		if _, err := os.Stat(primary); err == nil {
			return primary
		}
	}
	if searchDir == "" {
		return ""
	}
	entries, err := os.ReadDir(searchDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if e.IsDir() || !strings.Contains(name, "zip") {
			continue
		}
		if strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".xlsx") {
			return filepath.Join(searchDir, e.Name())
		}
	}
	return ""
}

// LoadZIPTable reads a ZIP coordinate table into the builder. Rows whose
// postal, latitude or longitude cell is blank or unparseable are skipped.
func LoadZIPTable(ctx context.Context, b *Builder, path string) (LoadStats, error) {
	log := zap.L().With(zap.String("component", "geocode.zips"), zap.String("path", path))

	var stats LoadStats
	recCh, errCh := fetcher.StreamRecords(ctx, path)

	var cols Columns
	resolved := false
	for rec := range recCh {
		if !resolved {
			cols = ResolveColumns(rec.Columns)
			resolved = true
			if !cols.Complete() {
				log.Warn("zip table is missing a postal, latitude or longitude column; every row will be skipped",
					zap.Strings("header", rec.Columns),
				)
			}
		}
		stats.Rows++
		if !cols.Complete() || !addZIPRow(b, rec, cols) {
			stats.Skipped++
			continue
		}
		stats.Loaded++
	}
	for err := range errCh {
		if err != nil {
			return stats, eris.Wrapf(err, "geocode: load zip table %s", path)
		}
	}

	log.Info("loaded zip table",
		zap.Int("rows", stats.Rows),
		zap.Int("loaded", stats.Loaded),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

func addZIPRow(b *Builder, rec model.Record, cols Columns) bool {
	raw := strings.TrimSpace(rec.Values[cols.ZIP])
	if raw == "" {
		return false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(rec.Values[cols.Lat]), 64)
	if err != nil {
		return false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(rec.Values[cols.Lon]), 64)
	if err != nil {
		return false
	}
	return b.AddPostal(raw, Coordinate{Lon: lon, Lat: lat})
}
