package report

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/donormap/internal/fetcher"
	"github.com/sells-group/donormap/internal/postal"
)

// UniqueZIPs collects the distinct postal tokens found anywhere in the rows
// of the given files. A file that cannot be read is logged and skipped.
func UniqueZIPs(ctx context.Context, paths []string) ([]string, error) {
	log := zap.L().With(zap.String("component", "report.zips"))

	seen := make(map[string]bool)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "report: unique zips cancelled")
		}
		_, records, err := fetcher.ReadRecords(ctx, path)
		if err != nil {
			log.Warn("skipping unreadable file", zap.String("file", path), zap.Error(err))
			continue
		}
		for _, r := range records {
			if tok, ok := postal.Extract(r); ok {
				seen[tok.String()] = true
			}
		}
	}

	zips := make([]string, 0, len(seen))
	for z := range seen {
		zips = append(zips, z)
	}
	sort.Strings(zips)
	return zips, nil
}

// CSVFiles lists the .csv files directly under dir, sorted.
func CSVFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read dir %s", dir)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// WriteZIPs writes zips as a single-column CSV with a ZIP header.
func WriteZIPs(path string, zips []string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "report: create dir for %s", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ZIP"}); err != nil {
		return eris.Wrap(err, "report: write zip header")
	}
	for _, z := range zips {
		if err := w.Write([]string{z}); err != nil {
			return eris.Wrap(err, "report: write zip")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "report: flush zips")
}
