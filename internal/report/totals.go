// Package report produces the console and file summaries that sit beside
// the mapping pipeline: per-file totals, city totals, the unique ZIP list
// and the per-state input filter.
package report

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/donormap/internal/amount"
	"github.com/sells-group/donormap/internal/fetcher"
)

// totalColumns are tried in order for the per-file totals.
var totalColumns = []string{"AMNT", "AMOUNT"}

// FileTotal is the summed amount of one donation file.
type FileTotal struct {
	Base  string
	File  string
	Total float64
	Rows  int
}

// String renders the totals line, e.g. "prop-50 - $1200" or "prop-51 - $10.5".
// The amount uses the same display rule as the mapped output.
func (t FileTotal) String() string {
	return t.Base + " - $" + amount.Format(t.Total)
}

// FileTotals sums the amount column of every file in dir whose name ends
// with suffix. Base is the file name without the suffix. Results are sorted
// by Base.
func FileTotals(ctx context.Context, dir, suffix string) ([]FileTotal, error) {
	log := zap.L().With(zap.String("component", "report.totals"))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read dir %s", dir)
	}

	var totals []FileTotal
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		_, records, err := fetcher.ReadRecords(ctx, path)
		if err != nil {
			return nil, eris.Wrapf(err, "report: total %s", e.Name())
		}

		t := FileTotal{
			Base: strings.TrimSuffix(e.Name(), suffix),
			File: path,
			Rows: len(records),
		}
		for _, r := range records {
			t.Total += amount.Parse(r.Get(totalColumns...))
		}
		totals = append(totals, t)
		log.Debug("file totalled", zap.String("file", e.Name()), zap.Float64("total", t.Total))
	}

	sort.Slice(totals, func(i, j int) bool { return totals[i].Base < totals[j].Base })
	return totals, nil
}

// WriteTotals writes one line per file total to path, creating its directory.
func WriteTotals(path string, totals []FileTotal) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create dir for %s", path)
	}
	var b strings.Builder
	for _, t := range totals {
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
