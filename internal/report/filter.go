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
)

// allStatesSuffix marks the unfiltered national files.
const allStatesSuffix = "-all.csv"

// FilterResult reports one filtered file.
type FilterResult struct {
	Input  string
	Output string
	Rows   int
	Kept   int
}

// FilterState copies the header of in and every row whose STATE column
// equals state exactly into out. A file without a STATE column yields a
// header-only output.
func FilterState(ctx context.Context, in, out, state string) (FilterResult, error) {
	res := FilterResult{Input: in, Output: out}

	rows, errs := fetcher.StreamRows(ctx, in)

	var (
		header   []string
		stateCol = -1
		kept     [][]string
	)
	for row := range rows {
		if header == nil {
			header = row
			for i, col := range row {
				if strings.TrimPrefix(col, "\ufeff") == "STATE" {
					stateCol = i
					break
				}
			}
			continue
		}
		res.Rows++
		if stateCol >= 0 && stateCol < len(row) && row[stateCol] == state {
			kept = append(kept, row)
		}
	}
	for err := range errs {
		if err != nil {
			return res, eris.Wrapf(err, "report: filter %s", in)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, eris.Wrap(err, "report: filter cancelled")
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return res, eris.Wrapf(err, "report: create dir for %s", out)
	}
	f, err := os.Create(out)
	if err != nil {
		return res, eris.Wrapf(err, "report: create %s", out)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if header != nil {
		if err := w.Write(header); err != nil {
			return res, eris.Wrap(err, "report: write header")
		}
	}
	if err := w.WriteAll(kept); err != nil {
		return res, eris.Wrapf(err, "report: write %s", out)
	}
	res.Kept = len(kept)
	return res, nil
}

// FilterDir filters every <base>-all.csv in inDir into
// outDir/<base>-<state>.csv, with the state lowercased in the name.
func FilterDir(ctx context.Context, inDir, outDir, state string) ([]FilterResult, error) {
	log := zap.L().With(zap.String("component", "report.filter"))

	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read dir %s", inDir)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), allStatesSuffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	results := make([]FilterResult, 0, len(names))
	for _, name := range names {
		base := strings.TrimSuffix(name, allStatesSuffix)
		out := filepath.Join(outDir, base+"-"+strings.ToLower(state)+".csv")
		res, err := FilterState(ctx, filepath.Join(inDir, name), out, state)
		if err != nil {
			return results, err
		}
		log.Info("filtered file",
			zap.String("input", name),
			zap.String("output", out),
			zap.Int("rows", res.Rows),
			zap.Int("kept", res.Kept),
		)
		results = append(results, res)
	}
	if len(names) == 0 {
		log.Warn("no files to filter", zap.String("dir", inDir))
	}
	return results, nil
}
