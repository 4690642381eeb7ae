package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/donormap/internal/model"
)

const utf8BOM = "\ufeff"

// IsSpreadsheet reports whether a path names an XLSX workbook.
func IsSpreadsheet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// StreamRows opens a CSV or XLSX file and streams its rows, header included.
// An open failure is delivered on the error channel.
func StreamRows(ctx context.Context, path string) (<-chan []string, <-chan error) {
	if IsSpreadsheet(path) {
		return StreamXLSX(ctx, path, XLSXOptions{})
	}

	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		f, err := os.Open(path)
		if err != nil {
			errCh <- eris.Wrapf(err, "fetcher: open %s", path)
			return
		}
		defer f.Close() //nolint:errcheck

		rows, rowErrs := StreamCSV(ctx, f, CSVOptions{LazyQuotes: true})
		for row := range rows {
			select {
			case rowCh <- row:
			case <-ctx.Done():
			}
		}
		for err := range rowErrs {
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	return rowCh, errCh
}

// StreamRecords streams a file as records keyed by its first (header) row.
// A file with no rows produces no records and no error.
func StreamRecords(ctx context.Context, path string) (<-chan model.Record, <-chan error) {
	recCh := make(chan model.Record, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		rows, rowErrs := StreamRows(ctx, path)
		var header []string
		for row := range rows {
			if header == nil {
				header = cleanHeader(row)
				continue
			}
			select {
			case recCh <- model.NewRecord(header, row):
			case <-ctx.Done():
			}
		}
		for err := range rowErrs {
			if err != nil {
				errCh <- err
				return
			}
		}
		if ctx.Err() != nil {
			errCh <- eris.Wrap(ctx.Err(), "fetcher: context cancelled")
		}
	}()

	return recCh, errCh
}

// ReadRecords collects every record of a file along with its header.
func ReadRecords(ctx context.Context, path string) ([]string, []model.Record, error) {
	recCh, errCh := StreamRecords(ctx, path)
	var (
		header  []string
		records []model.Record
	)
	for r := range recCh {
		if header == nil {
			header = r.Columns
		}
		records = append(records, r)
	}
	for err := range errCh {
		if err != nil {
			return header, records, err
		}
	}
	return header, records, nil
}

func cleanHeader(row []string) []string {
	header := make([]string, len(row))
	copy(header, row)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	return header
}
