package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadRecords_CSV(t *testing.T) {
	path := writeFile(t, "prop-50-mt.csv", "\ufeffCITY,ZIP,AMNT\nHelena,59601,50.25\nMissoula,,$100\n")

	header, records, err := ReadRecords(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"CITY", "ZIP", "AMNT"}, header)
	require.Len(t, records, 2)
	assert.Equal(t, "Helena", records[0].City())
	assert.Equal(t, "59601", records[0].Postal())
	assert.Equal(t, "$100", records[1].Values["AMNT"])
}

func TestReadRecords_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"City", "Zip", "AMOUNT"}, {"Helena", "59601", "5"}},
	})

	header, records, err := ReadRecords(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"City", "Zip", "AMOUNT"}, header)
	require.Len(t, records, 1)
	assert.Equal(t, "Helena", records[0].City())
}

func TestReadRecords_HeaderOnly(t *testing.T) {
	path := writeFile(t, "empty-mt.csv", "CITY,ZIP,AMNT\n")

	_, records, err := ReadRecords(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadRecords_MissingFile(t *testing.T) {
	_, _, err := ReadRecords(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetcher: open")
}

func TestStreamRows_IncludesHeader(t *testing.T) {
	path := writeFile(t, "zips.csv", "zip,lat,lon\n59601,46.59,-112.03\n")

	rowCh, errCh := StreamRows(context.Background(), path)
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"zip", "lat", "lon"}, {"59601", "46.59", "-112.03"}}, rows)
}

func TestIsSpreadsheet(t *testing.T) {
	assert.True(t, IsSpreadsheet("a/b/zips.XLSX"))
	assert.False(t, IsSpreadsheet("zips.csv"))
}
