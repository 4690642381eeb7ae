package reference

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/donormap/internal/config"
)

// fakeFetcher serves fixed bodies keyed by URL and honours ETags.
type fakeFetcher struct {
	bodies map[string][]byte
	etags  map[string]string
	sent   []string
	err    error
}

func (f *fakeFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	body, _, _, err := f.DownloadIfChanged(ctx, url, "")
	return body, err
}

func (f *fakeFetcher) DownloadIfChanged(_ context.Context, url string, etag string) (io.ReadCloser, string, bool, error) {
	f.sent = append(f.sent, etag)
	if f.err != nil {
		return nil, "", false, f.err
	}
	if etag != "" && etag == f.etags[url] {
		return nil, etag, false, nil
	}
	return io.NopCloser(bytes.NewReader(f.bodies[url])), f.etags[url], true, nil
}

func zipBytes(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, n := range names {
		fw, err := w.Create(n)
		require.NoError(t, err)
		_, err = fw.Write([]byte(n))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestSync_DownloadsAndExtracts(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{
		bodies: map[string][]byte{
			"https://example.com/zips.csv":   []byte("zip,latitude,longitude\n59601,46.59,-112.03\n"),
			"https://example.com/places.zip": zipBytes(t, "places.shp", "places.dbf"),
		},
		etags: map[string]string{
			"https://example.com/zips.csv":   `"z1"`,
			"https://example.com/places.zip": `"p1"`,
		},
	}
	sources := []config.SourceConfig{
		{Name: "zips", URL: "https://example.com/zips.csv", Path: filepath.Join(dir, "zips.csv")},
		{URL: "https://example.com/places.zip", Path: filepath.Join(dir, "shp", "places.zip"), Extract: true},
	}
	manifestPath := filepath.Join(dir, ".reference.json")
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	results, err := NewSyncer(f, clock).Sync(context.Background(), sources, manifestPath)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "zips", results[0].Name)
	assert.True(t, results[0].Changed)
	assert.Equal(t, int64(43), results[0].Bytes)
	data, err := os.ReadFile(filepath.Join(dir, "zips.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "zip,latitude"))

	assert.Equal(t, "places.zip", results[1].Name)
	assert.Equal(t, []string{
		filepath.Join(dir, "shp", "places.shp"),
		filepath.Join(dir, "shp", "places.dbf"),
	}, results[1].Extracted)

	m, err := LoadManifest(manifestPath)
	require.NoError(t, err)
	entry := m[filepath.Join(dir, "zips.csv")]
	assert.Equal(t, `"z1"`, entry.ETag)
	assert.Equal(t, "https://example.com/zips.csv", entry.URL)
	assert.True(t, clock.Now().Equal(entry.FetchedAt))
}

func TestSync_SkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	url := "https://example.com/zips.csv"
	f := &fakeFetcher{
		bodies: map[string][]byte{url: []byte("zip\n")},
		etags:  map[string]string{url: `"v1"`},
	}
	sources := []config.SourceConfig{{Name: "zips", URL: url, Path: filepath.Join(dir, "zips.csv")}}
	manifestPath := filepath.Join(dir, ".reference.json")
	s := NewSyncer(f, clockwork.NewFakeClock())

	_, err := s.Sync(context.Background(), sources, manifestPath)
	require.NoError(t, err)

	results, err := s.Sync(context.Background(), sources, manifestPath)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Changed)
	assert.Equal(t, []string{"", `"v1"`}, f.sent)

	// A deleted file is fetched again without a conditional request.
	require.NoError(t, os.Remove(filepath.Join(dir, "zips.csv")))
	results, err = s.Sync(context.Background(), sources, manifestPath)
	require.NoError(t, err)
	assert.True(t, results[0].Changed)
	assert.Equal(t, "", f.sent[2])
}

func TestSync_FetchError(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{err: errors.New("boom")}
	sources := []config.SourceConfig{{Name: "zips", URL: "https://example.com/z", Path: filepath.Join(dir, "z.csv")}}

	_, err := NewSyncer(f, nil).Sync(context.Background(), sources, filepath.Join(dir, "m.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference: sync zips")

	_, statErr := os.Stat(filepath.Join(dir, "z.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()

	m, err := LoadManifest(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, m)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadManifest(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference: decode manifest")
}
