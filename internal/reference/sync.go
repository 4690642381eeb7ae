// Package reference downloads the ZIP tables and boundary files the
// geocode index is built from, skipping any file the server reports as
// unchanged since the last sync.
package reference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/donormap/internal/config"
	"github.com/sells-group/donormap/internal/fetcher"
)

// Entry records the last successful download of one source.
type Entry struct {
	URL       string    `json:"url"`
	ETag      string    `json:"etag,omitempty"`
	Bytes     int64     `json:"bytes"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Manifest maps source path to its last download.
type Manifest map[string]Entry

// LoadManifest reads a manifest file. A missing file is an empty manifest.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "reference: read manifest %s", path)
	}
	m := Manifest{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "reference: decode manifest %s", path)
	}
	return m, nil
}

// Save writes the manifest, creating its directory.
func (m Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "reference: encode manifest")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "reference: create dir for %s", path)
	}
	_, err = copyAtomic(path, bytes.NewReader(data))
	return err
}

// Result reports what happened to one source.
type Result struct {
	Name      string
	Path      string
	Changed   bool
	Bytes     int64
	Extracted []string
}

// Syncer downloads reference sources.
type Syncer struct {
	fetcher fetcher.Fetcher
	clock   clockwork.Clock
}

// NewSyncer creates a Syncer. A nil clock uses real time.
func NewSyncer(f fetcher.Fetcher, clock clockwork.Clock) *Syncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Syncer{fetcher: f, clock: clock}
}

// Sync downloads every source in order and records each in the manifest at
// manifestPath. A source whose file exists and whose ETag the server still
// accepts is left alone. The manifest is saved after each download so a
// failure keeps the progress made before it.
func (s *Syncer) Sync(ctx context.Context, sources []config.SourceConfig, manifestPath string) ([]Result, error) {
	log := zap.L().With(zap.String("component", "reference.sync"))

	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		res, err := s.syncOne(ctx, src, manifest)
		if err != nil {
			return results, eris.Wrapf(err, "reference: sync %s", sourceName(src))
		}
		results = append(results, res)

		if !res.Changed {
			log.Info("reference source unchanged", zap.String("source", res.Name), zap.String("path", res.Path))
			continue
		}
		log.Info("reference source downloaded",
			zap.String("source", res.Name),
			zap.String("path", res.Path),
			zap.Int64("bytes", res.Bytes),
			zap.Int("extracted", len(res.Extracted)),
		)
		if err := manifest.Save(manifestPath); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (s *Syncer) syncOne(ctx context.Context, src config.SourceConfig, manifest Manifest) (Result, error) {
	res := Result{Name: sourceName(src), Path: src.Path}

	var etag string
	if prev, ok := manifest[src.Path]; ok && prev.URL == src.URL {
		if _, err := os.Stat(src.Path); err == nil {
			etag = prev.ETag
		}
	}

	body, newTag, changed, err := s.fetcher.DownloadIfChanged(ctx, src.URL, etag)
	if err != nil {
		return res, err
	}
	if !changed {
		return res, nil
	}
	defer body.Close() //nolint:errcheck

	if err := os.MkdirAll(filepath.Dir(src.Path), 0o755); err != nil {
		return res, eris.Wrapf(err, "reference: create dir for %s", src.Path)
	}
	n, err := copyAtomic(src.Path, body)
	if err != nil {
		return res, err
	}
	res.Changed = true
	res.Bytes = n

	if src.Extract {
		res.Extracted, err = fetcher.ExtractZIP(src.Path, filepath.Dir(src.Path))
		if err != nil {
			return res, err
		}
	}

	manifest[src.Path] = Entry{
		URL:       src.URL,
		ETag:      newTag,
		Bytes:     n,
		FetchedAt: s.clock.Now().UTC(),
	}
	return res, nil
}

func sourceName(src config.SourceConfig) string {
	if src.Name != "" {
		return src.Name
	}
	return filepath.Base(src.Path)
}

// copyAtomic writes r to a temp file beside path and renames it into place.
func copyAtomic(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, eris.Wrapf(err, "reference: create temp for %s", path)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return n, eris.Wrapf(err, "reference: write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return n, eris.Wrapf(err, "reference: rename into %s", path)
	}
	return n, nil
}
