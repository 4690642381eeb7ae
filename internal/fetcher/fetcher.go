package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote reference data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadIfChanged fetches the URL unless the server reports the given
	// ETag as current. Returns (body, newETag, changed, error); body is nil
	// when changed is false.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}
