// Package fetcher streams remote spreadsheet exports and decodes them row by row.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body as a stream.
	// The caller must close it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
