package fetcher

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent     string
	HeaderTimeout time.Duration
}

// HTTPFetcher implements Fetcher using net/http. The response body is handed
// to the caller unbuffered, so there is no whole-request timeout; only the
// wait for response headers is bounded.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.HeaderTimeout == 0 {
		opts.HeaderTimeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "poi-ingest/1.0"
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = opts.HeaderTimeout
	return &HTTPFetcher{
		client: &http.Client{Transport: transport},
		opts:   opts,
	}
}

// Download issues a GET for the URL and returns the body decoded to UTF-8.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("download: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	zap.L().Debug("download started",
		zap.String("url", rawURL),
		zap.String("content_type", resp.Header.Get("Content-Type")),
		zap.Int64("content_length", resp.ContentLength),
	)

	body, err := decodeCharset(resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return body, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// decodeCharset wraps body in a decoder for the charset named in the
// Content-Type header. UTF-8 and unlabelled bodies pass through unchanged.
func decodeCharset(contentType string, body io.ReadCloser) (io.ReadCloser, error) {
	if contentType == "" {
		return body, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return body, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "download: unsupported charset %q", charset)
	}
	return readCloser{Reader: enc.NewDecoder().Reader(body), Closer: body}, nil
}
