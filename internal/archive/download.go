// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
)

// chunkSize is the fixed buffer size used when streaming a download to disk.
const chunkSize = 8 << 10

type (
	// schemeReader opens a stream for one URL scheme.
	schemeReader interface {
		Open(ctx context.Context, u *url.URL) (io.ReadCloser, error)
	}

	// httpReader retrieves archives over http and https.
	httpReader struct {
		client    *http.Client
		userAgent string
	}

	// fileReader opens archives from the local filesystem (file:// URLs).
	fileReader struct{}

	// chunkWriter hides any io.ReaderFrom on the destination so io.CopyBuffer
	// really streams through the fixed-size buffer. It also counts bytes.
	chunkWriter struct {
		w io.Writer
		n int64
	}
)

// Open issues a GET and returns the response body for 2xx responses.
func (r *httpReader) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// Open opens the file named by the URL path.
func (fileReader) Open(_ context.Context, u *url.URL) (io.ReadCloser, error) {
	return os.Open(u.Path)
}

func (c *chunkWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// download streams rawURL into a new temporary file in dir and returns its
// path. On any error the partial temp file has already been removed; on
// success the caller owns the file and must remove it.
func (f *Fetcher) download(ctx context.Context, rawURL string) (_ string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Reason: err}
	}

	sr, ok := f.readers[u.Scheme]
	if !ok {
		return "", &DownloadError{URL: rawURL, Reason: fmt.Errorf("no handler for URL scheme %q", u.Scheme)}
	}

	body, err := sr.Open(ctx, u)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Reason: err}
	}
	defer func() { _ = body.Close() }() // read-only stream

	tmp, err := os.CreateTemp(f.tempDir, "bundler-archive-*.tgz")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing temp file: %w", closeErr)
		}
		if err != nil {
			removeTemp(tmp.Name())
		}
	}()

	cw := &chunkWriter{w: tmp}
	if _, err := io.CopyBuffer(cw, body, make([]byte, chunkSize)); err != nil {
		return "", &DownloadError{URL: rawURL, Reason: err}
	}

	f.logger.Debug("downloaded archive", "url", redactURL(rawURL), "bytes", cw.n)

	return tmp.Name(), nil
}

// removeTemp deletes a temporary file. Failures are logged and swallowed so
// they never mask the primary outcome of a fetch.
func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Debug("failed to remove temporary archive", "path", path, "error", err)
	}
}

// redactURL strips query parameters and fragments from a URL for safe
// inclusion in error messages and logs.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}
