// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultTimeout bounds a single archive download, connection included.
const DefaultTimeout = 2 * time.Minute

type (
	// Request describes one member to fetch out of one remote archive.
	Request struct {
		URL    string // Archive URL (http, https, or file scheme)
		Member string // Exact entry name inside the archive
		Output string // Destination path; parent directories are created
		SHA256 string // Optional hex SHA256 pin for the archive
	}

	// Result reports what a successful fetch wrote.
	Result struct {
		Output string // Path the member was written to
		Bytes  int64  // Number of bytes extracted
	}

	// Fetcher downloads gzip tar archives and extracts single members from them.
	// A Fetcher holds no per-call state and may be shared across goroutines as
	// long as concurrent calls target distinct output paths.
	Fetcher struct {
		httpClient *http.Client
		userAgent  string
		timeout    time.Duration
		tempDir    string
		logger     *log.Logger
		readers    map[string]schemeReader
	}

	// Option configures a Fetcher during construction.
	Option func(*Fetcher)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithTimeout bounds each download. A zero or negative value disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every HTTP request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithLogger sets the logger used for progress and diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithTempDir sets the directory that holds downloaded archives while they
// are processed. Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(f *Fetcher) {
		f.tempDir = dir
	}
}

// NewFetcher creates a Fetcher with sensible defaults.
// Defaults: httpClient=http.DefaultClient, timeout=DefaultTimeout,
// userAgent="bundler/dev", logger writing to stderr with an "archive" prefix.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: http.DefaultClient,
		userAgent:  "bundler/dev",
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "archive"})
	}

	httpR := &httpReader{client: f.httpClient, userAgent: f.userAgent}
	f.readers = map[string]schemeReader{
		"http":  httpR,
		"https": httpR,
		"file":  fileReader{},
	}
	return f
}

// FetchMember downloads the archive at archiveURL, extracts the entry named
// exactly memberPath, and writes its bytes to outputPath, replacing any
// existing file. A nil error means outputPath holds exactly the member bytes.
//
// Failures are reported as *DownloadError, *CorruptArchiveError, or
// *MemberNotFoundError. The downloaded archive is always removed before
// FetchMember returns.
func (f *Fetcher) FetchMember(ctx context.Context, archiveURL, memberPath, outputPath string) error {
	_, err := f.Fetch(ctx, Request{URL: archiveURL, Member: memberPath, Output: outputPath})
	return err
}

// Fetch is FetchMember driven by a Request, with optional checksum pinning.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	if req.Member == "" {
		return nil, ErrEmptyMember
	}
	if req.Output == "" {
		return nil, ErrEmptyOutput
	}
	if err := ValidateChecksum(req.SHA256); err != nil {
		return nil, err
	}

	archivePath, err := f.fetchToTemp(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer removeTemp(archivePath)

	if req.SHA256 != "" {
		if err := verifyFile(req.URL, archivePath, req.SHA256); err != nil {
			return nil, err
		}
	}

	names, err := listMembers(archivePath)
	if err != nil {
		return nil, &CorruptArchiveError{URL: req.URL, Reason: err}
	}

	loc, ok := locateMember(names, req.Member)
	if !ok {
		return nil, newMemberNotFoundError(req.URL, req.Member, names)
	}

	n, err := extractMember(req.URL, archivePath, loc, req.Output)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("extracted member", "member", req.Member, "output", req.Output, "bytes", n)

	return &Result{Output: req.Output, Bytes: n}, nil
}

// ListMembers downloads the archive at archiveURL and returns every entry
// name in archive order.
func (f *Fetcher) ListMembers(ctx context.Context, archiveURL string) ([]string, error) {
	archivePath, err := f.fetchToTemp(ctx, archiveURL)
	if err != nil {
		return nil, err
	}
	defer removeTemp(archivePath)

	names, err := listMembers(archivePath)
	if err != nil {
		return nil, &CorruptArchiveError{URL: archiveURL, Reason: err}
	}
	return names, nil
}

// fetchToTemp applies the configured timeout around download.
func (f *Fetcher) fetchToTemp(ctx context.Context, archiveURL string) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	f.logger.Debug("downloading archive", "url", redactURL(archiveURL))

	return f.download(ctx, archiveURL)
}
