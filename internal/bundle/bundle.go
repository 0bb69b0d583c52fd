// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/hellodword/github-dashboard-feed/internal/archive"
	"github.com/hellodword/github-dashboard-feed/internal/config"
	"github.com/hellodword/github-dashboard-feed/internal/directive"
	"github.com/hellodword/github-dashboard-feed/internal/inline"
)

var (
	// ErrDuplicateOutput is returned when two libraries, or a library and the
	// bundle itself, share an output path.
	ErrDuplicateOutput = errors.New("duplicate output path")

	// ErrReadSource is returned when the source script cannot be read.
	ErrReadSource = errors.New("cannot read source")

	// ErrWriteOutput is returned when the bundled script cannot be written.
	ErrWriteOutput = errors.New("cannot write output")
)

type (
	// Fetcher extracts one archive member to a file. *archive.Fetcher
	// satisfies it.
	Fetcher interface {
		Fetch(ctx context.Context, req archive.Request) (*archive.Result, error)
	}

	// LibraryError reports which library a fetch or embed failure belongs to.
	// It unwraps to the underlying error so archive error types stay
	// reachable with errors.As.
	LibraryError struct {
		Name string
		URL  string
		Err  error
	}

	// LibraryResult describes one fetched library.
	LibraryResult struct {
		Name   string
		URL    string
		Output string
		Bytes  int64
	}

	// Result summarizes a build.
	Result struct {
		// Output is the path of the bundled script.
		Output string
		// Libraries are listed in configuration order.
		Libraries []LibraryResult
		// StrippedDirectives holds the values of the removed @require lines.
		StrippedDirectives []string
		// MarkerFound is false when the source has no marker and nothing
		// was embedded.
		MarkerFound bool
	}

	// Bundler runs builds for one configuration.
	Bundler struct {
		cfg     *config.Config
		fetcher Fetcher
		logger  *log.Logger
		baseDir string
	}

	// Option configures a Bundler during construction.
	Option func(*Bundler)

	// plannedLibrary is a library with its URL and output path resolved.
	plannedLibrary struct {
		lib    config.Library
		url    string
		output string
	}
)

// Error implements the error interface.
func (e *LibraryError) Error() string {
	return fmt.Sprintf("library %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *LibraryError) Unwrap() error { return e.Err }

// WithFetcher replaces the archive fetcher, mainly for tests.
func WithFetcher(f Fetcher) Option {
	return func(b *Bundler) {
		b.fetcher = f
	}
}

// WithLogger sets the logger used for progress and warnings.
func WithLogger(l *log.Logger) Option {
	return func(b *Bundler) {
		b.logger = l
	}
}

// WithBaseDir sets the directory relative paths resolve against. Defaults to
// the directory of the configuration file.
func WithBaseDir(dir string) Option {
	return func(b *Bundler) {
		b.baseDir = dir
	}
}

// New creates a Bundler for cfg. Without WithFetcher, an archive.Fetcher is
// built from the configured timeout and user agent.
func New(cfg *config.Config, opts ...Option) *Bundler {
	b := &Bundler{
		cfg:     cfg,
		baseDir: cfg.Dir(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "bundle"})
	}
	if b.fetcher == nil {
		b.fetcher = archive.NewFetcher(
			archive.WithTimeout(cfg.Timeout),
			archive.WithUserAgent(cfg.UserAgent),
			archive.WithLogger(b.logger.WithPrefix("archive")),
		)
	}
	return b
}

// Run performs one build. The first failing library cancels the remaining
// downloads, and the bundle output is only written when every library was
// fetched and embedded.
func (b *Bundler) Run(ctx context.Context) (*Result, error) {
	if b.cfg.Marker == "" {
		return nil, inline.ErrEmptyMarker
	}

	plan, err := b.plan()
	if err != nil {
		return nil, err
	}

	sourcePath := b.resolve(b.cfg.Source)
	source, err := inline.ReadText(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrReadSource, sourcePath, err)
	}

	requires := directive.Requires(source)
	text := directive.StripRequires(source)
	if len(requires) > 0 {
		b.logger.Debug("stripped directives", "count", len(requires))
	}

	markerFound := inline.Count(text, b.cfg.Marker) > 0
	if !markerFound {
		b.logger.Warn("marker not found in source, libraries will not be embedded",
			"source", sourcePath, "marker", b.cfg.Marker)
	}

	libs, err := b.fetchAll(ctx, plan)
	if err != nil {
		return nil, err
	}

	for _, p := range plan {
		text, err = inline.EmbedFile(text, b.cfg.Marker, p.output)
		if err != nil {
			return nil, &LibraryError{Name: p.lib.Name, URL: p.url, Err: err}
		}
	}

	outputPath := b.resolve(b.cfg.Output)
	if err := writeOutput(outputPath, text); err != nil {
		return nil, err
	}

	b.logger.Info("bundle written", "output", outputPath, "libraries", len(libs))

	return &Result{
		Output:             outputPath,
		Libraries:          libs,
		StrippedDirectives: requires,
		MarkerFound:        markerFound,
	}, nil
}

// plan resolves every library URL and output path before any download, so
// configuration mistakes fail fast.
func (b *Bundler) plan() ([]plannedLibrary, error) {
	seen := map[string]string{
		filepath.Clean(b.resolve(b.cfg.Output)): "bundle output",
	}

	plan := make([]plannedLibrary, 0, len(b.cfg.Libraries))
	for _, lib := range b.cfg.Libraries {
		url, err := lib.ArchiveURL()
		if err != nil {
			return nil, &LibraryError{Name: lib.Name, Err: err}
		}

		out := filepath.Clean(b.resolve(lib.Output))
		if owner, exists := seen[out]; exists {
			return nil, &LibraryError{
				Name: lib.Name,
				URL:  url,
				Err:  fmt.Errorf("%w: %s is also used by %s", ErrDuplicateOutput, out, owner),
			}
		}
		seen[out] = "library " + lib.Name

		plan = append(plan, plannedLibrary{lib: lib, url: url, output: out})
	}
	return plan, nil
}

// fetchAll downloads libraries concurrently, bounded by the configured
// concurrency. Results keep configuration order.
func (b *Bundler) fetchAll(ctx context.Context, plan []plannedLibrary) ([]LibraryResult, error) {
	results := make([]LibraryResult, len(plan))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.cfg.Concurrency, 1))

	for i, p := range plan {
		g.Go(func() error {
			b.logger.Info("fetching library", "name", p.lib.Name, "member", p.lib.Member)

			res, err := b.fetcher.Fetch(gctx, archive.Request{
				URL:    p.url,
				Member: p.lib.Member,
				Output: p.output,
				SHA256: p.lib.SHA256,
			})
			if err != nil {
				return &LibraryError{Name: p.lib.Name, URL: p.url, Err: err}
			}

			results[i] = LibraryResult{
				Name:   p.lib.Name,
				URL:    p.url,
				Output: res.Output,
				Bytes:  res.Bytes,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Bundler) resolve(path string) string {
	if filepath.IsAbs(path) || b.baseDir == "" {
		return path
	}
	return filepath.Join(b.baseDir, path)
}

func writeOutput(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w %s: %w", ErrWriteOutput, path, err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("%w %s: %w", ErrWriteOutput, path, err)
	}
	return nil
}
