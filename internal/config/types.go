// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/hellodword/github-dashboard-feed/internal/archive"
)

const (
	// DefaultMarker is the line after which libraries are embedded.
	DefaultMarker = "// ================== REQUIRES =================="

	// DefaultConcurrency bounds parallel library downloads.
	DefaultConcurrency = 4

	// DefaultUserAgent is sent with every registry request.
	DefaultUserAgent = "bundler/dev"

	// npmRegistry is the base URL for package+version libraries.
	npmRegistry = "https://registry.npmjs.org"
)

var (
	// ErrInvalidLibrary is the sentinel error wrapped by InvalidLibraryError.
	ErrInvalidLibrary = errors.New("invalid library")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Library is one third-party script fetched out of a remote archive.
	// Either URL or Package+Version names the archive.
	Library struct {
		// Name identifies the library in logs and errors.
		Name string `json:"name" mapstructure:"name"`
		// URL is the archive location (http, https, or file).
		URL string `json:"url,omitempty" mapstructure:"url"`
		// Package is an npm package name, used with Version when URL is empty.
		Package string `json:"package,omitempty" mapstructure:"package"`
		// Version is the npm package version (semver, without a "v" prefix).
		Version string `json:"version,omitempty" mapstructure:"version"`
		// Member is the exact entry path inside the archive.
		Member string `json:"member" mapstructure:"member"`
		// Output is where the member is written.
		Output string `json:"output" mapstructure:"output"`
		// SHA256 optionally pins the archive contents.
		SHA256 string `json:"sha256,omitempty" mapstructure:"sha256"`
	}

	// Config holds the build configuration.
	Config struct {
		// Source is the script that receives the libraries.
		Source string `json:"source" mapstructure:"source"`
		// Output is the bundled script path.
		Output string `json:"output" mapstructure:"output"`
		// Marker is the literal anchor libraries are embedded after.
		Marker string `json:"marker" mapstructure:"marker"`
		// Timeout bounds each archive download. Zero disables the bound.
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
		// Concurrency bounds parallel downloads.
		Concurrency int `json:"concurrency" mapstructure:"concurrency"`
		// UserAgent is sent with HTTP requests.
		UserAgent string `json:"user_agent" mapstructure:"user_agent"`
		// Libraries are fetched and embedded in this order.
		Libraries []Library `json:"libraries" mapstructure:"libraries"`

		// File is the path the configuration was loaded from, empty when
		// only defaults apply.
		File string `json:"-" mapstructure:"-"`
	}

	// InvalidLibraryError is returned when a Library has invalid fields.
	// It wraps ErrInvalidLibrary for errors.Is() compatibility.
	InvalidLibraryError struct {
		Index       int
		Name        string
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all libraries.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration that bundles github-dashboard-feed
// with markdown-it and DOMPurify.
func DefaultConfig() *Config {
	return &Config{
		Source:      "github-dashboard-feed.js",
		Output:      "github-dashboard-feed.userscript.js",
		Marker:      DefaultMarker,
		Timeout:     archive.DefaultTimeout,
		Concurrency: DefaultConcurrency,
		UserAgent:   DefaultUserAgent,
		Libraries: []Library{
			{
				Name:    "markdown-it",
				Package: "markdown-it",
				Version: "14.1.0",
				Member:  "package/dist/markdown-it.min.js",
				Output:  "dist/markdown-it.min.js",
			},
			{
				Name:    "dompurify",
				Package: "dompurify",
				Version: "3.2.7",
				Member:  "package/dist/purify.min.js",
				Output:  "dist/purify.min.js",
			},
		},
	}
}

// ArchiveURL returns the URL of the library's archive. An explicit URL wins;
// otherwise the npm registry tarball URL is derived from Package and Version.
// Scoped packages ("@scope/name") keep the scope in the path and use only the
// bare name in the file name.
func (l Library) ArchiveURL() (string, error) {
	if l.URL != "" {
		return l.URL, nil
	}
	if l.Package == "" || l.Version == "" {
		return "", fmt.Errorf("library %q: either url or package and version must be set", l.Name)
	}
	if !isSemver(l.Version) {
		return "", fmt.Errorf("library %q: version %q is not a semantic version", l.Name, l.Version)
	}
	return fmt.Sprintf("%s/%s/-/%s-%s.tgz", npmRegistry, l.Package, path.Base(l.Package), l.Version), nil
}

// IsValid returns whether the Library has usable fields.
func (l Library) IsValid() (bool, []error) {
	var errs []error

	if strings.TrimSpace(l.Name) == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if l.Member == "" {
		errs = append(errs, errors.New("member must not be empty"))
	}
	if strings.TrimSpace(l.Output) == "" {
		errs = append(errs, errors.New("output must not be empty"))
	}

	switch {
	case l.URL != "" && (l.Package != "" || l.Version != ""):
		errs = append(errs, errors.New("url and package/version are mutually exclusive"))
	case l.URL != "":
		if u, err := url.Parse(l.URL); err != nil || u.Scheme == "" {
			errs = append(errs, fmt.Errorf("url %q is not an absolute URL", l.URL))
		}
	case l.Package == "" || l.Version == "":
		errs = append(errs, errors.New("either url or package and version must be set"))
	case !isSemver(l.Version):
		errs = append(errs, fmt.Errorf("version %q is not a semantic version", l.Version))
	}

	if err := archive.ValidateChecksum(l.SHA256); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return false, errs
	}
	return true, nil
}

// IsValid returns whether the Config has usable fields, collecting every
// field error including those of each library.
func (c *Config) IsValid() (bool, []error) {
	var errs []error

	if strings.TrimSpace(c.Source) == "" {
		errs = append(errs, errors.New("source must not be empty"))
	}
	if strings.TrimSpace(c.Output) == "" {
		errs = append(errs, errors.New("output must not be empty"))
	}
	if c.Marker == "" {
		errs = append(errs, errors.New("marker must not be empty"))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout %s must not be negative", c.Timeout))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency %d must be at least 1", c.Concurrency))
	}

	seenNames := make(map[string]int)
	for i, lib := range c.Libraries {
		if valid, fieldErrs := lib.IsValid(); !valid {
			errs = append(errs, &InvalidLibraryError{Index: i, Name: lib.Name, FieldErrors: fieldErrs})
		}
		if lib.Name == "" {
			continue
		}
		if first, exists := seenNames[lib.Name]; exists {
			errs = append(errs, fmt.Errorf("libraries[%d]: duplicate name %q (same as libraries[%d])", i, lib.Name, first))
			continue
		}
		seenNames[lib.Name] = i
	}

	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate is IsValid returning a single error.
func (c *Config) Validate() error {
	if valid, errs := c.IsValid(); !valid {
		return errs[0]
	}
	return nil
}

// Error implements the error interface for InvalidLibraryError.
func (e *InvalidLibraryError) Error() string {
	return fmt.Sprintf("libraries[%d] (%s): %s", e.Index, e.Name, joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidLibrary for errors.Is() compatibility.
func (e *InvalidLibraryError) Unwrap() error { return ErrInvalidLibrary }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// isSemver reports whether v is a full semantic version. npm versions carry
// no "v" prefix; semver.IsValid requires one.
func isSemver(v string) bool {
	if strings.HasPrefix(v, "v") {
		return false
	}
	canonical := "v" + v
	return semver.IsValid(canonical) && semver.Canonical(canonical) == strings.SplitN(canonical, "+", 2)[0]
}
