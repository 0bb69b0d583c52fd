// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/hellodword/github-dashboard-feed/internal/archive"
	"github.com/hellodword/github-dashboard-feed/internal/bundle"
	"github.com/hellodword/github-dashboard-feed/internal/config"
	"github.com/hellodword/github-dashboard-feed/internal/inline"
	"github.com/hellodword/github-dashboard-feed/internal/issue"
)

// configError marks a failure to load or validate the configuration.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }

func (e *configError) Unwrap() error { return e.err }

// classifyExitCode maps a command error to the process exit code.
// Problems the user fixes by editing inputs (a missing member, a bad
// configuration, a missing source) exit with 1; transport, archive, and
// other unexpected failures exit with 2. Download and archive errors are
// matched first because they may wrap os.ErrNotExist for file:// URLs.
func classifyExitCode(err error) int {
	var cfgErr *configError
	switch {
	case errors.Is(err, archive.ErrDownload),
		errors.Is(err, archive.ErrCorruptArchive),
		errors.Is(err, archive.ErrChecksumMismatch):
		return 2
	case errors.As(err, &cfgErr):
		return 1
	case errors.Is(err, archive.ErrMemberNotFound),
		errors.Is(err, archive.ErrNotRegularFile),
		errors.Is(err, archive.ErrEmptyMember),
		errors.Is(err, archive.ErrEmptyOutput),
		errors.Is(err, archive.ErrInvalidChecksum),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrConfigExists),
		errors.Is(err, inline.ErrEmptyMarker),
		errors.Is(err, inline.ErrNotText),
		errors.Is(err, bundle.ErrDuplicateOutput),
		errors.Is(err, errUnknownIssue),
		errors.Is(err, os.ErrNotExist):
		return 1
	default:
		return 2
	}
}

// issueFor picks the catalog entry that explains err, or 0 when none fits.
func issueFor(err error) issue.Id {
	var cfgErr *configError
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.InvalidConfigId
	case errors.As(err, &cfgErr):
		return issue.ConfigLoadFailedId
	case errors.Is(err, archive.ErrChecksumMismatch):
		return issue.ChecksumMismatchId
	case errors.Is(err, archive.ErrMemberNotFound):
		return issue.MemberNotFoundId
	case errors.Is(err, archive.ErrCorruptArchive):
		return issue.CorruptArchiveId
	case errors.Is(err, archive.ErrDownload):
		return issue.DownloadFailedId
	case errors.Is(err, bundle.ErrReadSource):
		return issue.SourceNotFoundId
	case errors.Is(err, bundle.ErrWriteOutput):
		return issue.OutputWriteFailedId
	default:
		return 0
	}
}

// formatError renders err for the terminal. ActionableErrors keep their
// suggestions; in verbose mode the matching help entry is appended.
func formatError(err error, verbose bool) string {
	var sb strings.Builder

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		sb.WriteString(ErrorStyle.Render("Error: ") + ae.Format(verbose))
	} else {
		sb.WriteString(ErrorStyle.Render("Error: ") + err.Error())
	}

	if verbose {
		if help := renderIssue(issueFor(err)); help != "" {
			sb.WriteString("\n")
			sb.WriteString(help)
		}
	}

	return sb.String()
}

// renderIssue renders a catalog entry with glamour. Rendering failures only
// lose the extra help, so they are logged and swallowed.
func renderIssue(id issue.Id) string {
	if id == 0 {
		return ""
	}
	iss := issue.Get(id)
	if iss == nil {
		return ""
	}
	rendered, err := iss.Render("dark")
	if err != nil {
		slog.Debug("failed to render issue help", "id", id, "error", err)
		return ""
	}
	return rendered
}
