// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
	"strings"
)

// memberSampleSize is the number of member names carried by a MemberNotFoundError.
const memberSampleSize = 5

var (
	// ErrDownload indicates the archive could not be retrieved from its URL.
	ErrDownload = errors.New("archive download failed")

	// ErrCorruptArchive indicates the downloaded bytes are not a valid gzip tar stream.
	ErrCorruptArchive = errors.New("not a valid .tar.gz archive")

	// ErrMemberNotFound indicates the requested member path is absent from the archive.
	ErrMemberNotFound = errors.New("member not found in archive")

	// ErrNotRegularFile indicates the requested member exists but is a directory,
	// link, or other non-file entry.
	ErrNotRegularFile = errors.New("archive member is not a regular file")

	// ErrEmptyMember is returned when FetchMember is called with an empty member path.
	ErrEmptyMember = errors.New("member path must not be empty")

	// ErrEmptyOutput is returned when FetchMember is called with an empty output path.
	ErrEmptyOutput = errors.New("output path must not be empty")
)

type (
	// DownloadError reports a transport-level failure reaching or reading from
	// the archive URL. It wraps ErrDownload; the underlying reason is available
	// through Reason and errors.As on the chain.
	DownloadError struct {
		URL    string
		Reason error
	}

	// CorruptArchiveError reports that the downloaded content failed to parse
	// as a gzip-compressed tar stream.
	CorruptArchiveError struct {
		URL    string
		Reason error
	}

	// MemberNotFoundError reports that the requested member is not in the archive.
	// Sample holds at most five member names from the archive, in archive order.
	MemberNotFoundError struct {
		URL    string
		Member string
		Sample []string
	}
)

// Error describes the download failure with the redacted URL and the reason.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download archive %s: %v", redactURL(e.URL), e.Reason)
}

// Unwrap exposes both ErrDownload and the underlying reason.
func (e *DownloadError) Unwrap() []error { return []error{ErrDownload, e.Reason} }

// Error describes the corrupt archive.
func (e *CorruptArchiveError) Error() string {
	return fmt.Sprintf("failed to open archive %s: not a valid .tar.gz file: %v", redactURL(e.URL), e.Reason)
}

// Unwrap exposes both ErrCorruptArchive and the underlying parse error.
func (e *CorruptArchiveError) Unwrap() []error { return []error{ErrCorruptArchive, e.Reason} }

// Error names the missing member and lists the sample of available members.
func (e *MemberNotFoundError) Error() string {
	return fmt.Sprintf("file %q not found in archive\nsample available files: %s ...",
		e.Member, strings.Join(e.Sample, ", "))
}

// Unwrap returns ErrMemberNotFound so callers can use errors.Is.
func (e *MemberNotFoundError) Unwrap() error { return ErrMemberNotFound }

// newMemberNotFoundError builds the error with the leading sample of names.
// Directory entries are shown without their trailing slash.
func newMemberNotFoundError(url, member string, names []string) *MemberNotFoundError {
	n := min(len(names), memberSampleSize)
	sample := make([]string, n)
	for i, name := range names[:n] {
		sample[i] = strings.TrimSuffix(name, "/")
	}
	return &MemberNotFoundError{URL: url, Member: member, Sample: sample}
}
