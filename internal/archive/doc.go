// SPDX-License-Identifier: MPL-2.0

// Package archive fetches a single member out of a remote gzip-compressed tar
// archive and writes it to a local path.
//
// The package is organized into four concerns:
//   - fetcher.go: Fetcher type, options, and the FetchMember/ListMembers entry points
//   - download.go: scheme readers (http, https, file) and scoped temp-file download
//   - extract.go: member enumeration and extraction from a gzip tar stream
//   - checksum.go: optional SHA256 pinning of downloaded archives
//
// Every failure is reported through one of the typed errors in errors.go, each
// of which wraps a sentinel so callers can classify with errors.Is.
package archive
