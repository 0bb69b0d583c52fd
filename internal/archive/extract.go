// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// maxMemberBytes is the upper bound on an extracted member's size (64 MB).
// Prevents decompression bombs when extracting a library from an archive.
const maxMemberBytes = 64 << 20

type (
	// countingReader counts bytes consumed from the decompressed stream so an
	// empty payload can be told apart from an archive with no members.
	countingReader struct {
		r io.Reader
		n int64
	}

	// memberLocation identifies one entry by its position in the archive.
	memberLocation struct {
		index int
		name  string
	}
)

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// openTarGz opens the gzip tar archive at path. The returned close function
// releases both the gzip reader and the file handle.
func openTarGz(path string) (*tar.Reader, *countingReader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening archive: %w", err)
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, nil, err
	}

	closeFn := func() {
		// Read-only handles; close errors are not actionable.
		_ = gz.Close()
		_ = f.Close()
	}

	cr := &countingReader{r: gz}
	return tar.NewReader(cr), cr, closeFn, nil
}

// listMembers reads the whole archive and returns every entry name in archive
// order. Any gzip or tar framing error is returned unwrapped; callers map it
// to a CorruptArchiveError.
func listMembers(path string) ([]string, error) {
	tr, cr, closeFn, err := openTarGz(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var names []string
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return nil, fmt.Errorf("reading tar entry: %w", nextErr)
		}
		names = append(names, hdr.Name)
	}

	if len(names) == 0 && cr.n == 0 {
		return nil, errors.New("archive is empty")
	}

	return names, nil
}

// locateMember returns the position of the last entry named member. When an
// archive carries the same name more than once, the last occurrence wins.
func locateMember(names []string, member string) (memberLocation, bool) {
	for i := len(names) - 1; i >= 0; i-- {
		if names[i] == member {
			return memberLocation{index: i, name: member}, true
		}
	}
	return memberLocation{}, false
}

// extractMember copies the entry at loc into outputPath. The bytes are staged
// in a temp file next to outputPath and renamed over it, so a failed
// extraction never leaves a truncated output behind.
func extractMember(rawURL, archivePath string, loc memberLocation, outputPath string) (_ int64, err error) {
	tr, _, closeFn, err := openTarGz(archivePath)
	if err != nil {
		return 0, &CorruptArchiveError{URL: rawURL, Reason: err}
	}
	defer closeFn()

	var hdr *tar.Header
	for i := 0; i <= loc.index; i++ {
		hdr, err = tr.Next()
		if err != nil {
			return 0, &CorruptArchiveError{URL: rawURL, Reason: fmt.Errorf("reading tar entry: %w", err)}
		}
	}

	if !hdr.FileInfo().Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s", ErrNotRegularFile, loc.name)
	}
	if hdr.Size > maxMemberBytes {
		return 0, &CorruptArchiveError{
			URL:    rawURL,
			Reason: fmt.Errorf("member %s is %d bytes, exceeding the %d byte limit", loc.name, hdr.Size, maxMemberBytes),
		}
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bundler-member-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file for member: %w", err)
	}

	renamed := false
	defer func() {
		if !renamed {
			removeTemp(tmp.Name())
		}
	}()

	// Closure keeps the temp file lifecycle in one place and reports copy or
	// close errors back to the caller.
	n, err := func() (n int64, copyErr error) {
		defer func() {
			if closeErr := tmp.Close(); closeErr != nil && copyErr == nil {
				copyErr = closeErr
			}
		}()
		n, copyErr = io.Copy(tmp, io.LimitReader(tr, maxMemberBytes))
		if copyErr != nil {
			return n, &CorruptArchiveError{URL: rawURL, Reason: fmt.Errorf("extracting member: %w", copyErr)}
		}
		return n, nil
	}()
	if err != nil {
		return 0, err
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, fmt.Errorf("setting output permissions: %w", err)
	}

	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return 0, fmt.Errorf("writing output: %w", err)
	}
	renamed = true

	return n, nil
}
