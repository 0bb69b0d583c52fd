// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrChecksumMismatch indicates the downloaded archive does not match its pinned SHA256.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrInvalidChecksum indicates a pinned checksum is not a 64-character hex string.
	ErrInvalidChecksum = errors.New("invalid sha256 checksum")
)

// ChecksumError provides details about a checksum verification failure.
// It wraps ErrChecksumMismatch so callers can use errors.Is for classification.
type ChecksumError struct {
	URL      string
	Expected string
	Got      string
}

// Error shows both expected and actual hash values for debugging.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", redactURL(e.URL), e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// ValidateChecksum reports whether s is usable as a SHA256 pin. The empty
// string is valid and disables verification.
func ValidateChecksum(s string) error {
	if s == "" || isValidHexHash(s) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidChecksum, s)
}

// verifyFile compares the SHA256 of the file at path with expected
// (case-insensitive). rawURL is only used for the error message.
func verifyFile(rawURL, path, expected string) error {
	got, err := computeFileHash(path)
	if err != nil {
		return err
	}

	if !strings.EqualFold(got, expected) {
		return &ChecksumError{
			URL:      rawURL,
			Expected: strings.ToLower(expected),
			Got:      got,
		}
	}

	return nil
}

// computeFileHash streams the file at path through SHA256 and returns the
// lowercase hex digest.
func computeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		// Read-only file handle; close errors are exotic.
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// isValidHexHash checks if s is a valid 64-character hex-encoded SHA256 hash.
func isValidHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
