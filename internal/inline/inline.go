// SPDX-License-Identifier: MPL-2.0

// Package inline splices library source code into a script directly after a
// literal marker string.
//
// The marker text is always preserved. Embedding twice with the same marker
// therefore inserts the second library between the marker and the first one:
// the library embedded last appears first after the marker.
package inline

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyMarker is returned when the marker is the empty string, which
	// would otherwise match between every character of the source.
	ErrEmptyMarker = errors.New("marker must not be empty")

	// ErrNotText is returned when a library file is not valid UTF-8.
	ErrNotText = errors.New("library file is not valid UTF-8 text")
)

// Embed replaces every occurrence of marker in source with marker, a newline,
// and content. If marker does not occur, source is returned unchanged.
func Embed(source, marker, content string) string {
	if marker == "" {
		return source
	}
	return strings.ReplaceAll(source, marker, marker+"\n"+content)
}

// EmbedFile reads libPath with ReadText and embeds it after every occurrence
// of marker in source. A missing marker is not an error; the source comes
// back unchanged.
func EmbedFile(source, marker, libPath string) (string, error) {
	if marker == "" {
		return "", ErrEmptyMarker
	}

	content, err := ReadText(libPath)
	if err != nil {
		return "", fmt.Errorf("reading library: %w", err)
	}

	return Embed(source, marker, content), nil
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeNewlines converts "\r\n" and lone "\r" line endings to "\n".
func NormalizeNewlines(s string) string {
	return newlines.Replace(s)
}

// ReadText reads path as UTF-8 text with its line endings normalized to
// "\n", so line-oriented processing sees the same text whichever platform
// the file was saved on.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, path)
	}
	return NormalizeNewlines(string(data)), nil
}

// Count reports how many times marker occurs in source.
func Count(source, marker string) int {
	if marker == "" {
		return 0
	}
	return strings.Count(source, marker)
}
