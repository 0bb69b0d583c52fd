// SPDX-License-Identifier: MPL-2.0

// Package directive removes userscript "// @require" metadata lines from a
// script once the required libraries are inlined into it.
package directive

import (
	"regexp"
	"strings"
)

// Keyword is the metadata directive stripped from sources.
const Keyword = "@require"

// requireLine matches a whole "// @require <value>" line. Only the line
// content is consumed; the terminating newline stays, leaving an empty line.
var requireLine = regexp.MustCompile(`(?m)^[ \t]*//[ \t]*` + regexp.QuoteMeta(Keyword) + `[ \t]+([^\r\n]+)$`)

// StripRequires blanks every "// @require ..." line in text. Lines that do
// not match pass through unchanged. The function is pure and idempotent.
func StripRequires(text string) string {
	return requireLine.ReplaceAllLiteralString(text, "")
}

// Requires returns the value of every "// @require" directive in text, in
// source order, with surrounding whitespace trimmed.
func Requires(text string) []string {
	matches := requireLine.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	values := make([]string, 0, len(matches))
	for _, m := range matches {
		values = append(values, strings.TrimSpace(m[1]))
	}
	return values
}
