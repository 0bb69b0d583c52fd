// SPDX-License-Identifier: MPL-2.0

// Package bundle builds the distributable script: it strips @require
// directives from the source, fetches every configured library out of its
// archive, embeds the libraries after the marker in configuration order, and
// writes the result.
package bundle
