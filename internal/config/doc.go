// SPDX-License-Identifier: MPL-2.0

// Package config loads the bundler configuration using Viper with CUE as the
// file format.
//
// The configuration is read from the file given with --config, else from
// bundle.cue in the working directory, else built-in defaults apply. Files are
// validated against an embedded CUE schema (config_schema.cue) before being
// merged over the defaults. Environment variables prefixed with BUNDLER_
// override top-level settings.
package config
