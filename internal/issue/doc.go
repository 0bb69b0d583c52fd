// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and Markdown help for build failures.
//
// ActionableError carries the failed operation, the resource involved, and
// suggestions for the user. The issue catalog holds longer Markdown guidance
// per failure class, rendered for the terminal with glamour when the CLI runs
// in verbose mode.
package issue
