// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for bundler.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	verbose bool
	cfgFile string
	timeout time.Duration
}

// newRootCommand builds the full command tree. Each call returns an
// independent tree so tests can execute commands in isolation.
func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "bundler",
		Short: "Bundle third-party libraries into a userscript",
		Long: TitleStyle.Render("bundler") + SubtitleStyle.Render(" - Bundle third-party libraries into a userscript") + `

bundler fetches library files out of npm-style tarballs, strips the
'// @require' header lines that point at CDNs, and embeds the library
code right after a marker line in your script.

The build is described by 'bundle.cue' in the current directory.

` + SubtitleStyle.Render("Examples:") + `
  bundler build                   Build using ./bundle.cue
  bundler members <url>           List the files inside an archive
  bundler config init             Write a starter bundle.cue
  bundler config show             Show the effective configuration
  bundler issues                  List the problems bundler can explain`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./bundle.cue)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "download timeout per archive (default from config, 2m)")

	rootCmd.AddCommand(
		newBuildCommand(opts),
		newFetchCommand(opts),
		newMembersCommand(opts),
		newStripCommand(),
		newEmbedCommand(),
		newConfigCommand(opts),
		newIssuesCommand(),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// userAgent identifies bundler to archive servers.
func userAgent() string {
	return "bundler/" + Version
}

// newLogger creates a component logger writing to w. Verbose mode enables
// debug output.
func newLogger(w io.Writer, verbose bool, prefix string) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: prefix,
		Level:  level,
	})
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		newRootCommand(),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
