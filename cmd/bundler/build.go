// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hellodword/github-dashboard-feed/internal/bundle"
	"github.com/hellodword/github-dashboard-feed/internal/config"
	"github.com/hellodword/github-dashboard-feed/internal/issue"
)

// buildParams bundles the dependencies and flags for the build command, so
// runBuild can be tested without a Cobra command.
type buildParams struct {
	stdout   io.Writer
	stderr   io.Writer
	provider config.Provider
	loadOpts config.LoadOptions
	timeout  time.Duration  // overrides the configured timeout when > 0
	verbose  bool           // debug logging and extended error help
	fetcher  bundle.Fetcher // nil uses the archive fetcher built from config
}

func newBuildCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Fetch libraries and write the bundled script",
		Long: `Fetch every library listed in bundle.cue, strip the '// @require'
lines from the source script, embed the libraries after the marker line,
and write the bundled script.

Downloads run in parallel; libraries are embedded in configuration order,
so the library listed last ends up directly below the marker.`,
		Example: `  # Build with ./bundle.cue
  bundler build

  # Build with another configuration and a longer timeout
  bundler build --config ci/bundle.cue --timeout 5m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true

			p := buildParams{
				stdout:   cmd.OutOrStdout(),
				stderr:   cmd.ErrOrStderr(),
				provider: config.NewProvider(),
				loadOpts: config.LoadOptions{ConfigFilePath: opts.cfgFile},
				timeout:  opts.timeout,
				verbose:  opts.verbose,
			}

			if _, err := runBuild(cmd.Context(), p); err != nil {
				fmt.Fprintln(p.stderr, formatError(err, p.verbose))
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}
}

// runBuild loads the configuration, runs the bundler, and prints a summary.
func runBuild(ctx context.Context, p buildParams) (*bundle.Result, error) {
	cfg, err := p.provider.Load(ctx, p.loadOpts)
	if err != nil {
		return nil, &configError{err: err}
	}
	if p.timeout > 0 {
		cfg.Timeout = p.timeout
	}
	if cfg.UserAgent == config.DefaultUserAgent {
		cfg.UserAgent = userAgent()
	}

	bundleOpts := []bundle.Option{bundle.WithLogger(newLogger(p.stderr, p.verbose, "bundle"))}
	if p.fetcher != nil {
		bundleOpts = append(bundleOpts, bundle.WithFetcher(p.fetcher))
	}

	res, err := bundle.New(cfg, bundleOpts...).Run(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(p.stdout, TitleStyle.Render("Bundle built"))
	for _, lib := range res.Libraries {
		fmt.Fprintf(p.stdout, "  %s %s %s (%d bytes)\n",
			SuccessStyle.Render("✓"), lib.Name, CmdStyle.Render(lib.Output), lib.Bytes)
	}
	if n := len(res.StrippedDirectives); n > 0 {
		fmt.Fprintf(p.stdout, "  %s\n", SubtitleStyle.Render(fmt.Sprintf("stripped %d @require line(s)", n)))
	}
	if !res.MarkerFound {
		fmt.Fprintln(p.stdout, WarningStyle.Render("  marker not found; libraries were not embedded"))
		if p.verbose {
			fmt.Fprint(p.stderr, renderIssue(issue.MarkerNotFoundId))
		}
	}
	fmt.Fprintf(p.stdout, "  → %s\n", CmdStyle.Render(res.Output))

	return res, nil
}
