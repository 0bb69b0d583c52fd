// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hellodword/github-dashboard-feed/internal/archive"
)

// fetchParams bundles the dependencies and arguments for the fetch command.
type fetchParams struct {
	stdout  io.Writer
	fetcher *archive.Fetcher
	req     archive.Request
}

// membersParams bundles the dependencies and arguments for the members command.
type membersParams struct {
	stdout  io.Writer
	fetcher *archive.Fetcher
	url     string
}

func newFetchCommand(opts *globalOptions) *cobra.Command {
	var sha256 string

	cmd := &cobra.Command{
		Use:   "fetch <archive-url> <member> <output>",
		Short: "Extract one file from a remote archive",
		Long: `Download a gzip-compressed tar archive, extract the entry whose path
matches <member> exactly, and write it to <output>. Parent directories of
<output> are created and an existing file is replaced.

The archive is downloaded to a temporary file that is always removed.`,
		Example: `  bundler fetch https://registry.npmjs.org/dompurify/-/dompurify-3.2.7.tgz \
      package/dist/purify.min.js dist/purify.min.js`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true

			p := fetchParams{
				stdout:  cmd.OutOrStdout(),
				fetcher: newFetcher(cmd.ErrOrStderr(), opts),
				req: archive.Request{
					URL:    args[0],
					Member: args[1],
					Output: args[2],
					SHA256: sha256,
				},
			}

			if err := runFetch(cmd.Context(), p); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), formatError(err, opts.verbose))
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sha256, "sha256", "", "expected SHA256 of the archive (hex)")

	return cmd
}

func newMembersCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "members <archive-url>",
		Short: "List the entries of a remote archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true

			p := membersParams{
				stdout:  cmd.OutOrStdout(),
				fetcher: newFetcher(cmd.ErrOrStderr(), opts),
				url:     args[0],
			}

			if err := runMembers(cmd.Context(), p); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), formatError(err, opts.verbose))
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}
}

// newFetcher builds an archive fetcher honoring the global flags.
func newFetcher(stderr io.Writer, opts *globalOptions) *archive.Fetcher {
	timeout := archive.DefaultTimeout
	if opts.timeout > 0 {
		timeout = opts.timeout
	}
	return archive.NewFetcher(
		archive.WithTimeout(timeout),
		archive.WithUserAgent(userAgent()),
		archive.WithLogger(newLogger(stderr, opts.verbose, "archive")),
	)
}

func runFetch(ctx context.Context, p fetchParams) error {
	res, err := p.fetcher.Fetch(ctx, p.req)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "%s %s → %s (%d bytes)\n",
		SuccessStyle.Render("✓"), p.req.Member, CmdStyle.Render(res.Output), res.Bytes)
	return nil
}

// runMembers prints one entry name per line, in archive order, so the output
// can be piped into grep.
func runMembers(ctx context.Context, p membersParams) error {
	names, err := p.fetcher.ListMembers(ctx, p.url)
	if err != nil {
		return err
	}

	for _, name := range names {
		fmt.Fprintln(p.stdout, name)
	}
	return nil
}
