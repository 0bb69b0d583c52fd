// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hellodword/github-dashboard-feed/internal/issue"
)

// errUnknownIssue is returned when an issue number is not in the catalog.
var errUnknownIssue = errors.New("unknown issue")

// issuesParams holds the inputs of the issues command.
type issuesParams struct {
	stdout io.Writer
	id     string // empty lists the catalog
	style  string // glamour style used for a single issue
}

func newIssuesCommand() *cobra.Command {
	var style string

	cmd := &cobra.Command{
		Use:   "issues [number]",
		Short: "Explain the errors bundler can report",
		Long: `Without arguments, list every known problem with its number.
With a number, show the full explanation and the things you can try.
The same explanation is printed after an error when --verbose is set.`,
		Example: `  bundler issues
  bundler issues 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true

			p := issuesParams{stdout: cmd.OutOrStdout(), style: style}
			if len(args) == 1 {
				p.id = args[0]
			}
			if err := runIssues(p); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), formatError(err, false))
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&style, "style", "dark", "glamour style: dark, light, notty, or a JSON style file")

	return cmd
}

func runIssues(p issuesParams) error {
	if p.id == "" {
		for _, iss := range issue.Values() {
			fmt.Fprintf(p.stdout, "%s  %s\n", CmdStyle.Render(fmt.Sprintf("%2d", iss.Id())), iss.Title())
		}
		return nil
	}

	n, err := strconv.Atoi(p.id)
	if err != nil {
		return fmt.Errorf("%w %q: not a number", errUnknownIssue, p.id)
	}
	iss := issue.Get(issue.Id(n))
	if iss == nil {
		return fmt.Errorf("%w %d: run 'bundler issues' for the list", errUnknownIssue, n)
	}

	rendered, err := iss.Render(p.style)
	if err != nil {
		return fmt.Errorf("rendering issue %d: %w", n, err)
	}
	_, err = io.WriteString(p.stdout, rendered)
	return err
}
