// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hellodword/github-dashboard-feed/internal/directive"
	"github.com/hellodword/github-dashboard-feed/internal/inline"
)

// stripParams holds the inputs of the strip command.
type stripParams struct {
	stdout io.Writer
	source string
	output string // empty writes to stdout
}

// embedParams holds the inputs of the embed command.
type embedParams struct {
	stdout  io.Writer
	stderr  io.Writer
	source  string
	marker  string
	libPath string
	output  string // empty writes to stdout
}

func newStripCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "strip <file>",
		Short: "Remove '// @require' lines from a script",
		Long: `Remove every line of the form '// @require <value>' from a script.
The line content is removed and its line break is kept, so line numbers
stay the same.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true

			p := stripParams{stdout: cmd.OutOrStdout(), source: args[0], output: output}
			if err := runStrip(p); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), formatError(err, false))
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file instead of stdout")

	return cmd
}

func newEmbedCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "embed <source> <marker> <library>",
		Short: "Insert a library file after every occurrence of a marker",
		Long: `Insert the content of <library> on a new line after every occurrence
of the literal text <marker> in <source>. The marker itself is kept.
A source without the marker is returned unchanged.`,
		Example: `  bundler embed feed.js '// ================== REQUIRES ==================' dist/purify.min.js`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true

			p := embedParams{
				stdout:  cmd.OutOrStdout(),
				stderr:  cmd.ErrOrStderr(),
				source:  args[0],
				marker:  args[1],
				libPath: args[2],
				output:  output,
			}
			if err := runEmbed(p); err != nil {
				fmt.Fprintln(p.stderr, formatError(err, false))
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file instead of stdout")

	return cmd
}

func runStrip(p stripParams) error {
	source, err := inline.ReadText(p.source)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	return emit(p.stdout, p.output, directive.StripRequires(source))
}

func runEmbed(p embedParams) error {
	source, err := inline.ReadText(p.source)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	result, err := inline.EmbedFile(source, p.marker, p.libPath)
	if err != nil {
		return err
	}
	if inline.Count(source, p.marker) == 0 {
		fmt.Fprintln(p.stderr, WarningStyle.Render("Warning: ")+"marker not found in "+p.source)
	}

	return emit(p.stdout, p.output, result)
}

// emit writes text to output, or to stdout when output is empty.
func emit(stdout io.Writer, output, text string) error {
	if output == "" {
		_, err := io.WriteString(stdout, text)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	return nil
}
