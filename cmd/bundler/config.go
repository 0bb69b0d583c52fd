// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hellodword/github-dashboard-feed/internal/config"
)

// newConfigCommand creates the `bundler config` command tree.
func newConfigCommand(opts *globalOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the bundle configuration",
		Long: `Manage the bundle configuration.

The configuration is read from the file given with --config, else from
./bundle.cue, else built-in defaults apply. Environment variables prefixed
with BUNDLER_ (for example BUNDLER_TIMEOUT=5m) override single settings.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true

			err := showConfig(cmd.Context(), cmd.OutOrStdout(), config.NewProvider(), config.LoadOptions{ConfigFilePath: opts.cfgFile})
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), formatError(err, opts.verbose))
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	})

	var (
		output string
		force  bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter bundle.cue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true

			if err := initConfig(cmd.OutOrStdout(), output, force); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), formatError(err, opts.verbose))
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", config.ConfigFileName, "path of the file to create")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, w io.Writer, provider config.Provider, opts config.LoadOptions) error {
	cfg, err := provider.Load(ctx, opts)
	if err != nil {
		return &configError{err: err}
	}

	source := SubtitleStyle.Render("(using defaults)")
	if cfg.File != "" {
		source = CmdStyle.Render(cfg.File)
	}
	fmt.Fprintf(w, "// %s %s\n", TitleStyle.Render("Configuration from"), source)
	fmt.Fprint(w, config.GenerateCUE(cfg))
	return nil
}

func initConfig(w io.Writer, path string, force bool) error {
	if err := config.WriteFile(path, config.DefaultConfig(), force); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("Created"), CmdStyle.Render(path))
	return nil
}
