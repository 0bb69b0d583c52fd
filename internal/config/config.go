// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"

	"github.com/hellodword/github-dashboard-feed/internal/issue"
)

const (
	// ConfigFileName is the default configuration file, looked up in the
	// working directory.
	ConfigFileName = "bundle.cue"

	// EnvPrefix prefixes environment overrides (e.g., BUNDLER_TIMEOUT).
	EnvPrefix = "BUNDLER"

	// maxConfigBytes rejects absurdly large configuration files before parsing.
	maxConfigBytes = 1 << 20
)

// ErrConfigExists is returned by WriteFile when the target exists and
// overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema string

// loadWithOptions resolves, parses, and validates the configuration. The
// returned path is empty when no file was found and only defaults apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("source", defaults.Source)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("marker", defaults.Marker)
	v.SetDefault("timeout", defaults.Timeout.String())
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("libraries", libraryMaps(defaults.Libraries))

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'bundler config init --output /tmp/bundle.cue' to see a valid example").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.File = resolvedPath

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(displayPath(resolvedPath)).
			WithSuggestion("Give each library either 'url' or both 'package' and 'version'").
			WithSuggestion("Ensure library names are unique").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolveConfigPath picks the file to load: an explicit path must exist;
// otherwise bundle.cue in the working directory is used when present.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'bundler config init' to create one").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	local := filepath.Join(opts.WorkDir, ConfigFileName)
	if fileExists(local) {
		return local, nil
	}

	// No config file found; defaults apply.
	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper. Fields are optional, so validation does
// not require concrete values.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigBytes {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigBytes)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	// Merging keeps defaults for absent keys and lets env overrides win.
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// formatCUEError flattens CUE errors into "<file>: <path>: <message>" lines,
// with list indices rendered as libraries[0].member.
func formatCUEError(err error, filePath string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		pathStr := formatPath(cueerrors.Path(e))
		msg := e.Error()
		if pathStr != "" && strings.HasPrefix(msg, pathStr) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, pathStr), ":"))
		}
		if pathStr != "" {
			msg = pathStr + ": " + msg
		}
		lines = append(lines, msg)
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filePath, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filePath, strings.Join(lines, "\n  "))
}

// formatPath converts ["libraries", "0", "member"] into "libraries[0].member".
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// libraryMaps converts libraries into the generic form viper holds, so
// defaults and file values decode through the same path.
func libraryMaps(libs []Library) []any {
	out := make([]any, 0, len(libs))
	for _, l := range libs {
		m := map[string]any{
			"name":   l.Name,
			"member": l.Member,
			"output": l.Output,
		}
		if l.URL != "" {
			m["url"] = l.URL
		}
		if l.Package != "" {
			m["package"] = l.Package
		}
		if l.Version != "" {
			m["version"] = l.Version
		}
		if l.SHA256 != "" {
			m["sha256"] = l.SHA256
		}
		out = append(out, m)
	}
	return out
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

func displayPath(path string) string {
	if path == "" {
		return "built-in defaults"
	}
	return path
}

// Dir returns the directory relative paths in the configuration resolve
// against: the directory of the loaded file, or "." for defaults.
func (c *Config) Dir() string {
	if c.File == "" {
		return "."
	}
	return filepath.Dir(c.File)
}

// WriteFile writes cfg as CUE to path. An existing file is only replaced
// when overwrite is true.
func WriteFile(path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// Bundler configuration.\n")
	sb.WriteString("// Libraries are fetched from their archives and embedded after the marker.\n\n")

	fmt.Fprintf(&sb, "source:      %q\n", cfg.Source)
	fmt.Fprintf(&sb, "output:      %q\n", cfg.Output)
	fmt.Fprintf(&sb, "marker:      %q\n", cfg.Marker)
	fmt.Fprintf(&sb, "timeout:     %q\n", cfg.Timeout.String())
	fmt.Fprintf(&sb, "concurrency: %d\n", cfg.Concurrency)
	if cfg.UserAgent != "" {
		fmt.Fprintf(&sb, "user_agent:  %q\n", cfg.UserAgent)
	}

	sb.WriteString("\nlibraries: [\n")
	for _, lib := range cfg.Libraries {
		sb.WriteString("\t{\n")
		fmt.Fprintf(&sb, "\t\tname:    %q\n", lib.Name)
		if lib.URL != "" {
			fmt.Fprintf(&sb, "\t\turl:     %q\n", lib.URL)
		}
		if lib.Package != "" {
			fmt.Fprintf(&sb, "\t\tpackage: %q\n", lib.Package)
		}
		if lib.Version != "" {
			fmt.Fprintf(&sb, "\t\tversion: %q\n", lib.Version)
		}
		fmt.Fprintf(&sb, "\t\tmember:  %q\n", lib.Member)
		fmt.Fprintf(&sb, "\t\toutput:  %q\n", lib.Output)
		if lib.SHA256 != "" {
			fmt.Fprintf(&sb, "\t\tsha256:  %q\n", lib.SHA256)
		}
		sb.WriteString("\t},\n")
	}
	sb.WriteString("]\n")

	return sb.String()
}
