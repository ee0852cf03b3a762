// Package config loads svcplan settings with Viper.
//
// Settings come from built-in defaults, an optional svcplan.yaml (or .toml)
// file, SVCPLAN_* environment variables and explicit overrides, in increasing
// order of precedence. Nested keys map to environment variables with dots
// replaced by underscores, e.g. SVCPLAN_OUTPUT_FORMAT.
package config

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/toyz/svcplan/internal/errors"
	"github.com/toyz/svcplan/internal/resolver"
)

const (
	// AppName is the application name
	AppName = "svcplan"
	// ConfigFileName is the config file name without extension
	ConfigFileName = "svcplan"
	// EnvPrefix prefixes every environment variable
	EnvPrefix = "SVCPLAN"
)

// Format selects how results are rendered
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists the supported output formats
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatTOML}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.NewValidationError("output.format", "text, json, yaml or toml", s)
}

// OutputConfig controls console output
type OutputConfig struct {
	Format  Format `mapstructure:"format" json:"format" yaml:"format"`
	Verbose bool   `mapstructure:"verbose" json:"verbose" yaml:"verbose"`
	Quiet   bool   `mapstructure:"quiet" json:"quiet" yaml:"quiet"`
}

// Config holds all svcplan settings
type Config struct {
	// Conventions enables convention rules; annotations are always honored
	Conventions bool `mapstructure:"conventions" json:"conventions" yaml:"conventions"`
	// DesignTimeBuild skips resolution and reports an empty plan
	DesignTimeBuild bool `mapstructure:"design_time_build" json:"design_time_build" yaml:"design_time_build"`
	// Parallelism bounds concurrent classification; 0 means GOMAXPROCS
	Parallelism int `mapstructure:"parallelism" json:"parallelism" yaml:"parallelism"`
	// Rules is an optional rules file applied on top of the program's own rules
	Rules  string       `mapstructure:"rules" json:"rules,omitempty" yaml:"rules,omitempty"`
	Output OutputConfig `mapstructure:"output" json:"output" yaml:"output"`

	// Source is the config file that was read, empty when none was found
	Source string `mapstructure:"-" json:"-" yaml:"-"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Conventions: true,
		Output:      OutputConfig{Format: FormatText},
	}
}

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// ConfigFilePath is an explicit config file; it must exist when set
	ConfigFilePath string
	// SearchDirs are searched in order for svcplan.yaml when no explicit file is given
	SearchDirs []string
	// Overrides take precedence over every other source, keyed like the file
	Overrides map[string]any
}

// Load resolves the configuration from defaults, file, environment and overrides
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError("configuration loading", err)
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("conventions", defaults.Conventions)
	v.SetDefault("design_time_build", defaults.DesignTimeBuild)
	v.SetDefault("parallelism", defaults.Parallelism)
	v.SetDefault("rules", defaults.Rules)
	v.SetDefault("output.format", string(defaults.Output.Format))
	v.SetDefault("output.verbose", defaults.Output.Verbose)
	v.SetDefault("output.quiet", defaults.Output.Quiet)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	source, err := readConfigFile(v, opts)
	if err != nil {
		return nil, err
	}
	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapConfigurationError(AppName, "decode", err)
	}
	cfg.Source = source
	if f, err := ParseFormat(string(cfg.Output.Format)); err == nil {
		cfg.Output.Format = f
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if _, err := os.Stat(opts.ConfigFilePath); err != nil {
			return "", errors.WrapFileSystemError("read", opts.ConfigFilePath, err).
				WithSuggestion("check the --config path")
		}
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return "", errors.WrapConfigurationError(opts.ConfigFilePath, "read", err)
		}
		return opts.ConfigFilePath, nil
	}

	if len(opts.SearchDirs) == 0 {
		return "", nil
	}
	v.SetConfigName(ConfigFileName)
	for _, dir := range opts.SearchDirs {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", errors.WrapConfigurationError(ConfigFileName, "read", err)
	}
	return v.ConfigFileUsed(), nil
}

// Validate checks value ranges and combinations
func (c *Config) Validate() error {
	if c.Parallelism < 0 {
		return errors.NewValidationErrorWithValue("parallelism", c.Parallelism, "must not be negative")
	}
	if _, err := ParseFormat(string(c.Output.Format)); err != nil {
		return err
	}
	if c.Output.Verbose && c.Output.Quiet {
		return errors.NewValidationError("output", "at most one of verbose and quiet", "both").
			WithSuggestion("drop --quiet or --verbose")
	}
	return nil
}

// ResolverOptions converts the settings into resolver options
func (c *Config) ResolverOptions() resolver.Options {
	return resolver.Options{
		ConventionsEnabled: c.Conventions,
		DesignTimeBuild:    c.DesignTimeBuild,
		Parallelism:        c.Parallelism,
	}
}
