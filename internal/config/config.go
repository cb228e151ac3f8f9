// Package config loads calltrace settings.
//
// Settings come from, in increasing priority: built-in defaults, the
// .calltrace.toml file in the config directory, and CALLTRACE_* environment
// variables. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = ".calltrace.toml"

// EnvPrefix prefixes environment variable overrides (CALLTRACE_LOG_PATH, ...).
const EnvPrefix = "CALLTRACE"

// Color modes.
const (
	ColorAuto = "auto"
	ColorOn   = "on"
	ColorOff  = "off"
)

// Config is the complete calltrace configuration.
type Config struct {
	// LogPath is the trace log written by instrumented programs in sink
	// mode and read by the reconstruction commands.
	LogPath string `toml:"log_path" mapstructure:"log_path"`

	// MarkdownPath is the default output of the markdown command.
	MarkdownPath string `toml:"markdown_path" mapstructure:"markdown_path"`

	// Suffix is appended to a unit's base name to form its instrumented
	// counterpart, and to the final element of rewritten imports.
	Suffix string `toml:"suffix" mapstructure:"suffix"`

	// OutputDir receives instrumented units. Empty writes each one next to
	// its source.
	OutputDir string `toml:"output_dir" mapstructure:"output_dir"`

	// Sink makes trace statements append to LogPath instead of printing.
	Sink bool `toml:"sink" mapstructure:"sink"`

	// KeepGoing skips units that fail to instrument instead of halting.
	KeepGoing bool `toml:"keep_going" mapstructure:"keep_going"`

	// LiveCounters numbers Entering lines with a run-time call counter.
	LiveCounters bool `toml:"live_counters" mapstructure:"live_counters"`

	// ModuleScoped limits import rewriting to imports inside the unit's
	// own module.
	ModuleScoped bool `toml:"module_scoped" mapstructure:"module_scoped"`

	// KeepImports leaves imports of sibling units unchanged. Builds that
	// substitute instrumented files in place of their sources need this.
	KeepImports bool `toml:"keep_imports" mapstructure:"keep_imports"`

	// AssumeYes overwrites existing outputs without asking.
	AssumeYes bool `toml:"assume_yes" mapstructure:"assume_yes"`

	// Color is one of auto, on, off.
	Color string `toml:"color" mapstructure:"color"`

	// LogLevel is the diagnostic log level: debug, info, warn, error.
	LogLevel string `toml:"log_level" mapstructure:"log_level"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		LogPath:      "debug.log",
		MarkdownPath: "debug_log.md",
		Suffix:       "_debug",
		Color:        ColorAuto,
		LogLevel:     "warn",
	}
}

// LoadConfig loads configuration from dir/.calltrace.toml and the
// environment. A missing file is not an error.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("log_path", def.LogPath)
	v.SetDefault("markdown_path", def.MarkdownPath)
	v.SetDefault("suffix", def.Suffix)
	v.SetDefault("output_dir", def.OutputDir)
	v.SetDefault("sink", def.Sink)
	v.SetDefault("keep_going", def.KeepGoing)
	v.SetDefault("live_counters", def.LiveCounters)
	v.SetDefault("module_scoped", def.ModuleScoped)
	v.SetDefault("keep_imports", def.KeepImports)
	v.SetDefault("assume_yes", def.AssumeYes)
	v.SetDefault("color", def.Color)
	v.SetDefault("log_level", def.LogLevel)

	v.SetConfigName(strings.TrimSuffix(FileName, ".toml"))
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Join(dir, FileName), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to dir/.calltrace.toml.
func (c *Config) Save(dir string) (string, error) {
	path := filepath.Join(dir, FileName)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return path, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.Suffix == "" {
		return &ConfigError{Field: "suffix", Message: "must not be empty"}
	}
	if strings.ContainsAny(c.Suffix, `/\.`) {
		return &ConfigError{Field: "suffix", Message: "must not contain path separators or dots"}
	}
	if c.LogPath == "" {
		return &ConfigError{Field: "log_path", Message: "must not be empty"}
	}
	switch c.Color {
	case ColorAuto, ColorOn, ColorOff:
	default:
		return &ConfigError{Field: "color", Message: fmt.Sprintf("unknown mode %q (want auto, on or off)", c.Color)}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "log_level", Message: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
