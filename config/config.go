// Package config handles loading acme-syntax's YAML config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: ACME_SYNTAX_DEBOUNCE,
// ACME_SYNTAX_TRACE_ENABLED and so on.
const EnvPrefix = "ACME_SYNTAX"

// Config is the top-level structure of ~/lib/acme-syntax/config.yaml.
type Config struct {
	// UserStyleDir holds user style files.  A user style overrides the
	// bundled style of the same name.
	UserStyleDir string `mapstructure:"user_style_dir"`

	// FilenameHandlers maps filename patterns to style names.  Evaluated in
	// order; first match wins.  Patterns are Go regular expressions and take
	// precedence over the extensions declared by the styles.
	FilenameHandlers []FilenameHandler `mapstructure:"filename_handlers"`

	// Debounce is how long edits must settle before a rescan.
	Debounce time.Duration `mapstructure:"debounce"`

	// MatchTimeout bounds a single pattern match.
	MatchTimeout time.Duration `mapstructure:"match_timeout"`

	// SeparatorPattern marks outline titles that render as dividers.
	SeparatorPattern string `mapstructure:"separator_pattern"`

	// Watch reloads styles when files in UserStyleDir change.
	Watch bool `mapstructure:"watch"`

	Trace Trace `mapstructure:"trace"`
}

// FilenameHandler associates a filename regex pattern with a style name.
type FilenameHandler struct {
	Pattern string `mapstructure:"pattern"`
	Style   string `mapstructure:"style"`
}

// Trace configures OpenTelemetry span export.
type Trace struct {
	Enabled bool `mapstructure:"enabled"`
	// Exporter is "stdout" or "stderr".
	Exporter string `mapstructure:"exporter"`
}

// Defaults returns the configuration used when no file sets a value.
func Defaults() Config {
	dir := ""
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, "lib", "acme-syntax", "styles")
	}
	return Config{
		UserStyleDir:     dir,
		Debounce:         200 * time.Millisecond,
		MatchTimeout:     250 * time.Millisecond,
		SeparatorPattern: `^-+$`,
		Watch:            true,
		Trace:            Trace{Exporter: "stderr"},
	}
}

// DefaultPath is the config file read when none is named.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "lib", "acme-syntax", "config.yaml")
}

// Load reads path, applies ACME_SYNTAX_* environment overrides and returns
// the result layered over Defaults.  An empty path, or a missing file when
// optional is set, yields the defaults.
func Load(path string, optional bool) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !optional || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.UserStyleDir = expandHome(cfg.UserStyleDir)
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("user_style_dir", d.UserStyleDir)
	v.SetDefault("filename_handlers", []map[string]any{})
	v.SetDefault("debounce", d.Debounce)
	v.SetDefault("match_timeout", d.MatchTimeout)
	v.SetDefault("separator_pattern", d.SeparatorPattern)
	v.SetDefault("watch", d.Watch)
	v.SetDefault("trace.enabled", d.Trace.Enabled)
	v.SetDefault("trace.exporter", d.Trace.Exporter)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
