// Package config loads arcsync settings from defaults, an optional
// arcsync.yaml file, and ARCSYNC_* environment variables, in increasing
// order of precedence. Command-line flags override all three.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the tool-wide configuration.
type Config struct {
	// RootDir is the content directory holding the frontmatter files.
	RootDir string `mapstructure:"root_dir"`

	// DatabasePath is the SQLite database file.
	DatabasePath string `mapstructure:"database_path"`

	// GracePeriod protects recent database-side edits from file-driven
	// overwrites.
	GracePeriod time.Duration `mapstructure:"grace_period"`

	// CompareContent enables the digest short-circuit before any
	// timestamp comparison.
	CompareContent bool `mapstructure:"compare_content"`

	// DebounceInterval is how long the watcher coalesces filesystem
	// events for the same file.
	DebounceInterval time.Duration `mapstructure:"debounce_interval"`

	// DefaultAuthor is recorded when file metadata omits author/editor.
	DefaultAuthor string `mapstructure:"default_author"`

	// Workers bounds batch sync concurrency.
	Workers int `mapstructure:"workers"`

	// MergeOnConflict merges both sides when both changed, instead of
	// letting the file overwrite the database.
	MergeOnConflict bool `mapstructure:"merge_on_conflict"`

	// LogFile, when set, sends sync logs to a rotating file instead of
	// stderr.
	LogFile string `mapstructure:"log_file"`
}

// Load reads configuration. file may be empty, in which case
// arcsync.yaml in the current directory is used when present and
// defaults apply otherwise. A named file that cannot be read is an
// error; a missing default file is not.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("root_dir", "content")
	v.SetDefault("database_path", "arcsync.db")
	v.SetDefault("grace_period", 10*time.Minute)
	v.SetDefault("compare_content", true)
	v.SetDefault("debounce_interval", time.Second)
	v.SetDefault("default_author", "arcsync")
	v.SetDefault("workers", 4)
	v.SetDefault("merge_on_conflict", false)
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("ARCSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName("arcsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading arcsync.yaml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("root_dir must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("grace_period must not be negative")
	}
	if c.DebounceInterval <= 0 {
		return fmt.Errorf("debounce_interval must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}
