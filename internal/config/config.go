package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aalex954/applocate-sub001/internal/hit"
)

// CurrentVersion is the config schema version written by `config init`.
const CurrentVersion = 1

// Config represents the complete applocate configuration.
type Config struct {
	Version  int                 `yaml:"version" json:"version"`
	Search   SearchConfig        `yaml:"search" json:"search"`
	Index    IndexConfig         `yaml:"index" json:"index"`
	Evidence EvidenceConfig      `yaml:"evidence" json:"evidence"`
	Aliases  map[string][]string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Logging  LoggingConfig       `yaml:"logging" json:"logging"`
	Sources  SourcesConfig       `yaml:"sources" json:"sources"`
	Watch    WatchConfig         `yaml:"watch" json:"watch"`
}

// SearchConfig configures lookups.
type SearchConfig struct {
	// Timeout is the per-source deadline (e.g. "5s").
	Timeout string `yaml:"timeout" json:"timeout"`

	// MinConfidence drops hits scoring below it (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`

	// Limit caps the number of printed hits. Zero means no cap.
	Limit int `yaml:"limit" json:"limit"`

	// Strict disables alias and fuzzy matching.
	Strict bool `yaml:"strict" json:"strict"`

	// MaxConcurrency bounds concurrently running sources. Zero means unbounded.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`
}

// IndexConfig configures the on-disk lookup index.
type IndexConfig struct {
	// Disabled turns the index off entirely.
	Disabled bool `yaml:"disabled" json:"disabled"`

	// Path overrides the index file location. Empty uses the user cache dir.
	Path string `yaml:"path" json:"path"`

	// MaxAge is how long a record answers lookups (e.g. "24h").
	MaxAge string `yaml:"max_age" json:"max_age"`

	// MaxRecords bounds the number of cached queries.
	MaxRecords int `yaml:"max_records" json:"max_records"`
}

// EvidenceConfig configures evidence accumulation during merge.
type EvidenceConfig struct {
	// MaxValues caps distinct values accumulated per evidence key.
	MaxValues int `yaml:"max_values" json:"max_values"`
}

// LoggingConfig configures the diagnostic log file.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`

	// File enables the rotating JSON log file.
	File bool `yaml:"file" json:"file"`

	// MaxSizeMB is the size at which the log file rotates.
	MaxSizeMB int `yaml:"max_size_mb" json:"max_size_mb"`

	// MaxFiles is the number of rotated files kept.
	MaxFiles int `yaml:"max_files" json:"max_files"`
}

// SourcesConfig selects and extends the built-in discovery sources.
type SourcesConfig struct {
	// Disabled lists source names to skip (e.g. "PathSearch").
	Disabled []string `yaml:"disabled" json:"disabled"`

	// Roots adds directories scanned by the KnownDirs source.
	Roots []RootConfig `yaml:"roots" json:"roots"`
}

// RootConfig is one extra directory whose children are candidate hits.
type RootConfig struct {
	Path  string `yaml:"path" json:"path"`
	Kind  string `yaml:"kind" json:"kind"`
	Scope string `yaml:"scope" json:"scope"`
}

// WatchConfig configures `applocate watch`.
type WatchConfig struct {
	// Debounce is the quiet period before a change triggers a re-resolve.
	Debounce string `yaml:"debounce" json:"debounce"`
}

// NewConfig creates a configuration with default values.
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Search: SearchConfig{
			Timeout:       "5s",
			MinConfidence: 0,
			Limit:         0,
		},
		Index: IndexConfig{
			MaxAge:     "24h",
			MaxRecords: 512,
		},
		Evidence: EvidenceConfig{
			MaxValues: 8,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Watch: WatchConfig{
			Debounce: "2s",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/applocate/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/applocate/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "applocate", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "applocate", "config.yaml")
	}
	return filepath.Join(home, ".config", "applocate", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads the configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/applocate/config.yaml)
//  3. Environment variables (APPLOCATE_*)
//
// Command-line flags are applied by the caller on top of the result.
func Load() (*Config, error) {
	return LoadFrom(GetUserConfigPath())
}

// LoadFrom is Load with an explicit user config path. A missing file is
// not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" && fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Search
	if other.Search.Timeout != "" {
		c.Search.Timeout = other.Search.Timeout
	}
	if other.Search.MinConfidence != 0 {
		c.Search.MinConfidence = other.Search.MinConfidence
	}
	if other.Search.Limit != 0 {
		c.Search.Limit = other.Search.Limit
	}
	if other.Search.Strict {
		c.Search.Strict = true
	}
	if other.Search.MaxConcurrency != 0 {
		c.Search.MaxConcurrency = other.Search.MaxConcurrency
	}

	// Index
	if other.Index.Disabled {
		c.Index.Disabled = true
	}
	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}
	if other.Index.MaxAge != "" {
		c.Index.MaxAge = other.Index.MaxAge
	}
	if other.Index.MaxRecords != 0 {
		c.Index.MaxRecords = other.Index.MaxRecords
	}

	// Evidence
	if other.Evidence.MaxValues != 0 {
		c.Evidence.MaxValues = other.Evidence.MaxValues
	}

	// Aliases extend rather than replace
	if len(other.Aliases) > 0 {
		if c.Aliases == nil {
			c.Aliases = make(map[string][]string, len(other.Aliases))
		}
		for name, terms := range other.Aliases {
			c.Aliases[name] = append(c.Aliases[name], terms...)
		}
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File {
		c.Logging.File = true
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}

	// Sources
	if len(other.Sources.Disabled) > 0 {
		c.Sources.Disabled = append(c.Sources.Disabled, other.Sources.Disabled...)
	}
	if len(other.Sources.Roots) > 0 {
		c.Sources.Roots = append(c.Sources.Roots, other.Sources.Roots...)
	}

	// Watch
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
}

// applyEnvOverrides applies APPLOCATE_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("APPLOCATE_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("APPLOCATE_TIMEOUT"); v != "" {
		c.Search.Timeout = v
	}
	if v := os.Getenv("APPLOCATE_MIN_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("APPLOCATE_MIN_CONFIDENCE: %w", err)
		}
		c.Search.MinConfidence = f
	}
	if v := os.Getenv("APPLOCATE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("APPLOCATE_NO_INDEX"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("APPLOCATE_NO_INDEX: %w", err)
		}
		c.Index.Disabled = b
	}
	if v := os.Getenv("APPLOCATE_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("APPLOCATE_STRICT: %w", err)
		}
		c.Search.Strict = b
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if d, err := time.ParseDuration(c.Search.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("search.timeout must be a positive duration, got %q", c.Search.Timeout)
	}
	if c.Search.MinConfidence < 0 || c.Search.MinConfidence > 1 {
		return fmt.Errorf("search.min_confidence must be between 0 and 1, got %f", c.Search.MinConfidence)
	}
	if c.Search.Limit < 0 {
		return fmt.Errorf("search.limit must be non-negative, got %d", c.Search.Limit)
	}
	if c.Search.MaxConcurrency < 0 {
		return fmt.Errorf("search.max_concurrency must be non-negative, got %d", c.Search.MaxConcurrency)
	}

	if d, err := time.ParseDuration(c.Index.MaxAge); err != nil || d <= 0 {
		return fmt.Errorf("index.max_age must be a positive duration, got %q", c.Index.MaxAge)
	}
	if c.Index.MaxRecords < 1 {
		return fmt.Errorf("index.max_records must be at least 1, got %d", c.Index.MaxRecords)
	}

	if c.Evidence.MaxValues < 1 {
		return fmt.Errorf("evidence.max_values must be at least 1, got %d", c.Evidence.MaxValues)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 1 || c.Logging.MaxFiles < 1 {
		return fmt.Errorf("logging.max_size_mb and logging.max_files must be positive")
	}

	for i, r := range c.Sources.Roots {
		if strings.TrimSpace(r.Path) == "" {
			return fmt.Errorf("sources.roots[%d].path is required", i)
		}
		if _, err := hit.ParseKind(r.Kind); err != nil {
			return fmt.Errorf("sources.roots[%d].kind: %w", i, err)
		}
		if _, err := hit.ParseScope(r.Scope); err != nil {
			return fmt.Errorf("sources.roots[%d].scope: %w", i, err)
		}
	}

	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d < 0 {
		return fmt.Errorf("watch.debounce must be a non-negative duration, got %q", c.Watch.Debounce)
	}

	return nil
}

// TimeoutDuration returns the parsed per-source timeout.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Search.Timeout)
	return d
}

// MaxAgeDuration returns the parsed index max age.
func (c *Config) MaxAgeDuration() time.Duration {
	d, _ := time.ParseDuration(c.Index.MaxAge)
	return d
}

// DebounceDuration returns the parsed watch debounce.
func (c *Config) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(c.Watch.Debounce)
	return d
}

// SourceDisabled reports whether the named source is disabled.
func (c *Config) SourceDisabled(name string) bool {
	for _, d := range c.Sources.Disabled {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists returns true if path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
