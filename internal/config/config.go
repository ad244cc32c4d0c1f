// Package config loads the hotdelta configuration from .hotdelta/config.json
// and HOTDELTA_* environment variables.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"hotdelta/internal/capability"
)

// Dir is the per-project configuration directory.
const Dir = ".hotdelta"

// Config represents the complete hotdelta configuration (v1 schema)
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Capabilities CapabilitiesConfig `json:"capabilities" mapstructure:"capabilities"`
	Analysis     AnalysisConfig     `json:"analysis" mapstructure:"analysis"`
	Session      SessionConfig      `json:"session" mapstructure:"session"`
	Watch        WatchConfig        `json:"watch" mapstructure:"watch"`
	Logging      LoggingConfig      `json:"logging" mapstructure:"logging"`
}

// CapabilitiesConfig selects the capability set of the target runtime
type CapabilitiesConfig struct {
	// Profile names a built-in or user profile
	Profile string `json:"profile" mapstructure:"profile"`
	// Extra capabilities added on top of the profile
	Extra []string `json:"extra" mapstructure:"extra"`
	// ProfilesFile is a TOML file with user profiles, relative to the root
	ProfilesFile string `json:"profilesFile" mapstructure:"profilesFile"`
}

// AnalysisConfig contains engine limits
type AnalysisConfig struct {
	Parallelism    int `json:"parallelism" mapstructure:"parallelism"`
	MaxDiagnostics int `json:"maxDiagnostics" mapstructure:"maxDiagnostics"`
}

// SessionConfig contains session store settings
type SessionConfig struct {
	// DBPath is the SQLite database, relative to the root
	DBPath string `json:"dbPath" mapstructure:"dbPath"`
}

// WatchConfig contains file watcher settings
type WatchConfig struct {
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
	// File receives a copy of watch mode logs when set
	File string `json:"file" mapstructure:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Capabilities: CapabilitiesConfig{
			Profile: capability.DefaultProfile,
			Extra:   []string{},
		},
		Analysis: AnalysisConfig{
			Parallelism:    0,
			MaxDiagnostics: 0,
		},
		Session: SessionConfig{
			DBPath: filepath.Join(Dir, "sessions.db"),
		},
		Watch: WatchConfig{
			DebounceMs: 300,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// setDefaults registers every default so environment overrides apply even
// without a config file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("capabilities.profile", d.Capabilities.Profile)
	v.SetDefault("capabilities.extra", d.Capabilities.Extra)
	v.SetDefault("capabilities.profilesFile", d.Capabilities.ProfilesFile)
	v.SetDefault("analysis.parallelism", d.Analysis.Parallelism)
	v.SetDefault("analysis.maxDiagnostics", d.Analysis.MaxDiagnostics)
	v.SetDefault("session.dbPath", d.Session.DBPath)
	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
}

// LoadConfig loads configuration from .hotdelta/config.json under root.
// HOTDELTA_CAPABILITIES_PROFILE style variables override file values.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, Dir))

	v.SetEnvPrefix("HOTDELTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to .hotdelta/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Analysis.Parallelism < 0 {
		return &ConfigError{Field: "analysis.parallelism", Message: "must not be negative"}
	}
	if c.Analysis.MaxDiagnostics < 0 {
		return &ConfigError{Field: "analysis.maxDiagnostics", Message: "must not be negative"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	for _, name := range c.Capabilities.Extra {
		if !capability.Name(name).IsKnown() {
			return &ConfigError{Field: "capabilities.extra", Message: "unknown capability " + name}
		}
	}
	return nil
}

// ResolveCapabilities returns the configured capability set: the profile,
// looked up in the profiles file when one is configured, plus the extras.
func (c *Config) ResolveCapabilities(root string) (capability.Set, error) {
	profiles := capability.DefaultProfiles()
	if c.Capabilities.ProfilesFile != "" {
		path := c.Capabilities.ProfilesFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		var err error
		if profiles, err = capability.LoadProfiles(path); err != nil {
			return capability.Set{}, err
		}
	}
	set, ok := profiles.Get(c.Capabilities.Profile)
	if !ok {
		return capability.Set{}, &ConfigError{Field: "capabilities.profile", Message: "unknown profile " + c.Capabilities.Profile}
	}
	return set.Union(capability.Parse(strings.Join(c.Capabilities.Extra, ","))), nil
}

// SessionDB returns the absolute session database path.
func (c *Config) SessionDB(root string) string {
	if filepath.IsAbs(c.Session.DBPath) {
		return c.Session.DBPath
	}
	return filepath.Join(root, c.Session.DBPath)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
