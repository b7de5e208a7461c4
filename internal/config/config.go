package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DBPathEnv overrides Database.Path when set.
const DBPathEnv = "MTG_COLLECTION_DB"

// Config represents the application configuration.
type Config struct {
	// Database configuration
	Database DatabaseConfig `toml:"database"`

	// Collection rules
	Collection CollectionConfig `toml:"collection"`

	// Allocation defaults
	Allocation AllocationConfig `toml:"allocation"`

	// Scryfall API access for catalog downloads and images
	Scryfall ScryfallConfig `toml:"scryfall"`

	// Backup configuration
	Backup BackupConfig `toml:"backup"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// DatabaseConfig contains the SQLite settings.
type DatabaseConfig struct {
	Path        string `toml:"path"`         // Path to the collection database
	BusyTimeout string `toml:"busy_timeout"` // Lock wait (e.g., "5s")
}

// CollectionConfig contains rules applied when adding cards.
type CollectionConfig struct {
	CopyLimit int      `toml:"copy_limit"` // Owned copies above which adding asks first
	Languages []string `toml:"languages"`  // Accepted language codes; the first is the default
}

// AllocationConfig contains allocation defaults.
type AllocationConfig struct {
	Strategy string `toml:"strategy"` // "lp" or "greedy"
}

// ScryfallConfig contains API client settings.
type ScryfallConfig struct {
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Timeout           string  `toml:"timeout"` // HTTP timeout (e.g., "30s")
}

// BackupConfig contains backup settings.
type BackupConfig struct {
	Dir  string `toml:"dir"`  // Backup directory; empty means "backups" next to the database
	Keep int    `toml:"keep"` // Backups to keep (0 = all)
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "",
			BusyTimeout: "5s",
		},
		Collection: CollectionConfig{
			CopyLimit: 4,
			Languages: []string{"en", "de", "jp", "sp", "fr"},
		},
		Allocation: AllocationConfig{
			Strategy: "lp",
		},
		Scryfall: ScryfallConfig{
			BaseURL:           "https://api.scryfall.com",
			RequestsPerSecond: 10,
			Timeout:           "30s",
		},
		Backup: BackupConfig{
			Dir:  "",
			Keep: 10,
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".mtg-collection")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return configDir, nil
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default location.
// Returns default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads the configuration from path, filling unset values from
// DefaultConfig and applying environment overrides.
func LoadFile(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if env := os.Getenv(DBPathEnv); env != "" {
		config.Database.Path = env
	}
	if config.Database.Path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		config.Database.Path = filepath.Join(dir, "collection.db")
	}

	return config, nil
}

// Save saves the configuration to the default location.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the configuration to path.
func (c *Config) SaveFile(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Database.BusyTimeout); err != nil {
		return fmt.Errorf("invalid busy timeout %q: %w", c.Database.BusyTimeout, err)
	}

	if c.Collection.CopyLimit < 1 {
		return fmt.Errorf("copy limit must be at least 1, got %d", c.Collection.CopyLimit)
	}
	if len(c.Collection.Languages) == 0 {
		return fmt.Errorf("at least one language is required")
	}
	for _, lang := range c.Collection.Languages {
		if strings.TrimSpace(lang) == "" || strings.ContainsAny(lang, " []") {
			return fmt.Errorf("invalid language code %q", lang)
		}
	}

	switch c.Allocation.Strategy {
	case "lp", "greedy":
	default:
		return fmt.Errorf("invalid allocation strategy %q (want lp or greedy)", c.Allocation.Strategy)
	}

	if c.Scryfall.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %v", c.Scryfall.RequestsPerSecond)
	}
	if _, err := time.ParseDuration(c.Scryfall.Timeout); err != nil {
		return fmt.Errorf("invalid scryfall timeout %q: %w", c.Scryfall.Timeout, err)
	}

	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup keep must not be negative, got %d", c.Backup.Keep)
	}
	return nil
}

// BusyTimeout returns the parsed database busy timeout.
func (c *Config) BusyTimeout() time.Duration {
	d, err := time.ParseDuration(c.Database.BusyTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// ScryfallTimeout returns the parsed HTTP timeout.
func (c *Config) ScryfallTimeout() time.Duration {
	d, err := time.ParseDuration(c.Scryfall.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// BackupDir returns the backup directory, defaulting to "backups" next to the database.
func (c *Config) BackupDir() string {
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return filepath.Join(filepath.Dir(c.Database.Path), "backups")
}
