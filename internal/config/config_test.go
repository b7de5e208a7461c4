package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if config.Collection.CopyLimit != 4 {
		t.Errorf("Expected copy limit 4, got %d", config.Collection.CopyLimit)
	}
	if config.Collection.Languages[0] != "en" {
		t.Errorf("Expected default language en, got %s", config.Collection.Languages[0])
	}
	if config.BusyTimeout() != 5*time.Second {
		t.Errorf("Expected busy timeout 5s, got %v", config.BusyTimeout())
	}
	if config.ScryfallTimeout() != 30*time.Second {
		t.Errorf("Expected Scryfall timeout 30s, got %v", config.ScryfallTimeout())
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(DBPathEnv, "")

	config, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if filepath.Base(config.Database.Path) != "collection.db" {
		t.Errorf("Expected collection.db, got %s", config.Database.Path)
	}
	if filepath.Base(filepath.Dir(config.Database.Path)) != ".mtg-collection" {
		t.Errorf("Expected database under .mtg-collection, got %s", config.Database.Path)
	}
}

func TestLoadFile_PartialOverridesDefaults(t *testing.T) {
	t.Setenv(DBPathEnv, "")
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[database]
path = "/data/cards.db"

[collection]
copy_limit = 1
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if config.Database.Path != "/data/cards.db" {
		t.Errorf("Expected /data/cards.db, got %s", config.Database.Path)
	}
	if config.Collection.CopyLimit != 1 {
		t.Errorf("Expected copy limit 1, got %d", config.Collection.CopyLimit)
	}
	// unset keys keep their defaults
	if config.Allocation.Strategy != "lp" {
		t.Errorf("Expected strategy lp, got %s", config.Allocation.Strategy)
	}
	if want := filepath.Join("/data", "backups"); config.BackupDir() != want {
		t.Errorf("Expected backup dir %s, got %s", want, config.BackupDir())
	}
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv(DBPathEnv, "/tmp/env.db")

	config, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if config.Database.Path != "/tmp/env.db" {
		t.Errorf("Expected /tmp/env.db, got %s", config.Database.Path)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[database\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSaveFileRoundTrip(t *testing.T) {
	t.Setenv(DBPathEnv, "")
	path := filepath.Join(t.TempDir(), "config.toml")

	config := DefaultConfig()
	config.Database.Path = "/x/y.db"
	config.Allocation.Strategy = "greedy"
	if err := config.SaveFile(path); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if !reflect.DeepEqual(config, loaded) {
		t.Errorf("Loaded config differs:\nsaved:  %+v\nloaded: %+v", config, loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad busy timeout", func(c *Config) { c.Database.BusyTimeout = "soon" }},
		{"zero copy limit", func(c *Config) { c.Collection.CopyLimit = 0 }},
		{"no languages", func(c *Config) { c.Collection.Languages = nil }},
		{"bracket language", func(c *Config) { c.Collection.Languages = []string{"box[1]"} }},
		{"unknown strategy", func(c *Config) { c.Allocation.Strategy = "exact" }},
		{"zero rate", func(c *Config) { c.Scryfall.RequestsPerSecond = 0 }},
		{"bad timeout", func(c *Config) { c.Scryfall.Timeout = "x" }},
		{"negative keep", func(c *Config) { c.Backup.Keep = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
