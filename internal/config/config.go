// Package config loads subscan.yaml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a subscan workspace.
const FileName = "subscan.yaml"

// Environment variables that override the config file.
const (
	EnvDBPath       = "SUBSCAN_DB_PATH"
	EnvUser         = "SUBSCAN_USER"
	EnvUpcomingDays = "SUBSCAN_UPCOMING_DAYS"
)

// Config represents the top-level subscan.yaml configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	User      UserConfig      `yaml:"user"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Import    ImportConfig    `yaml:"import"`
	Git       GitConfig       `yaml:"git"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"` // relative paths resolve against the workspace root
}

// UserConfig names the user commands act for when --user is not given.
type UserConfig struct {
	Default string `yaml:"default"`
}

// DashboardConfig controls the dashboard summary.
type DashboardConfig struct {
	UpcomingDays int `yaml:"upcoming_days"`
}

// ImportConfig controls the import directory workflow.
type ImportConfig struct {
	MoveProcessed bool `yaml:"move_processed"`
}

// GitConfig controls snapshot commits of the exports/ directory.
type GitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a subscan.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new workspace.
func Default(user string) *Config {
	return &Config{
		Database:  DatabaseConfig{Path: "subscan.db"},
		User:      UserConfig{Default: user},
		Dashboard: DashboardConfig{UpcomingDays: 30},
		Import:    ImportConfig{MoveProcessed: true},
		Git: GitConfig{
			AuthorName:  "Subscan",
			AuthorEmail: "subscan@localhost",
		},
	}
}

// LoadWorkspace reads <root>/subscan.yaml, falling back to Default when the
// file does not exist, then applies environment overrides. envFile, when
// set, must exist; otherwise <root>/.env is loaded if present. Variables
// already set in the environment win over .env values.
func LoadWorkspace(root, envFile string) (*Config, error) {
	cfg, err := Load(filepath.Join(root, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default("")
	} else if err != nil {
		return nil, err
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	} else {
		_ = godotenv.Load(filepath.Join(root, ".env"))
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SUBSCAN_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvUser); v != "" {
		c.User.Default = v
	}
	if v := os.Getenv(EnvUpcomingDays); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid %s %q: want a positive integer", EnvUpcomingDays, v)
		}
		c.Dashboard.UpcomingDays = n
	}
	return nil
}

// DBPath resolves the database path against root.
func (c *Config) DBPath(root string) string {
	p := c.Database.Path
	if p == "" {
		p = "subscan.db"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
