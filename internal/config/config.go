package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/dedup"
	"github.com/cleared-dev/tally/internal/money"
	"github.com/cleared-dev/tally/internal/rules"
)

// FileName is the project config file at the repository root.
const FileName = "tally.yaml"

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Import  ImportConfig  `yaml:"import"`
	Dedup   dedup.Config  `yaml:"dedup"`
	Rules   rules.Config  `yaml:"rules"`
	Store   StoreConfig   `yaml:"store"`
	Logging Logging       `yaml:"logging"`
	Git     GitConfig     `yaml:"git"`
}

// ProjectConfig names the project.
type ProjectConfig struct {
	Name string `yaml:"name"`
}

// ImportConfig controls CSV parsing and preview generation.
type ImportConfig struct {
	DefaultCurrency string `yaml:"default_currency"`
	DefaultAccount  string `yaml:"default_account"`
	Format          string `yaml:"format"` // parser dialect: generic or bank
	Workers         int    `yaml:"workers"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend    string `yaml:"backend"`     // file or sqlite
	SQLitePath string `yaml:"sqlite_path"` // relative to the repo root
}

// Logging configures the zerolog logger.
type Logging struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // console or json
	NoColor bool   `yaml:"no_color,omitempty"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// envOverrides are read from the process environment after the file.
type envOverrides struct {
	LogLevel       string `env:"TALLY_LOG_LEVEL"`
	LogFormat      string `env:"TALLY_LOG_FORMAT"`
	StoreBackend   string `env:"TALLY_STORE_BACKEND"`
	SQLitePath     string `env:"TALLY_SQLITE_PATH"`
	DefaultAccount string `env:"TALLY_DEFAULT_ACCOUNT"`
}

// Load reads a tally.yaml file from disk. Sections missing from the file
// keep their defaults, and TALLY_* environment variables win over both.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "EUR", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Logging.Level, o.LogLevel)
	set(&c.Logging.Format, o.LogFormat)
	set(&c.Store.Backend, o.StoreBackend)
	set(&c.Store.SQLitePath, o.SQLitePath)
	set(&c.Import.DefaultAccount, o.DefaultAccount)
	return nil
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

// Default returns a Config with sensible defaults for a new project.
func Default(projectName, currency, account string) *Config {
	return &Config{
		Project: ProjectConfig{Name: projectName},
		Import: ImportConfig{
			DefaultCurrency: currency,
			DefaultAccount:  account,
			Format:          "generic",
			Workers:         4,
		},
		Dedup: dedup.DefaultConfig(),
		Rules: rules.DefaultConfig(),
		Store: StoreConfig{
			Backend:    BackendFile,
			SQLitePath: "tally.db",
		},
		Logging: Logging{
			Level:  "info",
			Format: LogFormatConsole,
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Tally",
			AuthorEmail: "tally@localhost",
		},
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if _, err := money.ParseCurrency(c.Import.DefaultCurrency); err != nil {
		errs = append(errs, fmt.Errorf("import.default_currency: %w", err))
	}
	if c.Import.Workers < 1 {
		errs = append(errs, fmt.Errorf("import.workers must be at least 1, got %d", c.Import.Workers))
	}
	switch c.Store.Backend {
	case BackendFile:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	switch c.Logging.Format {
	case LogFormatConsole, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}

	d := c.Dedup
	if d.DateToleranceDays < 0 || d.AmountTolerance < 0 || d.RelativeTolerancePct < 0 || d.MinContainsLength < 0 {
		errs = append(errs, errors.New("dedup: tolerances must not be negative"))
	}

	r := c.Rules
	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("rules.min_confidence must be within [0,1], got %v", r.MinConfidence))
	}
	if r.MaxConfidence <= 0 || r.MaxConfidence > 1 {
		errs = append(errs, fmt.Errorf("rules.max_confidence must be within (0,1], got %v", r.MaxConfidence))
	}
	if r.MinOccurrences < 1 {
		errs = append(errs, fmt.Errorf("rules.min_occurrences must be at least 1, got %d", r.MinOccurrences))
	}
	if r.AmountBucket <= 0 {
		errs = append(errs, fmt.Errorf("rules.amount_bucket must be positive, got %v", r.AmountBucket))
	}
	return errors.Join(errs...)
}
