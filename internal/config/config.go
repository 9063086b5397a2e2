// Package config loads the ormform CLI configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-ormform/pkg/orm"
)

// Environment variable overrides, applied after the file is read.
const (
	EnvCatalog     = "ORMFORM_CATALOG"
	EnvDatabaseDSN = "ORMFORM_DATABASE_DSN"
	EnvLogLevel    = "ORMFORM_LOG_LEVEL"
	EnvListen      = "ORMFORM_LISTEN"
)

// ErrNoCatalog is returned when no catalog file is configured.
var ErrNoCatalog = errors.New("config: catalog path is required")

// Config is the root configuration structure.
type Config struct {
	Catalog  string         `yaml:"catalog"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	Forms    FormsConfig    `yaml:"forms"`
	// Presets maps model names to preset files (JSON or YAML), resolved
	// relative to the configuration file.
	Presets map[string]string `yaml:"presets"`
}

// DatabaseConfig selects where reference rows are loaded from. An empty
// driver serves the rows declared in the catalog itself.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite3" or "postgres"
	DSN    string `yaml:"dsn"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// FormsConfig holds form factory defaults. Nil values keep the library
// defaults.
type FormsConfig struct {
	ExcludePK       *bool `yaml:"exclude_pk"`
	ExcludeFK       *bool `yaml:"exclude_fk"`
	HierarchyLookup *bool `yaml:"hierarchy_lookup"`
}

// Default returns the configuration used without a file.
func Default() Config {
	var cfg Config
	setDefaults(&cfg)
	return cfg
}

// Load reads a YAML configuration file. Environment variables in the file
// are expanded and ORMFORM_* variables override file values. Relative
// catalog and preset paths are resolved against the file's directory.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	if os.Getenv(EnvCatalog) == "" {
		c.Catalog = resolve(c.Catalog)
	}
	for model, p := range c.Presets {
		c.Presets[model] = resolve(p)
	}
}

// Parse decodes a YAML document the way Load does.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if len(strings.TrimSpace(string(data))) > 0 {
		decoder := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadOptional loads path when it exists and falls back to Default (plus
// environment overrides) otherwise.
func LoadOptional(path string) (Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	cfg := Config{}
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvCatalog); v != "" {
		cfg.Catalog = v
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		cfg.Server.Listen = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = "127.0.0.1:8080"
	}
	if cfg.Database.Driver == "postgresql" {
		cfg.Database.Driver = "postgres"
	}
}

// Validate reports configuration errors. A missing catalog is not an error
// here; commands that need one call RequireCatalog.
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Database.Driver {
	case "":
		if c.Database.DSN != "" {
			return errors.New("database.driver is required when database.dsn is set")
		}
	case "sqlite3", "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required")
		}
	default:
		return fmt.Errorf("database.driver: unsupported value %q", c.Database.Driver)
	}
	return nil
}

// RequireCatalog returns ErrNoCatalog when no catalog path is set.
func (c Config) RequireCatalog() error {
	if strings.TrimSpace(c.Catalog) == "" {
		return ErrNoCatalog
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// FormOptions translates the form defaults into factory options logging to
// logger.
func (c Config) FormOptions(logger zerolog.Logger) []orm.Option {
	opts := []orm.Option{orm.WithLogger(logger)}
	if c.Forms.ExcludePK != nil {
		opts = append(opts, orm.ExcludePK(*c.Forms.ExcludePK))
	}
	if c.Forms.ExcludeFK != nil {
		opts = append(opts, orm.ExcludeFK(*c.Forms.ExcludeFK))
	}
	if c.Forms.HierarchyLookup != nil {
		opts = append(opts, orm.WithConverter(orm.NewConverter(
			orm.WithHierarchyLookup(*c.Forms.HierarchyLookup),
			orm.WithConverterLogger(logger),
		)))
	}
	return opts
}
