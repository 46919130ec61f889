package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full reconciler configuration, loaded from a YAML file with
// RECONCILER_* environment overrides applied on top.
type Config struct {
	Database  DBConfig       `yaml:"database"`
	Revisions RevisionConfig `yaml:"revisions"`
	Models    ModelConfig    `yaml:"models"`
	LogLevel  string         `yaml:"log_level"`
	HTTPAddr  string         `yaml:"http_addr"`
}

// DBConfig describes the target database connection.
type DBConfig struct {
	Provider string `yaml:"provider"`
	DSN      string `yaml:"dsn"`
	Schema   string `yaml:"schema"`
}

// RevisionConfig describes where revision scripts live and how applied
// revisions are tracked.
type RevisionConfig struct {
	Directory string `yaml:"directory"`
	Table     string `yaml:"table"`
}

// ModelConfig describes the declared-model source and drift policy.
type ModelConfig struct {
	File string `yaml:"file"`
	// DropUnmanaged controls whether tables present in the database but
	// absent from the declared models are dropped by generated revisions.
	DropUnmanaged bool `yaml:"drop_unmanaged"`
}

// Load reads the config file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.Provider = getEnv("RECONCILER_DB_PROVIDER", c.Database.Provider)
	c.Database.DSN = getEnv("RECONCILER_DB_DSN", c.Database.DSN)
	c.Database.Schema = getEnv("RECONCILER_DB_SCHEMA", c.Database.Schema)
	c.Revisions.Directory = getEnv("RECONCILER_REVISION_DIR", c.Revisions.Directory)
	c.Revisions.Table = getEnv("RECONCILER_REVISION_TABLE", c.Revisions.Table)
	c.Models.File = getEnv("RECONCILER_MODELS_FILE", c.Models.File)
	c.LogLevel = getEnv("RECONCILER_LOG_LEVEL", c.LogLevel)
	c.HTTPAddr = getEnv("RECONCILER_HTTP_ADDR", c.HTTPAddr)
	if v := os.Getenv("RECONCILER_DROP_UNMANAGED"); v != "" {
		c.Models.DropUnmanaged = strings.EqualFold(v, "true")
	}
}

func (c *Config) applyDefaults() {
	if c.Revisions.Directory == "" {
		c.Revisions.Directory = "./migrations"
	}
	if c.Revisions.Table == "" {
		c.Revisions.Table = "schema_revisions"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Database.Provider) {
	case "postgres", "mysql", "sqlite":
	case "":
		return errors.New("database.provider is required")
	default:
		return fmt.Errorf("database.provider %q is not supported (postgres, mysql, sqlite)", c.Database.Provider)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
