package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"bern/internal/ingest"
	"bern/internal/logging"
	"bern/internal/site"
	"bern/internal/storage"
)

type Config struct {
	Data ingest.Paths `yaml:"data"`
	// Dimensions defines the site space inline when Data has no dimension
	// table.
	Dimensions []site.Dimension `yaml:"dimensions"`
	Store      StoreConfig      `yaml:"store"`
	Workers    int              `yaml:"workers" env:"BERN_WORKERS"`
	Logging    logging.Config   `yaml:"logging"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" env:"BERN_STORE"`
	Path string `yaml:"path" env:"BERN_DB_PATH"`
}

func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Kind: storage.DefaultStoreKind,
			Path: "bern.db",
		},
		Workers: runtime.NumCPU(),
		Logging: logging.Config{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error when path is empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv overlays environment variables onto target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Store.Kind {
	case storage.MemoryStoreKind, storage.SQLiteStoreKind:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.Store.Kind == storage.SQLiteStoreKind && c.Store.Path == "" {
		return errors.New("sqlite store requires a path")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Data.Dimensions == "" && len(c.Dimensions) > 0 {
		if _, err := site.NewDimensions(c.Dimensions); err != nil {
			return fmt.Errorf("inline dimensions: %w", err)
		}
	}
	return nil
}
