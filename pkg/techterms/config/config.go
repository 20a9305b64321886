// Package config loads run settings from YAML and builds pipeline components.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/techterms/pkg/techterms/internalerr"
)

// Config holds run settings. Zero-valued fields in a YAML file keep their defaults.
type Config struct {
	MinSources  int       `yaml:"min_sources"`
	Clusters    int       `yaml:"clusters"` // fixed k; 0 selects k by silhouette
	MaxClusters int       `yaml:"max_clusters"`
	Seed        uint64    `yaml:"seed"`
	NInit       int       `yaml:"n_init"`
	PoolSize    int       `yaml:"pool_size"` // 0 uses half the CPUs
	Embedding   Embedding `yaml:"embedding"`
	Review      Review    `yaml:"review"`
	Lexicon     string    `yaml:"lexicon"`
	Database    string    `yaml:"database"`
}

// Embedding selects the embedding provider. Vectors wins over Host.
type Embedding struct {
	Vectors   string `yaml:"vectors"`
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	Token     string `yaml:"token"`
	Cache     string `yaml:"cache"`
	BatchSize int    `yaml:"batch_size"`
}

// Review configures the optional LLM term reviewer. With Model set the
// endpoint is treated as an OpenAI-compatible chat API.
type Review struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MinSources:  2,
		MaxClusters: 15,
		Seed:        42,
		NInit:       10,
		Embedding:   Embedding{BatchSize: 64},
	}
}

// Load reads path and layers it over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings no run can use.
func (c Config) Validate() error {
	switch {
	case c.MinSources < 1:
		return fmt.Errorf("min_sources must be at least 1, got %d: %w", c.MinSources, internalerr.ErrInvalidConfig)
	case c.Clusters < 0:
		return fmt.Errorf("clusters must not be negative, got %d: %w", c.Clusters, internalerr.ErrInvalidConfig)
	case c.MaxClusters < 2:
		return fmt.Errorf("max_clusters must be at least 2, got %d: %w", c.MaxClusters, internalerr.ErrInvalidConfig)
	case c.NInit < 1:
		return fmt.Errorf("n_init must be at least 1, got %d: %w", c.NInit, internalerr.ErrInvalidConfig)
	case c.PoolSize < 0:
		return fmt.Errorf("pool_size must not be negative, got %d: %w", c.PoolSize, internalerr.ErrInvalidConfig)
	case c.Embedding.BatchSize < 1:
		return fmt.Errorf("embedding.batch_size must be at least 1, got %d: %w", c.Embedding.BatchSize, internalerr.ErrInvalidConfig)
	case c.Embedding.Vectors == "" && c.Embedding.Host != "" && c.Embedding.Model == "":
		return fmt.Errorf("embedding.model is required with embedding.host: %w", internalerr.ErrInvalidConfig)
	}
	return nil
}
