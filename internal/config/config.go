// Package config provides configuration loading for the governance engine
// binaries.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/governance-engine/internal/heuristics"
	"github.com/danielpatrickdp/governance-engine/internal/persist"
)

// #region config-types

// Config is the complete governance engine configuration.
type Config struct {
	DBPath      string            `yaml:"db_path"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Heuristics  HeuristicsConfig  `yaml:"heuristics"`
}

// PersistenceConfig tunes the persistence gate.
type PersistenceConfig struct {
	// PreviewLimit bounds the rejected-output preview stored on a block.
	PreviewLimit int `yaml:"preview_limit"`
}

// HeuristicsConfig holds the heuristic governance thresholds.
type HeuristicsConfig struct {
	PromoteEvidence int     `yaml:"promote_evidence"`
	PromoteRate     float64 `yaml:"promote_rate"`
	QualifyEvidence int     `yaml:"qualify_evidence"`
	QualifyRate     float64 `yaml:"qualify_rate"`
	MinOverlapTerms int     `yaml:"min_overlap_terms"`
}

// #endregion config-types

// #region defaults

// DefaultConfig returns the policy defaults.
func DefaultConfig() *Config {
	h := heuristics.DefaultConfig()
	p := persist.DefaultGateConfig()
	return &Config{
		DBPath: "governance.db",
		Persistence: PersistenceConfig{
			PreviewLimit: p.PreviewLimit,
		},
		Heuristics: HeuristicsConfig{
			PromoteEvidence: h.PromoteEvidence,
			PromoteRate:     h.PromoteRate,
			QualifyEvidence: h.QualifyEvidence,
			QualifyRate:     h.QualifyRate,
			MinOverlapTerms: h.MinOverlapTerms,
		},
	}
}

// #endregion defaults

// #region load

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Persistence.PreviewLimit <= 0 {
		return fmt.Errorf("persistence.preview_limit must be positive")
	}
	if c.Heuristics.PromoteEvidence < c.Heuristics.QualifyEvidence {
		return fmt.Errorf("heuristics.promote_evidence must be >= qualify_evidence")
	}
	if c.Heuristics.PromoteRate < c.Heuristics.QualifyRate {
		return fmt.Errorf("heuristics.promote_rate must be >= qualify_rate")
	}
	if c.Heuristics.MinOverlapTerms < 1 {
		return fmt.Errorf("heuristics.min_overlap_terms must be >= 1")
	}
	return nil
}

// #endregion load

// #region conversions

// GateConfig converts to the persistence gate's config type.
func (c *Config) GateConfig() persist.GateConfig {
	return persist.GateConfig{PreviewLimit: c.Persistence.PreviewLimit}
}

// RegistryConfig converts to the heuristic registry's config type.
func (c *Config) RegistryConfig() heuristics.Config {
	return heuristics.Config{
		PromoteEvidence: c.Heuristics.PromoteEvidence,
		PromoteRate:     c.Heuristics.PromoteRate,
		QualifyEvidence: c.Heuristics.QualifyEvidence,
		QualifyRate:     c.Heuristics.QualifyRate,
		MinOverlapTerms: c.Heuristics.MinOverlapTerms,
	}
}

// #endregion conversions
