// Package config provides environment-based configuration for the placement
// engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the placement engine service.
type Config struct {
	// Database configuration
	DatabaseDSN string

	// Server configuration
	APIHost string
	APIPort int

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration

	// Engine configuration
	Engine EngineConfig
}

// EngineConfig holds placement-engine-specific configuration. Scoring weights
// live here, not as constants, so the scoring functions carry no hidden
// global state.
type EngineConfig struct {
	// Policy selects the scoring policy: "headroom" or "marketplace".
	Policy string `yaml:"policy"`

	// Headroom holds the linear-headroom policy coefficients.
	Headroom HeadroomWeights `yaml:"headroom"`

	// Marketplace holds the marketplace policy caps and bonus.
	Marketplace MarketplaceWeights `yaml:"marketplace"`
}

// HeadroomWeights mirrors engine.HeadroomWeights for config loading.
type HeadroomWeights struct {
	Headroom  float64 `yaml:"headroom"`
	Bandwidth float64 `yaml:"bandwidth"`
	Latency   float64 `yaml:"latency"`
}

// MarketplaceWeights mirrors engine.MarketplaceWeights for config loading.
type MarketplaceWeights struct {
	ProximityCap   float64 `yaml:"proximity_cap"`
	PriceCap       float64 `yaml:"price_cap"`
	ReliabilityCap float64 `yaml:"reliability_cap"`
	CapacityCap    float64 `yaml:"capacity_cap"`
	MistBonus      float64 `yaml:"mist_bonus"`
}

// Load reads configuration from environment variables. When
// ENGINE_WEIGHTS_FILE is set, the YAML file overrides the engine weights.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseDSN:     getEnv("DATABASE_URL", "postgres://localhost:5432/placement?sslmode=disable"),
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 8080),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		Engine: EngineConfig{
			Policy: getEnv("ENGINE_POLICY", "headroom"),
			Headroom: HeadroomWeights{
				Headroom:  getFloatEnv("ENGINE_W_HEADROOM", 0.5),
				Bandwidth: getFloatEnv("ENGINE_W_BANDWIDTH", 0.3),
				Latency:   getFloatEnv("ENGINE_W_LATENCY", 0.2),
			},
			Marketplace: MarketplaceWeights{
				ProximityCap:   getFloatEnv("ENGINE_PROXIMITY_CAP", 100),
				PriceCap:       getFloatEnv("ENGINE_PRICE_CAP", 50),
				ReliabilityCap: getFloatEnv("ENGINE_RELIABILITY_CAP", 50),
				CapacityCap:    getFloatEnv("ENGINE_CAPACITY_CAP", 30),
				MistBonus:      getFloatEnv("ENGINE_MIST_BONUS", 20),
			},
		},
	}

	if path := os.Getenv("ENGINE_WEIGHTS_FILE"); path != "" {
		if err := cfg.Engine.loadWeightsFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	switch c.Engine.Policy {
	case "headroom", "marketplace":
	default:
		return fmt.Errorf("ENGINE_POLICY must be \"headroom\" or \"marketplace\", got %q", c.Engine.Policy)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT out of range: %d", c.APIPort)
	}
	return nil
}

// loadWeightsFile overlays weights from a YAML file onto the engine config.
func (e *EngineConfig) loadWeightsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading weights file: %w", err)
	}
	if err := yaml.Unmarshal(data, e); err != nil {
		return fmt.Errorf("parsing weights file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
