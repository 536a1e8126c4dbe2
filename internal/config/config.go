package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ThetaSpace/lp-pipeline/internal/addresses"
	"github.com/ThetaSpace/lp-pipeline/internal/consts"
	"github.com/ThetaSpace/lp-pipeline/internal/pool"
	"github.com/ThetaSpace/lp-pipeline/internal/signer"
)

// Config application configuration
type Config struct {
	App      AppConfig           `yaml:"app"`
	Signer   signer.SignerConfig `yaml:"signer"`
	Chains   []ChainConfig       `yaml:"chains"`
	Slippage string              `yaml:"slippage"` // default slippage percentage, "0.5" = 0.5%
}

// AppConfig application basic configuration
type AppConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"logLevel"` // debug, info, warn, error
}

// ChainConfig is the node and deployment configuration of one chain
type ChainConfig struct {
	ChainID uint64 `yaml:"chainId"`
	RPCURL  string `yaml:"rpcUrl"`
	// Contracts overrides registry entries by name (router, permit2,
	// weightedPoolFactory, ...)
	Contracts map[string]string `yaml:"contracts"`
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a yaml document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "lpctl"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Slippage == "" {
		c.Slippage = "0.5"
	}
}

// Validate validates configuration
func (c *Config) Validate() error {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.logLevel %q is not one of debug, info, warn, error", c.App.LogLevel)
	}
	if _, err := pool.SlippageFromPercentage(c.Slippage); err != nil {
		return fmt.Errorf("slippage: %w", err)
	}

	seen := make(map[uint64]bool, len(c.Chains))
	for i, chain := range c.Chains {
		if chain.ChainID == 0 {
			return fmt.Errorf("chains[%d].chainId is required", i)
		}
		if !consts.ChainID(chain.ChainID).IsSupported() {
			return fmt.Errorf("chains[%d].chainId %d is not supported", i, chain.ChainID)
		}
		if seen[chain.ChainID] {
			return fmt.Errorf("chains[%d].chainId %d is configured twice", i, chain.ChainID)
		}
		seen[chain.ChainID] = true
		if chain.RPCURL == "" {
			return fmt.Errorf("chains[%d].rpcUrl is required", i)
		}
	}

	// contract names and addresses are checked by applying them
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// Chain gets the chain configuration by chain ID
func (c *Config) Chain(chainID uint64) *ChainConfig {
	for i := range c.Chains {
		if c.Chains[i].ChainID == chainID {
			return &c.Chains[i]
		}
	}
	return nil
}

// DefaultSlippage returns the configured default slippage
func (c *Config) DefaultSlippage() (pool.Slippage, error) {
	return pool.SlippageFromPercentage(c.Slippage)
}

// SignerEnabled reports whether a signing key is configured
func (c *Config) SignerEnabled() bool {
	return c.Signer.PrivateKey != "" || c.Signer.PrivateKeyEnv != ""
}

// Registry returns the built-in deployments with the configured contract
// overrides applied
func (c *Config) Registry() (*addresses.Registry, error) {
	registry := addresses.DefaultRegistry()
	for i, chain := range c.Chains {
		if len(chain.Contracts) == 0 {
			continue
		}
		if err := registry.Override(consts.ChainID(chain.ChainID), chain.Contracts); err != nil {
			return nil, fmt.Errorf("chains[%d].contracts: %w", i, err)
		}
	}
	return registry, nil
}
