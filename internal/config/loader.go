package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/multiformats/go-multiaddr"
)

const ConfigFileName = "orbit-core.toml"

// LoadFromDir loads configuration from a data directory
// Returns default config if file doesn't exist
func LoadFromDir(baseDir string) (*Config, error) {
	configPath := filepath.Join(baseDir, ConfigFileName)

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// No config file, return defaults
		return DefaultConfig(), nil
	}

	// Load and parse TOML file
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Merge merges command-line flags into configuration
// Flags take precedence over config file values
func (c *Config) Merge(port int, username string, linger bool, verbosity int) {
	// Only override if flag was explicitly set
	if port != 0 {
		c.Server.Port = port
	}

	// username flag overrides the configured profile name
	if username != "" {
		c.Profile.Name = username
	}

	// linger flag overrides config
	if linger {
		c.Behavior.Linger = true
	}

	// verbosity flag overrides config
	if verbosity > 0 {
		c.Behavior.Verbosity = verbosity
	}
}

// Validate checks if configuration values are valid
func (c *Config) Validate() error {
	// Validate port
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 0-65535)", c.Server.Port)
	}

	// Validate port range
	if c.Server.PortRange < 1 {
		return fmt.Errorf("invalid port range: %d (must be >= 1)", c.Server.PortRange)
	}

	// Validate timeouts (should be positive)
	if c.Server.Timeouts.Read.Duration < 0 {
		return fmt.Errorf("invalid read timeout: %v (must be positive)", c.Server.Timeouts.Read)
	}
	if c.Server.Timeouts.Write.Duration < 0 {
		return fmt.Errorf("invalid write timeout: %v (must be positive)", c.Server.Timeouts.Write)
	}

	// Validate poll interval
	if c.P2P.PeerPollInterval.Duration <= 0 {
		return fmt.Errorf("invalid peer poll interval: %v (must be positive)", c.P2P.PeerPollInterval)
	}

	// Validate listen and bootstrap multiaddrs
	if len(c.P2P.ListenAddrs) == 0 {
		return fmt.Errorf("at least one listen address is required")
	}
	for _, addr := range c.P2P.ListenAddrs {
		if _, err := multiaddr.NewMultiaddr(addr); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", addr, err)
		}
	}
	for _, addr := range c.P2P.BootstrapPeers {
		if _, err := multiaddr.NewMultiaddr(addr); err != nil {
			return fmt.Errorf("invalid bootstrap address %q: %w", addr, err)
		}
	}

	return nil
}
