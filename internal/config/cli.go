package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir returns the default CLI config directory (~/.railsdash).
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".railsdash"), nil
}

// DefaultConfigPath returns the default CLI config file path (~/.railsdash/config.yml).
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}

// CLIConfig holds the operator CLI configuration.
type CLIConfig struct {
	APIKey    string       `yaml:"api_key,omitempty"`
	ProgramID string       `yaml:"program_id,omitempty"`
	BaseURL   string       `yaml:"base_url,omitempty"`
	Timeout   string       `yaml:"timeout,omitempty"`
	Debug     bool         `yaml:"debug,omitempty"`
	Proxy     *ProxyConfig `yaml:"proxy,omitempty"`
}

// Validate checks that the configuration has the credentials required for API calls.
func (c *CLIConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("api_key is required")
	}
	if c.ProgramID == "" {
		return errors.New("program_id is required")
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
	}
	return nil
}

// IsConfigured returns true if both credentials are present.
func (c *CLIConfig) IsConfigured() bool {
	return c.APIKey != "" && c.ProgramID != ""
}

// ApplyEnv overrides file values with RAILSR_* environment variables when set.
func (c *CLIConfig) ApplyEnv() {
	if v := os.Getenv("RAILSR_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("RAILSR_PROGRAM_ID"); v != "" {
		c.ProgramID = v
	}
	if v := os.Getenv("RAILSR_API_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("RAILSR_TIMEOUT"); v != "" {
		c.Timeout = v
	}
	c.Debug = getEnvBool("RAILSR_DEBUG", c.Debug)
}

// Credentials converts the file configuration into client credentials.
func (c *CLIConfig) Credentials() Credentials {
	creds := Credentials{
		APIKey:    c.APIKey,
		ProgramID: c.ProgramID,
		BaseURL:   c.BaseURL,
		Timeout:   DefaultRailsrTimeout,
		Debug:     c.Debug,
	}
	if creds.BaseURL == "" {
		creds.BaseURL = DefaultRailsrURL
	}
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		creds.Timeout = d
	}
	return creds
}

// Load reads the configuration from the given path.
// If the file does not exist, an empty config is returned.
func Load(path string) (*CLIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &CLIConfig{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads the configuration from the default path.
func LoadDefault() (*CLIConfig, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes the configuration to the given path, creating directories as needed.
func (c *CLIConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// The file holds the API key
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// SaveDefault saves the configuration to the default path.
func (c *CLIConfig) SaveDefault() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.Save(path)
}
