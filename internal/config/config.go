package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models sitedeck.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Roles struct {
		// Canonical is the role vocabulary the dashboard recognizes.
		// Anything outside it falls back to base visibility and the
		// worker default layout.
		Canonical []string `yaml:"canonical"`
	} `yaml:"roles"`
	Worker struct {
		UpstreamURL    string `yaml:"upstream_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		HistoryLimit   int    `yaml:"history_limit"`
	} `yaml:"worker"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with 'sd config init'", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if len(c.Roles.Canonical) == 0 {
		return fmt.Errorf("config.roles.canonical is required")
	}
	for _, role := range c.Roles.Canonical {
		if strings.TrimSpace(role) == "" {
			return fmt.Errorf("config.roles.canonical contains empty role")
		}
		if role != strings.ToLower(role) {
			return fmt.Errorf("config.roles.canonical role %s must be lowercase", role)
		}
	}
	if c.Worker.TimeoutSeconds <= 0 {
		return fmt.Errorf("config.worker.timeout_seconds must be positive")
	}
	if c.Worker.HistoryLimit < 0 {
		return fmt.Errorf("config.worker.history_limit must not be negative")
	}
	return nil
}

// KnowsRole reports whether role is in the canonical vocabulary.
func (c *Config) KnowsRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, r := range c.Roles.Canonical {
		if r == role {
			return true
		}
	}
	return false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "sitedeck.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// DefaultTemplate returns the commented starting point for sitedeck.yml.
func DefaultTemplate() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /api

roles:
  canonical:
    - ceo
    - project-manager
    - safety-officer
    - equipment-manager
    - engineer
    - worker

worker:
  upstream_url: ""
  timeout_seconds: 30
  history_limit: 10
`
