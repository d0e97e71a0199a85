package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config models projectline.yml.
type Config struct {
	Project struct {
		// Statuses is the allowed project workflow state set. The task
		// status set is fixed; this one is deployment configuration.
		Statuses []string `yaml:"statuses"`
	} `yaml:"project"`
	Events struct {
		Transport    string `yaml:"transport"` // redis, log or none
		RedisAddr    string `yaml:"redis_addr"`
		StreamMaxLen int64  `yaml:"stream_max_len"`
	} `yaml:"events"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	var c Config
	c.Project.Statuses = []string{"PLANNED", "ACTIVE", "ON_HOLD", "COMPLETED", "CANCELLED"}
	c.Events.Transport = "log"
	c.Events.RedisAddr = "localhost:6379"
	c.Events.StreamMaxLen = 10000
	return &c
}

// Load reads and validates config from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Project.Statuses) == 0 {
		return fmt.Errorf("config.project.statuses is required")
	}
	for _, s := range c.Project.Statuses {
		if s == "" {
			return fmt.Errorf("config.project.statuses contains empty status")
		}
	}
	switch c.Events.Transport {
	case "redis", "log", "none":
	default:
		return fmt.Errorf("config.events.transport must be redis, log or none")
	}
	if c.Events.Transport == "redis" && c.Events.RedisAddr == "" {
		return fmt.Errorf("config.events.redis_addr is required for redis transport")
	}
	return nil
}

// StatusAllowed reports whether s is in the configured project status set.
func (c *Config) StatusAllowed(s string) bool {
	for _, v := range c.Project.Statuses {
		if v == s {
			return true
		}
	}
	return false
}
