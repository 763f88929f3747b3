package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the service configuration loaded from a YAML file. Secrets never
// live here; the API key comes from the environment.
type Config struct {
	Debug           bool       `yaml:"debug"`
	DefinitionsPath string     `yaml:"definitions_path"`
	CustomMacroDir  string     `yaml:"custom_macro_dir"`
	Generation      Generation `yaml:"generation"`
}

// Generation configures the LLM backend used by the generation collaborator.
type Generation struct {
	Provider          string `yaml:"provider"` // "ollama" or "cloud"
	Endpoint          string `yaml:"endpoint"`
	Model             string `yaml:"model"`
	MaxRetries        int    `yaml:"max_retries"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
}

// RetryDelay returns the configured initial backoff delay.
func (g Generation) RetryDelay() time.Duration {
	return time.Duration(g.RetryDelaySeconds) * time.Second
}

// Load reads a YAML config file, applies defaults, and validates the result.
// A missing file is not an error; defaults apply (common on first run).
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %v", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %v", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills in unset fields.
func (c *Config) SetDefaults() (changed bool) {
	if c.DefinitionsPath == "" {
		c.DefinitionsPath = "definitions/macro_definitions.json"
		changed = true
	}
	if c.CustomMacroDir == "" {
		c.CustomMacroDir = "macros"
		changed = true
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = "ollama"
		changed = true
	}
	if c.Generation.Endpoint == "" {
		if c.Generation.Provider == "ollama" {
			c.Generation.Endpoint = "http://localhost:11434/api/generate"
		} else {
			c.Generation.Endpoint = "https://generativelanguage.googleapis.com/v1beta/models"
		}
		changed = true
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "llama3"
		changed = true
	}
	if c.Generation.MaxRetries <= 0 {
		c.Generation.MaxRetries = 3
		changed = true
	}
	if c.Generation.RetryDelaySeconds <= 0 {
		c.Generation.RetryDelaySeconds = 2
		changed = true
	}
	return changed
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Generation.Provider {
	case "ollama", "cloud":
	default:
		return fmt.Errorf("unknown generation provider %q (want \"ollama\" or \"cloud\")", c.Generation.Provider)
	}
	return nil
}
