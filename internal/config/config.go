// Package config loads the project configuration from a YAML file.
//
// API key lookup order:
//  1. --api-key flag (highest priority)
//  2. TRAD_API_KEY environment variable
//  3. azure.api_key in the config file
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvAPIKey = "TRAD_API_KEY"

// Duration wraps time.Duration for YAML values like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

type Azure struct {
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	APIKey   string `yaml:"api_key"`
}

type Batch struct {
	Size       int      `yaml:"size"`
	MaxRetries int      `yaml:"max_retries"`
	RetryBase  Duration `yaml:"retry_base"`
	Pause      Duration `yaml:"pause"`
}

type Config struct {
	SourceLocale string   `yaml:"source_locale"`
	Locales      []string `yaml:"locales"`
	Catalog      string   `yaml:"catalog"`
	OutDir       string   `yaml:"out_dir"`
	DBPath       string   `yaml:"db_path"`
	Azure        Azure    `yaml:"azure"`
	Batch        Batch    `yaml:"batch"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		SourceLocale: "en",
		Catalog:      "phrases.json",
		OutDir:       "locales",
		DBPath:       "data/trad.db",
	}
}

// Load reads path, falling back to defaults for anything unset. A missing
// file is not an error — the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolveAPIKey applies the lookup order: explicit flag, environment,
// config file.
func (c Config) ResolveAPIKey(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		return v
	}
	return c.Azure.APIKey
}
