package remotesim

import (
	"fmt"

	"github.com/arloliu/fuda"
)

// LoadConfig loads Config from a YAML or JSON file.
// Environment variables override file values.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	// fuda.LoadFile handles reading, parsing, env vars, defaults, and validation
	if err := fuda.LoadFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	return &cfg, nil
}

// ParseConfig parses Config from a byte slice (YAML or JSON, auto-detected).
// Environment variables override document values.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := fuda.LoadBytes(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides cfg fields from environment variables.
func ApplyEnv(cfg *Config) error {
	if err := fuda.LoadEnv(cfg); err != nil {
		return fmt.Errorf("apply env: %w", err)
	}

	return nil
}
