package bot

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"salesbot/app/reminder"
	"salesbot/app/storage"
	coreconfig "salesbot/core/config"
	"salesbot/core/database"
)

// Config aggregates the core bot configuration with the application
// sections: record storage, the optional Postgres backend, and the
// reminder sweep.
type Config struct {
	Core     coreconfig.Config `yaml:",inline"`
	Database database.Config   `yaml:"database"`
	Storage  storage.Config    `yaml:"storage"`
	Reminder reminder.Config   `yaml:"reminder"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// LoadConfig reads YAML from path, applies environment overrides, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	cfg.Storage.Normalize()
	cfg.Reminder.Normalize()

	switch cfg.Storage.Backend {
	case storage.BackendJSON, storage.BackendPostgres:
	default:
		return nil, fmt.Errorf("config: unknown storage backend %q", cfg.Storage.Backend)
	}

	return &cfg, nil
}
