// Package storage persists completed sale records. Two backends exist: a
// human-readable JSON file rewritten in full on every append (the default)
// and Postgres for deployments that already run a database.
package storage

import (
	"context"

	"salesbot/app/sales"
)

// Store is an append-only collection of sale records. Records are never
// mutated after creation.
type Store interface {
	// Append adds one completed sale record.
	Append(ctx context.Context, rec sales.Record) error
	// List returns all records in creation order.
	List(ctx context.Context) ([]sales.Record, error)
}

// Backend names for config selection.
const (
	BackendJSON     = "json"
	BackendPostgres = "postgres"
)

// Config selects and parameterises the record store backend.
type Config struct {
	Backend string `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	// Path of the JSON data file, used by the json backend.
	Path string `yaml:"path" envconfig:"STORAGE_PATH"`
}

// Normalize applies defaults.
func (c *Config) Normalize() {
	if c.Backend == "" {
		c.Backend = BackendJSON
	}
	if c.Path == "" {
		c.Path = "payments_data.json"
	}
}
