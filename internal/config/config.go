// Package config loads the database layer's settings from YAML.
//
// Example file:
//
//	path: ./app.db
//	disable_sync: true
//	wal: true
//	busy_timeout: 5s
//	callbacks:
//	  executor: pool
//	  pool_size: 4
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqldb/internal/dispatch"
)

// Config holds the engine and callback settings.
type Config struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// DisableSync turns off synchronous writes (PRAGMA synchronous=OFF).
	DisableSync bool `yaml:"disable_sync"`

	// WAL enables write-ahead logging. Default: true.
	WAL bool `yaml:"wal"`

	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	Callbacks Callbacks `yaml:"callbacks"`
}

// Callbacks selects the executor that runs result callbacks.
type Callbacks struct {
	// Executor is one of "serial", "pool" or "go". Default: "serial".
	Executor string `yaml:"executor"`

	// PoolSize bounds concurrent callbacks for the "pool" executor.
	PoolSize int `yaml:"pool_size"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		WAL:         true,
		BusyTimeout: 5 * time.Second,
		Callbacks: Callbacks{
			Executor: dispatch.KindSerial,
			PoolSize: 4,
		},
	}
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. An empty Path is allowed here; the CLI may
// supply it from a flag.
func (c Config) Validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("config: busy_timeout must not be negative, got %s", c.BusyTimeout)
	}
	switch c.Callbacks.Executor {
	case "", dispatch.KindSerial, dispatch.KindGo:
	case dispatch.KindPool:
		if c.Callbacks.PoolSize <= 0 {
			return fmt.Errorf("config: callbacks.pool_size must be positive for the pool executor, got %d", c.Callbacks.PoolSize)
		}
	default:
		return fmt.Errorf("config: unknown callbacks.executor %q", c.Callbacks.Executor)
	}
	return nil
}
