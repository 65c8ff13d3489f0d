// Package config loads patchc configuration from TOML files.
//
// Configuration covers the cache backend, patch storage, default engine
// settings, and the HTTP server. Every field has a working default, so a
// missing config file is not an error.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/soundpatch/patchc/pkg/errors"
	"github.com/soundpatch/patchc/pkg/patch"
)

// Config is the root configuration.
type Config struct {
	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Engine EngineConfig `toml:"engine"`
	Server ServerConfig `toml:"server"`
}

// CacheConfig selects and configures the artifact cache backend.
type CacheConfig struct {
	// Backend is "file", "redis", or "none".
	Backend string `toml:"backend"`

	// Dir is the cache directory for the file backend. Empty means the
	// user cache directory.
	Dir string `toml:"dir"`

	Redis RedisConfig `toml:"redis"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// StoreConfig selects and configures patch storage.
type StoreConfig struct {
	// Backend is "memory" or "mongo".
	Backend string `toml:"backend"`

	Mongo MongoConfig `toml:"mongo"`
}

// MongoConfig configures the mongo store backend.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// EngineConfig carries default engine settings applied to patches that do
// not set their own.
type EngineConfig struct {
	SampleRate float64 `toml:"sample_rate"`
	BlockSize  int     `toml:"block_size"`
	Oversample int     `toml:"oversample"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			Backend: "file",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Store: StoreConfig{
			Backend: "memory",
			Mongo: MongoConfig{
				URI:      "mongodb://localhost:27017",
				Database: "patchc",
			},
		},
		Engine: EngineConfig{
			SampleRate: patch.DefaultSampleRate,
			BlockSize:  patch.DefaultBlockSize,
			Oversample: patch.DefaultOversample,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads a TOML config file, layering it over the defaults. An empty
// path tries the default location; a missing file at either yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	return cfg, nil
}

// DefaultPath returns the default config file location,
// $XDG_CONFIG_HOME/patchc/config.toml or its platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "patchc", "config.toml")
}

// CacheDir returns the effective cache directory for the file backend.
func (c Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".patchc-cache"
	}
	return filepath.Join(dir, "patchc")
}

// Settings returns the engine defaults as patch settings.
func (c Config) Settings() patch.Settings {
	return patch.Settings{
		SampleRate: c.Engine.SampleRate,
		BlockSize:  c.Engine.BlockSize,
		Oversample: c.Engine.Oversample,
	}
}
