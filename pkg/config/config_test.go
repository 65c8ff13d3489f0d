package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soundpatch/patchc/pkg/patch"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Cache.Backend != "file" {
		t.Errorf("Cache.Backend = %q, want %q", cfg.Cache.Backend, "file")
	}
	if cfg.Engine.SampleRate != patch.DefaultSampleRate {
		t.Errorf("Engine.SampleRate = %v, want default", cfg.Engine.SampleRate)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[cache]
backend = "redis"

[cache.redis]
addr = "cache.internal:6379"

[engine]
sample_rate = 48000.0
oversample = 4
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Cache.Backend != "redis" {
		t.Errorf("Cache.Backend = %q, want redis", cfg.Cache.Backend)
	}
	if cfg.Cache.Redis.Addr != "cache.internal:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Cache.Redis.Addr)
	}
	if cfg.Engine.SampleRate != 48000 {
		t.Errorf("SampleRate = %v, want 48000", cfg.Engine.SampleRate)
	}
	if cfg.Engine.Oversample != 4 {
		t.Errorf("Oversample = %d, want 4", cfg.Engine.Oversample)
	}
	// Unset sections keep their defaults.
	if cfg.Store.Backend != "memory" {
		t.Errorf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Engine.BlockSize != patch.DefaultBlockSize {
		t.Errorf("BlockSize = %d, want default", cfg.Engine.BlockSize)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("cache = [not toml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed config should fail")
	}
}

func TestCacheDirOverride(t *testing.T) {
	cfg := Default()
	cfg.Cache.Dir = "/tmp/custom"
	if cfg.CacheDir() != "/tmp/custom" {
		t.Errorf("CacheDir = %q, want override", cfg.CacheDir())
	}
}

func TestCacheDirDefault(t *testing.T) {
	dir := Default().CacheDir()
	if dir == "" {
		t.Fatal("CacheDir returned empty string")
	}
	// Either the user cache directory or the in-tree fallback, both
	// carry the app name.
	if !strings.Contains(filepath.Base(dir), "patchc") {
		t.Errorf("CacheDir = %q, want a patchc directory", dir)
	}
}

func TestSettings(t *testing.T) {
	cfg := Default()
	cfg.Engine.SampleRate = 96000
	cfg.Engine.BlockSize = 128

	s := cfg.Settings()
	if s.SampleRate != 96000 || s.BlockSize != 128 {
		t.Errorf("Settings() = %+v, want engine section values", s)
	}
	if s.Oversample != patch.DefaultOversample {
		t.Errorf("Oversample = %d, want default", s.Oversample)
	}
}
