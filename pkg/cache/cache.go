// Package cache provides artifact caching for the patch compiler.
//
// Compiled source, render output, and decoded documents are all addressable
// by content hash, so every backend is a plain byte store with TTLs. Three
// backends are provided:
//   - file: directory-backed cache for CLI usage
//   - redis: shared cache for server deployments
//   - null: caching disabled
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache TTLs per artifact class. Compiled source and rendered graphs are
// pure functions of the patch hash, so they could live forever; the TTLs
// just bound disk and memory usage.
const (
	// TTLSource applies to compiled source artifacts.
	TTLSource = 30 * 24 * time.Hour

	// TTLRender applies to rendered graph images.
	TTLRender = 7 * 24 * time.Hour
)

// Cache is a byte store with optional expiration. Implementations must be
// safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// SourceKeyOpts are the inputs, beyond the patch itself, that change the
// compiled source. They are folded into the cache key so that changing any
// of them never serves a stale artifact.
type SourceKeyOpts struct {
	SampleRate float64 `json:"sample_rate"`
	BlockSize  int     `json:"block_size"`
	Oversample int     `json:"oversample"`

	// LibraryKinds fingerprints the node library: registering or removing a
	// kind invalidates cached source.
	LibraryKinds []string `json:"library_kinds"`
}

// RenderKeyOpts are the inputs that change a rendered graph artifact.
type RenderKeyOpts struct {
	Format string `json:"format"`
}

// Keyer generates cache keys for the compiler's artifact classes.
type Keyer interface {
	// SourceKey generates a key for compiled source, from the patch content
	// hash and the compile options.
	SourceKey(patchHash string, opts SourceKeyOpts) string

	// RenderKey generates a key for a rendered graph artifact.
	RenderKey(patchHash string, opts RenderKeyOpts) string
}

// DefaultKeyer is the standard key scheme: a class prefix plus a SHA-256
// over the hash and options.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// SourceKey generates a key for compiled source caching.
func (k *DefaultKeyer) SourceKey(patchHash string, opts SourceKeyOpts) string {
	return hashKey("source", patchHash, opts)
}

// RenderKey generates a key for rendered graph caching.
func (k *DefaultKeyer) RenderKey(patchHash string, opts RenderKeyOpts) string {
	return hashKey("render", patchHash, opts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Full SHA-256 (64 hex chars) to prevent collisions.
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes the SHA-256 hash of data as a 64-character hex string. It is
// the canonical content hash for patch documents.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
