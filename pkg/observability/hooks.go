// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about compilation, cache operations, and
// patch storage.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, which keeps the core
// packages free of observability framework imports and avoids import cycles.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetCompileHooks(&myCompileHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Compile().OnValidateStart(ctx, nodeCount)
//	// ... validate ...
//	observability.Compile().OnValidateComplete(ctx, nodeCount, issueCount, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// CompileHooks receives events from the compilation pipeline.
type CompileHooks interface {
	// Validation events
	OnValidateStart(ctx context.Context, nodeCount int)
	OnValidateComplete(ctx context.Context, nodeCount, issueCount int, duration time.Duration)

	// Planning events
	OnPlanStart(ctx context.Context, nodeCount int)
	OnPlanComplete(ctx context.Context, nodeCount int, duration time.Duration, err error)

	// Emission events
	OnEmitStart(ctx context.Context, nodeCount int)
	OnEmitComplete(ctx context.Context, sourceBytes int, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// StoreHooks receives events from patch storage operations.
type StoreHooks interface {
	// OnStoreOp records a storage operation ("save", "get", "list", "delete").
	OnStoreOp(ctx context.Context, op string, duration time.Duration, err error)
}

// NoopCompileHooks is a no-op implementation of CompileHooks.
type NoopCompileHooks struct{}

func (NoopCompileHooks) OnValidateStart(context.Context, int)                        {}
func (NoopCompileHooks) OnValidateComplete(context.Context, int, int, time.Duration) {}
func (NoopCompileHooks) OnPlanStart(context.Context, int)                            {}
func (NoopCompileHooks) OnPlanComplete(context.Context, int, time.Duration, error)   {}
func (NoopCompileHooks) OnEmitStart(context.Context, int)                            {}
func (NoopCompileHooks) OnEmitComplete(context.Context, int, time.Duration, error)   {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreOp(context.Context, string, time.Duration, error) {}

var (
	compileHooks CompileHooks = NoopCompileHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	storeHooks   StoreHooks   = NoopStoreHooks{}
	hooksMu      sync.RWMutex
)

// SetCompileHooks registers custom compile hooks.
// This should be called once at application startup.
func SetCompileHooks(h CompileHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		compileHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetStoreHooks registers custom storage hooks.
// This should be called once at application startup.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Compile returns the registered compile hooks.
func Compile() CompileHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return compileHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Store returns the registered storage hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	compileHooks = NoopCompileHooks{}
	cacheHooks = NoopCacheHooks{}
	storeHooks = NoopStoreHooks{}
}
