package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Compile hooks
	c := NoopCompileHooks{}
	c.OnValidateStart(ctx, 10)
	c.OnValidateComplete(ctx, 10, 0, time.Second)
	c.OnPlanStart(ctx, 10)
	c.OnPlanComplete(ctx, 10, time.Second, nil)
	c.OnEmitStart(ctx, 10)
	c.OnEmitComplete(ctx, 2048, time.Second, nil)

	// Cache hooks
	h := NoopCacheHooks{}
	h.OnCacheHit(ctx, "source")
	h.OnCacheMiss(ctx, "render")
	h.OnCacheSet(ctx, "source", 1024)

	// Store hooks
	s := NoopStoreHooks{}
	s.OnStoreOp(ctx, "save", time.Second, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Compile().(NoopCompileHooks); !ok {
		t.Error("Compile() should return NoopCompileHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}

	// Set custom hooks
	customCompile := &testCompileHooks{}
	SetCompileHooks(customCompile)
	if Compile() != customCompile {
		t.Error("SetCompileHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customStore := &testStoreHooks{}
	SetStoreHooks(customStore)
	if Store() != customStore {
		t.Error("SetStoreHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Compile().(NoopCompileHooks); !ok {
		t.Error("Reset() should restore NoopCompileHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testCompileHooks{}
	SetCompileHooks(custom)

	// Setting nil should be ignored
	SetCompileHooks(nil)

	if Compile() != custom {
		t.Error("SetCompileHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testCompileHooks struct{ NoopCompileHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testStoreHooks struct{ NoopStoreHooks }
