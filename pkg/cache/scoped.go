package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation, so
// multiple projects or tenants can share one cache backend without key
// collisions.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SourceKey generates a prefixed key for compiled source caching.
func (k *ScopedKeyer) SourceKey(patchHash string, opts SourceKeyOpts) string {
	return k.prefix + k.inner.SourceKey(patchHash, opts)
}

// RenderKey generates a prefixed key for rendered graph caching.
func (k *ScopedKeyer) RenderKey(patchHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(patchHash, opts)
}
