package content

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CompositeKey is the full identity a handle is cached under: node identity,
// scope prefix and an override fingerprint. Node identity distinguishes
// graph references from inline fragments so two structurally identical
// inline fragments never collide unless they are the same authored node.
type CompositeKey struct {
	identity    string
	scope       string
	fingerprint string
}

func (k CompositeKey) String() string {
	return fmt.Sprintf("%s@%s#%s", k.identity, k.scope, k.fingerprint)
}

func graphIdentity(key CanonicalKey) string {
	return "key:" + string(key)
}

func inlineIdentity(node *InlineNode) string {
	// The authored fragment is the identity; pointer formatting keeps two
	// equal-looking fragments apart.
	return fmt.Sprintf("inline:%p", node)
}

// overridesFingerprint derives a deterministic string from an override map.
// Equal maps always produce equal fingerprints regardless of insertion
// order.
func overridesFingerprint(overrides map[string]any) string {
	if len(overrides) == 0 {
		return ""
	}
	var b strings.Builder
	writeFingerprint(&b, overrides)
	return b.String()
}

func writeFingerprint(b *strings.Builder, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(b, "%q=", key)
			writeFingerprint(b, v[key])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeFingerprint(b, item)
		}
		b.WriteByte(']')
	default:
		fmt.Fprintf(b, "%T(%v)", v, v)
	}
}

// resolutionCache holds the handles of one graph version. It is the only
// shared mutable structure in the core; each composite key is written at
// most once, under the mutex, before any resolution work for it starts.
type resolutionCache struct {
	version string
	mu      sync.Mutex
	handles map[CompositeKey]*Handle
}

func newResolutionCache(version string) *resolutionCache {
	return &resolutionCache{
		version: version,
		handles: make(map[CompositeKey]*Handle),
	}
}

// intern returns the handle cached under key, creating and registering a
// fresh pending handle when none exists. created reports whether this call
// owns the resolution work; concurrent and re-entrant callers all observe
// the one registered handle.
func (c *resolutionCache) intern(key CompositeKey) (h *Handle, created bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.handles[key]; ok {
		return existing, false
	}
	h = newHandle()
	c.handles[key] = h
	return h, true
}

func (c *resolutionCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}
