package state

import (
	"context"
	"errors"
	"strings"
)

// ErrClosed is returned by stores whose backing resource has been released.
var ErrClosed = errors.New("state: store is closed")

// Store persists per-component state keyed by scoped state key and field
// name. Implementations must be safe for concurrent use; component setup
// runs on resolver goroutines.
//
// Keys are opaque strings here. The resolution layer derives them from a
// node key plus its scope chain, so two renders of the same node under
// different scopes read and write disjoint keys.
type Store interface {
	// Get reads one field. The second result reports whether the field has
	// ever been written.
	Get(ctx context.Context, key, field string) (any, bool, error)

	// Set writes one field, creating the key on first write.
	Set(ctx context.Context, key, field string, value any) error

	// Snapshot returns a detached copy of every field under key. Mutating
	// the returned map must not affect the store.
	Snapshot(ctx context.Context, key string) (map[string]any, error)

	// SnapshotScope returns detached snapshots of every key under the scope
	// prefix, indexed by the key's remainder relative to that prefix. An
	// empty scope snapshots the whole store under full keys.
	SnapshotScope(ctx context.Context, scope string) (map[string]map[string]any, error)
}

// scopeSeparator matches the separator the resolution layer uses when it
// derives scoped state keys.
const scopeSeparator = ":"

// relativeKey reports whether key falls under scope and, if so, the
// remainder after the scope prefix. Keys equal to the scope itself do not
// count; a scope is a prefix of keys, not a key.
func relativeKey(scope, key string) (string, bool) {
	if scope == "" {
		return key, key != ""
	}
	rest, found := strings.CutPrefix(key, scope+scopeSeparator)
	if !found || rest == "" {
		return "", false
	}
	return rest, true
}
