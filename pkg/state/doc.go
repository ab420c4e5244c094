// Package state holds the persistence contracts for per-component reactive
// state. A Store keeps field values under scoped state keys; the resolution
// layer derives those keys from a node's key and scope chain, so one shared
// node rendered in several scopes owns several independent keys.
//
// Two implementations ship with the package: MemoryStore for tests and
// single-session embeddings, and BoltStore for durable sessions backed by a
// bbolt file. Grading and gating read whole scopes at once through
// SnapshotScope and never see live references into a store.
package state
